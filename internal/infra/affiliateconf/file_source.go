package affiliateconf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/yanqian/cruise-planner/internal/domain/affiliate"
)

const defaultDebounce = 250 * time.Millisecond

// FileSource serves partner ids from a YAML file and reloads it when the file
// changes. Partners missing from the file fall through to the fallback.
type FileSource struct {
	path     string
	fallback affiliate.IDSource
	debounce time.Duration
	logger   *slog.Logger

	mu  sync.RWMutex
	ids map[string]string
}

// NewFileSource loads path once. A missing file starts with an empty map; a
// malformed one is an error.
func NewFileSource(path string, fallback affiliate.IDSource, logger *slog.Logger) (*FileSource, error) {
	s := &FileSource{
		path:     filepath.Clean(path),
		fallback: fallback,
		debounce: defaultDebounce,
		logger:   logger.With("component", "affiliateconf.file"),
		ids:      map[string]string{},
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// PartnerID implements affiliate.IDSource.
func (s *FileSource) PartnerID(partner string) string {
	s.mu.RLock()
	id := s.ids[partner]
	s.mu.RUnlock()
	if id != "" {
		return id
	}
	if s.fallback != nil {
		return s.fallback.PartnerID(partner)
	}
	return ""
}

// Reload re-reads the file and swaps the id map. On error the previous map stays.
func (s *FileSource) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.swap(map[string]string{})
			s.logger.Warn("affiliate file not found", "path", s.path)
			return nil
		}
		return fmt.Errorf("read affiliate file: %w", err)
	}
	ids, err := parseIDs(data)
	if err != nil {
		return err
	}
	s.swap(ids)
	s.logger.Info("affiliate ids loaded", "path", s.path, "partners", len(ids))
	return nil
}

func (s *FileSource) swap(ids map[string]string) {
	s.mu.Lock()
	s.ids = ids
	s.mu.Unlock()
}

// Run watches the file's directory until ctx is done. Editors often replace
// files by rename, so the directory is watched rather than the file itself.
func (s *FileSource) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create affiliate watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch affiliate dir: %w", err)
	}
	s.logger.Info("watching affiliate file", "path", s.path, "debounce", s.debounce)

	timer := time.NewTimer(s.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				timer.Reset(s.debounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("affiliate watcher error", "error", err)
		case <-timer.C:
			if err := s.Reload(); err != nil {
				s.logger.Error("affiliate reload failed", "error", err)
			}
		}
	}
}

func parseIDs(data []byte) (map[string]string, error) {
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse affiliate file: %w", err)
	}
	ids := make(map[string]string, len(raw))
	for k, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			ids[strings.ToLower(strings.TrimSpace(k))] = v
		}
	}
	return ids, nil
}

var _ affiliate.IDSource = (*FileSource)(nil)
