package affiliateconf

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/cruise-planner/internal/domain/affiliate"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnvSourceReadsAtCallTime(t *testing.T) {
	src := EnvSource{}
	t.Setenv("KLOOK_AFFILIATE_ID", "")
	require.Empty(t, src.PartnerID(affiliate.PartnerKlook))

	t.Setenv("KLOOK_AFFILIATE_ID", " k1 ")
	require.Equal(t, "k1", src.PartnerID(affiliate.PartnerKlook))
	require.Empty(t, src.PartnerID("unknown"))
}

func TestChainPrefersEarlierSources(t *testing.T) {
	chain := Chain{
		StaticSource{affiliate.PartnerViator: "from-first"},
		nil,
		StaticSource{affiliate.PartnerViator: "from-second", affiliate.PartnerBooking: "b1"},
	}

	require.Equal(t, "from-first", chain.PartnerID(affiliate.PartnerViator))
	require.Equal(t, "b1", chain.PartnerID(affiliate.PartnerBooking))
	require.Empty(t, chain.PartnerID(affiliate.PartnerKlook))
}

func TestFileSourceLoadsAndFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "affiliates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("viator: v1\nKlook: ' k1 '\nbooking: ''\n"), 0o600))

	src, err := NewFileSource(path, StaticSource{affiliate.PartnerBooking: "fallback"}, discardLogger())
	require.NoError(t, err)

	require.Equal(t, "v1", src.PartnerID(affiliate.PartnerViator))
	require.Equal(t, "k1", src.PartnerID(affiliate.PartnerKlook))
	require.Equal(t, "fallback", src.PartnerID(affiliate.PartnerBooking))
	require.Empty(t, src.PartnerID(affiliate.PartnerTripAdvisor))
}

func TestFileSourceMissingFileIsEmpty(t *testing.T) {
	src, err := NewFileSource(filepath.Join(t.TempDir(), "absent.yaml"), nil, discardLogger())
	require.NoError(t, err)
	require.Empty(t, src.PartnerID(affiliate.PartnerViator))
}

func TestFileSourceReloadKeepsMapOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "affiliates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("viator: v1\n"), 0o600))
	src, err := NewFileSource(path, nil, discardLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("viator: [unclosed\n"), 0o600))
	require.Error(t, src.Reload())
	require.Equal(t, "v1", src.PartnerID(affiliate.PartnerViator))
}

func TestFileSourceRunPicksUpChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "affiliates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("viator: v1\n"), 0o600))
	src, err := NewFileSource(path, nil, discardLogger())
	require.NoError(t, err)
	src.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("viator: v2\n"), 0o600)
		return src.PartnerID(affiliate.PartnerViator) == "v2"
	}, 3*time.Second, 50*time.Millisecond)
}

func TestRewriterSeesFileChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "affiliates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("klook: k1\n"), 0o600))
	src, err := NewFileSource(path, nil, discardLogger())
	require.NoError(t, err)
	rw := affiliate.NewRewriter(src)

	require.Equal(t, "https://www.klook.com/activity/123?affiliate_id=k1&source=cruise-planner", rw.RewriteURL("https://www.klook.com/activity/123"))

	require.NoError(t, os.WriteFile(path, []byte("klook: k2\n"), 0o600))
	require.NoError(t, src.Reload())
	require.Equal(t, "https://www.klook.com/activity/123?affiliate_id=k2&source=cruise-planner", rw.RewriteURL("https://www.klook.com/activity/123"))
}
