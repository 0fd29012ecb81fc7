package device

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/yanqian/cruise-planner/pkg/errors"
)

const (
	tokenTypeDevice = "device"
	maxDeviceIDLen  = 128
)

// Service issues and validates device tokens.
type Service interface {
	Issue(ctx context.Context, req TokenRequest) (Token, error)
	Validate(ctx context.Context, token string) (string, error)
}

type service struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service instance.
func NewService(cfg Config, logger *slog.Logger) Service {
	return &service{
		cfg:    cfg,
		logger: logger.With("component", "device.service"),
		now:    time.Now,
	}
}

func (s *service) Issue(_ context.Context, req TokenRequest) (Token, error) {
	deviceID, err := NormalizeID(req.DeviceID)
	if err != nil {
		return Token{}, apperrors.Wrap("invalid_input", err.Error(), nil)
	}
	now := s.now()
	expires := now.Add(s.cfg.TokenTTL)
	claims := tokenClaims{
		TokenType: tokenTypeDevice,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   deviceID,
			ID:        newTokenID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return Token{}, apperrors.Wrap("device_error", "failed to sign token", err)
	}
	s.logger.Info("device token issued", "device_id", deviceID)
	return Token{Token: signed, DeviceID: deviceID, ExpiresAt: expires.UTC().Truncate(time.Second)}, nil
}

func (s *service) Validate(_ context.Context, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", apperrors.Wrap("invalid_token", "token missing", nil)
	}
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))
	if err != nil {
		return "", apperrors.Wrap("invalid_token", "token validation failed", err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return "", apperrors.Wrap("invalid_token", "token invalid", nil)
	}
	if claims.TokenType != tokenTypeDevice {
		return "", apperrors.Wrap("invalid_token", "token type mismatch", nil)
	}
	deviceID, err := NormalizeID(claims.Subject)
	if err != nil {
		return "", apperrors.Wrap("invalid_token", "token subject invalid", err)
	}
	return deviceID, nil
}

// NormalizeID trims a device id and checks it is 1-128 characters of
// letters, digits, '-', '_', '.' or ':'.
func NormalizeID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", errors.New("device_id cannot be empty")
	}
	if len(id) > maxDeviceIDLen {
		return "", errors.New("device_id is too long")
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == ':':
		default:
			return "", errors.New("device_id contains invalid characters")
		}
	}
	return id, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	TokenType string `json:"typ"`
}

func newTokenID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(buf)
}
