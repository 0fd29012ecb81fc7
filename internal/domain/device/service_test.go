package device

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/cruise-planner/pkg/errors"
)

func newTestService() *service {
	return NewService(Config{Secret: "test-secret", TokenTTL: time.Hour}, slog.New(slog.NewTextHandler(io.Discard, nil))).(*service)
}

func TestIssueAndValidate(t *testing.T) {
	svc := newTestService()

	tok, err := svc.Issue(context.Background(), TokenRequest{DeviceID: "  ios-ABC_123 "})
	require.NoError(t, err)
	require.NotEmpty(t, tok.Token)
	require.Equal(t, "ios-ABC_123", tok.DeviceID)
	require.WithinDuration(t, time.Now().Add(time.Hour), tok.ExpiresAt, time.Minute)

	deviceID, err := svc.Validate(context.Background(), tok.Token)
	require.NoError(t, err)
	require.Equal(t, "ios-ABC_123", deviceID)
}

func TestIssueRejectsInvalidDeviceID(t *testing.T) {
	svc := newTestService()
	for _, id := range []string{"", "   ", "has space", "semi;colon", string(make([]byte, 200))} {
		_, err := svc.Issue(context.Background(), TokenRequest{DeviceID: id})
		require.True(t, apperrors.IsCode(err, "invalid_input"), id)
	}
}

func TestValidateRejectsBadTokens(t *testing.T) {
	svc := newTestService()
	tok, err := svc.Issue(context.Background(), TokenRequest{DeviceID: "device-1"})
	require.NoError(t, err)

	other := NewService(Config{Secret: "other-secret", TokenTTL: time.Hour}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err = other.Validate(context.Background(), tok.Token)
	require.True(t, apperrors.IsCode(err, "invalid_token"))

	_, err = svc.Validate(context.Background(), "")
	require.True(t, apperrors.IsCode(err, "invalid_token"))

	_, err = svc.Validate(context.Background(), "not-a-jwt")
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := newTestService()
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	tok, err := svc.Issue(context.Background(), TokenRequest{DeviceID: "device-1"})
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(context.Background(), tok.Token)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}

func TestValidateRejectsWrongTokenType(t *testing.T) {
	svc := newTestService()
	claims := tokenClaims{
		TokenType: "access",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "device-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), signed)
	require.True(t, apperrors.IsCode(err, "invalid_token"))
}
