package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/ai-fitcoach/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signToken(t *testing.T, method jwt.SigningMethod, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidateTokenHS256(t *testing.T) {
	svc := NewService(Config{Secret: "test-secret"}, newTestLogger())
	exp := time.Now().Add(time.Hour)
	token := signToken(t, jwt.SigningMethodHS256, "test-secret", jwt.MapClaims{
		"sub":   "user-123",
		"email": "athlete@example.com",
		"exp":   exp.Unix(),
	})

	claims, err := svc.ValidateToken(context.Background(), " "+token+" ")

	require.NoError(t, err)
	require.Equal(t, "user-123", claims.Subject)
	require.Equal(t, "athlete@example.com", claims.Email)
	require.WithinDuration(t, exp, claims.ExpiresAt, time.Second)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := NewService(Config{Secret: "test-secret"}, newTestLogger())
	future := time.Now().Add(time.Hour).Unix()

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-jwt",
		"wrong secret": signToken(t, jwt.SigningMethodHS256, "other", jwt.MapClaims{"sub": "u", "exp": future}),
		"expired":      signToken(t, jwt.SigningMethodHS256, "test-secret", jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Minute).Unix()}),
		"no expiry":    signToken(t, jwt.SigningMethodHS256, "test-secret", jwt.MapClaims{"sub": "u"}),
		"no subject":   signToken(t, jwt.SigningMethodHS256, "test-secret", jwt.MapClaims{"exp": future}),
		"hs512":        signToken(t, jwt.SigningMethodHS512, "test-secret", jwt.MapClaims{"sub": "u", "exp": future}),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(context.Background(), token)
			require.True(t, apperrors.IsCode(err, "invalid_token"), "got %v", err)
		})
	}
}

type stubVerifier struct {
	err error
}

func (s stubVerifier) Verify(context.Context, string) (*oidc.IDToken, error) {
	return nil, s.err
}

func TestValidateTokenOIDCFailure(t *testing.T) {
	svc := NewService(Config{Issuer: "https://issuer.example.com", Audience: "fitcoach"}, newTestLogger()).(*service)
	svc.verifier = stubVerifier{err: errors.New("signature mismatch")}

	_, err := svc.ValidateToken(context.Background(), "header.payload.sig")

	require.True(t, apperrors.IsCode(err, "invalid_token"))
}
