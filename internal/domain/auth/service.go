package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/yanqian/ai-fitcoach/pkg/errors"
)

// Service verifies bearer tokens issued by the external identity provider.
type Service interface {
	ValidateToken(ctx context.Context, token string) (Claims, error)
}

type idTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

type service struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	verifier idTokenVerifier
}

// NewService constructs a Service instance. The OIDC provider is discovered on
// first use so that startup does not depend on the issuer being reachable.
func NewService(cfg Config, logger *slog.Logger) Service {
	return &service{
		cfg:    cfg,
		logger: logger.With("component", "auth.service"),
		now:    time.Now,
	}
}

func (s *service) ValidateToken(ctx context.Context, token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, apperrors.Wrap("invalid_token", "token missing", nil)
	}
	if s.cfg.Issuer != "" {
		return s.verifyOIDC(ctx, token)
	}
	return s.parseHS256(token)
}

func (s *service) verifyOIDC(ctx context.Context, token string) (Claims, error) {
	verifier, err := s.oidcVerifier(ctx)
	if err != nil {
		return Claims{}, apperrors.Wrap("auth_error", "failed to initialize oidc provider", err)
	}
	idToken, err := verifier.Verify(ctx, token)
	if err != nil {
		return Claims{}, apperrors.Wrap("invalid_token", "token validation failed", err)
	}
	var extra struct {
		Email string `json:"email"`
	}
	if err := idToken.Claims(&extra); err != nil {
		return Claims{}, apperrors.Wrap("invalid_token", "failed to parse token claims", err)
	}
	if idToken.Subject == "" {
		return Claims{}, apperrors.Wrap("invalid_token", "token missing subject", nil)
	}
	return Claims{Subject: idToken.Subject, Email: extra.Email, ExpiresAt: idToken.Expiry}, nil
}

func (s *service) oidcVerifier(ctx context.Context) (idTokenVerifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.verifier != nil {
		return s.verifier, nil
	}
	provider, err := oidc.NewProvider(ctx, s.cfg.Issuer)
	if err != nil {
		return nil, err
	}
	s.verifier = provider.Verifier(&oidc.Config{ClientID: s.cfg.Audience})
	s.logger.Info("oidc provider discovered", "issuer", s.cfg.Issuer)
	return s.verifier, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func (s *service) parseHS256(token string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, apperrors.Wrap("invalid_token", "token validation failed", err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Claims{}, apperrors.Wrap("invalid_token", "token invalid", nil)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, apperrors.Wrap("invalid_token", "token missing subject", nil)
	}
	return Claims{
		Subject:   claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
