// Package auth resolves the calling user for API requests, either from a
// verified OIDC bearer token or, in local development, from a trusted header.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/JaimeStill/microtravel/pkg/handlers"
)

var (
	ErrMissingIdentity = errors.New("missing caller identity")
	ErrInvalidToken    = errors.New("invalid bearer token")
)

type userKey struct{}

// WithUser returns a context carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserID returns the caller identity stored by the middleware.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// Verifier validates a raw bearer token and returns its subject.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (string, error)
}

type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the issuer's signing keys and returns a Verifier
// bound to the configured client id.
func NewVerifier(ctx context.Context, cfg *Config) (Verifier, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("discover issuer %s: %w", cfg.Issuer, err)
	}
	return FromIDTokenVerifier(provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})), nil
}

// FromIDTokenVerifier adapts a configured go-oidc verifier.
func FromIDTokenVerifier(v *oidc.IDTokenVerifier) Verifier {
	return &oidcVerifier{verifier: v}
}

func (v *oidcVerifier) Verify(ctx context.Context, rawToken string) (string, error) {
	token, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if token.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return token.Subject, nil
}

// Middleware resolves the caller and stores it in the request context.
// Requests without an identity are rejected with 401.
func Middleware(cfg *Config, verifier Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("middleware", "auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolve(r, cfg, verifier)
			if err != nil {
				handlers.RespondError(w, logger, http.StatusUnauthorized, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}

func resolve(r *http.Request, cfg *Config, verifier Verifier) (string, error) {
	if !cfg.Enabled || verifier == nil {
		if id := strings.TrimSpace(r.Header.Get(cfg.UserHeader)); id != "" {
			return id, nil
		}
		return "", ErrMissingIdentity
	}

	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return "", ErrMissingIdentity
	}
	return verifier.Verify(r.Context(), raw)
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
