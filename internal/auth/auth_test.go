package auth_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-jose/go-jose/v4"

	"github.com/JaimeStill/microtravel/internal/auth"
)

const (
	testIssuer   = "https://id.microtravel.test"
	testClientID = "microtravel-api"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signToken(t *testing.T, key *rsa.PrivateKey, claims map[string]any) string {
	t.Helper()

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: jose.RS256, Key: key}, nil)
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	jws, err := signer.Sign(payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	raw, err := jws.CompactSerialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	return raw
}

func newVerifier(t *testing.T) (auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	v := oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: testClientID})
	return auth.FromIDTokenVerifier(v), key
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := auth.UserID(r.Context())
		w.Write([]byte(id))
	})
}

func TestMiddlewareBearer(t *testing.T) {
	verifier, key := newVerifier(t)
	other, _ := rsa.GenerateKey(rand.Reader, 2048)
	cfg := &auth.Config{Enabled: true, Issuer: testIssuer, ClientID: testClientID, UserHeader: auth.DefaultUserHeader}

	valid := map[string]any{
		"iss": testIssuer,
		"aud": testClientID,
		"sub": "user-42",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}
	expired := map[string]any{
		"iss": testIssuer,
		"aud": testClientID,
		"sub": "user-42",
		"exp": time.Now().Add(-time.Hour).Unix(),
		"iat": time.Now().Add(-2 * time.Hour).Unix(),
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid token", "Bearer " + signToken(t, key, valid), http.StatusOK, "user-42"},
		{"lowercase scheme", "bearer " + signToken(t, key, valid), http.StatusOK, "user-42"},
		{"expired token", "Bearer " + signToken(t, key, expired), http.StatusUnauthorized, ""},
		{"foreign signer", "Bearer " + signToken(t, other, valid), http.StatusUnauthorized, ""},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
	}

	handler := auth.Middleware(cfg, verifier, discard())(echoUser())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/accounts/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			// the dev header must be ignored when verification is on
			req.Header.Set(auth.DefaultUserHeader, "spoofed")

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("user: got %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestMiddlewareDevHeader(t *testing.T) {
	cfg := &auth.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	handler := auth.Middleware(cfg, nil, discard())(echoUser())

	tests := []struct {
		name       string
		value      string
		wantStatus int
	}{
		{"header present", "  dev-user ", http.StatusOK},
		{"header missing", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/images", nil)
			req.Header.Set("X-User-ID", tt.value)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && rec.Body.String() != "dev-user" {
				t.Errorf("user: got %q", rec.Body.String())
			}
			if tt.wantStatus == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), auth.ErrMissingIdentity.Error()) {
				t.Errorf("body: got %q", rec.Body.String())
			}
		})
	}
}

type stubVerifier struct {
	err error
}

func (s stubVerifier) Verify(context.Context, string) (string, error) {
	return "", s.err
}

func TestVerifierErrorIsUnauthorized(t *testing.T) {
	cfg := &auth.Config{Enabled: true, UserHeader: auth.DefaultUserHeader}
	handler := auth.Middleware(cfg, stubVerifier{err: auth.ErrInvalidToken}, discard())(echoUser())

	req := httptest.NewRequest("GET", "/batches", nil)
	req.Header.Set("Authorization", "Bearer abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}

func TestUserIDContext(t *testing.T) {
	if _, ok := auth.UserID(context.Background()); ok {
		t.Error("empty context should carry no user")
	}
	if _, ok := auth.UserID(auth.WithUser(context.Background(), "")); ok {
		t.Error("empty id should not count as a user")
	}
	if id, ok := auth.UserID(auth.WithUser(context.Background(), "u-1")); !ok || id != "u-1" {
		t.Errorf("got %q, %v", id, ok)
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_AUTH_ENABLED", "true")
	t.Setenv("TEST_AUTH_ISSUER", testIssuer)
	t.Setenv("TEST_AUTH_CLIENT_ID", testClientID)

	env := &auth.Env{Enabled: "TEST_AUTH_ENABLED", Issuer: "TEST_AUTH_ISSUER", ClientID: "TEST_AUTH_CLIENT_ID"}

	cfg := &auth.Config{}
	if err := cfg.Finalize(env); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !cfg.Enabled || cfg.Issuer != testIssuer || cfg.ClientID != testClientID {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.UserHeader != auth.DefaultUserHeader {
		t.Errorf("user header: got %q", cfg.UserHeader)
	}

	invalid := &auth.Config{Enabled: true}
	if err := invalid.Finalize(nil); err == nil || !strings.Contains(err.Error(), "issuer required") {
		t.Errorf("err = %v, want issuer required", err)
	}
}
