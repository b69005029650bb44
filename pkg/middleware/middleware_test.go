package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/microtravel/pkg/middleware"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestApplyOrder(t *testing.T) {
	var order []string
	mw := middleware.New()

	for _, name := range []string{"cors", "logger"} {
		mw.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		})
	}

	handler := mw.Apply(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if got := strings.Join(order, ","); got != "cors,logger,handler" {
		t.Errorf("order: got %s, want cors,logger,handler", got)
	}
}

func TestCORS(t *testing.T) {
	cfg := &middleware.CORSConfig{
		Enabled:          true,
		Origins:          []string{"https://gallery.example"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           600,
	}

	tests := []struct {
		name        string
		cfg         *middleware.CORSConfig
		method      string
		origin      string
		wantStatus  int
		wantOrigin  string
		wantHandler bool
	}{
		{"disabled", &middleware.CORSConfig{}, "GET", "https://gallery.example", http.StatusOK, "", true},
		{"allowed origin", cfg, "GET", "https://gallery.example", http.StatusOK, "https://gallery.example", true},
		{"disallowed origin", cfg, "GET", "https://evil.example", http.StatusOK, "", true},
		{"preflight", cfg, "OPTIONS", "https://gallery.example", http.StatusNoContent, "https://gallery.example", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			handler := middleware.CORS(tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				w.WriteHeader(http.StatusOK)
			}))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/batches", nil)
			req.Header.Set("Origin", tt.origin)
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("allow-origin: got %q, want %q", got, tt.wantOrigin)
			}
			if called != tt.wantHandler {
				t.Errorf("handler called: got %v, want %v", called, tt.wantHandler)
			}
			if tt.wantOrigin != "" {
				if got := rec.Header().Get("Access-Control-Expose-Headers"); got != "Content-Disposition" {
					t.Errorf("expose-headers: got %q", got)
				}
				if got := rec.Header().Get("Access-Control-Max-Age"); got != "600" {
					t.Errorf("max-age: got %q", got)
				}
				if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
					t.Errorf("allow-credentials: got %q", got)
				}
			}
		})
	}
}

func TestLoggerRecordsStatus(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"batch already running"}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/batches", nil))

	if rec.Code != http.StatusConflict {
		t.Errorf("status: got %d, want 409", rec.Code)
	}
	out := logs.String()
	for _, want := range []string{"status=409", "bytes=33", "uri=/batches"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %s", out, want)
		}
	}
}

func TestLoggerForwardsFlush(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	var flushable bool
	handler := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
		w.(http.Flusher).Flush()
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/batches/b-1/events", nil))

	if !flushable {
		t.Fatal("wrapped writer should implement http.Flusher")
	}
	if !rec.Flushed {
		t.Error("flush not forwarded to underlying writer")
	}
}

func TestCORSConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := middleware.CORSConfig{}
		if err := cfg.Finalize(nil); err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if len(cfg.AllowedMethods) != 5 {
			t.Errorf("allowed_methods: got %v", cfg.AllowedMethods)
		}
		if len(cfg.AllowedHeaders) != 3 {
			t.Errorf("allowed_headers: got %v", cfg.AllowedHeaders)
		}
		if len(cfg.ExposedHeaders) != 1 {
			t.Errorf("exposed_headers: got %v", cfg.ExposedHeaders)
		}
		if cfg.MaxAge != 3600 {
			t.Errorf("max_age: got %d", cfg.MaxAge)
		}
	})

	t.Run("env", func(t *testing.T) {
		t.Setenv("TEST_CORS_ENABLED", "true")
		t.Setenv("TEST_CORS_ORIGINS", "https://a.example, ,https://b.example")
		t.Setenv("TEST_CORS_CREDS", "true")

		cfg := middleware.CORSConfig{}
		err := cfg.Finalize(&middleware.CORSEnv{
			Enabled:          "TEST_CORS_ENABLED",
			Origins:          "TEST_CORS_ORIGINS",
			AllowCredentials: "TEST_CORS_CREDS",
		})
		if err != nil {
			t.Fatalf("finalize failed: %v", err)
		}
		if !cfg.Enabled || !cfg.AllowCredentials {
			t.Errorf("flags not applied: %+v", cfg)
		}
		if len(cfg.Origins) != 2 || cfg.Origins[1] != "https://b.example" {
			t.Errorf("origins: got %v", cfg.Origins)
		}
	})

	t.Run("merge keeps max age on zero overlay", func(t *testing.T) {
		base := middleware.CORSConfig{Origins: []string{"https://a.example"}, MaxAge: 3600}
		base.Merge(&middleware.CORSConfig{Enabled: true})

		if !base.Enabled {
			t.Error("enabled should be true after merge")
		}
		if base.MaxAge != 3600 {
			t.Errorf("max_age: got %d, want 3600", base.MaxAge)
		}
		if len(base.Origins) != 1 {
			t.Errorf("origins: got %v", base.Origins)
		}
	})
}
