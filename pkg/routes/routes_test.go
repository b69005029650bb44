package routes_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/microtravel/pkg/routes"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func tag(name string, trail *[]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*trail = append(*trail, name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()

	routes.Register(mux, routes.Group{
		Prefix: "/batches",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: ok},
			{Method: "GET", Pattern: "/{id}", Handler: ok},
			{Method: "POST", Pattern: "/{id}/cancel", Handler: ok},
		},
	})

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"list", "GET", "/batches", http.StatusOK},
		{"find", "GET", "/batches/b-1", http.StatusOK},
		{"cancel", "POST", "/batches/b-1/cancel", http.StatusOK},
		{"wrong method", "DELETE", "/batches/b-1", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestGroupMiddlewareInherited(t *testing.T) {
	var trail []string
	mux := http.NewServeMux()

	routes.Register(mux, routes.Group{
		Prefix:     "/accounts",
		Middleware: []func(http.Handler) http.Handler{tag("outer", &trail)},
		Routes:     []routes.Route{{Method: "GET", Pattern: "/me", Handler: ok}},
		Children: []routes.Group{
			{
				Prefix:     "/{userId}",
				Middleware: []func(http.Handler) http.Handler{tag("inner", &trail)},
				Routes:     []routes.Route{{Method: "PUT", Pattern: "/tier", Handler: ok}},
			},
		},
	})

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{"GET", "/accounts/me", "outer"},
		{"PUT", "/accounts/u-1/tier", "outer,inner"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			trail = nil
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", rec.Code)
			}
			if got := strings.Join(trail, ","); got != tt.want {
				t.Errorf("middleware trail: got %s, want %s", got, tt.want)
			}
		})
	}
}
