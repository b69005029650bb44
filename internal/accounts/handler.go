package accounts

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/microtravel/internal/auth"
	"github.com/JaimeStill/microtravel/pkg/handlers"
	"github.com/JaimeStill/microtravel/pkg/routes"
)

// WebhookSecretHeader authenticates tier updates from the billing collaborator.
const WebhookSecretHeader = "X-Webhook-Secret"

// Handler provides HTTP endpoints for account operations.
type Handler struct {
	sys           System
	logger        *slog.Logger
	webhookSecret string
}

// NewHandler creates a Handler. The tier webhook route is only exposed when
// webhookSecret is non-empty.
func NewHandler(sys System, logger *slog.Logger, webhookSecret string) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "accounts"),
		webhookSecret: webhookSecret,
	}
}

// Routes returns the caller-facing account routes. They expect the auth
// middleware to have resolved the user.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/accounts",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/me", Handler: h.Me},
		},
	}
}

// WebhookRoutes returns the billing webhook routes, or false when no secret
// is configured.
func (h *Handler) WebhookRoutes() (routes.Group, bool) {
	if h.webhookSecret == "" {
		return routes.Group{}, false
	}
	return routes.Group{
		Prefix:     "/accounts",
		Middleware: []func(http.Handler) http.Handler{h.requireSecret},
		Routes: []routes.Route{
			{Method: "PUT", Pattern: "/{userId}/tier", Handler: h.SetTier},
		},
	}, true
}

// Me returns the calling user's account.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnauthorized, auth.ErrMissingIdentity)
		return
	}

	account, err := h.sys.Find(r.Context(), userID)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, account)
}

// SetTier upserts a user's tier.
func (h *Handler) SetTier(w http.ResponseWriter, r *http.Request) {
	var cmd SetTierCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrInvalidTier)
		return
	}

	tier, err := ParseTier(cmd.Tier)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	account, err := h.sys.SetTier(r.Context(), r.PathValue("userId"), tier)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, account)
}

func (h *Handler) requireSecret(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.webhookSecret)) != 1 {
			handlers.RespondError(w, h.logger, http.StatusUnauthorized, ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
