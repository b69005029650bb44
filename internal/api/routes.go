package api

import (
	"net/http"

	"github.com/JaimeStill/microtravel/internal/auth"
	"github.com/JaimeStill/microtravel/internal/config"
	"github.com/JaimeStill/microtravel/pkg/routes"
)

// registerRoutes mounts the caller-facing groups behind the auth middleware.
// The billing webhook authenticates with its shared secret instead and is
// only mounted when one is configured.
func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	accountsHandler := domain.Accounts.Handler(cfg.API.WebhookSecret)

	routes.Register(
		mux,
		routes.Group{
			Middleware: []func(http.Handler) http.Handler{
				auth.Middleware(&cfg.Auth, runtime.Verifier, runtime.Logger),
			},
			Children: []routes.Group{
				accountsHandler.Routes(),
				domain.Collections.Handler().Routes(),
				domain.Images.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
				domain.Batches.Handler().Routes(),
			},
		},
	)

	if webhook, ok := accountsHandler.WebhookRoutes(); ok {
		routes.Register(mux, webhook)
	}
}
