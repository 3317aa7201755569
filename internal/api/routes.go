package api

import (
	"net/http"

	"github.com/mortarhq/mortar/internal/config"
	"github.com/mortarhq/mortar/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	routes.Register(
		mux,
		domain.Catalog.Handler().Routes(),
		domain.RateSheets.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Quotes.Handler().Routes(),
	)
}
