// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/mortarhq/mortar/internal/config"
	"github.com/mortarhq/mortar/internal/infrastructure"
	"github.com/mortarhq/mortar/pkg/middleware"
	"github.com/mortarhq/mortar/pkg/module"
)

// NewModule creates the API module with all domain handlers and
// middleware, and registers the background ingestion loop and fetcher
// with the lifecycle coordinator.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime, cfg)

	domain.RateSheets.Run(infra.Lifecycle)
	if err := domain.Fetcher.Start(infra.Lifecycle); err != nil {
		return nil, fmt.Errorf("fetcher start failed: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
