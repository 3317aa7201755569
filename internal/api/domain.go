package api

import (
	"github.com/google/uuid"

	"github.com/mortarhq/mortar/internal/catalog"
	"github.com/mortarhq/mortar/internal/config"
	"github.com/mortarhq/mortar/internal/extraction"
	"github.com/mortarhq/mortar/internal/fetch"
	"github.com/mortarhq/mortar/internal/quotes"
	"github.com/mortarhq/mortar/internal/ratesheets"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Catalog    catalog.System
	RateSheets *ratesheets.Coordinator
	Quotes     quotes.System
	Fetcher    *fetch.Fetcher
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime, cfg *config.Config) *Domain {
	catalogSystem := catalog.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	registry := extraction.NewRegistry()
	if config.AgentConfigured(&cfg.Agent) {
		registry.RegisterAI(extraction.NewAIBackend(
			&cfg.Agent,
			runtime.Logger,
			cfg.Ingest.MaxTranscriptChars,
		))
	} else {
		runtime.Logger.Info("agent credentials absent, PDF sheets use deterministic layouts")
	}
	registry.Register(extraction.NewCSVBackend())
	registry.Register(extraction.NewPDFBackend())

	for lender, backend := range cfg.Ingest.LenderBackends {
		if id, err := uuid.Parse(lender); err == nil {
			registry.Route(id, backend)
		} else {
			runtime.Logger.Warn("skipping malformed lender backend route", "lender", lender)
		}
	}

	sheetStore := ratesheets.NewStore(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
	)

	coordinator := ratesheets.NewCoordinator(
		sheetStore,
		runtime.Storage,
		registry,
		catalogSystem,
		cfg.Ingest,
		runtime.Logger,
		runtime.Pagination,
	)

	quoteEngine := quotes.NewEngine(
		catalogSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	fetcher := fetch.New(coordinator, cfg.Fetch, runtime.Logger)

	return &Domain{
		Catalog:    catalogSystem,
		RateSheets: coordinator,
		Quotes:     quoteEngine,
		Fetcher:    fetcher,
	}
}
