package quotes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/internal/catalog"
	"github.com/mortarhq/mortar/pkg/pagination"
)

const defaultQuoteLimit = 10

// Catalog is the slice of the catalog system the quote engine reads.
type Catalog interface {
	FindOfferings(ctx context.Context, q catalog.OfferingQuery) ([]catalog.Candidate, error)
	FindOffering(ctx context.Context, id uuid.UUID) (*catalog.Candidate, error)
	AdjustmentsFor(ctx context.Context, offeringID uuid.UUID) ([]catalog.RateAdjustment, error)
	ReverseLookup(ctx context.Context, offeringID uuid.UUID) ([]catalog.QualifyingInfo, error)
	CreateQualifyingInfo(ctx context.Context, cmd catalog.QualifyingInfoCommand) (*catalog.QualifyingInfo, error)
}

// System defines the public contract for quote operations.
type System interface {
	Handler() *Handler

	Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error)
	Qualify(ctx context.Context, req QuoteRequest) (*QuoteResponse, error)
	Program(ctx context.Context, id uuid.UUID) (*ProgramDetail, error)
	Reverse(ctx context.Context, offeringID uuid.UUID) ([]catalog.QualifyingInfo, error)
}

// QuoteRequest is the quote and qualify input payload.
type QuoteRequest struct {
	BorrowerProfile
	Limit int `json:"limit,omitempty"`
}

// MatchedProgram is one priced offering in a quote response.
type MatchedProgram struct {
	ProgramID   uuid.UUID `json:"program_id"`
	ProgramName string    `json:"program_name"`
	LenderName  string    `json:"lender_name"`
	RateRange   RateRange `json:"estimated_rate_range"`
	MatchScore  int       `json:"match_score"`
	Pricing
}

// RateRange is an offering's published rate band.
type RateRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// QuoteResponse is the quote and qualify output payload.
type QuoteResponse struct {
	CalculatedLTV   float64          `json:"calculated_ltv"`
	TotalMatches    int              `json:"total_matches"`
	MatchedPrograms []MatchedProgram `json:"matched_programs"`
}

// ProgramDetail is the full offering view plus its adjustment set.
type ProgramDetail struct {
	catalog.Candidate
	Adjustments []catalog.RateAdjustment `json:"adjustments"`
}

// Engine implements the quote system against the catalog store.
type Engine struct {
	catalog    Catalog
	logger     *slog.Logger
	pagination pagination.Config
}

// NewEngine creates a quote engine.
func NewEngine(cat Catalog, logger *slog.Logger, pagination pagination.Config) *Engine {
	return &Engine{
		catalog:    cat,
		logger:     logger.With("system", "quotes"),
		pagination: pagination,
	}
}

// Handler returns the HTTP handler for quote endpoints.
func (e *Engine) Handler() *Handler {
	return NewHandler(e, e.logger)
}

// Quote validates the profile, matches offerings, and prices each
// candidate up to the limit. Zero matches is a successful empty response.
func (e *Engine) Quote(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	return e.quote(ctx, req, false)
}

// Qualify is Quote with the strict profile schema, and stores the
// profile so reverse matching can find it later.
func (e *Engine) Qualify(ctx context.Context, req QuoteRequest) (*QuoteResponse, error) {
	resp, err := e.quote(ctx, req, true)
	if err != nil {
		return nil, err
	}

	_, err = e.catalog.CreateQualifyingInfo(ctx, catalog.QualifyingInfoCommand{
		PropertyType: req.PropertyType,
		Occupancy:    req.Occupancy,
		Region:       req.Region,
		Purpose:      req.Purpose,
		EntityType:   req.EntityType,
		LoanAmount:   req.LoanAmount,
		LTV:          req.LTV(),
		FICO:         req.FICO,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	return resp, nil
}

func (e *Engine) quote(ctx context.Context, req QuoteRequest, strict bool) (*QuoteResponse, error) {
	if err := req.Validate(strict); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultQuoteLimit
	}

	candidates, err := e.catalog.FindOfferings(ctx, catalog.OfferingQuery{
		Region:       req.Region,
		Purpose:      req.Purpose,
		PropertyType: req.PropertyType,
		Occupancy:    req.Occupancy,
		EntityType:   req.EntityType,
		LoanAmount:   req.LoanAmount,
		LTV:          req.LTV(),
		FICO:         req.FICO,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	resp := &QuoteResponse{
		CalculatedLTV:   req.LTV(),
		TotalMatches:    len(candidates),
		MatchedPrograms: []MatchedProgram{},
	}

	for i := range candidates {
		if len(resp.MatchedPrograms) >= limit {
			break
		}
		c := &candidates[i]

		adjustments, err := e.catalog.AdjustmentsFor(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}

		pricing := Price(c, adjustments, &req.BorrowerProfile)
		resp.MatchedPrograms = append(resp.MatchedPrograms, MatchedProgram{
			ProgramID:   c.ID,
			ProgramName: c.ProgramName,
			LenderName:  c.LenderName,
			RateRange:   RateRange{Min: c.MinRate, Max: c.MaxRate},
			MatchScore:  pricing.Score,
			Pricing:     pricing,
		})
	}

	e.logger.Debug("quote computed",
		"matches", resp.TotalMatches,
		"returned", len(resp.MatchedPrograms),
		"ltv", resp.CalculatedLTV,
	)
	return resp, nil
}

// Program returns one offering in full, including its adjustment set.
func (e *Engine) Program(ctx context.Context, id uuid.UUID) (*ProgramDetail, error) {
	c, err := e.catalog.FindOffering(ctx, id)
	if err != nil {
		return nil, err
	}

	adjustments, err := e.catalog.AdjustmentsFor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}

	return &ProgramDetail{Candidate: *c, Adjustments: adjustments}, nil
}

// Reverse returns the stored qualifying profiles an offering matches.
func (e *Engine) Reverse(ctx context.Context, offeringID uuid.UUID) ([]catalog.QualifyingInfo, error) {
	return e.catalog.ReverseLookup(ctx, offeringID)
}
