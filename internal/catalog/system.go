package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/pkg/pagination"
)

// System defines the public contract for catalog domain operations.
type System interface {
	Handler() *Handler

	// Lenders.
	ListLenders(ctx context.Context, page pagination.PageRequest, filters LenderFilters) (*pagination.PageResult[Lender], error)
	FindLender(ctx context.Context, id uuid.UUID) (*Lender, error)
	CreateLender(ctx context.Context, cmd LenderCommand) (*Lender, error)
	UpdateLender(ctx context.Context, id uuid.UUID, cmd LenderCommand) (*Lender, error)

	// Program types.
	ListProgramTypes(ctx context.Context, page pagination.PageRequest, filters ProgramTypeFilters) (*pagination.PageResult[ProgramType], error)
	FindProgramType(ctx context.Context, id uuid.UUID) (*ProgramType, error)
	PutProgramType(ctx context.Context, cmd ProgramTypeCommand) (*ProgramType, error)

	// Offerings.
	ListOfferings(ctx context.Context, page pagination.PageRequest, filters OfferingFilters) (*pagination.PageResult[Candidate], error)
	FindOffering(ctx context.Context, id uuid.UUID) (*Candidate, error)
	PutOffering(ctx context.Context, cmd OfferingCommand) (*Offering, error)
	DeleteOffering(ctx context.Context, id uuid.UUID) error

	// Matching surface.
	FindOfferings(ctx context.Context, q OfferingQuery) ([]Candidate, error)
	ReverseLookup(ctx context.Context, offeringID uuid.UUID) ([]QualifyingInfo, error)

	// Adjustments.
	AdjustmentsFor(ctx context.Context, offeringID uuid.UUID) ([]RateAdjustment, error)
	ReplaceAdjustments(ctx context.Context, effectiveDate time.Time, sets ...AdjustmentSet) error

	// Qualifying profiles.
	CreateQualifyingInfo(ctx context.Context, cmd QualifyingInfoCommand) (*QualifyingInfo, error)

	// Rate-sheet ingestion surface: resolve-and-apply an extraction in
	// one transaction. See apply.go.
	ApplyRateSheet(ctx context.Context, cmd ApplyCommand) (*ApplyResult, error)
}

// AdjustmentSet is the full replacement adjustment list for one offering.
type AdjustmentSet struct {
	OfferingID  uuid.UUID
	Adjustments []RateAdjustment
}
