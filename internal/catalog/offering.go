package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Offering is a lender-specific instance of a ProgramType with its own
// overlays and rates. Overlays may only tighten the program envelope;
// PutOffering enforces this on save.
type Offering struct {
	ID             uuid.UUID  `json:"id"`
	LenderID       uuid.UUID  `json:"lender_id"`
	ProgramTypeID  uuid.UUID  `json:"program_type_id"`
	MinRate        float64    `json:"min_rate"`
	MaxRate        float64    `json:"max_rate"`
	MinPoints      float64    `json:"min_points"`
	MaxPoints      float64    `json:"max_points"`
	LenderFee      float64    `json:"lender_fee"`
	MinFICO        int        `json:"min_fico"`
	MaxLTV         float64    `json:"max_ltv"`
	MinDSCR        *float64   `json:"min_dscr"`
	MinLoan        float64    `json:"min_loan"`
	MaxLoan        float64    `json:"max_loan"`
	IOOffered      bool       `json:"io_offered"`
	YSPAvailable   bool       `json:"ysp_available"`
	RateSheetURL   *string    `json:"rate_sheet_url"`
	LastRateUpdate *time.Time `json:"last_rate_update"`
	Active         bool       `json:"active"`
	Notes          string     `json:"notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// OfferingCommand carries the data needed to create or update an offering.
// The (LenderID, ProgramTypeID) pair is the upsert key.
type OfferingCommand struct {
	LenderID      uuid.UUID `json:"lender_id"`
	ProgramTypeID uuid.UUID `json:"program_type_id"`
	MinRate       float64   `json:"min_rate"`
	MaxRate       float64   `json:"max_rate"`
	MinPoints     float64   `json:"min_points"`
	MaxPoints     float64   `json:"max_points"`
	LenderFee     float64   `json:"lender_fee"`
	MinFICO       int       `json:"min_fico"`
	MaxLTV        float64   `json:"max_ltv"`
	MinDSCR       *float64  `json:"min_dscr"`
	MinLoan       float64   `json:"min_loan"`
	MaxLoan       float64   `json:"max_loan"`
	IOOffered     bool      `json:"io_offered"`
	YSPAvailable  bool      `json:"ysp_available"`
	RateSheetURL  *string   `json:"rate_sheet_url"`
	Active        *bool     `json:"active"`
	Notes         string    `json:"notes"`
}

// Candidate is an offering joined with its lender and program names,
// as returned by FindOfferings for the matching engine.
type Candidate struct {
	Offering
	LenderName  string `json:"lender_name"`
	ProgramName string `json:"program_name"`
	ProgramSlug string `json:"program_slug"`
}

// OfferingQuery is the hard-filter predicate shared by FindOfferings and
// ReverseLookup. All fields are required.
type OfferingQuery struct {
	Region       string  `json:"region"`
	Purpose      string  `json:"purpose"`
	PropertyType string  `json:"property_type"`
	Occupancy    string  `json:"occupancy"`
	EntityType   string  `json:"entity_type"`
	LoanAmount   float64 `json:"loan_amount"`
	LTV          float64 `json:"ltv"`
	FICO         int     `json:"fico"`
}
