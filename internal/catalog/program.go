package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/pkg/repository"
)

// Program categories.
const (
	CategoryAgency     = "agency"
	CategoryNonQM      = "non_qm"
	CategoryHardMoney  = "hard_money"
	CategoryCommercial = "commercial"
)

var categories = []string{
	CategoryAgency,
	CategoryNonQM,
	CategoryHardMoney,
	CategoryCommercial,
}

// ProgramType is the canonical product template: the loosest-possible
// eligibility envelope for a product. Individual lender offerings may
// tighten but never loosen it.
type ProgramType struct {
	ID                   uuid.UUID            `json:"id"`
	Name                 string               `json:"name"`
	Slug                 string               `json:"slug"`
	Category             string               `json:"category"`
	LoanType             string               `json:"loan_type"`
	DocumentationLevel   string               `json:"documentation_level"`
	BaseMinFICO          int                  `json:"base_min_fico"`
	BaseMaxLTV           float64              `json:"base_max_ltv"`
	BaseMinDSCR          *float64             `json:"base_min_dscr"`
	AllowedPropertyTypes repository.StringSet `json:"allowed_property_types"`
	AllowedOccupancy     repository.StringSet `json:"allowed_occupancy"`
	AllowedEntityTypes   repository.StringSet `json:"allowed_entity_types"`
	AllowedPurposes      repository.StringSet `json:"allowed_purposes"`
	Active               bool                 `json:"active"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// ProgramTypeCommand carries the data needed to create or update a program type.
type ProgramTypeCommand struct {
	Name                 string   `json:"name"`
	Slug                 string   `json:"slug"`
	Category             string   `json:"category"`
	LoanType             string   `json:"loan_type"`
	DocumentationLevel   string   `json:"documentation_level"`
	BaseMinFICO          int      `json:"base_min_fico"`
	BaseMaxLTV           float64  `json:"base_max_ltv"`
	BaseMinDSCR          *float64 `json:"base_min_dscr"`
	AllowedPropertyTypes []string `json:"allowed_property_types"`
	AllowedOccupancy     []string `json:"allowed_occupancy"`
	AllowedEntityTypes   []string `json:"allowed_entity_types"`
	AllowedPurposes      []string `json:"allowed_purposes"`
	Active               *bool    `json:"active"`
}
