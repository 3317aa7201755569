// Package catalog implements the lender-program catalog for Mortar.
// It owns all persistent pricing state: lenders, program types, lender
// program offerings, rate adjustments, and stored qualifying profiles.
package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/pkg/repository"
)

// Lender represents an institution whose programs are offered on the platform.
// LicensedRegions is canonicalized to a sorted unique list at write time.
type Lender struct {
	ID              uuid.UUID            `json:"id"`
	DisplayName     string               `json:"display_name"`
	LicensedRegions repository.StringSet `json:"licensed_regions"`
	Active          bool                 `json:"active"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// LenderCommand carries the data needed to create or update a lender.
type LenderCommand struct {
	DisplayName     string   `json:"display_name"`
	LicensedRegions []string `json:"licensed_regions"`
	Active          *bool    `json:"active"`
}
