// Package extraction converts raw rate-sheet files into structured
// documents the catalog can apply. Backends share a single output
// contract so the ingestion coordinator never cares which one ran.
package extraction

import (
	"github.com/google/uuid"
)

// Input is a rate-sheet file handed to a backend.
type Input struct {
	LenderID    uuid.UUID
	LenderName  string
	Filename    string
	ContentType string
	Data        []byte
}

// Document is the structured result of extracting one rate sheet.
type Document struct {
	EffectiveDate string    `json:"effective_date"`
	Programs      []Program `json:"programs"`
}

// Program is one program section of an extracted sheet.
type Program struct {
	Name         string       `json:"name"`
	Slug         string       `json:"slug,omitempty"`
	MinRate      float64      `json:"min_rate"`
	MaxRate      float64      `json:"max_rate"`
	MinPoints    float64      `json:"min_points"`
	MaxPoints    float64      `json:"max_points"`
	LenderFee    float64      `json:"lender_fee"`
	MinFICO      int          `json:"min_fico"`
	MaxLTV       float64      `json:"max_ltv"`
	MinDSCR      *float64     `json:"min_dscr,omitempty"`
	MinLoan      float64      `json:"min_loan"`
	MaxLoan      float64      `json:"max_loan"`
	IOOffered    bool         `json:"io_offered"`
	YSPAvailable bool         `json:"ysp_available"`
	Notes        string       `json:"notes,omitempty"`
	Adjustments  []Adjustment `json:"adjustments"`
}

// Adjustment is a raw adjustment entry as it appears on the sheet.
// Grid bounds may be inclusive or exclusive; normalization settles the
// convention before anything is stored.
type Adjustment struct {
	Kind     string   `json:"kind"`
	RowMin   *float64 `json:"row_min,omitempty"`
	RowMax   *float64 `json:"row_max,omitempty"`
	ColMin   *float64 `json:"col_min,omitempty"`
	ColMax   *float64 `json:"col_max,omitempty"`
	ValueKey *string  `json:"value_key,omitempty"`
	Points   float64  `json:"points"`
}
