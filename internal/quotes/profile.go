// Package quotes exposes the borrower-facing pricing surface: hard-filter
// matching against the catalog, per-offering loan-level price
// adjustments, and the quote and qualify HTTP endpoints.
package quotes

import (
	"fmt"
	"math"
	"strings"
)

// knownRegions covers the 50 states plus DC and the territories lenders
// license in.
var knownRegions = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true,
	"CO": true, "CT": true, "DE": true, "FL": true, "GA": true,
	"HI": true, "ID": true, "IL": true, "IN": true, "IA": true,
	"KS": true, "KY": true, "LA": true, "ME": true, "MD": true,
	"MA": true, "MI": true, "MN": true, "MS": true, "MO": true,
	"MT": true, "NE": true, "NV": true, "NH": true, "NJ": true,
	"NM": true, "NY": true, "NC": true, "ND": true, "OH": true,
	"OK": true, "OR": true, "PA": true, "RI": true, "SC": true,
	"SD": true, "TN": true, "TX": true, "UT": true, "VT": true,
	"VA": true, "WA": true, "WV": true, "WI": true, "WY": true,
	"DC": true, "PR": true, "VI": true, "GU": true,
}

// BorrowerProfile is the matching and pricing input. LTV is derived from
// loan amount and property value when not supplied directly.
type BorrowerProfile struct {
	LoanAmount    float64  `json:"loan_amount"`
	PropertyValue float64  `json:"property_value"`
	FICO          int      `json:"credit_score"`
	Region        string   `json:"property_state"`
	Purpose       string   `json:"loan_purpose"`
	PropertyType  string   `json:"property_type"`
	Occupancy     string   `json:"occupancy"`
	EntityType    string   `json:"entity_type,omitempty"`
	DSCR          *float64 `json:"dscr,omitempty"`
	LockPeriod    *string  `json:"lock_period,omitempty"`
}

// Validate range-checks the profile and canonicalizes its tokens.
// strict additionally requires the fields the relaxed quote endpoint
// defaults.
func (p *BorrowerProfile) Validate(strict bool) error {
	if p.LoanAmount <= 0 {
		return fmt.Errorf("%w: loan_amount must be positive", ErrValidation)
	}
	if p.PropertyValue <= 0 {
		return fmt.Errorf("%w: property_value must be positive", ErrValidation)
	}
	if p.FICO < 300 || p.FICO > 850 {
		return fmt.Errorf("%w: credit_score %d outside [300, 850]", ErrValidation, p.FICO)
	}

	p.Region = strings.ToUpper(strings.TrimSpace(p.Region))
	if !knownRegions[p.Region] {
		return fmt.Errorf("%w: unknown property_state %q", ErrValidation, p.Region)
	}

	required := map[string]string{
		"loan_purpose":  p.Purpose,
		"property_type": p.PropertyType,
		"occupancy":     p.Occupancy,
	}
	for field, v := range required {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: %s required", ErrValidation, field)
		}
	}

	if strict && strings.TrimSpace(p.EntityType) == "" {
		return fmt.Errorf("%w: entity_type required", ErrValidation)
	}
	if p.EntityType == "" {
		p.EntityType = "individual"
	}

	ltv := p.LTV()
	if ltv < 0 || ltv > 100 {
		return fmt.Errorf("%w: calculated ltv %.2f outside [0, 100]", ErrValidation, ltv)
	}
	if p.DSCR != nil && *p.DSCR < 0 {
		return fmt.Errorf("%w: dscr must not be negative", ErrValidation)
	}

	return nil
}

// LTV returns the loan-to-value ratio as a percentage, rounded to two
// decimal places the way it appears in quote responses.
func (p *BorrowerProfile) LTV() float64 {
	if p.PropertyValue == 0 {
		return 0
	}
	return math.Round(p.LoanAmount/p.PropertyValue*10000) / 100
}
