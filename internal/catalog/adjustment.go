package catalog

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AdjustmentKind discriminates the two rate-adjustment shapes: the 2-D
// FICO/LTV grid and the 1-D value-key lookups.
type AdjustmentKind string

// Valid adjustment kinds.
const (
	KindFicoLTV      AdjustmentKind = "fico_ltv"
	KindPurpose      AdjustmentKind = "purpose"
	KindOccupancy    AdjustmentKind = "occupancy"
	KindPropertyType AdjustmentKind = "property_type"
	KindLoanAmount   AdjustmentKind = "loan_amount"
	KindLockPeriod   AdjustmentKind = "lock_period"
	KindState        AdjustmentKind = "state"
)

var kinds = []AdjustmentKind{
	KindFicoLTV,
	KindPurpose,
	KindOccupancy,
	KindPropertyType,
	KindLoanAmount,
	KindLockPeriod,
	KindState,
}

// ParseKind validates a string as a known adjustment kind.
func ParseKind(s string) (AdjustmentKind, error) {
	k := AdjustmentKind(s)
	if !slices.Contains(kinds, k) {
		return "", fmt.Errorf("%w: unknown adjustment kind %q", ErrValidation, s)
	}
	return k, nil
}

// RateAdjustment is a loan-level price adjustment attached to an offering.
// Grid rows are half-open intervals [RowMin, RowMax) x [ColMin, ColMax);
// 1-D kinds carry a canonical ValueKey instead. AdjustmentPoints are
// signed: negative = cost, positive = credit.
type RateAdjustment struct {
	ID               uuid.UUID      `json:"id"`
	OfferingID       uuid.UUID      `json:"offering_id"`
	Kind             AdjustmentKind `json:"kind"`
	RowMin           *float64       `json:"row_min,omitempty"`
	RowMax           *float64       `json:"row_max,omitempty"`
	ColMin           *float64       `json:"col_min,omitempty"`
	ColMax           *float64       `json:"col_max,omitempty"`
	ValueKey         *string        `json:"value_key,omitempty"`
	AdjustmentPoints float64        `json:"adjustment_points"`
	EffectiveDate    time.Time      `json:"effective_date"`
}

// IsGrid reports whether the adjustment uses the 2-D grid shape.
func (a *RateAdjustment) IsGrid() bool {
	return a.Kind == KindFicoLTV
}

// Validate checks shape consistency for the adjustment's kind.
func (a *RateAdjustment) Validate() error {
	if _, err := ParseKind(string(a.Kind)); err != nil {
		return err
	}

	if a.IsGrid() {
		if a.RowMin == nil || a.RowMax == nil || a.ColMin == nil || a.ColMax == nil {
			return fmt.Errorf("%w: %s adjustment requires row and column bounds", ErrValidation, a.Kind)
		}
		if *a.RowMin >= *a.RowMax || *a.ColMin >= *a.ColMax {
			return fmt.Errorf("%w: %s adjustment has empty interval", ErrValidation, a.Kind)
		}
		return nil
	}

	if a.ValueKey == nil || *a.ValueKey == "" {
		return fmt.Errorf("%w: %s adjustment requires value_key", ErrValidation, a.Kind)
	}
	if a.Kind == KindLoanAmount {
		if _, _, err := ParseAmountBracket(*a.ValueKey); err != nil {
			return err
		}
	}
	return nil
}

// ParseAmountBracket decodes a loan-amount bracket key such as "500k-1m",
// "100000-250000", or "2m+" into an inclusive-exclusive [lo, hi) range.
// Open-ended brackets return hi = +Inf.
func ParseAmountBracket(key string) (lo, hi float64, err error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return 0, 0, fmt.Errorf("%w: empty loan_amount bracket", ErrValidation)
	}

	if bound, ok := strings.CutSuffix(key, "+"); ok {
		lo, err = parseAmountToken(bound)
		if err != nil {
			return 0, 0, err
		}
		return lo, math.Inf(1), nil
	}

	parts := strings.SplitN(key, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: malformed loan_amount bracket %q", ErrValidation, key)
	}

	lo, err = parseAmountToken(parts[0])
	if err != nil {
		return 0, 0, err
	}
	hi, err = parseAmountToken(parts[1])
	if err != nil {
		return 0, 0, err
	}
	if lo >= hi {
		return 0, 0, fmt.Errorf("%w: empty loan_amount bracket %q", ErrValidation, key)
	}
	return lo, hi, nil
}

// FormatAmountBracket encodes an inclusive-exclusive amount range as a
// canonical bracket key, using k/m suffixes for round values.
func FormatAmountBracket(lo, hi float64) string {
	if math.IsInf(hi, 1) {
		return formatAmountToken(lo) + "+"
	}
	return formatAmountToken(lo) + "-" + formatAmountToken(hi)
}

func parseAmountToken(s string) (float64, error) {
	s = strings.TrimSpace(s)
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "m"):
		mult = 1_000_000
		s = strings.TrimSuffix(s, "m")
	case strings.HasSuffix(s, "k"):
		mult = 1_000
		s = strings.TrimSuffix(s, "k")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed amount token %q", ErrValidation, s)
	}
	return v * mult, nil
}

func formatAmountToken(v float64) string {
	switch {
	case v >= 1_000_000 && math.Mod(v, 100_000) == 0:
		return strconv.FormatFloat(v/1_000_000, 'f', -1, 64) + "m"
	case v >= 1_000 && math.Mod(v, 1_000) == 0:
		return strconv.FormatFloat(v/1_000, 'f', -1, 64) + "k"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}
