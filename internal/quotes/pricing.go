package quotes

import (
	"math"
	"slices"
	"strings"

	"github.com/mortarhq/mortar/internal/catalog"
)

// AppliedAdjustment records one adjustment that matched the profile.
type AppliedAdjustment struct {
	Kind     catalog.AdjustmentKind `json:"kind"`
	ValueKey *string                `json:"value_key,omitempty"`
	RowMin   *float64               `json:"row_min,omitempty"`
	RowMax   *float64               `json:"row_max,omitempty"`
	ColMin   *float64               `json:"col_min,omitempty"`
	ColMax   *float64               `json:"col_max,omitempty"`
	Points   float64                `json:"points"`
}

// Pricing is the per-offering pricing result.
type Pricing struct {
	BaseRate         float64             `json:"base_rate"`
	TotalPoints      float64             `json:"total_points"`
	Adjustments      []AppliedAdjustment `json:"adjustments_applied"`
	EligibilityNotes []string            `json:"eligibility_notes"`
	Score            int                 `json:"score"`
}

// Price applies an offering's adjustment set to a borrower profile.
// Grid lookups use half-open [lo, hi) intervals; 1-D kinds match their
// value key against the profile token. Points are signed, negative =
// cost, positive = credit.
func Price(offering *catalog.Candidate, adjustments []catalog.RateAdjustment, profile *BorrowerProfile) Pricing {
	p := Pricing{
		BaseRate:    offering.MinRate,
		Adjustments: []AppliedAdjustment{},
	}

	ltv := profile.LTV()
	lock := resolveLockPeriod(profile, adjustments)

	for i := range adjustments {
		a := &adjustments[i]
		if !applies(a, profile, ltv, lock) {
			continue
		}

		p.TotalPoints += a.AdjustmentPoints
		p.Adjustments = append(p.Adjustments, AppliedAdjustment{
			Kind:     a.Kind,
			ValueKey: a.ValueKey,
			RowMin:   a.RowMin,
			RowMax:   a.RowMax,
			ColMin:   a.ColMin,
			ColMax:   a.ColMax,
			Points:   a.AdjustmentPoints,
		})
	}

	p.EligibilityNotes = eligibilityNotes(offering, ltv)
	p.Score = score(offering, profile.FICO, ltv, p.BaseRate)
	return p
}

func applies(a *catalog.RateAdjustment, profile *BorrowerProfile, ltv float64, lock string) bool {
	switch a.Kind {
	case catalog.KindFicoLTV:
		if a.RowMin == nil || a.RowMax == nil || a.ColMin == nil || a.ColMax == nil {
			return false
		}
		fico := float64(profile.FICO)
		return fico >= *a.RowMin && fico < *a.RowMax &&
			ltv >= *a.ColMin && ltv < *a.ColMax
	case catalog.KindPurpose:
		return matchKey(a, profile.Purpose)
	case catalog.KindOccupancy:
		return matchKey(a, profile.Occupancy)
	case catalog.KindPropertyType:
		return matchKey(a, profile.PropertyType)
	case catalog.KindState:
		return matchKey(a, profile.Region)
	case catalog.KindLockPeriod:
		return matchKey(a, lock)
	case catalog.KindLoanAmount:
		if a.ValueKey == nil {
			return false
		}
		lo, hi, err := catalog.ParseAmountBracket(*a.ValueKey)
		if err != nil {
			return false
		}
		return profile.LoanAmount >= lo && profile.LoanAmount < hi
	}
	return false
}

func matchKey(a *catalog.RateAdjustment, token string) bool {
	return a.ValueKey != nil && strings.EqualFold(*a.ValueKey, token)
}

// resolveLockPeriod returns the caller's lock period, or the offering's
// first lock tier in value-key sort order when none was supplied. The
// default is deterministic so identical requests price identically.
func resolveLockPeriod(profile *BorrowerProfile, adjustments []catalog.RateAdjustment) string {
	if profile.LockPeriod != nil && *profile.LockPeriod != "" {
		return *profile.LockPeriod
	}

	var tiers []string
	for i := range adjustments {
		a := &adjustments[i]
		if a.Kind == catalog.KindLockPeriod && a.ValueKey != nil {
			tiers = append(tiers, *a.ValueKey)
		}
	}
	if len(tiers) == 0 {
		return ""
	}
	slices.Sort(tiers)
	return tiers[0]
}

func eligibilityNotes(offering *catalog.Candidate, ltv float64) []string {
	notes := []string{}
	if ltv > 80 {
		notes = append(notes, "mortgage insurance likely")
	}
	if offering.IOOffered {
		notes = append(notes, "IO option available")
	}
	if offering.YSPAvailable {
		notes = append(notes, "lender-paid compensation available")
	}
	return notes
}

// score summarizes how comfortably the profile clears the offering's
// floors. Informational only; result ordering stays economic.
func score(offering *catalog.Candidate, fico int, ltv, baseRate float64) int {
	s := 50

	ficoBuffer := fico - offering.MinFICO
	switch {
	case ficoBuffer > 100:
		s += 20
	case ficoBuffer >= 50:
		s += 10
	}

	ltvBuffer := offering.MaxLTV - ltv
	switch {
	case ltvBuffer >= 20:
		s += 15
	case ltvBuffer >= 10:
		s += 10
	}

	switch {
	case baseRate < 7:
		s += 15
	case baseRate < 8:
		s += 10
	}

	return int(math.Min(float64(s), 100))
}
