package extraction

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/internal/catalog"
)

var effectiveDateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"January 2, 2006",
}

// Normalize converts an extracted document into a catalog apply command.
// Grid intervals are settled into half-open [lo, hi) form, legacy
// grid-shaped loan-amount rows are migrated to bracket keys, and
// overlapping or duplicate adjustments fail the whole sheet.
func Normalize(doc *Document, lenderID uuid.UUID, sheetURL *string) (*catalog.ApplyCommand, error) {
	if len(doc.Programs) == 0 {
		return nil, ErrEmptySheet
	}

	effective, err := parseEffectiveDate(doc.EffectiveDate)
	if err != nil {
		return nil, err
	}

	cmd := &catalog.ApplyCommand{
		LenderID:      lenderID,
		EffectiveDate: effective,
		RateSheetURL:  sheetURL,
	}

	for i := range doc.Programs {
		p := &doc.Programs[i]
		applied, err := normalizeProgram(p)
		if err != nil {
			return nil, fmt.Errorf("program %q: %w", p.Name, err)
		}
		cmd.Programs = append(cmd.Programs, *applied)
	}

	return cmd, nil
}

func parseEffectiveDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: missing effective_date", ErrExtraction)
	}
	for _, layout := range effectiveDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: malformed effective_date %q", ErrExtraction, s)
}

func normalizeProgram(p *Program) (*catalog.ApplyProgram, error) {
	slug := p.Slug
	if slug == "" {
		slug = catalog.Slugify(p.Name)
	}

	applied := &catalog.ApplyProgram{
		ProgramSlug:  slug,
		ProgramName:  p.Name,
		MinRate:      p.MinRate,
		MaxRate:      p.MaxRate,
		MinPoints:    p.MinPoints,
		MaxPoints:    p.MaxPoints,
		LenderFee:    p.LenderFee,
		MinFICO:      p.MinFICO,
		MaxLTV:       p.MaxLTV,
		MinDSCR:      p.MinDSCR,
		MinLoan:      p.MinLoan,
		MaxLoan:      p.MaxLoan,
		IOOffered:    p.IOOffered,
		YSPAvailable: p.YSPAvailable,
		Notes:        p.Notes,
	}

	adjustments, err := normalizeAdjustments(p.Adjustments)
	if err != nil {
		return nil, err
	}
	applied.Adjustments = adjustments

	return applied, nil
}

func normalizeAdjustments(raw []Adjustment) ([]catalog.RateAdjustment, error) {
	out := make([]catalog.RateAdjustment, 0, len(raw))
	seen := make(map[string]bool)

	for i := range raw {
		a := raw[i]
		kind, err := catalog.ParseKind(a.Kind)
		if err != nil {
			return nil, err
		}

		// legacy sheets print loan-amount tiers as grid rows; migrate to
		// the canonical bracket key form
		if kind == catalog.KindLoanAmount && a.ValueKey == nil {
			if a.RowMin == nil || a.RowMax == nil {
				return nil, fmt.Errorf("%w: loan_amount adjustment without bounds or value_key", ErrExtraction)
			}
			hi := *a.RowMax
			if hi <= 0 {
				hi = math.Inf(1)
			}
			key := catalog.FormatAmountBracket(*a.RowMin, hi)
			a.ValueKey = &key
			a.RowMin, a.RowMax = nil, nil
		}

		adj := catalog.RateAdjustment{
			Kind:             kind,
			RowMin:           a.RowMin,
			RowMax:           a.RowMax,
			ColMin:           a.ColMin,
			ColMax:           a.ColMax,
			ValueKey:         a.ValueKey,
			AdjustmentPoints: a.Points,
		}

		if !adj.IsGrid() {
			var value string
			if adj.ValueKey != nil {
				value = *adj.ValueKey
			}
			key := string(kind) + ":" + value
			if seen[key] {
				return nil, fmt.Errorf("%w: duplicate %s adjustment %q", ErrExtraction, kind, value)
			}
			seen[key] = true
		}

		out = append(out, adj)
	}

	if err := normalizeGrid(out); err != nil {
		return nil, err
	}
	if err := checkAmountBrackets(out); err != nil {
		return nil, err
	}

	return out, nil
}

type interval struct{ lo, hi float64 }

// normalizeGrid settles grid axis bounds into half-open form. Axes whose
// consecutive tiers abut with a gap of exactly 1 (the inclusive printing
// convention, 700-719 / 720-739) get every upper bound raised by 1;
// axes already printed half-open (60-70 / 70-80) pass through. Repeated
// cells and tiers that overlap fail the sheet; each profile point must
// land in at most one cell per kind.
func normalizeGrid(adjustments []catalog.RateAdjustment) error {
	var rows, cols []interval
	cells := make(map[string]bool)
	for i := range adjustments {
		a := &adjustments[i]
		if !a.IsGrid() {
			continue
		}
		if a.RowMin == nil || a.RowMax == nil || a.ColMin == nil || a.ColMax == nil {
			return fmt.Errorf("%w: %s adjustment missing grid bounds", ErrExtraction, a.Kind)
		}

		cell := fmt.Sprintf("%s:%g-%g:%g-%g", a.Kind, *a.RowMin, *a.RowMax, *a.ColMin, *a.ColMax)
		if cells[cell] {
			return fmt.Errorf(
				"%w: duplicate %s cell %g-%g x %g-%g",
				ErrExtraction, a.Kind, *a.RowMin, *a.RowMax, *a.ColMin, *a.ColMax,
			)
		}
		cells[cell] = true

		rows = append(rows, interval{*a.RowMin, *a.RowMax})
		cols = append(cols, interval{*a.ColMin, *a.ColMax})
	}
	if len(rows) == 0 {
		return nil
	}

	rowShift, err := axisShift(unique(rows))
	if err != nil {
		return fmt.Errorf("%w: FICO axis: %w", ErrExtraction, err)
	}
	colShift, err := axisShift(unique(cols))
	if err != nil {
		return fmt.Errorf("%w: LTV axis: %w", ErrExtraction, err)
	}

	for i := range adjustments {
		a := &adjustments[i]
		if !a.IsGrid() {
			continue
		}
		*a.RowMax += rowShift
		*a.ColMax += colShift
	}
	return nil
}

func unique(intervals []interval) []interval {
	slices.SortFunc(intervals, func(a, b interval) int {
		switch {
		case a.lo != b.lo:
			return int(math.Copysign(1, a.lo-b.lo))
		case a.hi != b.hi:
			return int(math.Copysign(1, a.hi-b.hi))
		}
		return 0
	})
	return slices.Compact(intervals)
}

// axisShift inspects the sorted unique tiers of one axis and returns the
// amount to add to every upper bound: 1 when the axis uses inclusive
// bounds, 0 when it is already half-open.
func axisShift(tiers []interval) (float64, error) {
	if len(tiers) < 2 {
		return 0, nil
	}

	inclusive := true
	for i := 0; i < len(tiers)-1; i++ {
		gap := tiers[i+1].lo - tiers[i].hi
		if gap < 0 {
			return 0, fmt.Errorf("tiers %g-%g and %g-%g overlap", tiers[i].lo, tiers[i].hi, tiers[i+1].lo, tiers[i+1].hi)
		}
		if gap != 1 {
			inclusive = false
		}
	}

	if inclusive {
		return 1, nil
	}
	return 0, nil
}

func checkAmountBrackets(adjustments []catalog.RateAdjustment) error {
	var brackets []interval
	for i := range adjustments {
		a := &adjustments[i]
		if a.Kind != catalog.KindLoanAmount || a.ValueKey == nil {
			continue
		}
		lo, hi, err := catalog.ParseAmountBracket(*a.ValueKey)
		if err != nil {
			return err
		}
		brackets = append(brackets, interval{lo, hi})
	}

	brackets = unique(brackets)
	for i := 0; i < len(brackets)-1; i++ {
		if brackets[i].hi > brackets[i+1].lo {
			return fmt.Errorf(
				"%w: loan_amount brackets %s and %s overlap",
				ErrExtraction,
				catalog.FormatAmountBracket(brackets[i].lo, brackets[i].hi),
				catalog.FormatAmountBracket(brackets[i+1].lo, brackets[i+1].hi),
			)
		}
	}
	return nil
}
