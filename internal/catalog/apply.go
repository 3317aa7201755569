package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/pkg/repository"
)

// ApplyProgram is one extracted program section of a rate sheet: the
// offering terms plus its replacement adjustment set.
type ApplyProgram struct {
	ProgramSlug string
	ProgramName string

	MinRate      float64
	MaxRate      float64
	MinPoints    float64
	MaxPoints    float64
	LenderFee    float64
	MinFICO      int
	MaxLTV       float64
	MinDSCR      *float64
	MinLoan      float64
	MaxLoan      float64
	IOOffered    bool
	YSPAvailable bool
	Notes        string

	Adjustments []RateAdjustment
}

// ApplyCommand applies an extracted rate sheet to the catalog.
type ApplyCommand struct {
	LenderID      uuid.UUID
	EffectiveDate time.Time
	RateSheetURL  *string
	Programs      []ApplyProgram
}

// ApplyResult reports what a rate-sheet application touched.
type ApplyResult struct {
	OfferingIDs []uuid.UUID
	Programs    []string
	Adjustments int
}

// ApplyRateSheet resolves each extracted program against the catalog and
// writes offering terms and adjustment sets in a single transaction. Any
// failure, including an unresolved program name, rolls back the whole
// sheet so the catalog never holds a partial update.
func (r *repo) ApplyRateSheet(ctx context.Context, cmd ApplyCommand) (*ApplyResult, error) {
	if len(cmd.Programs) == 0 {
		return nil, fmt.Errorf("%w: rate sheet contains no programs", ErrValidation)
	}
	if cmd.EffectiveDate.IsZero() {
		return nil, fmt.Errorf("%w: effective_date required", ErrValidation)
	}

	programs := slices.Clone(cmd.Programs)
	slices.SortFunc(programs, func(a, b ApplyProgram) int {
		return strings.Compare(a.ProgramSlug, b.ProgramSlug)
	})

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ApplyResult, error) {
		var res ApplyResult
		for _, p := range programs {
			pt, err := resolveProgramType(ctx, tx, p)
			if err != nil {
				return res, err
			}

			offering, err := putOffering(ctx, tx, OfferingCommand{
				LenderID:      cmd.LenderID,
				ProgramTypeID: pt.ID,
				MinRate:       p.MinRate,
				MaxRate:       p.MaxRate,
				MinPoints:     p.MinPoints,
				MaxPoints:     p.MaxPoints,
				LenderFee:     p.LenderFee,
				MinFICO:       p.MinFICO,
				MaxLTV:        p.MaxLTV,
				MinDSCR:       p.MinDSCR,
				MinLoan:       p.MinLoan,
				MaxLoan:       p.MaxLoan,
				IOOffered:     p.IOOffered,
				YSPAvailable:  p.YSPAvailable,
				RateSheetURL:  cmd.RateSheetURL,
				Notes:         p.Notes,
			}, pt)
			if err != nil {
				return res, fmt.Errorf("program %q: %w", pt.Slug, err)
			}

			if err := replaceAdjustmentSet(ctx, tx, offering.ID, cmd.EffectiveDate, p.Adjustments); err != nil {
				return res, fmt.Errorf("program %q: %w", pt.Slug, err)
			}

			res.OfferingIDs = append(res.OfferingIDs, offering.ID)
			res.Programs = append(res.Programs, pt.Slug)
			res.Adjustments += len(p.Adjustments)
		}
		return res, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("rate sheet applied",
		"lender_id", cmd.LenderID,
		"programs", len(result.Programs),
		"adjustments", result.Adjustments,
		"effective_date", cmd.EffectiveDate.Format("2006-01-02"),
	)
	return &result, nil
}

// resolveProgramType matches an extracted program to a catalog program
// type by slug first, then by case-insensitive name. A sheet naming a
// program the catalog does not carry fails the whole application.
func resolveProgramType(ctx context.Context, tx *sql.Tx, p ApplyProgram) (*ProgramType, error) {
	slug := p.ProgramSlug
	if slug == "" {
		slug = Slugify(p.ProgramName)
	}

	q := `
		SELECT id, name, slug, category, loan_type, documentation_level,
			   base_min_fico, base_max_ltv, base_min_dscr,
			   allowed_property_types, allowed_occupancy, allowed_entity_types, allowed_purposes,
			   active, created_at, updated_at
		FROM program_types
		WHERE slug = $1 OR LOWER(name) = LOWER($2)
		ORDER BY (slug = $1) DESC
		LIMIT 1`

	name := p.ProgramName
	if name == "" {
		name = slug
	}

	pt, err := repository.QueryOne(ctx, tx, q, []any{slug, name}, scanProgramType)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, fmt.Errorf("%w: %q", ErrUnresolvedProgram, displayProgram(p))
		}
		return nil, err
	}
	return &pt, nil
}

func displayProgram(p ApplyProgram) string {
	if p.ProgramName != "" {
		return p.ProgramName
	}
	return p.ProgramSlug
}
