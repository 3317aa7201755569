package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/pkg/pagination"
	"github.com/mortarhq/mortar/pkg/query"
	"github.com/mortarhq/mortar/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a catalog repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "catalog"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) ListLenders(
	ctx context.Context,
	page pagination.PageRequest,
	filters LenderFilters,
) (*pagination.PageResult[Lender], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(lenderProjection, lenderDefaultSort).
		WhereSearch(page.Search, "DisplayName")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	return listPage(ctx, r.db, qb, page, scanLender)
}

func (r *repo) FindLender(ctx context.Context, id uuid.UUID) (*Lender, error) {
	q, args := query.NewBuilder(lenderProjection).BuildSingle("ID", id)

	l, err := repository.QueryOne(ctx, r.db, q, args, scanLender)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &l, nil
}

func (r *repo) CreateLender(ctx context.Context, cmd LenderCommand) (*Lender, error) {
	if err := validateLender(&cmd); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO lenders(id, display_name, licensed_regions, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, display_name, licensed_regions, active, created_at, updated_at`

	active := true
	if cmd.Active != nil {
		active = *cmd.Active
	}

	args := []any{
		uuid.New(),
		cmd.DisplayName,
		repository.StringSet(canonicalRegions(cmd.LicensedRegions)),
		active,
	}

	l, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Lender, error) {
		return repository.QueryOne(ctx, tx, q, args, scanLender)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("lender created", "id", l.ID, "name", l.DisplayName)
	return &l, nil
}

func (r *repo) UpdateLender(ctx context.Context, id uuid.UUID, cmd LenderCommand) (*Lender, error) {
	if err := validateLender(&cmd); err != nil {
		return nil, err
	}

	q := `
		UPDATE lenders
		SET display_name = $1, licensed_regions = $2, active = COALESCE($3, active), updated_at = NOW()
		WHERE id = $4
		RETURNING id, display_name, licensed_regions, active, created_at, updated_at`

	args := []any{
		cmd.DisplayName,
		repository.StringSet(canonicalRegions(cmd.LicensedRegions)),
		cmd.Active,
		id,
	}

	l, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Lender, error) {
		return repository.QueryOne(ctx, tx, q, args, scanLender)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("lender updated", "id", l.ID)
	return &l, nil
}

func (r *repo) ListProgramTypes(
	ctx context.Context,
	page pagination.PageRequest,
	filters ProgramTypeFilters,
) (*pagination.PageResult[ProgramType], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(programTypeProjection, programTypeDefaultSort).
		WhereSearch(page.Search, "Name", "Slug")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	return listPage(ctx, r.db, qb, page, scanProgramType)
}

func (r *repo) FindProgramType(ctx context.Context, id uuid.UUID) (*ProgramType, error) {
	q, args := query.NewBuilder(programTypeProjection).BuildSingle("ID", id)

	pt, err := repository.QueryOne(ctx, r.db, q, args, scanProgramType)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &pt, nil
}

func (r *repo) PutProgramType(ctx context.Context, cmd ProgramTypeCommand) (*ProgramType, error) {
	if err := validateProgramType(&cmd); err != nil {
		return nil, err
	}

	pt, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ProgramType, error) {
		return putProgramType(ctx, tx, cmd)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("program type saved", "id", pt.ID, "slug", pt.Slug)
	return &pt, nil
}

func putProgramType(ctx context.Context, tx *sql.Tx, cmd ProgramTypeCommand) (ProgramType, error) {
	q := `
		INSERT INTO program_types(
			id, name, slug, category, loan_type, documentation_level,
			base_min_fico, base_max_ltv, base_min_dscr,
			allowed_property_types, allowed_occupancy, allowed_entity_types, allowed_purposes,
			active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (slug) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			loan_type = EXCLUDED.loan_type,
			documentation_level = EXCLUDED.documentation_level,
			base_min_fico = EXCLUDED.base_min_fico,
			base_max_ltv = EXCLUDED.base_max_ltv,
			base_min_dscr = EXCLUDED.base_min_dscr,
			allowed_property_types = EXCLUDED.allowed_property_types,
			allowed_occupancy = EXCLUDED.allowed_occupancy,
			allowed_entity_types = EXCLUDED.allowed_entity_types,
			allowed_purposes = EXCLUDED.allowed_purposes,
			active = EXCLUDED.active,
			updated_at = NOW()
		RETURNING id, name, slug, category, loan_type, documentation_level,
				  base_min_fico, base_max_ltv, base_min_dscr,
				  allowed_property_types, allowed_occupancy, allowed_entity_types, allowed_purposes,
				  active, created_at, updated_at`

	active := true
	if cmd.Active != nil {
		active = *cmd.Active
	}

	args := []any{
		uuid.New(),
		cmd.Name,
		cmd.Slug,
		cmd.Category,
		cmd.LoanType,
		cmd.DocumentationLevel,
		cmd.BaseMinFICO,
		cmd.BaseMaxLTV,
		cmd.BaseMinDSCR,
		repository.StringSet(canonicalSet(cmd.AllowedPropertyTypes)),
		repository.StringSet(canonicalSet(cmd.AllowedOccupancy)),
		repository.StringSet(canonicalSet(cmd.AllowedEntityTypes)),
		repository.StringSet(canonicalSet(cmd.AllowedPurposes)),
		active,
	}

	return repository.QueryOne(ctx, tx, q, args, scanProgramType)
}

func (r *repo) ListOfferings(
	ctx context.Context,
	page pagination.PageRequest,
	filters OfferingFilters,
) (*pagination.PageResult[Candidate], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(offeringProjection, offeringDefaultSort).
		WhereSearch(page.Search, "ProgramName", "LenderName", "Notes")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	return listPage(ctx, r.db, qb, page, scanCandidate)
}

func (r *repo) FindOffering(ctx context.Context, id uuid.UUID) (*Candidate, error) {
	q, args := query.NewBuilder(offeringProjection).BuildSingle("ID", id)

	c, err := repository.QueryOne(ctx, r.db, q, args, scanCandidate)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &c, nil
}

func (r *repo) PutOffering(ctx context.Context, cmd OfferingCommand) (*Offering, error) {
	o, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Offering, error) {
		pt, err := programTypeByID(ctx, tx, cmd.ProgramTypeID)
		if err != nil {
			return Offering{}, err
		}
		return putOffering(ctx, tx, cmd, pt)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("offering saved", "id", o.ID, "lender_id", o.LenderID, "program_type_id", o.ProgramTypeID)
	return &o, nil
}

func putOffering(ctx context.Context, tx *sql.Tx, cmd OfferingCommand, pt *ProgramType) (Offering, error) {
	if err := validateOffering(&cmd, pt); err != nil {
		return Offering{}, err
	}

	q := `
		INSERT INTO lender_program_offerings(
			id, lender_id, program_type_id,
			min_rate, max_rate, min_points, max_points, lender_fee,
			min_fico, max_ltv, min_dscr, min_loan, max_loan,
			io_offered, ysp_available, rate_sheet_url, active, notes
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (lender_id, program_type_id) DO UPDATE SET
			min_rate = EXCLUDED.min_rate,
			max_rate = EXCLUDED.max_rate,
			min_points = EXCLUDED.min_points,
			max_points = EXCLUDED.max_points,
			lender_fee = EXCLUDED.lender_fee,
			min_fico = EXCLUDED.min_fico,
			max_ltv = EXCLUDED.max_ltv,
			min_dscr = EXCLUDED.min_dscr,
			min_loan = EXCLUDED.min_loan,
			max_loan = EXCLUDED.max_loan,
			io_offered = EXCLUDED.io_offered,
			ysp_available = EXCLUDED.ysp_available,
			rate_sheet_url = COALESCE(EXCLUDED.rate_sheet_url, lender_program_offerings.rate_sheet_url),
			active = EXCLUDED.active,
			notes = EXCLUDED.notes,
			updated_at = NOW()
		RETURNING id, lender_id, program_type_id,
				  min_rate, max_rate, min_points, max_points, lender_fee,
				  min_fico, max_ltv, min_dscr, min_loan, max_loan,
				  io_offered, ysp_available, rate_sheet_url, last_rate_update,
				  active, notes, created_at, updated_at`

	active := true
	if cmd.Active != nil {
		active = *cmd.Active
	}

	args := []any{
		uuid.New(),
		cmd.LenderID,
		cmd.ProgramTypeID,
		cmd.MinRate,
		cmd.MaxRate,
		cmd.MinPoints,
		cmd.MaxPoints,
		cmd.LenderFee,
		cmd.MinFICO,
		cmd.MaxLTV,
		cmd.MinDSCR,
		cmd.MinLoan,
		cmd.MaxLoan,
		cmd.IOOffered,
		cmd.YSPAvailable,
		cmd.RateSheetURL,
		active,
		cmd.Notes,
	}

	return repository.QueryOne(ctx, tx, q, args, scanOffering)
}

func (r *repo) DeleteOffering(ctx context.Context, id uuid.UUID) error {
	// rate_adjustments cascade on the foreign key; no orphans remain
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM lender_program_offerings WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("offering deleted", "id", id)
	return nil
}

// FindOfferings applies the hard-filter predicate: lender licensure,
// program eligibility sets, loan bounds, and FICO/LTV overlays. Ordering
// is min_rate, then lender_fee, then id for deterministic output.
func (r *repo) FindOfferings(ctx context.Context, q OfferingQuery) ([]Candidate, error) {
	sqlQ := `
		SELECT o.id, o.lender_id, o.program_type_id,
			   o.min_rate, o.max_rate, o.min_points, o.max_points, o.lender_fee,
			   o.min_fico, o.max_ltv, o.min_dscr, o.min_loan, o.max_loan,
			   o.io_offered, o.ysp_available, o.rate_sheet_url, o.last_rate_update,
			   o.active, o.notes, o.created_at, o.updated_at,
			   l.display_name, pt.name, pt.slug
		FROM lender_program_offerings o
		JOIN lenders l ON o.lender_id = l.id
		JOIN program_types pt ON o.program_type_id = pt.id
		WHERE l.active AND o.active AND pt.active
		  AND l.licensed_regions ? $1
		  AND pt.allowed_purposes ? $2
		  AND pt.allowed_property_types ? $3
		  AND pt.allowed_occupancy ? $4
		  AND pt.allowed_entity_types ? $5
		  AND o.min_loan <= $6 AND o.max_loan >= $6
		  AND o.min_fico <= $7
		  AND o.max_ltv >= $8
		ORDER BY o.min_rate ASC, o.lender_fee ASC, o.id ASC`

	args := []any{
		q.Region,
		q.Purpose,
		q.PropertyType,
		q.Occupancy,
		q.EntityType,
		q.LoanAmount,
		q.FICO,
		q.LTV,
	}

	candidates, err := repository.QueryMany(ctx, r.db, sqlQ, args, scanCandidate)
	if err != nil {
		return nil, fmt.Errorf("find offerings: %w", err)
	}
	return candidates, nil
}

// ReverseLookup returns the stored qualifying profiles an offering would
// match, using the same predicate as FindOfferings so matching is
// symmetric in both directions.
func (r *repo) ReverseLookup(ctx context.Context, offeringID uuid.UUID) ([]QualifyingInfo, error) {
	if _, err := r.FindOffering(ctx, offeringID); err != nil {
		return nil, err
	}

	sqlQ := `
		SELECT q.id, q.property_type, q.occupancy, q.region, q.purpose,
			   q.entity_type, q.loan_amount, q.ltv, q.fico, q.created_at
		FROM qualifying_info q
		JOIN lender_program_offerings o ON o.id = $1
		JOIN lenders l ON o.lender_id = l.id
		JOIN program_types pt ON o.program_type_id = pt.id
		WHERE l.active AND o.active AND pt.active
		  AND l.licensed_regions ? q.region
		  AND pt.allowed_purposes ? q.purpose
		  AND pt.allowed_property_types ? q.property_type
		  AND pt.allowed_occupancy ? q.occupancy
		  AND pt.allowed_entity_types ? q.entity_type
		  AND o.min_loan <= q.loan_amount AND o.max_loan >= q.loan_amount
		  AND o.min_fico <= q.fico
		  AND o.max_ltv >= q.ltv
		ORDER BY q.created_at ASC, q.id ASC`

	profiles, err := repository.QueryMany(ctx, r.db, sqlQ, []any{offeringID}, scanQualifying)
	if err != nil {
		return nil, fmt.Errorf("reverse lookup: %w", err)
	}
	return profiles, nil
}

func (r *repo) AdjustmentsFor(ctx context.Context, offeringID uuid.UUID) ([]RateAdjustment, error) {
	q := `
		SELECT id, offering_id, kind, row_min, row_max, col_min, col_max,
			   value_key, adjustment_points, effective_date
		FROM rate_adjustments
		WHERE offering_id = $1
		ORDER BY kind ASC, row_min ASC NULLS LAST, value_key ASC NULLS LAST`

	adjustments, err := repository.QueryMany(ctx, r.db, q, []any{offeringID}, scanAdjustment)
	if err != nil {
		return nil, fmt.Errorf("adjustments for offering %s: %w", offeringID, err)
	}
	return adjustments, nil
}

// ReplaceAdjustments atomically swaps the adjustment sets for one or more
// offerings. Offerings are locked in id order to avoid deadlocks between
// concurrent ingestion jobs; partial failure rolls everything back,
// leaving the prior sets intact.
func (r *repo) ReplaceAdjustments(ctx context.Context, effectiveDate time.Time, sets ...AdjustmentSet) error {
	if len(sets) == 0 {
		return nil
	}

	ordered := slices.Clone(sets)
	slices.SortFunc(ordered, func(a, b AdjustmentSet) int {
		return compareUUID(a.OfferingID, b.OfferingID)
	})

	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		for _, set := range ordered {
			if err := replaceAdjustmentSet(ctx, tx, set.OfferingID, effectiveDate, set.Adjustments); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("adjustments replaced",
		"offerings", len(sets),
		"effective_date", effectiveDate.Format("2006-01-02"),
	)
	return nil
}

func replaceAdjustmentSet(
	ctx context.Context,
	tx *sql.Tx,
	offeringID uuid.UUID,
	effectiveDate time.Time,
	adjustments []RateAdjustment,
) error {
	// serialize writers on the offering row
	if err := repository.ExecExpectOne(
		ctx, tx,
		"SELECT 1 FROM lender_program_offerings WHERE id = $1 FOR UPDATE",
		offeringID,
	); err != nil {
		return fmt.Errorf("lock offering %s: %w", offeringID, err)
	}

	if _, err := tx.ExecContext(
		ctx,
		"DELETE FROM rate_adjustments WHERE offering_id = $1",
		offeringID,
	); err != nil {
		return fmt.Errorf("clear adjustments for %s: %w", offeringID, err)
	}

	insertQ := `
		INSERT INTO rate_adjustments(
			id, offering_id, kind, row_min, row_max, col_min, col_max,
			value_key, adjustment_points, effective_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	for i := range adjustments {
		a := &adjustments[i]
		a.OfferingID = offeringID
		a.EffectiveDate = effectiveDate
		if err := a.Validate(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, insertQ,
			uuid.New(),
			offeringID,
			a.Kind,
			a.RowMin,
			a.RowMax,
			a.ColMin,
			a.ColMax,
			a.ValueKey,
			a.AdjustmentPoints,
			effectiveDate,
		); err != nil {
			return fmt.Errorf("insert adjustment for %s: %w", offeringID, err)
		}
	}

	if err := repository.ExecExpectOne(
		ctx, tx,
		"UPDATE lender_program_offerings SET last_rate_update = NOW(), updated_at = NOW() WHERE id = $1",
		offeringID,
	); err != nil {
		return fmt.Errorf("stamp offering %s: %w", offeringID, err)
	}

	return nil
}

func (r *repo) CreateQualifyingInfo(ctx context.Context, cmd QualifyingInfoCommand) (*QualifyingInfo, error) {
	if err := validateQualifying(&cmd); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO qualifying_info(
			id, property_type, occupancy, region, purpose, entity_type,
			loan_amount, ltv, fico
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, property_type, occupancy, region, purpose, entity_type,
				  loan_amount, ltv, fico, created_at`

	args := []any{
		uuid.New(),
		cmd.PropertyType,
		cmd.Occupancy,
		cmd.Region,
		cmd.Purpose,
		cmd.EntityType,
		cmd.LoanAmount,
		cmd.LTV,
		cmd.FICO,
	}

	qi, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (QualifyingInfo, error) {
		return repository.QueryOne(ctx, tx, q, args, scanQualifying)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("qualifying profile stored", "id", qi.ID)
	return &qi, nil
}

func programTypeByID(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*ProgramType, error) {
	q, args := query.NewBuilder(programTypeProjection).BuildSingle("ID", id)

	pt, err := repository.QueryOne(ctx, tx, q, args, scanProgramType)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &pt, nil
}

func listPage[T any](
	ctx context.Context,
	db *sql.DB,
	qb *query.Builder,
	page pagination.PageRequest,
	scan repository.ScanFunc[T],
) (*pagination.PageResult[T], error) {
	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, db, pageSQL, pageArgs, scan)
	if err != nil {
		return nil, fmt.Errorf("query page: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func compareUUID(a, b uuid.UUID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
