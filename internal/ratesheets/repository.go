package ratesheets

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/pkg/pagination"
	"github.com/mortarhq/mortar/pkg/query"
	"github.com/mortarhq/mortar/pkg/repository"
)

const rateSheetColumns = `id, lender_id, filename, content_type, content_hash, storage_key,
	state, backend, effective_date, log, error, received_at, updated_at, processed_at`

// Store is the persistence contract for rate sheets. The coordinator
// depends on this interface so processing logic can be tested against a
// fake.
type Store interface {
	Create(ctx context.Context, cmd SubmitCommand, contentHash, storageKey string) (*RateSheet, error)
	Find(ctx context.Context, id uuid.UUID) (*RateSheet, error)
	List(ctx context.Context, page pagination.PageRequest, filters Filters) (*pagination.PageResult[RateSheet], error)

	Enqueue(ctx context.Context, id uuid.UUID) (*RateSheet, error)
	ClaimPending(ctx context.Context, limit int) ([]RateSheet, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, backend string, effectiveDate *time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	Requeue(ctx context.Context, id uuid.UUID) (*RateSheet, error)

	AppendLog(ctx context.Context, id uuid.UUID, entry string) error
	HasProcessedDuplicate(ctx context.Context, lenderID uuid.UUID, contentHash string, exclude uuid.UUID) (bool, error)
}

type store struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// NewStore creates the Postgres-backed rate-sheet store.
func NewStore(db *sql.DB, logger *slog.Logger, pagination pagination.Config) Store {
	return &store{
		db:         db,
		logger:     logger.With("system", "ratesheets"),
		pagination: pagination,
	}
}

func (s *store) Create(ctx context.Context, cmd SubmitCommand, contentHash, storageKey string) (*RateSheet, error) {
	q := fmt.Sprintf(`
		INSERT INTO rate_sheets(id, lender_id, filename, content_type, content_hash, storage_key, state, log)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING %s`, rateSheetColumns)

	args := []any{
		uuid.New(),
		cmd.LenderID,
		cmd.Filename,
		cmd.ContentType,
		contentHash,
		storageKey,
		StateReceived,
		repository.StringSet{"received " + cmd.Filename},
	}

	rs, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (RateSheet, error) {
		return repository.QueryOne(ctx, tx, q, args, scanRateSheet)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	s.logger.Info("rate sheet received",
		"id", rs.ID,
		"lender_id", rs.LenderID,
		"file", rs.Filename,
		"hash", rs.ContentHash,
	)
	return &rs, nil
}

func (s *store) Find(ctx context.Context, id uuid.UUID) (*RateSheet, error) {
	q, args := query.NewBuilder(rateSheetProjection).BuildSingle("ID", id)

	rs, err := repository.QueryOne(ctx, s.db, q, args, scanRateSheet)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &rs, nil
}

func (s *store) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[RateSheet], error) {
	page.Normalize(s.pagination)

	qb := query.
		NewBuilder(rateSheetProjection, rateSheetDefaultSort).
		WhereSearch(page.Search, "Filename")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count rate sheets: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, s.db, pageSQL, pageArgs, scanRateSheet)
	if err != nil {
		return nil, fmt.Errorf("list rate sheets: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

// Enqueue moves a received sheet to pending once its file is stored.
func (s *store) Enqueue(ctx context.Context, id uuid.UUID) (*RateSheet, error) {
	return s.transition(ctx, id, StateReceived, StatePending, "queued for processing")
}

// Requeue moves a failed sheet back to pending for a manual retry.
func (s *store) Requeue(ctx context.Context, id uuid.UUID) (*RateSheet, error) {
	return s.transition(ctx, id, StateFailed, StatePending, "requeued for retry")
}

func (s *store) transition(ctx context.Context, id uuid.UUID, from, to State, entry string) (*RateSheet, error) {
	q := fmt.Sprintf(`
		UPDATE rate_sheets
		SET state = $1, error = NULL, log = log || to_jsonb($2::text), updated_at = NOW()
		WHERE id = $3 AND state = $4
		RETURNING %s`, rateSheetColumns)

	rs, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (RateSheet, error) {
		return repository.QueryOne(ctx, tx, q, []any{to, entry, id, from}, scanRateSheet)
	})
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, s.transitionConflict(ctx, id, from)
		}
		return nil, err
	}

	s.logger.Info("rate sheet state changed", "id", id, "from", from, "to", to)
	return &rs, nil
}

// transitionConflict distinguishes a missing sheet from one in the wrong
// state, so callers get 404 vs 409 correctly.
func (s *store) transitionConflict(ctx context.Context, id uuid.UUID, want State) error {
	current, err := s.Find(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: state %s, expected %s", ErrInvalidState, current.State, want)
}

// ClaimPending atomically flips up to limit pending sheets to processing,
// at most one per lender, skipping lenders that already have a sheet in
// flight. Oldest sheet per lender wins.
func (s *store) ClaimPending(ctx context.Context, limit int) ([]RateSheet, error) {
	q := fmt.Sprintf(`
		UPDATE rate_sheets
		SET state = $1, log = log || to_jsonb('processing started'::text), updated_at = NOW()
		WHERE state = $2 AND id IN (
			SELECT DISTINCT ON (rs.lender_id) rs.id
			FROM rate_sheets rs
			WHERE rs.state = $2
			  AND NOT EXISTS (
				SELECT 1 FROM rate_sheets p
				WHERE p.lender_id = rs.lender_id AND p.state = $1
			  )
			ORDER BY rs.lender_id, rs.received_at ASC, rs.id ASC
			LIMIT $3
		)
		RETURNING %s`, rateSheetColumns)

	claimed, err := repository.QueryMany(ctx, s.db, q, []any{StateProcessing, StatePending, limit}, scanRateSheet)
	if err != nil {
		return nil, fmt.Errorf("claim pending rate sheets: %w", err)
	}
	return claimed, nil
}

func (s *store) MarkProcessed(ctx context.Context, id uuid.UUID, backend string, effectiveDate *time.Time) error {
	q := `
		UPDATE rate_sheets
		SET state = $1, backend = $2, effective_date = $3,
			error = NULL, processed_at = NOW(), updated_at = NOW()
		WHERE id = $4 AND state = $5`

	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		err := repository.ExecExpectOne(ctx, tx, q, StateProcessed, backend, effectiveDate, id, StateProcessing)
		return struct{}{}, err
	})
	if err != nil {
		if repository.IsNoRows(err) {
			return s.transitionConflict(ctx, id, StateProcessing)
		}
		return err
	}

	s.logger.Info("rate sheet processed", "id", id, "backend", backend)
	return nil
}

func (s *store) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	q := `
		UPDATE rate_sheets
		SET state = $1, error = $2, log = log || to_jsonb($3::text), updated_at = NOW()
		WHERE id = $4 AND state = $5`

	entry := "failed: " + reason
	_, err := repository.WithTx(ctx, s.db, func(tx *sql.Tx) (struct{}, error) {
		err := repository.ExecExpectOne(ctx, tx, q, StateFailed, reason, entry, id, StateProcessing)
		return struct{}{}, err
	})
	if err != nil {
		if repository.IsNoRows(err) {
			return s.transitionConflict(ctx, id, StateProcessing)
		}
		return err
	}

	s.logger.Warn("rate sheet failed", "id", id, "reason", reason)
	return nil
}

func (s *store) AppendLog(ctx context.Context, id uuid.UUID, entry string) error {
	q := `
		UPDATE rate_sheets
		SET log = log || to_jsonb($1::text), updated_at = NOW()
		WHERE id = $2`

	if err := repository.ExecExpectOne(ctx, s.db, q, entry, id); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (s *store) HasProcessedDuplicate(ctx context.Context, lenderID uuid.UUID, contentHash string, exclude uuid.UUID) (bool, error) {
	q := `
		SELECT EXISTS (
			SELECT 1 FROM rate_sheets
			WHERE lender_id = $1 AND content_hash = $2 AND state = $3 AND id <> $4
		)`

	var exists bool
	if err := s.db.QueryRowContext(ctx, q, lenderID, contentHash, StateProcessed, exclude).Scan(&exists); err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return exists, nil
}
