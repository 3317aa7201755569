package ratesheets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mortarhq/mortar/internal/config"
	"github.com/mortarhq/mortar/internal/extraction"
	"github.com/mortarhq/mortar/pkg/lifecycle"
	"github.com/mortarhq/mortar/pkg/pagination"
)

// Coordinator drives rate sheets through intake, extraction, and catalog
// application. One coordinator runs per process; the claim query keeps
// multiple instances from double-processing.
type Coordinator struct {
	store      Store
	blob       Blob
	registry   *extraction.Registry
	catalog    Catalog
	cfg        config.IngestConfig
	logger     *slog.Logger
	pagination pagination.Config
}

// NewCoordinator wires the rate-sheet coordinator.
func NewCoordinator(
	store Store,
	blob Blob,
	registry *extraction.Registry,
	cat Catalog,
	cfg config.IngestConfig,
	logger *slog.Logger,
	pagination pagination.Config,
) *Coordinator {
	return &Coordinator{
		store:      store,
		blob:       blob,
		registry:   registry,
		catalog:    cat,
		cfg:        cfg,
		logger:     logger.With("system", "ratesheets"),
		pagination: pagination,
	}
}

// Handler returns the HTTP handler for rate-sheet endpoints.
func (c *Coordinator) Handler(maxUploadSize int64) *Handler {
	return NewHandler(c, c.logger, c.pagination, maxUploadSize)
}

// Run starts the tick loop, stopping when the lifecycle context ends.
func (c *Coordinator) Run(lc *lifecycle.Coordinator) {
	lc.OnStartup(func() {
		go c.loop(lc.Context())
	})
}

func (c *Coordinator) loop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.TickIntervalDuration())
	defer ticker.Stop()

	c.logger.Info("ingestion loop started",
		"interval", c.cfg.TickInterval,
		"workers", c.cfg.Workers,
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("ingestion loop stopped")
			return
		case <-ticker.C:
			if err := c.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("ingestion tick failed", "error", err)
			}
		}
	}
}

// Submit stores a sheet file and queues it for processing. The lender
// must exist; the file is keyed by content hash so resubmitting the same
// bytes reuses the stored blob.
func (c *Coordinator) Submit(ctx context.Context, cmd SubmitCommand) (*RateSheet, error) {
	if len(cmd.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidFile)
	}
	if cmd.Filename == "" {
		return nil, fmt.Errorf("%w: missing filename", ErrInvalidFile)
	}

	if _, err := c.catalog.FindLender(ctx, cmd.LenderID); err != nil {
		return nil, fmt.Errorf("%w: unknown lender %s", ErrInvalidFile, cmd.LenderID)
	}

	hash := HashContent(cmd.Data)
	key := StorageKey(cmd.LenderID, hash, cmd.Filename)

	if err := c.blob.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("store rate sheet: %w", err)
	}

	rs, err := c.store.Create(ctx, cmd, hash, key)
	if err != nil {
		return nil, err
	}

	return c.store.Enqueue(ctx, rs.ID)
}

// Find returns a sheet's current state and processing log.
func (c *Coordinator) Find(ctx context.Context, id uuid.UUID) (*RateSheet, error) {
	return c.store.Find(ctx, id)
}

// List returns a paginated view of sheets with optional filters.
func (c *Coordinator) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[RateSheet], error) {
	return c.store.List(ctx, page, filters)
}

// Retry moves a failed sheet back to pending.
func (c *Coordinator) Retry(ctx context.Context, id uuid.UUID) (*RateSheet, error) {
	return c.store.Requeue(ctx, id)
}

// Download streams the stored sheet file.
func (c *Coordinator) Download(ctx context.Context, id uuid.UUID) (io.ReadCloser, *RateSheet, error) {
	rs, err := c.store.Find(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	reader, err := c.blob.Download(ctx, rs.StorageKey)
	if err != nil {
		return nil, nil, err
	}
	return reader, rs, nil
}

// Tick claims a batch of pending sheets and processes them with bounded
// concurrency. Claim ordering guarantees at most one sheet per lender is
// in flight.
func (c *Coordinator) Tick(ctx context.Context) error {
	claimed, err := c.store.ClaimPending(ctx, c.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(claimed) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)

	for i := range claimed {
		rs := claimed[i]
		g.Go(func() error {
			c.process(gctx, &rs)
			return nil
		})
	}

	return g.Wait()
}

// process runs one claimed sheet to a terminal state. Errors land in the
// sheet record rather than propagating; a tick never fails because one
// sheet did.
func (c *Coordinator) process(ctx context.Context, rs *RateSheet) {
	logger := c.logger.With("id", rs.ID, "lender_id", rs.LenderID, "file", rs.Filename)

	dup, err := c.store.HasProcessedDuplicate(ctx, rs.LenderID, rs.ContentHash, rs.ID)
	if err != nil {
		c.fail(ctx, rs, fmt.Sprintf("duplicate check: %v", err))
		return
	}
	if dup {
		if err := c.store.AppendLog(ctx, rs.ID, "duplicate content"); err != nil {
			logger.Error("append log failed", "error", err)
		}
		if err := c.store.MarkProcessed(ctx, rs.ID, "duplicate", nil); err != nil {
			logger.Error("mark processed failed", "error", err)
		}
		logger.Info("rate sheet skipped as duplicate", "hash", rs.ContentHash)
		return
	}

	lender, err := c.catalog.FindLender(ctx, rs.LenderID)
	if err != nil {
		c.fail(ctx, rs, fmt.Sprintf("resolve lender: %v", err))
		return
	}

	data, err := c.download(ctx, rs.StorageKey)
	if err != nil {
		c.fail(ctx, rs, fmt.Sprintf("download sheet: %v", err))
		return
	}

	in := extraction.Input{
		LenderID:    rs.LenderID,
		LenderName:  lender.DisplayName,
		Filename:    rs.Filename,
		ContentType: rs.ContentType,
		Data:        data,
	}

	backend, err := c.registry.Select(in)
	if err != nil {
		c.fail(ctx, rs, err.Error())
		return
	}

	doc, err := c.extract(ctx, backend, in)
	if err != nil {
		c.fail(ctx, rs, extractFailureReason(backend, err, c.extractTimeout(backend)))
		return
	}

	cmd, err := extraction.Normalize(doc, rs.LenderID, &rs.StorageKey)
	if err != nil {
		c.fail(ctx, rs, err.Error())
		return
	}

	result, err := c.catalog.ApplyRateSheet(ctx, *cmd)
	if err != nil {
		c.fail(ctx, rs, err.Error())
		return
	}

	entry := fmt.Sprintf(
		"applied %d programs, %d adjustments via %s",
		len(result.Programs), result.Adjustments, backend.Name(),
	)
	if err := c.store.AppendLog(ctx, rs.ID, entry); err != nil {
		logger.Error("append log failed", "error", err)
	}

	if err := c.store.MarkProcessed(ctx, rs.ID, backend.Name(), &cmd.EffectiveDate); err != nil {
		logger.Error("mark processed failed", "error", err)
		return
	}

	logger.Info("rate sheet processed",
		"backend", backend.Name(),
		"programs", len(result.Programs),
		"adjustments", result.Adjustments,
	)
}

func (c *Coordinator) extract(ctx context.Context, backend extraction.Backend, in extraction.Input) (*extraction.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, c.extractTimeout(backend))
	defer cancel()
	return backend.Extract(ctx, in)
}

func (c *Coordinator) extractTimeout(backend extraction.Backend) time.Duration {
	if backend.Name() == "ai" {
		return c.cfg.AITimeoutDuration()
	}
	return c.cfg.DeterministicTimeoutDuration()
}

func (c *Coordinator) download(ctx context.Context, key string) ([]byte, error) {
	reader, err := c.blob.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func (c *Coordinator) fail(ctx context.Context, rs *RateSheet, reason string) {
	if err := c.store.MarkFailed(ctx, rs.ID, reason); err != nil {
		c.logger.Error("mark failed errored", "id", rs.ID, "error", err)
	}
}

func extractFailureReason(backend extraction.Backend, err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timeout after %s (%s backend)", timeout, backend.Name())
	}
	return err.Error()
}
