// Package fetch polls configured lender URLs for new rate sheets on a
// cron schedule, deduplicates by content hash, and submits new files to
// the ingestion coordinator.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/mortarhq/mortar/internal/config"
	"github.com/mortarhq/mortar/internal/ratesheets"
	"github.com/mortarhq/mortar/pkg/lifecycle"
	"github.com/mortarhq/mortar/pkg/pagination"
)

// Sheets is the slice of the rate-sheet system the fetcher uses.
type Sheets interface {
	Submit(ctx context.Context, cmd ratesheets.SubmitCommand) (*ratesheets.RateSheet, error)
	List(ctx context.Context, page pagination.PageRequest, filters ratesheets.Filters) (*pagination.PageResult[ratesheets.RateSheet], error)
}

// Fetcher downloads lender rate sheets on a schedule. Failures are
// logged and retried on the next tick; one bad source never blocks the
// others.
type Fetcher struct {
	client *http.Client
	sheets Sheets
	cfg    config.FetchConfig
	logger *slog.Logger
	cron   *cron.Cron
}

// New creates a Fetcher. The HTTP client carries the configured
// download timeout.
func New(sheets Sheets, cfg config.FetchConfig, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: cfg.DownloadTimeoutDuration()},
		sheets: sheets,
		cfg:    cfg,
		logger: logger.With("system", "fetch"),
		cron:   cron.New(),
	}
}

// Start registers the cron schedule with the lifecycle coordinator.
// No-op when no sources are configured.
func (f *Fetcher) Start(lc *lifecycle.Coordinator) error {
	if !f.cfg.Enabled() {
		f.logger.Info("fetcher disabled, no sources configured")
		return nil
	}

	if _, err := f.cron.AddFunc(f.cfg.Schedule, func() {
		f.RunOnce(lc.Context())
	}); err != nil {
		return fmt.Errorf("register fetch schedule %q: %w", f.cfg.Schedule, err)
	}

	lc.OnStartup(func() {
		f.cron.Start()
		f.logger.Info("fetcher started",
			"schedule", f.cfg.Schedule,
			"sources", len(f.cfg.Sources),
		)
	})
	lc.OnShutdown(func() {
		<-f.cron.Stop().Done()
		f.logger.Info("fetcher stopped")
	})

	return nil
}

// RunOnce polls every configured source.
func (f *Fetcher) RunOnce(ctx context.Context) {
	for _, src := range f.cfg.Sources {
		if ctx.Err() != nil {
			return
		}
		if err := f.fetchSource(ctx, src); err != nil {
			f.logger.Warn("fetch source failed",
				"lender_id", src.LenderID,
				"url", src.URL,
				"error", err,
			)
		}
	}
}

func (f *Fetcher) fetchSource(ctx context.Context, src config.FetchSource) error {
	lenderID, err := uuid.Parse(src.LenderID)
	if err != nil {
		return fmt.Errorf("malformed lender_id %q: %w", src.LenderID, err)
	}

	data, contentType, err := f.download(ctx, src)
	if err != nil {
		return err
	}

	hash := ratesheets.HashContent(data)
	known, err := f.alreadyStored(ctx, lenderID, hash)
	if err != nil {
		return err
	}
	if known {
		f.logger.Debug("rate sheet unchanged", "lender_id", lenderID, "hash", hash)
		return nil
	}

	rs, err := f.sheets.Submit(ctx, ratesheets.SubmitCommand{
		LenderID:    lenderID,
		Filename:    filenameFromURL(src.URL),
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("submit sheet: %w", err)
	}

	f.logger.Info("rate sheet fetched",
		"lender_id", lenderID,
		"sheet_id", rs.ID,
		"hash", hash,
		"bytes", len(data),
	)
	return nil
}

func (f *Fetcher) download(ctx context.Context, src config.FetchSource) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	if src.Username != "" {
		req.SetBasicAuth(src.Username, src.Password)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("download: empty body")
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	return data, contentType, nil
}

// alreadyStored reports whether any sheet for the lender carries this
// content hash, regardless of state. A failed sheet with the same hash
// is retried through the manual retry endpoint, not by refetching.
func (f *Fetcher) alreadyStored(ctx context.Context, lenderID uuid.UUID, hash string) (bool, error) {
	result, err := f.sheets.List(ctx,
		pagination.PageRequest{Page: 1, PageSize: 1},
		ratesheets.Filters{LenderID: &lenderID, ContentHash: &hash},
	)
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}
	return result.Total > 0, nil
}

func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return "ratesheet"
	}
	return path.Base(u.Path)
}
