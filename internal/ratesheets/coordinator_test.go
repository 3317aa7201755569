package ratesheets_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/internal/catalog"
	"github.com/mortarhq/mortar/internal/config"
	"github.com/mortarhq/mortar/internal/extraction"
	"github.com/mortarhq/mortar/internal/ratesheets"
	"github.com/mortarhq/mortar/pkg/pagination"
	"github.com/mortarhq/mortar/pkg/repository"
)

const validCSV = `effective_date,2026-03-15
program,DSCR 30-Year Fixed,6.5,8.25,0,2,995,640,80,1.0,100000,2000000,true,false,
adjustment,DSCR 30-Year Fixed,purpose,,,,,cash_out,-0.375
`

type fakeStore struct {
	sheets    map[uuid.UUID]*ratesheets.RateSheet
	duplicate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{sheets: make(map[uuid.UUID]*ratesheets.RateSheet)}
}

func (s *fakeStore) Create(ctx context.Context, cmd ratesheets.SubmitCommand, contentHash, storageKey string) (*ratesheets.RateSheet, error) {
	rs := &ratesheets.RateSheet{
		ID:          uuid.New(),
		LenderID:    cmd.LenderID,
		Filename:    cmd.Filename,
		ContentType: cmd.ContentType,
		ContentHash: contentHash,
		StorageKey:  storageKey,
		State:       ratesheets.StateReceived,
		Log:         repository.StringSet{"received " + cmd.Filename},
		ReceivedAt:  time.Now(),
	}
	s.sheets[rs.ID] = rs
	return rs, nil
}

func (s *fakeStore) Find(ctx context.Context, id uuid.UUID) (*ratesheets.RateSheet, error) {
	rs, ok := s.sheets[id]
	if !ok {
		return nil, ratesheets.ErrNotFound
	}
	return rs, nil
}

func (s *fakeStore) List(ctx context.Context, page pagination.PageRequest, filters ratesheets.Filters) (*pagination.PageResult[ratesheets.RateSheet], error) {
	var data []ratesheets.RateSheet
	for _, rs := range s.sheets {
		if filters.LenderID != nil && rs.LenderID != *filters.LenderID {
			continue
		}
		if filters.ContentHash != nil && rs.ContentHash != *filters.ContentHash {
			continue
		}
		data = append(data, *rs)
	}
	result := pagination.NewPageResult(data, len(data), 1, 20)
	return &result, nil
}

func (s *fakeStore) Enqueue(ctx context.Context, id uuid.UUID) (*ratesheets.RateSheet, error) {
	rs := s.sheets[id]
	rs.State = ratesheets.StatePending
	rs.Log = append(rs.Log, "queued for processing")
	return rs, nil
}

func (s *fakeStore) ClaimPending(ctx context.Context, limit int) ([]ratesheets.RateSheet, error) {
	var claimed []ratesheets.RateSheet
	for _, rs := range s.sheets {
		if rs.State != ratesheets.StatePending || len(claimed) >= limit {
			continue
		}
		rs.State = ratesheets.StateProcessing
		rs.Log = append(rs.Log, "processing started")
		claimed = append(claimed, *rs)
	}
	return claimed, nil
}

func (s *fakeStore) MarkProcessed(ctx context.Context, id uuid.UUID, backend string, effectiveDate *time.Time) error {
	rs, ok := s.sheets[id]
	if !ok || rs.State != ratesheets.StateProcessing {
		return ratesheets.ErrInvalidState
	}
	rs.State = ratesheets.StateProcessed
	rs.Backend = &backend
	rs.EffectiveDate = effectiveDate
	now := time.Now()
	rs.ProcessedAt = &now
	return nil
}

func (s *fakeStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	rs, ok := s.sheets[id]
	if !ok || rs.State != ratesheets.StateProcessing {
		return ratesheets.ErrInvalidState
	}
	rs.State = ratesheets.StateFailed
	rs.Error = &reason
	return nil
}

func (s *fakeStore) Requeue(ctx context.Context, id uuid.UUID) (*ratesheets.RateSheet, error) {
	rs, ok := s.sheets[id]
	if !ok {
		return nil, ratesheets.ErrNotFound
	}
	if rs.State != ratesheets.StateFailed {
		return nil, ratesheets.ErrInvalidState
	}
	rs.State = ratesheets.StatePending
	rs.Error = nil
	rs.Log = append(rs.Log, "requeued for retry")
	return rs, nil
}

func (s *fakeStore) AppendLog(ctx context.Context, id uuid.UUID, entry string) error {
	s.sheets[id].Log = append(s.sheets[id].Log, entry)
	return nil
}

func (s *fakeStore) HasProcessedDuplicate(ctx context.Context, lenderID uuid.UUID, contentHash string, exclude uuid.UUID) (bool, error) {
	return s.duplicate, nil
}

type fakeBlob struct {
	objects map[string][]byte
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: make(map[string][]byte)}
}

func (b *fakeBlob) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBlob) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := b.objects[key]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type fakeCatalog struct {
	lender   *catalog.Lender
	applied  []catalog.ApplyCommand
	applyErr error
}

func (c *fakeCatalog) FindLender(ctx context.Context, id uuid.UUID) (*catalog.Lender, error) {
	if c.lender == nil || c.lender.ID != id {
		return nil, catalog.ErrNotFound
	}
	return c.lender, nil
}

func (c *fakeCatalog) ApplyRateSheet(ctx context.Context, cmd catalog.ApplyCommand) (*catalog.ApplyResult, error) {
	if c.applyErr != nil {
		return nil, c.applyErr
	}
	c.applied = append(c.applied, cmd)
	result := &catalog.ApplyResult{Adjustments: 0}
	for _, p := range cmd.Programs {
		result.Programs = append(result.Programs, p.ProgramSlug)
		result.Adjustments += len(p.Adjustments)
	}
	return result, nil
}

func testIngestConfig() config.IngestConfig {
	cfg := config.IngestConfig{
		Workers:              2,
		TickInterval:         "1s",
		BatchSize:            8,
		AITimeout:            "5s",
		DeterministicTimeout: "5s",
	}
	return cfg
}

func testRegistry() *extraction.Registry {
	r := extraction.NewRegistry()
	r.Register(extraction.NewCSVBackend())
	return r
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCoordinator(store *fakeStore, blob *fakeBlob, cat *fakeCatalog) *ratesheets.Coordinator {
	return ratesheets.NewCoordinator(
		store, blob, testRegistry(), cat,
		testIngestConfig(), testLogger(),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)
}

func testLender() *catalog.Lender {
	return &catalog.Lender{
		ID:              uuid.New(),
		DisplayName:     "Test Lender DSCR",
		LicensedRegions: repository.StringSet{"CA", "TX"},
		Active:          true,
	}
}

func submitSheet(t *testing.T, c *ratesheets.Coordinator, lenderID uuid.UUID, data string) *ratesheets.RateSheet {
	t.Helper()
	rs, err := c.Submit(context.Background(), ratesheets.SubmitCommand{
		LenderID:    lenderID,
		Filename:    "sheet.csv",
		ContentType: "text/csv",
		Data:        []byte(data),
	})
	if err != nil {
		t.Fatalf("Submit() failed: %v", err)
	}
	return rs
}

func TestSubmitValidation(t *testing.T) {
	lender := testLender()
	c := newTestCoordinator(newFakeStore(), newFakeBlob(), &fakeCatalog{lender: lender})

	_, err := c.Submit(context.Background(), ratesheets.SubmitCommand{
		LenderID: lender.ID, Filename: "sheet.csv",
	})
	if !errors.Is(err, ratesheets.ErrInvalidFile) {
		t.Errorf("Submit(empty) = %v, want ErrInvalidFile", err)
	}

	_, err = c.Submit(context.Background(), ratesheets.SubmitCommand{
		LenderID: lender.ID, Data: []byte(validCSV),
	})
	if !errors.Is(err, ratesheets.ErrInvalidFile) {
		t.Errorf("Submit(no filename) = %v, want ErrInvalidFile", err)
	}

	_, err = c.Submit(context.Background(), ratesheets.SubmitCommand{
		LenderID: uuid.New(), Filename: "sheet.csv", Data: []byte(validCSV),
	})
	if !errors.Is(err, ratesheets.ErrInvalidFile) {
		t.Errorf("Submit(unknown lender) = %v, want ErrInvalidFile", err)
	}
}

func TestSubmitStoresAndQueues(t *testing.T) {
	lender := testLender()
	store := newFakeStore()
	blob := newFakeBlob()
	c := newTestCoordinator(store, blob, &fakeCatalog{lender: lender})

	rs := submitSheet(t, c, lender.ID, validCSV)

	if rs.State != ratesheets.StatePending {
		t.Errorf("State = %q, want pending", rs.State)
	}
	if rs.ContentHash != ratesheets.HashContent([]byte(validCSV)) {
		t.Errorf("ContentHash = %q", rs.ContentHash)
	}
	if _, ok := blob.objects[rs.StorageKey]; !ok {
		t.Errorf("blob missing storage key %q", rs.StorageKey)
	}
}

func TestTickProcessesSheet(t *testing.T) {
	lender := testLender()
	store := newFakeStore()
	cat := &fakeCatalog{lender: lender}
	c := newTestCoordinator(store, newFakeBlob(), cat)

	rs := submitSheet(t, c, lender.ID, validCSV)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() failed: %v", err)
	}

	got := store.sheets[rs.ID]
	if got.State != ratesheets.StateProcessed {
		t.Fatalf("State = %q (error %v), want processed", got.State, got.Error)
	}
	if got.Backend == nil || *got.Backend != "csv" {
		t.Errorf("Backend = %v, want csv", got.Backend)
	}
	if got.EffectiveDate == nil || !got.EffectiveDate.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("EffectiveDate = %v", got.EffectiveDate)
	}

	if len(cat.applied) != 1 {
		t.Fatalf("applied %d commands, want 1", len(cat.applied))
	}
	if cat.applied[0].Programs[0].ProgramSlug != "dscr-30-year-fixed" {
		t.Errorf("applied slug = %q", cat.applied[0].Programs[0].ProgramSlug)
	}

	found := false
	for _, entry := range got.Log {
		if strings.Contains(entry, "applied 1 programs, 1 adjustments via csv") {
			found = true
		}
	}
	if !found {
		t.Errorf("log missing apply entry: %v", got.Log)
	}
}

func TestTickShortCircuitsDuplicate(t *testing.T) {
	lender := testLender()
	store := newFakeStore()
	store.duplicate = true
	cat := &fakeCatalog{lender: lender}
	c := newTestCoordinator(store, newFakeBlob(), cat)

	rs := submitSheet(t, c, lender.ID, validCSV)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() failed: %v", err)
	}

	got := store.sheets[rs.ID]
	if got.State != ratesheets.StateProcessed {
		t.Fatalf("State = %q, want processed", got.State)
	}
	if got.Backend == nil || *got.Backend != "duplicate" {
		t.Errorf("Backend = %v, want duplicate", got.Backend)
	}
	if !slices.Contains(got.Log, "duplicate content") {
		t.Errorf("log missing duplicate entry: %v", got.Log)
	}
	if len(cat.applied) != 0 {
		t.Error("duplicate sheet reached the catalog")
	}
}

func TestTickFailsSheetOnUnresolvedProgram(t *testing.T) {
	lender := testLender()
	store := newFakeStore()
	cat := &fakeCatalog{
		lender:   lender,
		applyErr: errors.New(`unresolved program: "Mystery"`),
	}
	c := newTestCoordinator(store, newFakeBlob(), cat)

	rs := submitSheet(t, c, lender.ID, validCSV)

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() failed: %v", err)
	}

	got := store.sheets[rs.ID]
	if got.State != ratesheets.StateFailed {
		t.Fatalf("State = %q, want failed", got.State)
	}
	if got.Error == nil || !strings.Contains(*got.Error, "Mystery") {
		t.Errorf("Error = %v, want reason naming the program", got.Error)
	}
}

func TestTickFailsSheetOnMalformedContent(t *testing.T) {
	lender := testLender()
	store := newFakeStore()
	c := newTestCoordinator(store, newFakeBlob(), &fakeCatalog{lender: lender})

	rs := submitSheet(t, c, lender.ID, "margin,DSCR,0.5\n")

	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() failed: %v", err)
	}

	got := store.sheets[rs.ID]
	if got.State != ratesheets.StateFailed {
		t.Fatalf("State = %q, want failed", got.State)
	}
}

type stalledBackend struct{}

func (stalledBackend) Name() string { return "csv" }

func (stalledBackend) Extract(ctx context.Context, in extraction.Input) (*extraction.Document, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestTickFailsSheetOnExtractionTimeout(t *testing.T) {
	lender := testLender()
	store := newFakeStore()

	registry := extraction.NewRegistry()
	registry.Register(stalledBackend{})

	cfg := testIngestConfig()
	cfg.DeterministicTimeout = "10ms"

	c := ratesheets.NewCoordinator(
		store, newFakeBlob(), registry, &fakeCatalog{lender: lender},
		cfg, testLogger(),
		pagination.Config{DefaultPageSize: 20, MaxPageSize: 100},
	)

	rs := submitSheet(t, c, lender.ID, validCSV)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() failed: %v", err)
	}

	got := store.sheets[rs.ID]
	if got.State != ratesheets.StateFailed {
		t.Fatalf("State = %q, want failed", got.State)
	}
	if got.Error == nil || !strings.Contains(*got.Error, "timeout") {
		t.Errorf("Error = %v, want reason containing timeout", got.Error)
	}
}

func TestRetryRequeuesFailedSheet(t *testing.T) {
	lender := testLender()
	store := newFakeStore()
	cat := &fakeCatalog{lender: lender, applyErr: errors.New("transient")}
	c := newTestCoordinator(store, newFakeBlob(), cat)

	rs := submitSheet(t, c, lender.ID, validCSV)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() failed: %v", err)
	}
	if store.sheets[rs.ID].State != ratesheets.StateFailed {
		t.Fatalf("State = %q, want failed", store.sheets[rs.ID].State)
	}

	cat.applyErr = nil
	if _, err := c.Retry(context.Background(), rs.ID); err != nil {
		t.Fatalf("Retry() failed: %v", err)
	}
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick() failed: %v", err)
	}
	if got := store.sheets[rs.ID]; got.State != ratesheets.StateProcessed {
		t.Errorf("State after retry = %q (error %v), want processed", got.State, got.Error)
	}
}

func TestDownloadStreamsStoredSheet(t *testing.T) {
	lender := testLender()
	c := newTestCoordinator(newFakeStore(), newFakeBlob(), &fakeCatalog{lender: lender})

	rs := submitSheet(t, c, lender.ID, validCSV)

	reader, got, err := c.Download(context.Background(), rs.ID)
	if err != nil {
		t.Fatalf("Download() failed: %v", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(data) != validCSV {
		t.Error("downloaded bytes differ from submitted bytes")
	}
	if got.ID != rs.ID {
		t.Errorf("sheet ID = %v, want %v", got.ID, rs.ID)
	}
}

func TestStorageKeyShape(t *testing.T) {
	lenderID := uuid.MustParse("6e3f77e6-66e4-4b94-8d83-47c1b1a1f0a1")
	hash := ratesheets.HashContent([]byte("x"))
	key := ratesheets.StorageKey(lenderID, hash, "March Sheet.pdf")

	want := "ratesheets/" + lenderID.String() + "/" + hash + "/March Sheet.pdf"
	if key != want {
		t.Errorf("StorageKey = %q, want %q", key, want)
	}
}

func TestHashContentDeterministic(t *testing.T) {
	a := ratesheets.HashContent([]byte(validCSV))
	b := ratesheets.HashContent([]byte(validCSV))
	if a != b {
		t.Error("identical content hashed differently")
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
	if a == ratesheets.HashContent([]byte(validCSV+" ")) {
		t.Error("different content produced the same hash")
	}
}
