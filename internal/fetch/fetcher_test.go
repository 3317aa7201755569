package fetch_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/internal/config"
	"github.com/mortarhq/mortar/internal/fetch"
	"github.com/mortarhq/mortar/internal/ratesheets"
	"github.com/mortarhq/mortar/pkg/pagination"
)

type fakeSheets struct {
	submitted []ratesheets.SubmitCommand
	known     map[string]bool
}

func (s *fakeSheets) Submit(ctx context.Context, cmd ratesheets.SubmitCommand) (*ratesheets.RateSheet, error) {
	s.submitted = append(s.submitted, cmd)
	return &ratesheets.RateSheet{ID: uuid.New(), LenderID: cmd.LenderID}, nil
}

func (s *fakeSheets) List(ctx context.Context, page pagination.PageRequest, filters ratesheets.Filters) (*pagination.PageResult[ratesheets.RateSheet], error) {
	total := 0
	if filters.ContentHash != nil && s.known[*filters.ContentHash] {
		total = 1
	}
	result := pagination.NewPageResult([]ratesheets.RateSheet{}, total, 1, 1)
	return &result, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestFetcher(sheets *fakeSheets, sources ...config.FetchSource) *fetch.Fetcher {
	cfg := config.FetchConfig{
		Schedule:        "@every 1h",
		DownloadTimeout: "5s",
		Sources:         sources,
	}
	return fetch.New(sheets, cfg, testLogger())
}

func TestRunOnceSubmitsNewSheet(t *testing.T) {
	content := "effective_date,2026-03-15\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		io.WriteString(w, content)
	}))
	defer server.Close()

	lenderID := uuid.New()
	sheets := &fakeSheets{known: map[string]bool{}}
	f := newTestFetcher(sheets, config.FetchSource{
		LenderID: lenderID.String(),
		URL:      server.URL + "/sheets/march.csv",
	})

	f.RunOnce(context.Background())

	if len(sheets.submitted) != 1 {
		t.Fatalf("submitted %d sheets, want 1", len(sheets.submitted))
	}
	cmd := sheets.submitted[0]
	if cmd.LenderID != lenderID {
		t.Errorf("LenderID = %v, want %v", cmd.LenderID, lenderID)
	}
	if cmd.Filename != "march.csv" {
		t.Errorf("Filename = %q, want march.csv", cmd.Filename)
	}
	if cmd.ContentType != "text/csv" {
		t.Errorf("ContentType = %q, want text/csv", cmd.ContentType)
	}
	if string(cmd.Data) != content {
		t.Error("submitted bytes differ from served bytes")
	}
}

func TestRunOnceSkipsKnownContent(t *testing.T) {
	content := "effective_date,2026-03-15\n"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, content)
	}))
	defer server.Close()

	sheets := &fakeSheets{
		known: map[string]bool{ratesheets.HashContent([]byte(content)): true},
	}
	f := newTestFetcher(sheets, config.FetchSource{
		LenderID: uuid.New().String(),
		URL:      server.URL + "/sheet.csv",
	})

	f.RunOnce(context.Background())

	if len(sheets.submitted) != 0 {
		t.Errorf("submitted %d sheets, want 0 for unchanged content", len(sheets.submitted))
	}
}

func TestRunOnceSendsBasicAuth(t *testing.T) {
	var gotUser, gotPass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, _ = r.BasicAuth()
		io.WriteString(w, "effective_date,2026-03-15\n")
	}))
	defer server.Close()

	sheets := &fakeSheets{known: map[string]bool{}}
	f := newTestFetcher(sheets, config.FetchSource{
		LenderID: uuid.New().String(),
		URL:      server.URL + "/sheet.csv",
		Username: "broker",
		Password: "hunter2",
	})

	f.RunOnce(context.Background())

	if gotUser != "broker" || gotPass != "hunter2" {
		t.Errorf("basic auth = %q/%q, want broker/hunter2", gotUser, gotPass)
	}
}

func TestRunOnceToleratesFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, "effective_date,2026-03-15\n")
	}))
	defer server.Close()

	sheets := &fakeSheets{known: map[string]bool{}}
	f := newTestFetcher(sheets,
		config.FetchSource{LenderID: "not-a-uuid", URL: server.URL + "/sheet.csv"},
		config.FetchSource{LenderID: uuid.New().String(), URL: server.URL + "/broken"},
		config.FetchSource{LenderID: uuid.New().String(), URL: server.URL + "/good.csv"},
	)

	f.RunOnce(context.Background())

	// malformed lender and server error are logged; the good source
	// still lands
	if len(sheets.submitted) != 1 {
		t.Errorf("submitted %d sheets, want 1", len(sheets.submitted))
	}
}

func TestRunOnceRejectsEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sheets := &fakeSheets{known: map[string]bool{}}
	f := newTestFetcher(sheets, config.FetchSource{
		LenderID: uuid.New().String(),
		URL:      server.URL + "/empty.csv",
	})

	f.RunOnce(context.Background())

	if len(sheets.submitted) != 0 {
		t.Errorf("submitted %d sheets, want 0 for empty body", len(sheets.submitted))
	}
}
