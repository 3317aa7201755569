package extraction_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/internal/extraction"
)

type stubBackend struct {
	name string
}

func (b *stubBackend) Name() string { return b.name }

func (b *stubBackend) Extract(ctx context.Context, in extraction.Input) (*extraction.Document, error) {
	return &extraction.Document{}, nil
}

func TestRegistrySelectByContentType(t *testing.T) {
	r := extraction.NewRegistry()
	r.RegisterAI(&stubBackend{name: "ai"})
	r.Register(extraction.NewCSVBackend())

	tests := []struct {
		name string
		in   extraction.Input
		want string
	}{
		{"pdf content type", extraction.Input{ContentType: "application/pdf"}, "ai"},
		{"pdf filename", extraction.Input{Filename: "Sheet.PDF", ContentType: "application/octet-stream"}, "ai"},
		{"csv content type", extraction.Input{ContentType: "text/csv"}, "csv"},
		{"csv filename", extraction.Input{Filename: "sheet.csv", ContentType: "text/plain"}, "csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := r.Select(tt.in)
			if err != nil {
				t.Fatalf("Select() failed: %v", err)
			}
			if b.Name() != tt.want {
				t.Errorf("Select() = %q, want %q", b.Name(), tt.want)
			}
		})
	}
}

func TestRegistrySelectOverride(t *testing.T) {
	r := extraction.NewRegistry()
	r.RegisterAI(&stubBackend{name: "ai"})
	r.Register(extraction.NewCSVBackend())

	lenderID := uuid.New()
	r.Route(lenderID, "csv")

	b, err := r.Select(extraction.Input{LenderID: lenderID, ContentType: "application/pdf"})
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	if b.Name() != "csv" {
		t.Errorf("Select() = %q, want routed csv backend", b.Name())
	}
}

func TestRegistrySelectPDFFallback(t *testing.T) {
	r := extraction.NewRegistry()
	r.Register(extraction.NewCSVBackend())
	r.Register(extraction.NewPDFBackend())

	b, err := r.Select(extraction.Input{ContentType: "application/pdf"})
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	if b.Name() != "pdf" {
		t.Errorf("Select(pdf without ai) = %q, want deterministic pdf backend", b.Name())
	}

	r.RegisterAI(&stubBackend{name: "ai"})
	b, err = r.Select(extraction.Input{ContentType: "application/pdf"})
	if err != nil {
		t.Fatalf("Select() failed: %v", err)
	}
	if b.Name() != "ai" {
		t.Errorf("Select(pdf with ai) = %q, want ai backend", b.Name())
	}
}

func TestRegistrySelectErrors(t *testing.T) {
	r := extraction.NewRegistry()
	r.Register(extraction.NewCSVBackend())

	if _, err := r.Select(extraction.Input{ContentType: "application/pdf"}); !errors.Is(err, extraction.ErrNoBackend) {
		t.Errorf("Select(pdf without backend) = %v, want ErrNoBackend", err)
	}
	if _, err := r.Select(extraction.Input{ContentType: "image/png"}); !errors.Is(err, extraction.ErrNoBackend) {
		t.Errorf("Select(unsupported) = %v, want ErrNoBackend", err)
	}

	lenderID := uuid.New()
	r.Route(lenderID, "missing")
	if _, err := r.Select(extraction.Input{LenderID: lenderID, ContentType: "text/csv"}); !errors.Is(err, extraction.ErrNoBackend) {
		t.Errorf("Select(unregistered override) = %v, want ErrNoBackend", err)
	}
}
