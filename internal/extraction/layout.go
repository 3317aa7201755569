package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Layout describes one lender print template, recognized by heuristics
// on the text transcript: a title line and a table header signature.
// Both must match before the layout's parser runs.
type Layout struct {
	Name   string
	Title  *regexp.Regexp
	Header *regexp.Regexp
	Parse  func(transcript string) (*Document, error)
}

// PDFBackend extracts known PDF layouts deterministically from the text
// transcript. It covers lenders whose sheets come out of a stable print
// template; an unrecognized layout fails the sheet so it can be
// rerouted, per lender, to another backend.
type PDFBackend struct {
	layouts []Layout
}

// NewPDFBackend creates the deterministic PDF backend. With no layouts
// supplied it carries the built-in pipe-table template.
func NewPDFBackend(layouts ...Layout) *PDFBackend {
	if len(layouts) == 0 {
		layouts = []Layout{pipeTableLayout()}
	}
	return &PDFBackend{layouts: layouts}
}

// Name identifies the backend in rate-sheet processing logs.
func (b *PDFBackend) Name() string { return "pdf" }

// Extract renders the transcript and dispatches to the first layout
// whose title and header signatures both match.
func (b *PDFBackend) Extract(ctx context.Context, in Input) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	transcript, err := Transcript(in.Data, 0)
	if err != nil {
		return nil, err
	}

	for _, l := range b.layouts {
		if l.Title.MatchString(transcript) && l.Header.MatchString(transcript) {
			doc, err := l.Parse(transcript)
			if err != nil {
				return nil, fmt.Errorf("%s layout: %w", l.Name, err)
			}
			return doc, nil
		}
	}

	return nil, fmt.Errorf("%w: no layout matches %q", ErrExtraction, in.Filename)
}

// pipeTableLayout recognizes sheets printed from the pipe-delimited
// table template: a "Rate Sheet" title, an "Effective | <date>" line,
// and PROGRAM / ADJUSTMENT rows carrying the same field order as the
// CSV format. Lines without a pipe are headers or footers and are
// skipped, unlike the CSV parser's strict row discrimination.
func pipeTableLayout() Layout {
	return Layout{
		Name:   "pipe-table",
		Title:  regexp.MustCompile(`(?i)\brate\s+sheet\b`),
		Header: regexp.MustCompile(`(?im)^\s*program\s*\|`),
		Parse:  parsePipeTable,
	}
}

func parsePipeTable(transcript string) (*Document, error) {
	doc := &Document{}
	programs := make(map[string]*Program)
	var order []string

	for line := range strings.Lines(transcript) {
		fields := splitPipes(line)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "effective":
			if len(fields) < 2 {
				return nil, fmt.Errorf("effective row requires a date")
			}
			doc.EffectiveDate = fields[1]
		case "program":
			p, err := parseProgramRow(fields)
			if err != nil {
				return nil, err
			}
			programs[p.Name] = p
			order = append(order, p.Name)
		case "adjustment":
			name, a, err := parseAdjustmentRow(fields)
			if err != nil {
				return nil, err
			}
			p, ok := programs[name]
			if !ok {
				return nil, fmt.Errorf("adjustment references unknown program %q", name)
			}
			p.Adjustments = append(p.Adjustments, a)
		}
	}

	for _, name := range order {
		doc.Programs = append(doc.Programs, *programs[name])
	}
	return doc, nil
}

func splitPipes(line string) []string {
	if !strings.Contains(line, "|") {
		return nil
	}
	parts := strings.Split(line, "|")
	fields := make([]string, len(parts))
	for i, p := range parts {
		fields[i] = strings.TrimSpace(p)
	}
	return fields
}
