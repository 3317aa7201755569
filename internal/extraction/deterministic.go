package extraction

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVBackend parses the structured CSV layout a handful of lenders
// publish alongside their PDF sheets. Rows are discriminated by their
// first field:
//
//	effective_date,<YYYY-MM-DD>
//	program,<name>,<min_rate>,<max_rate>,<min_points>,<max_points>,<lender_fee>,<min_fico>,<max_ltv>,<min_dscr>,<min_loan>,<max_loan>,<io_offered>,<ysp_available>,<notes>
//	adjustment,<program>,<kind>,<row_min>,<row_max>,<col_min>,<col_max>,<value_key>,<points>
//
// Numeric fields left empty parse as absent. Unknown row types fail the
// sheet rather than being skipped, so format drift surfaces immediately.
type CSVBackend struct{}

// NewCSVBackend creates the deterministic CSV backend.
func NewCSVBackend() *CSVBackend { return &CSVBackend{} }

// Name identifies the backend in rate-sheet processing logs.
func (b *CSVBackend) Name() string { return "csv" }

// Extract parses the CSV layout into a Document.
func (b *CSVBackend) Extract(ctx context.Context, in Input) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(in.Data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	doc := &Document{}
	programs := make(map[string]*Program)
	var order []string

	for line := 1; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrExtraction, line, err)
		}
		if len(record) == 0 || strings.HasPrefix(record[0], "#") {
			continue
		}

		switch record[0] {
		case "effective_date":
			if len(record) < 2 {
				return nil, fmt.Errorf("%w: line %d: effective_date requires a value", ErrExtraction, line)
			}
			doc.EffectiveDate = strings.TrimSpace(record[1])
		case "program":
			p, err := parseProgramRow(record)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrExtraction, line, err)
			}
			programs[p.Name] = p
			order = append(order, p.Name)
		case "adjustment":
			name, a, err := parseAdjustmentRow(record)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %w", ErrExtraction, line, err)
			}
			p, ok := programs[name]
			if !ok {
				return nil, fmt.Errorf("%w: line %d: adjustment references unknown program %q", ErrExtraction, line, name)
			}
			p.Adjustments = append(p.Adjustments, a)
		default:
			return nil, fmt.Errorf("%w: line %d: unknown row type %q", ErrExtraction, line, record[0])
		}
	}

	for _, name := range order {
		doc.Programs = append(doc.Programs, *programs[name])
	}
	return doc, nil
}

func parseProgramRow(record []string) (*Program, error) {
	if len(record) < 12 {
		return nil, fmt.Errorf("program row requires 12 fields, got %d", len(record))
	}

	name := strings.TrimSpace(record[1])
	if name == "" {
		return nil, fmt.Errorf("program row requires a name")
	}

	req := func(idx int) (float64, error) {
		v, err := parseFloat(record[idx])
		if err != nil {
			return 0, fmt.Errorf("program %q field %d: %w", name, idx+1, err)
		}
		if v == nil {
			return 0, nil
		}
		return *v, nil
	}

	p := &Program{Name: name}

	var err error
	if p.MinRate, err = req(2); err != nil {
		return nil, err
	}
	if p.MaxRate, err = req(3); err != nil {
		return nil, err
	}
	if p.MinPoints, err = req(4); err != nil {
		return nil, err
	}
	if p.MaxPoints, err = req(5); err != nil {
		return nil, err
	}
	if p.LenderFee, err = req(6); err != nil {
		return nil, err
	}

	fico, err := req(7)
	if err != nil {
		return nil, err
	}
	p.MinFICO = int(fico)

	if p.MaxLTV, err = req(8); err != nil {
		return nil, err
	}

	// empty min_dscr means the program has no DSCR floor
	if p.MinDSCR, err = parseFloat(record[9]); err != nil {
		return nil, fmt.Errorf("program %q min_dscr: %w", name, err)
	}

	if p.MinLoan, err = req(10); err != nil {
		return nil, err
	}
	if p.MaxLoan, err = req(11); err != nil {
		return nil, err
	}

	if len(record) > 12 {
		p.IOOffered = parseBool(record[12])
	}
	if len(record) > 13 {
		p.YSPAvailable = parseBool(record[13])
	}
	if len(record) > 14 {
		p.Notes = strings.TrimSpace(record[14])
	}
	return p, nil
}

func parseAdjustmentRow(record []string) (string, Adjustment, error) {
	if len(record) < 9 {
		return "", Adjustment{}, fmt.Errorf("adjustment row requires 9 fields, got %d", len(record))
	}

	a := Adjustment{Kind: strings.TrimSpace(record[2])}

	var err error
	if a.RowMin, err = parseFloat(record[3]); err != nil {
		return "", Adjustment{}, err
	}
	if a.RowMax, err = parseFloat(record[4]); err != nil {
		return "", Adjustment{}, err
	}
	if a.ColMin, err = parseFloat(record[5]); err != nil {
		return "", Adjustment{}, err
	}
	if a.ColMax, err = parseFloat(record[6]); err != nil {
		return "", Adjustment{}, err
	}
	if key := strings.TrimSpace(record[7]); key != "" {
		a.ValueKey = &key
	}

	points, err := parseFloat(record[8])
	if err != nil {
		return "", Adjustment{}, err
	}
	if points == nil {
		return "", Adjustment{}, fmt.Errorf("adjustment requires points")
	}
	a.Points = *points

	return strings.TrimSpace(record[1]), a, nil
}

func parseFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed number %q", s)
	}
	return &v, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "1":
		return true
	}
	return false
}
