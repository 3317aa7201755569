package ratesheets

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/pkg/query"
	"github.com/mortarhq/mortar/pkg/repository"
)

var rateSheetProjection = query.
	NewProjectionMap("public", "rate_sheets", "rs").
	Project("id", "ID").
	Project("lender_id", "LenderID").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("content_hash", "ContentHash").
	Project("storage_key", "StorageKey").
	Project("state", "State").
	Project("backend", "Backend").
	Project("effective_date", "EffectiveDate").
	Project("log", "Log").
	Project("error", "Error").
	Project("received_at", "ReceivedAt").
	Project("updated_at", "UpdatedAt").
	Project("processed_at", "ProcessedAt")

var rateSheetDefaultSort = query.SortField{Field: "ReceivedAt", Descending: true}

// Filters contains optional filtering criteria for rate-sheet queries.
type Filters struct {
	LenderID    *uuid.UUID `json:"lender_id,omitempty"`
	State       *State     `json:"state,omitempty"`
	ContentHash *string    `json:"content_hash,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("LenderID", f.LenderID).
		WhereEquals("State", f.State).
		WhereEquals("ContentHash", f.ContentHash)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters
	if v := values.Get("lender_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.LenderID = &id
		}
	}
	if v := values.Get("state"); v != "" {
		s := State(v)
		f.State = &s
	}
	if v := values.Get("content_hash"); v != "" {
		f.ContentHash = &v
	}
	return f
}

func scanRateSheet(s repository.Scanner) (RateSheet, error) {
	var rs RateSheet
	err := s.Scan(
		&rs.ID,
		&rs.LenderID,
		&rs.Filename,
		&rs.ContentType,
		&rs.ContentHash,
		&rs.StorageKey,
		&rs.State,
		&rs.Backend,
		&rs.EffectiveDate,
		&rs.Log,
		&rs.Error,
		&rs.ReceivedAt,
		&rs.UpdatedAt,
		&rs.ProcessedAt,
	)
	return rs, err
}
