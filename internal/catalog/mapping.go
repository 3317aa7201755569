package catalog

import (
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/mortarhq/mortar/pkg/query"
	"github.com/mortarhq/mortar/pkg/repository"
)

var lenderProjection = query.
	NewProjectionMap("public", "lenders", "l").
	Project("id", "ID").
	Project("display_name", "DisplayName").
	Project("licensed_regions", "LicensedRegions").
	Project("active", "Active").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var lenderDefaultSort = query.SortField{Field: "DisplayName"}

var programTypeProjection = query.
	NewProjectionMap("public", "program_types", "pt").
	Project("id", "ID").
	Project("name", "Name").
	Project("slug", "Slug").
	Project("category", "Category").
	Project("loan_type", "LoanType").
	Project("documentation_level", "DocumentationLevel").
	Project("base_min_fico", "BaseMinFICO").
	Project("base_max_ltv", "BaseMaxLTV").
	Project("base_min_dscr", "BaseMinDSCR").
	Project("allowed_property_types", "AllowedPropertyTypes").
	Project("allowed_occupancy", "AllowedOccupancy").
	Project("allowed_entity_types", "AllowedEntityTypes").
	Project("allowed_purposes", "AllowedPurposes").
	Project("active", "Active").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var programTypeDefaultSort = query.SortField{Field: "Name"}

var offeringProjection = query.
	NewProjectionMap("public", "lender_program_offerings", "o").
	Project("id", "ID").
	Project("lender_id", "LenderID").
	Project("program_type_id", "ProgramTypeID").
	Project("min_rate", "MinRate").
	Project("max_rate", "MaxRate").
	Project("min_points", "MinPoints").
	Project("max_points", "MaxPoints").
	Project("lender_fee", "LenderFee").
	Project("min_fico", "MinFICO").
	Project("max_ltv", "MaxLTV").
	Project("min_dscr", "MinDSCR").
	Project("min_loan", "MinLoan").
	Project("max_loan", "MaxLoan").
	Project("io_offered", "IOOffered").
	Project("ysp_available", "YSPAvailable").
	Project("rate_sheet_url", "RateSheetURL").
	Project("last_rate_update", "LastRateUpdate").
	Project("active", "Active").
	Project("notes", "Notes").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt").
	Join("public", "lenders", "l", "JOIN", "o.lender_id = l.id").
	Project("display_name", "LenderName").
	Join("public", "program_types", "pt", "JOIN", "o.program_type_id = pt.id").
	Project("name", "ProgramName").
	Project("slug", "ProgramSlug")

var offeringDefaultSort = query.SortField{Field: "MinRate"}

// LenderFilters contains optional filtering criteria for lender queries.
type LenderFilters struct {
	DisplayName *string `json:"display_name,omitempty"`
	Region      *string `json:"region,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f LenderFilters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("DisplayName", f.DisplayName).
		WhereJSONHas("LicensedRegions", f.Region).
		WhereEquals("Active", f.Active)
}

// LenderFiltersFromQuery extracts filter values from URL query parameters.
func LenderFiltersFromQuery(values url.Values) LenderFilters {
	var f LenderFilters
	if v := values.Get("display_name"); v != "" {
		f.DisplayName = &v
	}
	if v := values.Get("region"); v != "" {
		f.Region = &v
	}
	if v := values.Get("active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Active = &b
		}
	}
	return f
}

// ProgramTypeFilters contains optional filtering criteria for program type queries.
type ProgramTypeFilters struct {
	Name     *string `json:"name,omitempty"`
	Slug     *string `json:"slug,omitempty"`
	Category *string `json:"category,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f ProgramTypeFilters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereContains("Name", f.Name).
		WhereEquals("Slug", f.Slug).
		WhereEquals("Category", f.Category).
		WhereEquals("Active", f.Active)
}

// ProgramTypeFiltersFromQuery extracts filter values from URL query parameters.
func ProgramTypeFiltersFromQuery(values url.Values) ProgramTypeFilters {
	var f ProgramTypeFilters
	if v := values.Get("name"); v != "" {
		f.Name = &v
	}
	if v := values.Get("slug"); v != "" {
		f.Slug = &v
	}
	if v := values.Get("category"); v != "" {
		f.Category = &v
	}
	if v := values.Get("active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Active = &b
		}
	}
	return f
}

// OfferingFilters contains optional filtering criteria for offering queries.
type OfferingFilters struct {
	LenderID      *uuid.UUID `json:"lender_id,omitempty"`
	ProgramTypeID *uuid.UUID `json:"program_type_id,omitempty"`
	Active        *bool      `json:"active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f OfferingFilters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("LenderID", f.LenderID).
		WhereEquals("ProgramTypeID", f.ProgramTypeID).
		WhereEquals("Active", f.Active)
}

// OfferingFiltersFromQuery extracts filter values from URL query parameters.
func OfferingFiltersFromQuery(values url.Values) OfferingFilters {
	var f OfferingFilters
	if v := values.Get("lender_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.LenderID = &id
		}
	}
	if v := values.Get("program_type_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.ProgramTypeID = &id
		}
	}
	if v := values.Get("active"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			f.Active = &b
		}
	}
	return f
}

func scanLender(s repository.Scanner) (Lender, error) {
	var l Lender
	err := s.Scan(
		&l.ID,
		&l.DisplayName,
		&l.LicensedRegions,
		&l.Active,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	return l, err
}

func scanProgramType(s repository.Scanner) (ProgramType, error) {
	var pt ProgramType
	err := s.Scan(
		&pt.ID,
		&pt.Name,
		&pt.Slug,
		&pt.Category,
		&pt.LoanType,
		&pt.DocumentationLevel,
		&pt.BaseMinFICO,
		&pt.BaseMaxLTV,
		&pt.BaseMinDSCR,
		&pt.AllowedPropertyTypes,
		&pt.AllowedOccupancy,
		&pt.AllowedEntityTypes,
		&pt.AllowedPurposes,
		&pt.Active,
		&pt.CreatedAt,
		&pt.UpdatedAt,
	)
	return pt, err
}

func scanOffering(s repository.Scanner) (Offering, error) {
	var o Offering
	err := s.Scan(
		&o.ID,
		&o.LenderID,
		&o.ProgramTypeID,
		&o.MinRate,
		&o.MaxRate,
		&o.MinPoints,
		&o.MaxPoints,
		&o.LenderFee,
		&o.MinFICO,
		&o.MaxLTV,
		&o.MinDSCR,
		&o.MinLoan,
		&o.MaxLoan,
		&o.IOOffered,
		&o.YSPAvailable,
		&o.RateSheetURL,
		&o.LastRateUpdate,
		&o.Active,
		&o.Notes,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	return o, err
}

func scanCandidate(s repository.Scanner) (Candidate, error) {
	var c Candidate
	err := s.Scan(
		&c.ID,
		&c.LenderID,
		&c.ProgramTypeID,
		&c.MinRate,
		&c.MaxRate,
		&c.MinPoints,
		&c.MaxPoints,
		&c.LenderFee,
		&c.MinFICO,
		&c.MaxLTV,
		&c.MinDSCR,
		&c.MinLoan,
		&c.MaxLoan,
		&c.IOOffered,
		&c.YSPAvailable,
		&c.RateSheetURL,
		&c.LastRateUpdate,
		&c.Active,
		&c.Notes,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.LenderName,
		&c.ProgramName,
		&c.ProgramSlug,
	)
	return c, err
}

func scanAdjustment(s repository.Scanner) (RateAdjustment, error) {
	var a RateAdjustment
	err := s.Scan(
		&a.ID,
		&a.OfferingID,
		&a.Kind,
		&a.RowMin,
		&a.RowMax,
		&a.ColMin,
		&a.ColMax,
		&a.ValueKey,
		&a.AdjustmentPoints,
		&a.EffectiveDate,
	)
	return a, err
}

func scanQualifying(s repository.Scanner) (QualifyingInfo, error) {
	var q QualifyingInfo
	err := s.Scan(
		&q.ID,
		&q.PropertyType,
		&q.Occupancy,
		&q.Region,
		&q.Purpose,
		&q.EntityType,
		&q.LoanAmount,
		&q.LTV,
		&q.FICO,
		&q.CreatedAt,
	)
	return q, err
}
