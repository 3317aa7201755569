package query_test

import (
	"testing"

	"github.com/mortarhq/mortar/pkg/query"
)

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "lenders", "l").
		Project("id", "id").
		Project("display_name", "displayName").
		Project("created_at", "createdAt")
}

func ptr(s string) *string { return &s }

func TestProjectionMapTable(t *testing.T) {
	p := testProjection()
	if got := p.Table(); got != "public.lenders l" {
		t.Errorf("Table() = %q, want %q", got, "public.lenders l")
	}
}

func TestProjectionMapColumns(t *testing.T) {
	p := testProjection()
	want := "l.id, l.display_name, l.created_at"
	if got := p.Columns(); got != want {
		t.Errorf("Columns() = %q, want %q", got, want)
	}
}

func TestProjectionMapColumnLookup(t *testing.T) {
	p := testProjection()

	tests := []struct {
		name     string
		viewName string
		want     string
	}{
		{"mapped field", "displayName", "l.display_name"},
		{"mapped camel", "createdAt", "l.created_at"},
		{"unmapped passthrough", "unknown", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Column(tt.viewName); got != tt.want {
				t.Errorf("Column(%q) = %q, want %q", tt.viewName, got, tt.want)
			}
		})
	}
}

func TestProjectionMapJoin(t *testing.T) {
	p := query.NewProjectionMap("public", "lender_program_offerings", "o").
		Project("id", "id").
		Join("public", "lenders", "l", "JOIN", "o.lender_id = l.id").
		Project("display_name", "lenderName")

	wantFrom := "public.lender_program_offerings o JOIN public.lenders l ON o.lender_id = l.id"
	if got := p.From(); got != wantFrom {
		t.Errorf("From() = %q, want %q", got, wantFrom)
	}
	if got := p.Column("lenderName"); got != "l.display_name" {
		t.Errorf("Column(lenderName) = %q, want l.display_name", got)
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{"empty string", "", nil},
		{"single ascending", "displayName", []query.SortField{{Field: "displayName"}}},
		{"single descending", "-createdAt", []query.SortField{{Field: "createdAt", Descending: true}}},
		{
			"multiple mixed", "displayName,-createdAt",
			[]query.SortField{
				{Field: "displayName"},
				{Field: "createdAt", Descending: true},
			},
		},
		{
			"empty parts skipped", "displayName,,createdAt",
			[]query.SortField{
				{Field: "displayName"},
				{Field: "createdAt"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := query.ParseSortFields(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSortFields(%q) length = %d, want %d", tt.input, len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseSortFields(%q)[%d] = %v, want %v", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBuilderBuild(t *testing.T) {
	b := query.NewBuilder(testProjection())
	sql, args := b.Build()

	wantSQL := "SELECT l.id, l.display_name, l.created_at FROM public.lenders l"
	if sql != wantSQL {
		t.Errorf("Build() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 0 {
		t.Errorf("Build() args = %v, want empty", args)
	}
}

func TestBuilderBuildCount(t *testing.T) {
	b := query.NewBuilder(testProjection())
	b.WhereEquals("displayName", "Test Lender")
	sql, args := b.BuildCount()

	wantSQL := "SELECT COUNT(*) FROM public.lenders l WHERE l.display_name = $1"
	if sql != wantSQL {
		t.Errorf("BuildCount() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "Test Lender" {
		t.Errorf("BuildCount() args = %v", args)
	}
}

func TestBuilderBuildPage(t *testing.T) {
	b := query.NewBuilder(testProjection(), query.SortField{Field: "createdAt", Descending: true})
	b.WhereContains("displayName", ptr("dscr"))
	sql, args := b.BuildPage(3, 25)

	wantSQL := "SELECT l.id, l.display_name, l.created_at FROM public.lenders l WHERE l.display_name ILIKE $1 ORDER BY l.created_at DESC LIMIT 25 OFFSET 50"
	if sql != wantSQL {
		t.Errorf("BuildPage() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "%dscr%" {
		t.Errorf("BuildPage() args = %v", args)
	}
}

func TestBuilderBuildSingle(t *testing.T) {
	b := query.NewBuilder(testProjection())
	sql, args := b.BuildSingle("id", "abc-123")

	wantSQL := "SELECT l.id, l.display_name, l.created_at FROM public.lenders l WHERE l.id = $1"
	if sql != wantSQL {
		t.Errorf("BuildSingle() sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "abc-123" {
		t.Errorf("BuildSingle() args = %v", args)
	}
}

func TestBuilderWhereEqualsNilSkipped(t *testing.T) {
	b := query.NewBuilder(testProjection())
	b.WhereEquals("displayName", nil)
	sql, args := b.Build()

	if sql != "SELECT l.id, l.display_name, l.created_at FROM public.lenders l" {
		t.Errorf("sql = %q", sql)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want empty", args)
	}
}

func TestBuilderWhereSearch(t *testing.T) {
	b := query.NewBuilder(testProjection())
	b.WhereSearch(ptr("test"), "displayName", "id")
	sql, args := b.Build()

	wantSQL := "SELECT l.id, l.display_name, l.created_at FROM public.lenders l WHERE (l.display_name ILIKE $1 OR l.id ILIKE $2)"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 2 || args[0] != "%test%" || args[1] != "%test%" {
		t.Errorf("args = %v", args)
	}
}

func TestBuilderWhereJSONHas(t *testing.T) {
	p := testProjection().Project("licensed_regions", "licensedRegions")
	b := query.NewBuilder(p)
	b.WhereJSONHas("licensedRegions", ptr("CA"))
	sql, args := b.Build()

	wantSQL := "SELECT l.id, l.display_name, l.created_at, l.licensed_regions FROM public.lenders l WHERE l.licensed_regions ? $1"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 1 || args[0] != "CA" {
		t.Errorf("args = %v, want [CA]", args)
	}
}

func TestBuilderWhereJSONHasNilSkipped(t *testing.T) {
	b := query.NewBuilder(testProjection())
	b.WhereJSONHas("licensedRegions", nil)
	_, args := b.Build()

	if len(args) != 0 {
		t.Errorf("args = %v, want empty", args)
	}
}

func TestBuilderMultipleConditions(t *testing.T) {
	b := query.NewBuilder(testProjection())
	b.WhereEquals("displayName", "Test Lender")
	b.WhereContains("id", ptr("abc"))
	sql, args := b.Build()

	wantSQL := "SELECT l.id, l.display_name, l.created_at FROM public.lenders l WHERE l.display_name = $1 AND l.id ILIKE $2"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
	if len(args) != 2 {
		t.Errorf("args length = %d, want 2", len(args))
	}
}

func TestBuilderOrderByFields(t *testing.T) {
	b := query.NewBuilder(testProjection(), query.SortField{Field: "id"})
	b.OrderByFields([]query.SortField{
		{Field: "createdAt", Descending: true},
		{Field: "displayName"},
	})
	sql, _ := b.Build()

	wantSQL := "SELECT l.id, l.display_name, l.created_at FROM public.lenders l ORDER BY l.created_at DESC, l.display_name ASC"
	if sql != wantSQL {
		t.Errorf("sql = %q, want %q", sql, wantSQL)
	}
}
