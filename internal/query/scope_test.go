package query_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"tasktrack/internal/models"
	"tasktrack/internal/query"
)

var testNow = time.Date(2025, time.June, 15, 14, 30, 0, 0, time.UTC)

func build(t *testing.T, callerID string, role models.Role, params query.Params) *query.Descriptor {
	t.Helper()
	descriptor, err := query.Build(callerID, role, params, testNow)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return descriptor
}

func TestBuildAdminUnrestricted(t *testing.T) {
	d := build(t, "admin-1", models.RoleAdmin, query.Params{})

	if d.Where != "" {
		t.Errorf("where = %q, want empty", d.Where)
	}
	if len(d.Args) != 0 {
		t.Errorf("args = %v, want none", d.Args)
	}
	if d.OrderBy != "created_at DESC" {
		t.Errorf("order by = %q, want default", d.OrderBy)
	}
	if d.Limit != 10 || d.Offset != 0 {
		t.Errorf("limit/offset = %d/%d, want 10/0", d.Limit, d.Offset)
	}
}

func TestBuildUserOwnershipScope(t *testing.T) {
	d := build(t, "u1", models.RoleUser, query.Params{})

	want := "(assigned_to_id = $1 OR created_by_id = $1)"
	if d.Where != want {
		t.Errorf("where = %q, want %q", d.Where, want)
	}
	if !reflect.DeepEqual(d.Args, []any{"u1"}) {
		t.Errorf("args = %v, want [u1]", d.Args)
	}
}

func TestBuildEqualityFilters(t *testing.T) {
	d := build(t, "admin-1", models.RoleAdmin, query.Params{
		Status:     "pending",
		Priority:   "high",
		Category:   "work",
		AssignedTo: "u2",
		CreatedBy:  "u3",
		Archived:   "false",
	})

	want := "status = $1 AND priority = $2 AND category = $3 AND assigned_to_id = $4 AND created_by_id = $5 AND archived = $6"
	if d.Where != want {
		t.Errorf("where = %q, want %q", d.Where, want)
	}
	wantArgs := []any{models.StatusPending, models.PriorityHigh, "work", "u2", "u3", false}
	if !reflect.DeepEqual(d.Args, wantArgs) {
		t.Errorf("args = %v, want %v", d.Args, wantArgs)
	}
}

func TestBuildInvalidEnumValues(t *testing.T) {
	tests := []struct {
		name   string
		params query.Params
	}{
		{"bad status", query.Params{Status: "done"}},
		{"bad priority", query.Params{Priority: "asap"}},
		{"bad archived", query.Params{Archived: "maybe"}},
		{"bad due keyword", query.Params{DueDate: "tomorrow"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := query.Build("u1", models.RoleUser, tt.params, testNow)
			if !errors.Is(err, models.ErrValidation) {
				t.Errorf("Build error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestBuildOverdueExcludesTerminalStatuses(t *testing.T) {
	d := build(t, "u1", models.RoleUser, query.Params{DueDate: query.DueOverdue})

	want := "(assigned_to_id = $1 OR created_by_id = $1) AND (due_date < $2 AND status NOT IN ($3, $4))"
	if d.Where != want {
		t.Errorf("where = %q, want %q", d.Where, want)
	}
	wantArgs := []any{"u1", testNow, models.StatusCompleted, models.StatusCancelled}
	if !reflect.DeepEqual(d.Args, wantArgs) {
		t.Errorf("args = %v, want %v", d.Args, wantArgs)
	}
}

func TestBuildTodayWindow(t *testing.T) {
	d := build(t, "admin-1", models.RoleAdmin, query.Params{DueDate: query.DueToday})

	want := "(due_date >= $1 AND due_date < $2)"
	if d.Where != want {
		t.Errorf("where = %q, want %q", d.Where, want)
	}

	midnight := time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)
	wantArgs := []any{midnight, midnight.AddDate(0, 0, 1)}
	if !reflect.DeepEqual(d.Args, wantArgs) {
		t.Errorf("args = %v, want %v", d.Args, wantArgs)
	}
}

func TestBuildSearchKeepsOwnershipScope(t *testing.T) {
	// The search OR-group must narrow the ownership OR-group, never
	// replace it.
	d := build(t, "u1", models.RoleUser, query.Params{Search: "report"})

	want := "(assigned_to_id = $1 OR created_by_id = $1)" +
		" AND (title ILIKE $2 OR description ILIKE $3 OR category ILIKE $4)"
	if d.Where != want {
		t.Errorf("where = %q, want %q", d.Where, want)
	}
	wantArgs := []any{"u1", "%report%", "%report%", "%report%"}
	if !reflect.DeepEqual(d.Args, wantArgs) {
		t.Errorf("args = %v, want %v", d.Args, wantArgs)
	}
}

func TestBuildSearchEscapesLikeMetacharacters(t *testing.T) {
	d := build(t, "admin-1", models.RoleAdmin, query.Params{Search: `50%_done\`})

	if len(d.Args) != 3 {
		t.Fatalf("args = %v, want 3 patterns", d.Args)
	}
	want := `%50\%\_done\\%`
	if d.Args[0] != want {
		t.Errorf("pattern = %q, want %q", d.Args[0], want)
	}
}

func TestBuildSort(t *testing.T) {
	tests := []struct {
		sort string
		want string
	}{
		{"", "created_at DESC"},
		{"priority:desc", "priority DESC"},
		{"title:asc", "title ASC"},
		{"title", "title ASC"},
		{"dueDate:asc", "due_date ASC"},
		{"due_date:desc", "due_date DESC"},
		{"createdAt:asc", "created_at ASC"},
		{"created_at:asc", "created_at ASC"},
		{"updatedAt:desc", "updated_at DESC"},
		{"updated_at:desc", "updated_at DESC"},
		{"password_hash:asc", "created_at DESC"},
		{"title;drop table tasks:asc", "created_at DESC"},
		{"title:sideways", "created_at DESC"},
	}

	for _, tt := range tests {
		t.Run(tt.sort, func(t *testing.T) {
			d := build(t, "admin-1", models.RoleAdmin, query.Params{Sort: tt.sort})
			if d.OrderBy != tt.want {
				t.Errorf("sort %q: order by = %q, want %q", tt.sort, d.OrderBy, tt.want)
			}
		})
	}
}

func TestBuildPagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		pageSize   int
		wantLimit  int
		wantOffset int
		wantPage   int
	}{
		{"defaults", 0, 0, 10, 0, 1},
		{"negative page", -3, 10, 10, 0, 1},
		{"third page of 25", 3, 25, 25, 50, 3},
		{"oversized page clamped", 1, 1000, 100, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := build(t, "admin-1", models.RoleAdmin, query.Params{Page: tt.page, PageSize: tt.pageSize})
			if d.Limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", d.Limit, tt.wantLimit)
			}
			if d.Offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", d.Offset, tt.wantOffset)
			}
			if d.Page != tt.wantPage {
				t.Errorf("page = %d, want %d", d.Page, tt.wantPage)
			}
		})
	}
}

func TestBuilderOwnershipScopeAdminAddsNothing(t *testing.T) {
	b := query.NewBuilder()
	b.OwnershipScope("admin-1", models.RoleAdmin)
	b.And("archived = FALSE")

	where, args := b.Where()
	if where != "archived = FALSE" {
		t.Errorf("where = %q, want only the archived condition", where)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none", args)
	}
}
