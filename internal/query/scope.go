// Package query builds scoped, paginated query descriptors from the
// caller's identity and raw filter parameters. It performs no I/O: the
// rendered predicate is handed to the repository verbatim.
package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tasktrack/internal/models"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100

	DueOverdue = "overdue"
	DueToday   = "today"
)

// Params are the raw, untrusted filter parameters from a list request.
// Empty string means the filter is absent.
type Params struct {
	Status     string
	Priority   string
	Category   string
	AssignedTo string
	CreatedBy  string
	Archived   string
	DueDate    string
	Search     string
	Sort       string
	Page       int
	PageSize   int
}

// Descriptor is the normalized query: a rendered WHERE clause with
// numbered placeholder args, sort order and pagination window.
type Descriptor struct {
	Where    string
	Args     []any
	OrderBy  string
	Limit    int
	Offset   int
	Page     int
	PageSize int
}

// sortColumns is the allow-list for caller-chosen sort fields. Anything
// else falls back to the default ordering instead of reaching the
// repository.
// Multi-word fields are accepted in both their API (camelCase) and
// column (snake_case) spellings.
var sortColumns = map[string]string{
	"title":      "title",
	"status":     "status",
	"priority":   "priority",
	"category":   "category",
	"dueDate":    "due_date",
	"due_date":   "due_date",
	"createdAt":  "created_at",
	"created_at": "created_at",
	"updatedAt":  "updated_at",
	"updated_at": "updated_at",
}

const defaultOrderBy = "created_at DESC"

// Builder accumulates AND-ed conditions with numbered placeholders, the
// same shape the repository's hand-written queries use.
type Builder struct {
	conds []string
	args  []any
}

func NewBuilder() *Builder {
	return &Builder{}
}

// Bind appends an argument and returns its placeholder.
func (b *Builder) Bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// And appends a condition to the top-level conjunction.
func (b *Builder) And(cond string) {
	b.conds = append(b.conds, cond)
}

// OwnershipScope narrows the predicate to the caller's visibility:
// non-admins see only tasks they are assigned to or created. Admins
// add nothing. The scope is its own OR-group so later OR-groups (like
// free-text search) combine with it by AND instead of replacing it.
func (b *Builder) OwnershipScope(callerID string, role models.Role) {
	if role == models.RoleAdmin {
		return
	}
	p := b.Bind(callerID)
	b.And(fmt.Sprintf("(assigned_to_id = %s OR created_by_id = %s)", p, p))
}

// Where renders the conjunction. An empty clause means unrestricted.
func (b *Builder) Where() (string, []any) {
	return strings.Join(b.conds, " AND "), b.args
}

// Build turns the caller plus raw parameters into a descriptor.
// Invalid enum values fail with a validation error; unknown sort
// fields and out-of-range pagination are normalized silently.
func Build(callerID string, role models.Role, params Params, now time.Time) (*Descriptor, error) {
	b := NewBuilder()
	b.OwnershipScope(callerID, role)

	if params.Status != "" {
		status, err := models.ParseStatus(params.Status)
		if err != nil {
			return nil, err
		}
		b.And("status = " + b.Bind(status))
	}
	if params.Priority != "" {
		priority, err := models.ParsePriority(params.Priority)
		if err != nil {
			return nil, err
		}
		b.And("priority = " + b.Bind(priority))
	}
	if params.Category != "" {
		b.And("category = " + b.Bind(params.Category))
	}
	if params.AssignedTo != "" {
		b.And("assigned_to_id = " + b.Bind(params.AssignedTo))
	}
	if params.CreatedBy != "" {
		b.And("created_by_id = " + b.Bind(params.CreatedBy))
	}
	if params.Archived != "" {
		archived, err := strconv.ParseBool(params.Archived)
		if err != nil {
			return nil, fmt.Errorf("%w: archived must be a boolean", models.ErrValidation)
		}
		b.And("archived = " + b.Bind(archived))
	}

	switch params.DueDate {
	case "":
	case DueOverdue:
		b.And(fmt.Sprintf("(due_date < %s AND status NOT IN (%s, %s))",
			b.Bind(now),
			b.Bind(models.StatusCompleted),
			b.Bind(models.StatusCancelled)))
	case DueToday:
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		b.And(fmt.Sprintf("(due_date >= %s AND due_date < %s)",
			b.Bind(midnight),
			b.Bind(midnight.AddDate(0, 0, 1))))
	default:
		return nil, fmt.Errorf("%w: dueDate must be %q or %q", models.ErrValidation, DueOverdue, DueToday)
	}

	if params.Search != "" {
		pattern := "%" + escapeLike(params.Search) + "%"
		b.And(fmt.Sprintf("(title ILIKE %s OR description ILIKE %s OR category ILIKE %s)",
			b.Bind(pattern),
			b.Bind(pattern),
			b.Bind(pattern)))
	}

	where, args := b.Where()

	page := params.Page
	if page < 1 {
		page = DefaultPage
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return &Descriptor{
		Where:    where,
		Args:     args,
		OrderBy:  parseSort(params.Sort),
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func parseSort(sort string) string {
	if sort == "" {
		return defaultOrderBy
	}

	field, direction, _ := strings.Cut(sort, ":")
	column, ok := sortColumns[field]
	if !ok {
		return defaultOrderBy
	}

	switch strings.ToLower(direction) {
	case "asc", "":
		return column + " ASC"
	case "desc":
		return column + " DESC"
	default:
		return defaultOrderBy
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
