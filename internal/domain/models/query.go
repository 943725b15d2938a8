package models

import (
	"strings"
	"time"
)

type SortField string

const (
	SortByCreatedAt SortField = "createdAt"
	SortByDueDate   SortField = "dueDate"
	SortByPriority  SortField = "priority"
	SortByTitle     SortField = "title"
	SortByUpdatedAt SortField = "updatedAt"
)

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// TaskQuery is the filter and sort handed to task stores. OwnerID is
// mandatory; nil pointers and empty values mean "not filtered".
type TaskQuery struct {
	OwnerID      string
	IDs          []int64
	Completed    *bool
	Priority     *Priority
	CategoryID   *int64
	Search       string
	DueBefore    *time.Time
	DueFrom      *time.Time
	DueTo        *time.Time
	CreatedSince *time.Time
	SortBy       SortField
	Order        SortOrder
	Limit        int
}

// OwnedBy starts a query scoped to ownerID with the default ordering.
func OwnedBy(ownerID string) TaskQuery {
	return TaskQuery{OwnerID: ownerID, SortBy: SortByCreatedAt, Order: OrderDesc}
}

func (q TaskQuery) WithIDs(ids ...int64) TaskQuery {
	q.IDs = append([]int64(nil), ids...)
	return q
}

func (q TaskQuery) WithCompleted(completed bool) TaskQuery {
	q.Completed = &completed
	return q
}

func (q TaskQuery) WithDueBefore(t time.Time) TaskQuery {
	q.DueBefore = &t
	return q
}

func (q TaskQuery) WithDueBetween(from, to time.Time) TaskQuery {
	q.DueFrom = &from
	q.DueTo = &to
	return q
}

func (q TaskQuery) WithCreatedSince(t time.Time) TaskQuery {
	q.CreatedSince = &t
	return q
}

func (q TaskQuery) WithCategory(id int64) TaskQuery {
	q.CategoryID = &id
	return q
}

func (q TaskQuery) SortedBy(field SortField, order SortOrder) TaskQuery {
	q.SortBy = field
	q.Order = order
	return q
}

func (q TaskQuery) Limited(n int) TaskQuery {
	q.Limit = n
	return q
}

// Descending reports whether results sort high to low. Unknown orders fall back to desc.
func (q TaskQuery) Descending() bool {
	return q.Order != OrderAsc
}

// Matches evaluates the predicate against a single task in memory.
func (q TaskQuery) Matches(t Task) bool {
	if q.OwnerID == "" || t.UserID != q.OwnerID {
		return false
	}
	if len(q.IDs) > 0 && !containsID(q.IDs, t.ID) {
		return false
	}
	if q.Completed != nil && t.Completed != *q.Completed {
		return false
	}
	if q.Priority != nil && t.Priority != *q.Priority {
		return false
	}
	if q.CategoryID != nil && (t.CategoryID == nil || *t.CategoryID != *q.CategoryID) {
		return false
	}
	if q.Search != "" && !matchesSearch(t, q.Search) {
		return false
	}
	if q.DueBefore != nil && (t.DueDate == nil || !t.DueDate.Before(*q.DueBefore)) {
		return false
	}
	if q.DueFrom != nil && (t.DueDate == nil || t.DueDate.Before(*q.DueFrom)) {
		return false
	}
	if q.DueTo != nil && (t.DueDate == nil || !t.DueDate.Before(*q.DueTo)) {
		return false
	}
	if q.CreatedSince != nil && t.CreatedAt.Before(*q.CreatedSince) {
		return false
	}
	return true
}

// Less orders a before b under the query's sort, ties broken by id in the same
// direction. Tasks without a due date sort last in either direction.
func (q TaskQuery) Less(a, b Task) bool {
	if q.SortBy == SortByDueDate && (a.DueDate == nil) != (b.DueDate == nil) {
		return b.DueDate == nil
	}
	cmp := compareTasks(q.SortBy, a, b)
	if cmp == 0 {
		cmp = compareInt64(a.ID, b.ID)
	}
	if q.Descending() {
		return cmp > 0
	}
	return cmp < 0
}

func compareTasks(field SortField, a, b Task) int {
	switch field {
	case SortByTitle:
		return strings.Compare(a.Title, b.Title)
	case SortByPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case SortByUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case SortByDueDate:
		if a.DueDate == nil || b.DueDate == nil {
			return 0
		}
		return a.DueDate.Compare(*b.DueDate)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func containsID(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func matchesSearch(t Task, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(t.Title), needle) {
		return true
	}
	return t.Description != nil && strings.Contains(strings.ToLower(*t.Description), needle)
}

// TaskPatch is the set of field changes applied by a single update statement.
type TaskPatch struct {
	Title       Optional[string]
	Description Optional[string]
	Completed   Optional[bool]
	Priority    Optional[Priority]
	DueDate     Optional[time.Time]
	CategoryID  Optional[int64]
}

func (p TaskPatch) IsEmpty() bool {
	return !p.Title.Set && !p.Description.Set && !p.Completed.Set &&
		!p.Priority.Set && !p.DueDate.Set && !p.CategoryID.Set
}

// Apply copies the present fields onto t. Required fields ignore explicit nulls.
func (p TaskPatch) Apply(t *Task) {
	if p.Title.Value != nil {
		t.Title = *p.Title.Value
	}
	if p.Description.Set {
		t.Description = p.Description.Clone()
	}
	if p.Completed.Value != nil {
		t.Completed = *p.Completed.Value
	}
	if p.Priority.Value != nil {
		t.Priority = *p.Priority.Value
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Clone()
	}
	if p.CategoryID.Set {
		t.CategoryID = p.CategoryID.Clone()
	}
}

const dateLayout = "2006-01-02"

// ParseDueDate accepts a calendar date (midnight UTC) or an RFC 3339 timestamp.
func ParseDueDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
