package db

import (
	"strconv"
	"strings"
	"time"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"
)

const taskColumns = `id, user_id, title, description, completed, priority, due_date, category_id, created_at, updated_at`

var sortColumns = map[models.SortField]string{
	models.SortByCreatedAt: "created_at",
	models.SortByUpdatedAt: "updated_at",
	models.SortByTitle:     `title COLLATE "C"`,
	models.SortByDueDate:   "due_date",
	models.SortByPriority:  "CASE priority WHEN 'LOW' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'HIGH' THEN 3 WHEN 'URGENT' THEN 4 ELSE 0 END",
}

// statement accumulates positional arguments so that fragments can be
// composed without tracking $n by hand.
type statement struct {
	args []any
}

func (s *statement) arg(v any) string {
	s.args = append(s.args, v)
	return "$" + strconv.Itoa(len(s.args))
}

// where renders the predicate of q. The owner condition is always first, and
// a query without an owner is refused before any SQL is produced.
func (s *statement) where(q models.TaskQuery) (string, error) {
	if q.OwnerID == "" {
		return "", errors.ErrUnscopedQuery
	}
	conds := []string{"user_id = " + s.arg(q.OwnerID)}
	if len(q.IDs) > 0 {
		conds = append(conds, "id = ANY("+s.arg(q.IDs)+")")
	}
	if q.Completed != nil {
		conds = append(conds, "completed = "+s.arg(*q.Completed))
	}
	if q.Priority != nil {
		conds = append(conds, "priority = "+s.arg(string(*q.Priority)))
	}
	if q.CategoryID != nil {
		conds = append(conds, "category_id = "+s.arg(*q.CategoryID))
	}
	if q.Search != "" {
		p := s.arg("%" + escapeLike(q.Search) + "%")
		conds = append(conds, "(title ILIKE "+p+` ESCAPE '\' OR description ILIKE `+p+` ESCAPE '\')`)
	}
	if q.DueBefore != nil {
		conds = append(conds, "due_date < "+s.arg(*q.DueBefore))
	}
	if q.DueFrom != nil {
		conds = append(conds, "due_date >= "+s.arg(*q.DueFrom))
	}
	if q.DueTo != nil {
		conds = append(conds, "due_date < "+s.arg(*q.DueTo))
	}
	if q.CreatedSince != nil {
		conds = append(conds, "created_at >= "+s.arg(*q.CreatedSince))
	}
	return " WHERE " + strings.Join(conds, " AND "), nil
}

func (s *statement) orderBy(q models.TaskQuery) string {
	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = sortColumns[models.SortByCreatedAt]
	}
	dir := " ASC"
	if q.Descending() {
		dir = " DESC"
	}
	order := " ORDER BY " + column + dir
	if q.SortBy == models.SortByDueDate {
		order += " NULLS LAST"
	}
	order += ", id" + dir
	if q.Limit > 0 {
		order += " LIMIT " + s.arg(q.Limit)
	}
	return order
}

func selectTasksSQL(q models.TaskQuery) (string, []any, error) {
	var s statement
	where, err := s.where(q)
	if err != nil {
		return "", nil, err
	}
	return "SELECT " + taskColumns + " FROM tasks" + where + s.orderBy(q), s.args, nil
}

func countTasksSQL(q models.TaskQuery) (string, []any, error) {
	var s statement
	where, err := s.where(q)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM tasks" + where, s.args, nil
}

func countByPrioritySQL(q models.TaskQuery) (string, []any, error) {
	var s statement
	where, err := s.where(q)
	if err != nil {
		return "", nil, err
	}
	return "SELECT priority, COUNT(*) FROM tasks" + where + " GROUP BY priority", s.args, nil
}

// updateTasksSQL renders the patch as one UPDATE. updated_at never drops
// below created_at even if the clock moved backwards.
func updateTasksSQL(q models.TaskQuery, patch models.TaskPatch, now time.Time) (string, []any, error) {
	if q.OwnerID == "" {
		return "", nil, errors.ErrUnscopedQuery
	}
	var s statement
	var sets []string
	if patch.Title.Value != nil {
		sets = append(sets, "title = "+s.arg(*patch.Title.Value))
	}
	if patch.Description.Set {
		sets = append(sets, "description = "+s.arg(patch.Description.Value))
	}
	if patch.Completed.Value != nil {
		sets = append(sets, "completed = "+s.arg(*patch.Completed.Value))
	}
	if patch.Priority.Value != nil {
		sets = append(sets, "priority = "+s.arg(string(*patch.Priority.Value)))
	}
	if patch.DueDate.Set {
		sets = append(sets, "due_date = "+s.arg(patch.DueDate.Value))
	}
	if patch.CategoryID.Set {
		sets = append(sets, "category_id = "+s.arg(patch.CategoryID.Value))
	}
	if len(sets) == 0 {
		return "", nil, errors.ErrEmptyUpdate
	}
	sets = append(sets, "updated_at = GREATEST("+s.arg(now)+"::timestamptz, created_at)")

	where, err := s.where(q)
	if err != nil {
		return "", nil, err
	}
	return "UPDATE tasks SET " + strings.Join(sets, ", ") + where, s.args, nil
}

func deleteTasksSQL(q models.TaskQuery) (string, []any, error) {
	var s statement
	where, err := s.where(q)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM tasks" + where, s.args, nil
}

func escapeLike(v string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
}
