package db

import (
	"testing"
	"time"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectTasksSQL(t *testing.T) {
	high := models.PriorityHigh
	done := false
	due := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		query models.TaskQuery
		want  struct {
			sql  string
			args []any
		}
	}{
		{
			name:  "owner only with default ordering",
			query: models.OwnedBy("u1"),
			want: struct {
				sql  string
				args []any
			}{
				sql:  "SELECT " + taskColumns + " FROM tasks WHERE user_id = $1 ORDER BY created_at DESC, id DESC",
				args: []any{"u1"},
			},
		},
		{
			name: "filters with due date sort and limit",
			query: func() models.TaskQuery {
				q := models.OwnedBy("u1").SortedBy(models.SortByDueDate, models.OrderAsc).Limited(10)
				q.Completed = &done
				q.Priority = &high
				q.Search = "50%_done"
				return q
			}(),
			want: struct {
				sql  string
				args []any
			}{
				sql: "SELECT " + taskColumns + " FROM tasks WHERE user_id = $1 AND completed = $2 AND priority = $3" +
					` AND (title ILIKE $4 ESCAPE '\' OR description ILIKE $4 ESCAPE '\')` +
					" ORDER BY due_date ASC NULLS LAST, id ASC LIMIT $5",
				args: []any{"u1", false, "HIGH", `%50\%\_done%`, 10},
			},
		},
		{
			name:  "ids and due window sorted by priority",
			query: models.OwnedBy("u2").WithIDs(3, 4).WithDueBetween(due, due.AddDate(0, 0, 1)).SortedBy(models.SortByPriority, models.OrderDesc),
			want: struct {
				sql  string
				args []any
			}{
				sql: "SELECT " + taskColumns + " FROM tasks WHERE user_id = $1 AND id = ANY($2) AND due_date >= $3 AND due_date < $4" +
					" ORDER BY " + sortColumns[models.SortByPriority] + " DESC, id DESC",
				args: []any{"u2", []int64{3, 4}, due, due.AddDate(0, 0, 1)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := selectTasksSQL(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want.sql, sql)
			assert.Equal(t, tt.want.args, args)
		})
	}
}

func TestUnscopedStatementsAreRefused(t *testing.T) {
	var q models.TaskQuery

	_, _, err := selectTasksSQL(q)
	assert.ErrorIs(t, err, errors.ErrUnscopedQuery)
	_, _, err = countTasksSQL(q)
	assert.ErrorIs(t, err, errors.ErrUnscopedQuery)
	_, _, err = countByPrioritySQL(q)
	assert.ErrorIs(t, err, errors.ErrUnscopedQuery)
	_, _, err = deleteTasksSQL(q)
	assert.ErrorIs(t, err, errors.ErrUnscopedQuery)
	_, _, err = updateTasksSQL(q, models.TaskPatch{Completed: models.Some(true)}, time.Now())
	assert.ErrorIs(t, err, errors.ErrUnscopedQuery)
}

func TestUpdateTasksSQL(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	q := models.OwnedBy("u1").WithIDs(1, 2)

	sql, args, err := updateTasksSQL(q, models.TaskPatch{
		Completed:  models.Some(true),
		CategoryID: models.Null[int64](),
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE tasks SET completed = $1, category_id = $2, updated_at = GREATEST($3::timestamptz, created_at)"+
		" WHERE user_id = $4 AND id = ANY($5)", sql)
	assert.Equal(t, []any{true, (*int64)(nil), now, "u1", []int64{1, 2}}, args)

	_, _, err = updateTasksSQL(q, models.TaskPatch{}, now)
	assert.ErrorIs(t, err, errors.ErrEmptyUpdate)
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "groceries", want: "groceries"},
		{name: "wildcards", in: "100%_", want: `100\%\_`},
		{name: "backslash", in: `a\b`, want: `a\\b`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, escapeLike(tt.in))
		})
	}
}
