// Package storetest holds behaviour every storage backend must share. Each
// backend's tests call Run with a constructor for a fresh, empty store.
package storetest

import (
	"context"
	"testing"
	"time"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"
	"tasktracker/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Factory func(t *testing.T) service.Store

func Run(t *testing.T, newStore Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("task scoping", func(t *testing.T) { testTaskScoping(t, newStore(t)) })
	t.Run("task filters", func(t *testing.T) { testTaskFilters(t, newStore(t)) })
	t.Run("task ordering", func(t *testing.T) { testTaskOrdering(t, newStore(t)) })
	t.Run("task updates", func(t *testing.T) { testTaskUpdates(t, newStore(t)) })
	t.Run("categories", func(t *testing.T) { testCategories(t, newStore(t)) })
	t.Run("unscoped queries", func(t *testing.T) { testUnscoped(t, newStore(t)) })
}

func newUser(t *testing.T, store service.Store, name string) *models.User {
	t.Helper()
	user := &models.User{
		ID:       uuid.New().String(),
		Username: name,
		Email:    name + "@example.com",
		Password: "hash",
	}
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func newTask(t *testing.T, store service.Store, owner, title string, priority models.Priority) *models.Task {
	t.Helper()
	task := &models.Task{UserID: owner, Title: title, Priority: priority}
	require.NoError(t, store.CreateTask(context.Background(), task))
	return task
}

func titles(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.Title)
	}
	return out
}

func testUsers(t *testing.T, store service.Store) {
	ctx := context.Background()
	alice := newUser(t, store, "alice")
	bob := newUser(t, store, "bob")

	err := store.CreateUser(ctx, &models.User{ID: uuid.New().String(), Username: "ALICE", Email: "x@example.com", Password: "h"})
	assert.ErrorIs(t, err, errors.ErrUserAlreadyExists)

	found, err := store.GetUserByLogin(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	found, err = store.GetUserByLogin(ctx, "BOB")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, found.ID)

	_, err = store.GetUserByLogin(ctx, "carol")
	assert.ErrorIs(t, err, errors.ErrUserNotFound)

	taken := "bob"
	_, err = store.UpdateUser(ctx, alice.ID, models.UserPatch{Username: &taken})
	assert.ErrorIs(t, err, errors.ErrUserAlreadyExists)

	first := "Alice"
	updated, err := store.UpdateUser(ctx, alice.ID, models.UserPatch{FirstName: &first})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.FirstName)
	assert.Equal(t, "alice", updated.Username)

	_, err = store.UpdateUser(ctx, uuid.New().String(), models.UserPatch{FirstName: &first})
	assert.ErrorIs(t, err, errors.ErrUserNotFound)

	newTask(t, store, bob.ID, "bob's", models.PriorityLow)
	require.NoError(t, store.DeleteUser(ctx, bob.ID))
	n, err := store.CountTasks(ctx, models.OwnedBy(bob.ID))
	require.NoError(t, err)
	assert.Zero(t, n, "tasks are removed with their owner")

	_, err = store.GetUserByID(ctx, bob.ID)
	assert.ErrorIs(t, err, errors.ErrUserNotFound)
	assert.ErrorIs(t, store.DeleteUser(ctx, bob.ID), errors.ErrUserNotFound)
}

func testTaskScoping(t *testing.T, store service.Store) {
	ctx := context.Background()
	alice := newUser(t, store, "alice")
	bob := newUser(t, store, "bob")

	mine := newTask(t, store, alice.ID, "mine", models.PriorityLow)
	theirs := newTask(t, store, bob.ID, "theirs", models.PriorityLow)
	assert.NotZero(t, mine.ID)
	assert.NotEqual(t, mine.ID, theirs.ID)
	assert.Equal(t, mine.CreatedAt, mine.UpdatedAt)

	found, err := store.FindTasks(ctx, models.OwnedBy(alice.ID).WithIDs(mine.ID, theirs.ID))
	require.NoError(t, err)
	assert.Equal(t, []string{"mine"}, titles(found))

	n, err := store.UpdateTasks(ctx, models.OwnedBy(alice.ID).WithIDs(theirs.ID), models.TaskPatch{Completed: models.Some(true)})
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = store.DeleteTasks(ctx, models.OwnedBy(alice.ID).WithIDs(theirs.ID))
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := store.CountTasks(ctx, models.OwnedBy(bob.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func testTaskFilters(t *testing.T, store service.Store) {
	ctx := context.Background()
	alice := newUser(t, store, "alice")
	owner := alice.ID

	color := "#00FF00"
	home := &models.Category{Name: "Home", Color: &color}
	require.NoError(t, store.CreateCategory(ctx, home))

	day := time.Date(2030, 6, 15, 0, 0, 0, 0, time.UTC)
	desc := "Remember the MILK"
	dueToday := day.Add(10 * time.Hour)
	dueTomorrow := day.Add(30 * time.Hour)

	tasks := []*models.Task{
		{UserID: owner, Title: "Groceries", Description: &desc, Priority: models.PriorityHigh, CategoryID: &home.ID, DueDate: &dueToday},
		{UserID: owner, Title: "50% off sale", Priority: models.PriorityLow, Completed: true, DueDate: &dueTomorrow},
		{UserID: owner, Title: "Taxes", Priority: models.PriorityHigh},
	}
	for _, task := range tasks {
		require.NoError(t, store.CreateTask(ctx, task))
	}

	high := models.PriorityHigh
	tests := []struct {
		name  string
		query models.TaskQuery
		want  []string
	}{
		{name: "completed", query: models.OwnedBy(owner).WithCompleted(true), want: []string{"50% off sale"}},
		{name: "pending", query: models.OwnedBy(owner).WithCompleted(false).SortedBy(models.SortByTitle, models.OrderAsc), want: []string{"Groceries", "Taxes"}},
		{name: "priority", query: func() models.TaskQuery { q := models.OwnedBy(owner).SortedBy(models.SortByTitle, models.OrderAsc); q.Priority = &high; return q }(), want: []string{"Groceries", "Taxes"}},
		{name: "category", query: models.OwnedBy(owner).WithCategory(home.ID), want: []string{"Groceries"}},
		{name: "search matches description ignoring case", query: func() models.TaskQuery { q := models.OwnedBy(owner); q.Search = "milk"; return q }(), want: []string{"Groceries"}},
		{name: "search treats percent literally", query: func() models.TaskQuery { q := models.OwnedBy(owner); q.Search = "50%"; return q }(), want: []string{"50% off sale"}},
		{name: "due window is half open", query: models.OwnedBy(owner).WithDueBetween(day, day.AddDate(0, 0, 1)), want: []string{"Groceries"}},
		{name: "due before excludes undated", query: models.OwnedBy(owner).WithDueBefore(day.AddDate(0, 0, 2)).SortedBy(models.SortByDueDate, models.OrderAsc), want: []string{"Groceries", "50% off sale"}},
		{name: "created since the future", query: models.OwnedBy(owner).WithCreatedSince(time.Now().Add(time.Hour)), want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := store.FindTasks(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(found))

			n, err := store.CountTasks(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), n)
		})
	}

	byPriority, err := store.CountTasksByPriority(ctx, models.OwnedBy(owner))
	require.NoError(t, err)
	assert.Equal(t, map[models.Priority]int64{models.PriorityHigh: 2, models.PriorityLow: 1}, byPriority)

	byCategory, err := store.CountTasksByCategory(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, map[int64]int64{home.ID: 1}, byCategory)
}

func testTaskOrdering(t *testing.T, store service.Store) {
	ctx := context.Background()
	alice := newUser(t, store, "alice")
	owner := alice.ID

	due := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	later := due.AddDate(0, 0, 1)
	created := []*models.Task{
		{UserID: owner, Title: "b", Priority: models.PriorityMedium},
		{UserID: owner, Title: "a", Priority: models.PriorityUrgent, DueDate: &later},
		{UserID: owner, Title: "c", Priority: models.PriorityMedium, DueDate: &due},
		{UserID: owner, Title: "d", Priority: models.PriorityLow},
	}
	for _, task := range created {
		require.NoError(t, store.CreateTask(ctx, task))
	}

	tests := []struct {
		name  string
		query models.TaskQuery
		want  []string
	}{
		{name: "default is newest first", query: models.OwnedBy(owner), want: []string{"d", "c", "a", "b"}},
		{name: "title ascending", query: models.OwnedBy(owner).SortedBy(models.SortByTitle, models.OrderAsc), want: []string{"a", "b", "c", "d"}},
		{name: "priority by rank with id tie-break", query: models.OwnedBy(owner).SortedBy(models.SortByPriority, models.OrderDesc), want: []string{"a", "c", "b", "d"}},
		{name: "priority ascending", query: models.OwnedBy(owner).SortedBy(models.SortByPriority, models.OrderAsc), want: []string{"d", "b", "c", "a"}},
		{name: "due date puts undated last", query: models.OwnedBy(owner).SortedBy(models.SortByDueDate, models.OrderAsc), want: []string{"c", "a", "b", "d"}},
		{name: "due date descending still puts undated last", query: models.OwnedBy(owner).SortedBy(models.SortByDueDate, models.OrderDesc), want: []string{"a", "c", "d", "b"}},
		{name: "limit", query: models.OwnedBy(owner).SortedBy(models.SortByTitle, models.OrderAsc).Limited(2), want: []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := store.FindTasks(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(found))
		})
	}
}

func testTaskUpdates(t *testing.T, store service.Store) {
	ctx := context.Background()
	alice := newUser(t, store, "alice")
	owner := alice.ID

	desc := "details"
	task := &models.Task{UserID: owner, Title: "draft", Description: &desc, Priority: models.PriorityLow}
	require.NoError(t, store.CreateTask(ctx, task))
	other := newTask(t, store, owner, "other", models.PriorityLow)

	n, err := store.UpdateTasks(ctx, models.OwnedBy(owner).WithIDs(task.ID), models.TaskPatch{
		Title:       models.Some("final"),
		Description: models.Null[string](),
		Priority:    models.Some(models.PriorityUrgent),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := store.FindTasks(ctx, models.OwnedBy(owner).WithIDs(task.ID))
	require.NoError(t, err)
	require.Len(t, found, 1)
	got := found[0]
	assert.Equal(t, "final", got.Title)
	assert.Nil(t, got.Description, "explicit null clears the field")
	assert.Equal(t, models.PriorityUrgent, got.Priority)
	assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

	missing := int64(987654)
	_, err = store.UpdateTasks(ctx, models.OwnedBy(owner).WithIDs(task.ID), models.TaskPatch{CategoryID: models.Some(missing)})
	assert.ErrorIs(t, err, errors.ErrInvalidCategory)

	n, err = store.UpdateTasks(ctx, models.OwnedBy(owner).WithIDs(task.ID, other.ID), models.TaskPatch{Completed: models.Some(true)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.DeleteTasks(ctx, models.OwnedBy(owner).WithIDs(task.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := store.CountTasks(ctx, models.OwnedBy(owner).WithCompleted(true))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func testCategories(t *testing.T, store service.Store) {
	ctx := context.Background()
	alice := newUser(t, store, "alice")

	red := "#FF0000"
	work := &models.Category{Name: "Work", Color: &red}
	require.NoError(t, store.CreateCategory(ctx, work))
	assert.NotZero(t, work.ID)
	home := &models.Category{Name: "Home"}
	require.NoError(t, store.CreateCategory(ctx, home))
	assert.ErrorIs(t, store.CreateCategory(ctx, &models.Category{Name: "Work"}), errors.ErrCategoryExists)

	list, err := store.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Home", list[0].Name)
	assert.Equal(t, "Work", list[1].Name)

	exists, err := store.CategoryExists(ctx, work.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	missing := int64(987654)
	err = store.CreateTask(ctx, &models.Task{UserID: alice.ID, Title: "x", Priority: models.PriorityLow, CategoryID: &missing})
	assert.ErrorIs(t, err, errors.ErrInvalidCategory)

	_, err = store.UpdateCategory(ctx, home.ID, models.CategoryPatch{Name: models.Some("Work")})
	assert.ErrorIs(t, err, errors.ErrCategoryExists)

	updated, err := store.UpdateCategory(ctx, work.ID, models.CategoryPatch{Color: models.Null[string]()})
	require.NoError(t, err)
	assert.Equal(t, "Work", updated.Name)
	assert.Nil(t, updated.Color)

	_, err = store.UpdateCategory(ctx, missing, models.CategoryPatch{Name: models.Some("Nope")})
	assert.ErrorIs(t, err, errors.ErrCategoryNotFound)

	tagged := &models.Task{UserID: alice.ID, Title: "tagged", Priority: models.PriorityLow, CategoryID: &work.ID}
	require.NoError(t, store.CreateTask(ctx, tagged))
	newTask(t, store, alice.ID, "untagged", models.PriorityLow)

	detached, err := store.DeleteCategory(ctx, work.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detached)

	found, err := store.FindTasks(ctx, models.OwnedBy(alice.ID).WithIDs(tagged.ID))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Nil(t, found[0].CategoryID)

	_, err = store.GetCategory(ctx, work.ID)
	assert.ErrorIs(t, err, errors.ErrCategoryNotFound)
	_, err = store.DeleteCategory(ctx, work.ID)
	assert.ErrorIs(t, err, errors.ErrCategoryNotFound)
}

func testUnscoped(t *testing.T, store service.Store) {
	ctx := context.Background()
	var q models.TaskQuery

	_, err := store.FindTasks(ctx, q)
	assert.ErrorIs(t, err, errors.ErrUnscopedQuery)
	_, err = store.CountTasks(ctx, q)
	assert.ErrorIs(t, err, errors.ErrUnscopedQuery)
	_, err = store.CountTasksByPriority(ctx, q)
	assert.ErrorIs(t, err, errors.ErrUnscopedQuery)
	_, err = store.CountTasksByCategory(ctx, "")
	assert.ErrorIs(t, err, errors.ErrUnscopedQuery)
	_, err = store.UpdateTasks(ctx, q, models.TaskPatch{Completed: models.Some(true)})
	assert.ErrorIs(t, err, errors.ErrUnscopedQuery)
	_, err = store.DeleteTasks(ctx, q)
	assert.ErrorIs(t, err, errors.ErrUnscopedQuery)
	assert.ErrorIs(t, store.CreateTask(ctx, &models.Task{Title: "orphan", Priority: models.PriorityLow}), errors.ErrUnscopedQuery)
}
