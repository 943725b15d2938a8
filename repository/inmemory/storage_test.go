package inmemory

import (
	"context"
	"sync"
	"testing"
	"time"

	"tasktracker/internal/domain/models"
	"tasktracker/internal/service"
	"tasktracker/repository/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorage(t *testing.T) {
	tests := []struct {
		name string
		want struct {
			notNil          bool
			emptyUsers      bool
			emptyTasks      bool
			emptyCategories bool
		}
	}{
		{
			name: "create new storage instance",
			want: struct {
				notNil          bool
				emptyUsers      bool
				emptyTasks      bool
				emptyCategories bool
			}{
				notNil:          true,
				emptyUsers:      true,
				emptyTasks:      true,
				emptyCategories: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewStorage()

			assert.Equal(t, tt.want.notNil, storage != nil)
			assert.Equal(t, tt.want.emptyUsers, len(storage.users) == 0)
			assert.Equal(t, tt.want.emptyTasks, len(storage.tasks) == 0)
			assert.Equal(t, tt.want.emptyCategories, len(storage.categories) == 0)
		})
	}
}

func TestStorageContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) service.Store {
		return NewStorage()
	})
}

func TestStorageClock(t *testing.T) {
	created := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	now := created
	storage := NewStorage(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	task := &models.Task{UserID: "u1", Title: "clocked", Priority: models.PriorityLow}
	require.NoError(t, storage.CreateTask(ctx, task))
	assert.Equal(t, created, task.CreatedAt)
	assert.Equal(t, created, task.UpdatedAt)

	tests := []struct {
		name  string
		clock time.Time
		want  time.Time
	}{
		{name: "clock moves forward", clock: created.Add(time.Hour), want: created.Add(time.Hour)},
		{name: "clock moves backwards", clock: created.Add(-time.Hour), want: created},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = tt.clock
			_, err := storage.UpdateTasks(ctx, models.OwnedBy("u1"), models.TaskPatch{Completed: models.Some(true)})
			require.NoError(t, err)

			found, err := storage.FindTasks(ctx, models.OwnedBy("u1"))
			require.NoError(t, err)
			require.Len(t, found, 1)
			assert.Equal(t, tt.want, found[0].UpdatedAt)
		})
	}
}

func TestStorageReturnsCopies(t *testing.T) {
	storage := NewStorage()
	ctx := context.Background()

	desc := "original"
	task := &models.Task{UserID: "u1", Title: "copy", Description: &desc, Priority: models.PriorityLow}
	require.NoError(t, storage.CreateTask(ctx, task))
	desc = "changed by caller"

	found, err := storage.FindTasks(ctx, models.OwnedBy("u1"))
	require.NoError(t, err)
	require.Len(t, found, 1)
	*found[0].Description = "changed again"

	again, err := storage.FindTasks(ctx, models.OwnedBy("u1"))
	require.NoError(t, err)
	assert.Equal(t, "original", *again[0].Description)
}

func TestStorageConcurrentCreates(t *testing.T) {
	storage := NewStorage()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	ids := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := &models.Task{UserID: "u1", Title: "parallel", Priority: models.PriorityLow}
			if assert.NoError(t, storage.CreateTask(ctx, task)) {
				ids <- task.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers)

	n, err := storage.CountTasks(ctx, models.OwnedBy("u1"))
	require.NoError(t, err)
	assert.Equal(t, int64(workers), n)
}
