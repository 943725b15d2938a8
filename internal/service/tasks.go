package service

import (
	"context"
	"strings"
	"time"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"
)

const (
	// MaxBatchSize bounds the id set of a bulk operation.
	MaxBatchSize = 50

	activityLimit = 50
	recentWindow  = 7 * 24 * time.Hour
)

// TaskService is the only path to task records. Each method re-derives the
// owner clause from the caller's identity; tasks owned by someone else are
// reported as not found.
type TaskService struct {
	tasks      TaskStore
	categories categoryChecker
	now        func() time.Time
}

type TaskOption func(*TaskService)

// WithTaskClock overrides the clock used by statistics.
func WithTaskClock(now func() time.Time) TaskOption {
	return func(s *TaskService) {
		s.now = now
	}
}

func NewTaskService(tasks TaskStore, categories categoryChecker, opts ...TaskOption) *TaskService {
	s := &TaskService{
		tasks:      tasks,
		categories: categories,
		now:        utcNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TaskService) Get(ctx context.Context, identity models.Identity, id int64) (*models.Task, error) {
	q, err := scope(identity)
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, errors.ErrTaskNotFound
	}
	tasks, err := s.tasks.FindTasks(ctx, q.WithIDs(id))
	if err != nil {
		return nil, errors.Storage(err)
	}
	if len(tasks) == 0 {
		return nil, errors.ErrTaskNotFound
	}
	return &tasks[0], nil
}

// List returns the caller's tasks matching params. No match is an empty slice.
func (s *TaskService) List(ctx context.Context, identity models.Identity, params ListParams) ([]models.Task, error) {
	if _, err := scope(identity); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.FindTasks(ctx, BuildTaskQuery(params, identity))
	if err != nil {
		return nil, errors.Storage(err)
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (s *TaskService) Create(ctx context.Context, identity models.Identity, req models.CreateTaskRequest) (*models.Task, error) {
	if _, err := scope(identity); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, errors.ErrInvalidTitle
	}

	task := models.Task{
		UserID:      identity.UserID,
		Title:       title,
		Description: req.Description,
		Priority:    models.PriorityMedium,
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	if req.Priority != nil {
		if !req.Priority.Valid() {
			return nil, errors.ErrInvalidPriority
		}
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		due, err := models.ParseDueDate(*req.DueDate)
		if err != nil {
			return nil, errors.ErrInvalidDueDate
		}
		task.DueDate = &due
	}
	if req.CategoryID != nil {
		if err := ensureCategory(ctx, s.categories, req.CategoryID); err != nil {
			return nil, err
		}
		task.CategoryID = req.CategoryID
	}

	if err := s.tasks.CreateTask(ctx, &task); err != nil {
		return nil, errors.Storage(err)
	}
	return &task, nil
}

// Update applies only the fields present in req. An empty request writes
// nothing and returns the current record.
func (s *TaskService) Update(ctx context.Context, identity models.Identity, id int64, req models.UpdateTaskRequest) (*models.Task, error) {
	q, err := scope(identity)
	if err != nil {
		return nil, err
	}
	patch, err := taskPatch(req)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.Get(ctx, identity, id)
	}
	if id <= 0 {
		return nil, errors.ErrTaskNotFound
	}
	if err := ensureCategory(ctx, s.categories, patch.CategoryID.Value); err != nil {
		return nil, err
	}

	affected, err := s.tasks.UpdateTasks(ctx, q.WithIDs(id), patch)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if affected == 0 {
		return nil, errors.ErrTaskNotFound
	}
	return s.Get(ctx, identity, id)
}

func (s *TaskService) Delete(ctx context.Context, identity models.Identity, id int64) error {
	q, err := scope(identity)
	if err != nil {
		return err
	}
	if id <= 0 {
		return errors.ErrTaskNotFound
	}
	affected, err := s.tasks.DeleteTasks(ctx, q.WithIDs(id))
	if err != nil {
		return errors.Storage(err)
	}
	if affected == 0 {
		return errors.ErrTaskNotFound
	}
	return nil
}

// Activity projects the caller's most recently touched tasks into an audit trail.
func (s *TaskService) Activity(ctx context.Context, identity models.Identity) ([]models.ActivityEntry, error) {
	q, err := scope(identity)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.FindTasks(ctx, q.SortedBy(models.SortByUpdatedAt, models.OrderDesc).Limited(activityLimit))
	if err != nil {
		return nil, errors.Storage(err)
	}

	entries := make([]models.ActivityEntry, 0, len(tasks))
	for _, task := range tasks {
		action := models.ActionUpdated
		if task.UpdatedAt.Equal(task.CreatedAt) {
			action = models.ActionCreated
		}
		entries = append(entries, models.ActivityEntry{
			TaskID:    task.ID,
			Action:    action,
			Title:     task.Title,
			Completed: task.Completed,
			Priority:  task.Priority,
			Timestamp: task.UpdatedAt,
		})
	}
	return entries, nil
}

func taskPatch(req models.UpdateTaskRequest) (models.TaskPatch, error) {
	patch := models.TaskPatch{
		Description: req.Description,
		Completed:   req.Completed,
		Priority:    req.Priority,
		CategoryID:  req.CategoryID,
	}

	if req.Title.Set {
		if req.Title.Value == nil {
			return patch, errors.ErrInvalidTitle
		}
		title := strings.TrimSpace(*req.Title.Value)
		if title == "" {
			return patch, errors.ErrInvalidTitle
		}
		patch.Title = models.Some(title)
	}
	if req.Completed.IsNull() {
		return patch, errors.ErrValidationFailed
	}
	if req.Priority.Set && (req.Priority.Value == nil || !req.Priority.Value.Valid()) {
		return patch, errors.ErrInvalidPriority
	}
	if req.CategoryID.Value != nil && *req.CategoryID.Value <= 0 {
		return patch, errors.ErrInvalidCategory
	}
	if req.DueDate.Set {
		patch.DueDate = models.Null[time.Time]()
		if req.DueDate.Value != nil {
			due, err := models.ParseDueDate(*req.DueDate.Value)
			if err != nil {
				return patch, errors.ErrInvalidDueDate
			}
			patch.DueDate = models.Some(due)
		}
	}
	return patch, nil
}
