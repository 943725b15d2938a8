package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"
)

// Storage keeps users, tasks and categories in maps. Every method holds the
// lock for its whole duration, which gives the per-call atomicity stores promise.
type Storage struct {
	mu             sync.RWMutex
	users          map[string]models.User
	tasks          map[int64]models.Task
	categories     map[int64]models.Category
	nextTaskID     int64
	nextCategoryID int64
	now            func() time.Time
}

type Option func(*Storage)

// WithClock replaces time.Now for timestamps assigned by the store.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

func NewStorage(opts ...Option) *Storage {
	s := &Storage{
		users:      make(map[string]models.User),
		tasks:      make(map[int64]models.Task),
		categories: make(map[int64]models.Category),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Storage) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loginTaken(user.Username, user.Email, "") {
		return errors.ErrUserAlreadyExists
	}
	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.ID] = *user
	return nil
}

func (s *Storage) GetUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, errors.ErrUserNotFound
	}
	return &user, nil
}

func (s *Storage) GetUserByLogin(_ context.Context, login string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if strings.EqualFold(user.Username, login) || strings.EqualFold(user.Email, login) {
			return &user, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (s *Storage) UpdateUser(_ context.Context, id string, patch models.UserPatch) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.users[id]
	if !exists {
		return nil, errors.ErrUserNotFound
	}
	if s.loginTaken(deref(patch.Username), deref(patch.Email), id) {
		return nil, errors.ErrUserAlreadyExists
	}
	patch.Apply(&user)
	user.UpdatedAt = s.now().UTC()
	s.users[id] = user
	return &user, nil
}

func (s *Storage) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return errors.ErrUserNotFound
	}
	delete(s.users, id)
	for taskID, task := range s.tasks {
		if task.UserID == id {
			delete(s.tasks, taskID)
		}
	}
	return nil
}

func (s *Storage) loginTaken(username, email, exceptID string) bool {
	for id, existing := range s.users {
		if id == exceptID {
			continue
		}
		if username != "" && strings.EqualFold(existing.Username, username) {
			return true
		}
		if email != "" && strings.EqualFold(existing.Email, email) {
			return true
		}
	}
	return false
}

func (s *Storage) CreateTask(_ context.Context, task *models.Task) error {
	if task.UserID == "" {
		return errors.ErrUnscopedQuery
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.CategoryID != nil {
		if _, exists := s.categories[*task.CategoryID]; !exists {
			return errors.ErrInvalidCategory
		}
	}
	s.nextTaskID++
	now := s.now().UTC()
	task.ID = s.nextTaskID
	task.CreatedAt = now
	task.UpdatedAt = now
	s.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (s *Storage) FindTasks(_ context.Context, q models.TaskQuery) ([]models.Task, error) {
	if q.OwnerID == "" {
		return nil, errors.ErrUnscopedQuery
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := s.matching(q)
	sort.SliceStable(tasks, func(i, j int) bool { return q.Less(tasks[i], tasks[j]) })
	if q.Limit > 0 && len(tasks) > q.Limit {
		tasks = tasks[:q.Limit]
	}
	return tasks, nil
}

func (s *Storage) CountTasks(_ context.Context, q models.TaskQuery) (int64, error) {
	if q.OwnerID == "" {
		return 0, errors.ErrUnscopedQuery
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.matching(q))), nil
}

func (s *Storage) CountTasksByPriority(_ context.Context, q models.TaskQuery) (map[models.Priority]int64, error) {
	if q.OwnerID == "" {
		return nil, errors.ErrUnscopedQuery
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.Priority]int64)
	for _, task := range s.matching(q) {
		counts[task.Priority]++
	}
	return counts, nil
}

func (s *Storage) CountTasksByCategory(_ context.Context, ownerID string) (map[int64]int64, error) {
	if ownerID == "" {
		return nil, errors.ErrUnscopedQuery
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[int64]int64)
	for _, task := range s.matching(models.OwnedBy(ownerID)) {
		if task.CategoryID != nil {
			counts[*task.CategoryID]++
		}
	}
	return counts, nil
}

func (s *Storage) UpdateTasks(_ context.Context, q models.TaskQuery, patch models.TaskPatch) (int64, error) {
	if q.OwnerID == "" {
		return 0, errors.ErrUnscopedQuery
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.CategoryID.Value != nil {
		if _, exists := s.categories[*patch.CategoryID.Value]; !exists {
			return 0, errors.ErrInvalidCategory
		}
	}
	now := s.now().UTC()
	matched := s.matching(q)
	for _, task := range matched {
		patch.Apply(&task)
		task.UpdatedAt = now
		if task.UpdatedAt.Before(task.CreatedAt) {
			task.UpdatedAt = task.CreatedAt
		}
		s.tasks[task.ID] = task
	}
	return int64(len(matched)), nil
}

func (s *Storage) DeleteTasks(_ context.Context, q models.TaskQuery) (int64, error) {
	if q.OwnerID == "" {
		return 0, errors.ErrUnscopedQuery
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.matching(q)
	for _, task := range matched {
		delete(s.tasks, task.ID)
	}
	return int64(len(matched)), nil
}

func (s *Storage) matching(q models.TaskQuery) []models.Task {
	tasks := []models.Task{}
	for _, task := range s.tasks {
		if q.Matches(task) {
			tasks = append(tasks, cloneTask(task))
		}
	}
	return tasks
}

func (s *Storage) ListCategories(_ context.Context) ([]models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]models.Category, 0, len(s.categories))
	for _, category := range s.categories {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		if categories[i].Name == categories[j].Name {
			return categories[i].ID < categories[j].ID
		}
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

func (s *Storage) GetCategory(_ context.Context, id int64) (*models.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.categories[id]
	if !exists {
		return nil, errors.ErrCategoryNotFound
	}
	return &category, nil
}

func (s *Storage) CategoryExists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.categories[id]
	return exists, nil
}

func (s *Storage) CreateCategory(_ context.Context, category *models.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.nameTaken(category.Name, 0) {
		return errors.ErrCategoryExists
	}
	s.nextCategoryID++
	now := s.now().UTC()
	category.ID = s.nextCategoryID
	category.CreatedAt = now
	category.UpdatedAt = now
	s.categories[category.ID] = *category
	return nil
}

func (s *Storage) UpdateCategory(_ context.Context, id int64, patch models.CategoryPatch) (*models.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	category, exists := s.categories[id]
	if !exists {
		return nil, errors.ErrCategoryNotFound
	}
	if patch.Name.Value != nil && s.nameTaken(*patch.Name.Value, id) {
		return nil, errors.ErrCategoryExists
	}
	patch.Apply(&category)
	category.UpdatedAt = s.now().UTC()
	s.categories[id] = category
	return &category, nil
}

// DeleteCategory detaches every task that references the category, then removes it.
func (s *Storage) DeleteCategory(_ context.Context, id int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[id]; !exists {
		return 0, errors.ErrCategoryNotFound
	}
	var detached int64
	now := s.now().UTC()
	for taskID, task := range s.tasks {
		if task.CategoryID != nil && *task.CategoryID == id {
			task.CategoryID = nil
			task.UpdatedAt = now
			s.tasks[taskID] = task
			detached++
		}
	}
	delete(s.categories, id)
	return detached, nil
}

func (s *Storage) nameTaken(name string, exceptID int64) bool {
	for id, category := range s.categories {
		if id != exceptID && category.Name == name {
			return true
		}
	}
	return false
}

func cloneTask(t models.Task) models.Task {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	if t.DueDate != nil {
		d := *t.DueDate
		t.DueDate = &d
	}
	if t.CategoryID != nil {
		c := *t.CategoryID
		t.CategoryID = &c
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
