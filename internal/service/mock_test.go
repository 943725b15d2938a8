package service

import (
	"context"

	"tasktracker/internal/domain/models"

	"github.com/stretchr/testify/mock"
)

type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) CreateTask(ctx context.Context, task *models.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockTaskStore) FindTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Task), args.Error(1)
}

func (m *MockTaskStore) CountTasks(ctx context.Context, q models.TaskQuery) (int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskStore) CountTasksByPriority(ctx context.Context, q models.TaskQuery) (map[models.Priority]int64, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.Priority]int64), args.Error(1)
}

func (m *MockTaskStore) CountTasksByCategory(ctx context.Context, ownerID string) (map[int64]int64, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]int64), args.Error(1)
}

func (m *MockTaskStore) UpdateTasks(ctx context.Context, q models.TaskQuery, patch models.TaskPatch) (int64, error) {
	args := m.Called(ctx, q, patch)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskStore) DeleteTasks(ctx context.Context, q models.TaskQuery) (int64, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(int64), args.Error(1)
}

type MockCategoryChecker struct {
	mock.Mock
}

func (m *MockCategoryChecker) CategoryExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}
