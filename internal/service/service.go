// Package service holds the ownership-scoped task engine: the predicate
// builder, the task gateway, the bulk coordinator and the statistics
// aggregator, plus the category and account services that surround it.
//
// Services keep no state between calls. Every read and write goes through the
// store interfaces below, which are injected at construction time.
package service

import (
	"context"
	"time"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"
)

// TaskStore is the narrow query interface over the task collection. Every
// query carries an owner; stores reject unscoped queries.
type TaskStore interface {
	CreateTask(ctx context.Context, task *models.Task) error
	FindTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, error)
	CountTasks(ctx context.Context, q models.TaskQuery) (int64, error)
	CountTasksByPriority(ctx context.Context, q models.TaskQuery) (map[models.Priority]int64, error)
	CountTasksByCategory(ctx context.Context, ownerID string) (map[int64]int64, error)
	UpdateTasks(ctx context.Context, q models.TaskQuery, patch models.TaskPatch) (int64, error)
	DeleteTasks(ctx context.Context, q models.TaskQuery) (int64, error)
}

type CategoryStore interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id int64) (*models.Category, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error)
	DeleteCategory(ctx context.Context, id int64) (int64, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// Store is everything a storage backend provides.
type Store interface {
	TaskStore
	CategoryStore
	UserStore
	Ping(ctx context.Context) error
}

type categoryChecker interface {
	CategoryExists(ctx context.Context, id int64) (bool, error)
}

// scope returns the base query for identity. It is the only way services
// build task queries, so the owner clause is always present.
func scope(identity models.Identity) (models.TaskQuery, error) {
	if identity.UserID == "" {
		return models.TaskQuery{}, errors.ErrUnauthorized
	}
	return models.OwnedBy(identity.UserID), nil
}

func ensureCategory(ctx context.Context, categories categoryChecker, id *int64) error {
	if id == nil {
		return nil
	}
	if *id <= 0 {
		return errors.ErrInvalidCategory
	}
	exists, err := categories.CategoryExists(ctx, *id)
	if err != nil {
		return errors.Storage(err)
	}
	if !exists {
		return errors.ErrInvalidCategory
	}
	return nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}
