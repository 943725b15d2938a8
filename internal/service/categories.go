package service

import (
	"context"
	"strings"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"
)

// CategoryService manages the global category list. Deleting a category
// detaches it from every task that referenced it rather than leaving dangling ids.
type CategoryService struct {
	categories CategoryStore
	tasks      TaskStore
}

func NewCategoryService(categories CategoryStore, tasks TaskStore) *CategoryService {
	return &CategoryService{categories: categories, tasks: tasks}
}

// List returns every category with the number of the caller's tasks in it.
func (s *CategoryService) List(ctx context.Context, identity models.Identity) ([]models.CategorySummary, error) {
	if _, err := scope(identity); err != nil {
		return nil, err
	}
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, errors.Storage(err)
	}
	counts, err := s.tasks.CountTasksByCategory(ctx, identity.UserID)
	if err != nil {
		return nil, errors.Storage(err)
	}

	summaries := make([]models.CategorySummary, 0, len(categories))
	for _, category := range categories {
		summaries = append(summaries, models.CategorySummary{
			Category:  category,
			TaskCount: counts[category.ID],
		})
	}
	return summaries, nil
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*models.Category, error) {
	if id <= 0 {
		return nil, errors.ErrCategoryNotFound
	}
	category, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return nil, errors.Storage(err)
	}
	return category, nil
}

func (s *CategoryService) Create(ctx context.Context, req models.CreateCategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.ErrInvalidName
	}
	category := models.Category{Name: name, Color: normalizeColor(req.Color)}
	if err := s.categories.CreateCategory(ctx, &category); err != nil {
		return nil, errors.Storage(err)
	}
	return &category, nil
}

func (s *CategoryService) Update(ctx context.Context, id int64, req models.UpdateCategoryRequest) (*models.Category, error) {
	if id <= 0 {
		return nil, errors.ErrCategoryNotFound
	}
	patch := models.CategoryPatch{Color: req.Color}
	if req.Name.Set {
		if req.Name.Value == nil {
			return nil, errors.ErrInvalidName
		}
		name := strings.TrimSpace(*req.Name.Value)
		if name == "" {
			return nil, errors.ErrInvalidName
		}
		patch.Name = models.Some(name)
	}
	if req.Color.Value != nil {
		patch.Color = models.Some(*normalizeColor(req.Color.Value))
	}
	if patch.IsEmpty() {
		return s.Get(ctx, id)
	}

	category, err := s.categories.UpdateCategory(ctx, id, patch)
	if err != nil {
		return nil, errors.Storage(err)
	}
	return category, nil
}

// Delete removes the category and returns how many tasks were detached from it.
func (s *CategoryService) Delete(ctx context.Context, id int64) (int64, error) {
	if id <= 0 {
		return 0, errors.ErrCategoryNotFound
	}
	detached, err := s.categories.DeleteCategory(ctx, id)
	if err != nil {
		return 0, errors.Storage(err)
	}
	return detached, nil
}

func normalizeColor(color *string) *string {
	if color == nil {
		return nil
	}
	c := strings.ToUpper(strings.TrimSpace(*color))
	return &c
}
