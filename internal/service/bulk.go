package service

import (
	"context"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"
)

// BulkUpdate applies one mutation to every id as an all-or-nothing batch: if
// any id is missing or belongs to someone else, nothing is written and the
// call fails with ErrForbidden.
func (s *TaskService) BulkUpdate(ctx context.Context, identity models.Identity, req models.BulkUpdateRequest) (*models.BulkUpdateResult, error) {
	q, err := scope(identity)
	if err != nil {
		return nil, err
	}
	ids, err := normalizeIDs(req.TaskIDs)
	if err != nil {
		return nil, err
	}
	patch := req.Updates.Patch()
	if patch.IsEmpty() {
		return nil, errors.ErrEmptyUpdate
	}
	if patch.Completed.IsNull() {
		return nil, errors.ErrValidationFailed
	}
	if patch.Priority.Set && (patch.Priority.Value == nil || !patch.Priority.Value.Valid()) {
		return nil, errors.ErrInvalidPriority
	}

	q = q.WithIDs(ids...)
	owned, err := s.tasks.FindTasks(ctx, q)
	if err != nil {
		return nil, errors.Storage(err)
	}
	if len(owned) != len(ids) {
		return nil, errors.ErrForbidden
	}
	if err := ensureCategory(ctx, s.categories, patch.CategoryID.Value); err != nil {
		return nil, err
	}

	affected, err := s.tasks.UpdateTasks(ctx, q, patch)
	if err != nil {
		return nil, errors.Storage(err)
	}
	refreshed, err := s.tasks.FindTasks(ctx, q)
	if err != nil {
		return nil, errors.Storage(err)
	}
	return &models.BulkUpdateResult{UpdatedCount: affected, Tasks: refreshed}, nil
}

// BulkDelete removes whichever of the ids the caller owns and reports them.
// Unlike BulkUpdate it succeeds on a partial match; only an empty match is an error.
func (s *TaskService) BulkDelete(ctx context.Context, identity models.Identity, req models.BulkDeleteRequest) (*models.BulkDeleteResult, error) {
	q, err := scope(identity)
	if err != nil {
		return nil, err
	}
	ids, err := normalizeIDs(req.TaskIDs)
	if err != nil {
		return nil, err
	}

	owned, err := s.tasks.FindTasks(ctx, q.WithIDs(ids...))
	if err != nil {
		return nil, errors.Storage(err)
	}
	if len(owned) == 0 {
		return nil, errors.ErrTaskNotFound
	}

	ownedIDs := make([]int64, 0, len(owned))
	for _, task := range owned {
		ownedIDs = append(ownedIDs, task.ID)
	}
	affected, err := s.tasks.DeleteTasks(ctx, q.WithIDs(ownedIDs...))
	if err != nil {
		return nil, errors.Storage(err)
	}
	return &models.BulkDeleteResult{
		DeletedCount: affected,
		DeletedIDs:   ownedIDs,
		DeletedTasks: owned,
	}, nil
}

// normalizeIDs de-duplicates ids, keeping first-seen order, and checks the batch bounds.
func normalizeIDs(ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, errors.ErrBatchEmpty
	}
	seen := make(map[int64]struct{}, len(ids))
	unique := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return nil, errors.ErrInvalidTaskID
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) > MaxBatchSize {
		return nil, errors.ErrBatchTooLarge
	}
	return unique, nil
}
