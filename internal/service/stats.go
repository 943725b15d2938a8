package service

import (
	"context"
	"math"
	"time"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"
)

// Stats aggregates the caller's tasks. The counts come from separate store
// calls with no surrounding transaction, so a concurrent write can land
// between them and the figures may disagree slightly.
func (s *TaskService) Stats(ctx context.Context, identity models.Identity) (*models.TaskStats, error) {
	q, err := scope(identity)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	stats := &models.TaskStats{}
	counts := []struct {
		dst   *int64
		query models.TaskQuery
	}{
		{&stats.TotalTasks, q},
		{&stats.CompletedTasks, q.WithCompleted(true)},
		{&stats.OverdueTasks, q.WithCompleted(false).WithDueBefore(now)},
		{&stats.TasksDueToday, q.WithCompleted(false).WithDueBetween(startOfDay, startOfDay.AddDate(0, 0, 1))},
		{&stats.RecentTasks, q.WithCreatedSince(now.Add(-recentWindow))},
	}
	for _, c := range counts {
		n, err := s.tasks.CountTasks(ctx, c.query)
		if err != nil {
			return nil, errors.Storage(err)
		}
		*c.dst = n
	}

	byPriority, err := s.tasks.CountTasksByPriority(ctx, q)
	if err != nil {
		return nil, errors.Storage(err)
	}
	stats.PriorityBreakdown = make(map[models.Priority]int64, len(byPriority))
	for priority, n := range byPriority {
		if n > 0 {
			stats.PriorityBreakdown[priority] = n
		}
	}

	stats.PendingTasks = stats.TotalTasks - stats.CompletedTasks
	stats.CompletionRate = completionRate(stats.CompletedTasks, stats.TotalTasks)
	return stats, nil
}

func completionRate(completed, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}
