package sqlite

import (
	"time"

	"tasktracker/internal/domain/models"
)

type userRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	Username  string `gorm:"size:30;not null;uniqueIndex"`
	Email     string `gorm:"size:254;not null;uniqueIndex"`
	Password  string `gorm:"not null"`
	FirstName string `gorm:"size:50"`
	LastName  string `gorm:"size:50"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRecord) TableName() string { return "users" }

type categoryRecord struct {
	ID        int64   `gorm:"primaryKey"`
	Name      string  `gorm:"size:50;not null;uniqueIndex"`
	Color     *string `gorm:"size:7"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (categoryRecord) TableName() string { return "categories" }

type taskRecord struct {
	ID          int64      `gorm:"primaryKey"`
	UserID      string     `gorm:"size:36;not null;index:idx_tasks_user_created,priority:1"`
	Title       string     `gorm:"size:200;not null"`
	Description *string    `gorm:"size:1000"`
	Completed   bool       `gorm:"not null"`
	Priority    string     `gorm:"size:10;not null"`
	DueDate     *time.Time `gorm:"index"`
	CategoryID  *int64     `gorm:"index"`
	CreatedAt   time.Time  `gorm:"index:idx_tasks_user_created,priority:2"`
	UpdatedAt   time.Time
}

func (taskRecord) TableName() string { return "tasks" }

func (r userRecord) toModel() *models.User {
	return &models.User{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (r categoryRecord) toModel() models.Category {
	return models.Category{
		ID:        r.ID,
		Name:      r.Name,
		Color:     r.Color,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (r taskRecord) toModel() models.Task {
	task := models.Task{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Description: r.Description,
		Completed:   r.Completed,
		Priority:    models.Priority(r.Priority),
		CategoryID:  r.CategoryID,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
	if r.DueDate != nil {
		due := r.DueDate.UTC()
		task.DueDate = &due
	}
	return task
}

func newTaskRecord(t *models.Task) taskRecord {
	return taskRecord{
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CategoryID:  t.CategoryID,
	}
}
