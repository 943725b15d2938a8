package models

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Priorities lists every priority in ascending order of urgency.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities LOW < MEDIUM < HIGH < URGENT; unknown values rank 0.
func (p Priority) Rank() int {
	for i, known := range Priorities {
		if p == known {
			return i + 1
		}
	}
	return 0
}

// NormalizePriority trims and upper-cases raw input without checking membership.
func NormalizePriority(raw string) Priority {
	return Priority(strings.ToUpper(strings.TrimSpace(raw)))
}

// Identity is the authenticated principal every task operation is scoped to.
type Identity struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FirstName string    `json:"firstName,omitempty"`
	LastName  string    `json:"lastName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Email: u.Email, Username: u.Username}
}

type Task struct {
	ID          int64      `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Completed   bool       `json:"completed"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	CategoryID  *int64     `json:"categoryId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Color     *string   `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CategorySummary struct {
	Category
	TaskCount int64 `json:"taskCount"`
}

type CategoryPatch struct {
	Name  Optional[string]
	Color Optional[string]
}

func (p CategoryPatch) IsEmpty() bool {
	return !p.Name.Set && !p.Color.Set
}

func (p CategoryPatch) Apply(c *Category) {
	if p.Name.Set && p.Name.Value != nil {
		c.Name = *p.Name.Value
	}
	if p.Color.Set {
		c.Color = p.Color.Clone()
	}
}

type UserPatch struct {
	Username  *string
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
}

func (p UserPatch) IsEmpty() bool {
	return p.Username == nil && p.Email == nil && p.Password == nil && p.FirstName == nil && p.LastName == nil
}

func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Password != nil {
		u.Password = *p.Password
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username" validate:"omitempty,min=3,max=30"`
	Password string `json:"password" validate:"required,min=6"`
}

// Login returns whichever identifier the client supplied, email first.
func (r LoginRequest) Login() string {
	if r.Email != "" {
		return strings.ToLower(strings.TrimSpace(r.Email))
	}
	return strings.ToLower(strings.TrimSpace(r.Username))
}

type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=100"`
	FirstName string `json:"firstName" validate:"omitempty,min=2,max=50"`
	LastName  string `json:"lastName" validate:"omitempty,min=2,max=50"`
}

type UpdateUserRequest struct {
	Username  string `json:"username" validate:"omitempty,min=3,max=30,alphanum"`
	Email     string `json:"email" validate:"omitempty,email"`
	Password  string `json:"password" validate:"omitempty,min=6,max=100"`
	FirstName string `json:"firstName" validate:"omitempty,min=2,max=50"`
	LastName  string `json:"lastName" validate:"omitempty,min=2,max=50"`
}

type CreateTaskRequest struct {
	Title       string    `json:"title" validate:"required,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=1000"`
	Completed   *bool     `json:"completed"`
	Priority    *Priority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	DueDate     *string   `json:"dueDate"`
	CategoryID  *int64    `json:"categoryId" validate:"omitempty,gt=0"`
}

// UpdateTaskRequest distinguishes absent fields from explicit nulls; null clears
// description, dueDate and categoryId and is rejected for the other fields.
type UpdateTaskRequest struct {
	Title       Optional[string]   `json:"title"`
	Description Optional[string]   `json:"description"`
	Completed   Optional[bool]     `json:"completed"`
	Priority    Optional[Priority] `json:"priority"`
	DueDate     Optional[string]   `json:"dueDate"`
	CategoryID  Optional[int64]    `json:"categoryId"`
}

type BulkTaskUpdates struct {
	Completed  Optional[bool]     `json:"completed"`
	Priority   Optional[Priority] `json:"priority"`
	CategoryID Optional[int64]    `json:"categoryId"`
}

func (u BulkTaskUpdates) Patch() TaskPatch {
	return TaskPatch{
		Completed:  u.Completed,
		Priority:   u.Priority,
		CategoryID: u.CategoryID,
	}
}

type BulkUpdateRequest struct {
	TaskIDs []int64         `json:"taskIds" validate:"required,dive,gt=0"`
	Updates BulkTaskUpdates `json:"updates"`
}

type BulkDeleteRequest struct {
	TaskIDs []int64 `json:"taskIds" validate:"required,dive,gt=0"`
}

type CreateCategoryRequest struct {
	Name  string  `json:"name" validate:"required,min=1,max=50"`
	Color *string `json:"color" validate:"omitempty,rgbcolor"`
}

type UpdateCategoryRequest struct {
	Name  Optional[string] `json:"name"`
	Color Optional[string] `json:"color"`
}

type BulkUpdateResult struct {
	UpdatedCount int64  `json:"updatedCount"`
	Tasks        []Task `json:"tasks"`
}

type BulkDeleteResult struct {
	DeletedCount int64   `json:"deletedCount"`
	DeletedIDs   []int64 `json:"deletedIds"`
	DeletedTasks []Task  `json:"deletedTasks"`
}

type TaskStats struct {
	TotalTasks        int64              `json:"totalTasks"`
	CompletedTasks    int64              `json:"completedTasks"`
	PendingTasks      int64              `json:"pendingTasks"`
	CompletionRate    int                `json:"completionRate"`
	PriorityBreakdown map[Priority]int64 `json:"priorityBreakdown"`
	OverdueTasks      int64              `json:"overdueTasks"`
	TasksDueToday     int64              `json:"tasksDueToday"`
	RecentTasks       int64              `json:"recentTasks"`
}

type ActivityAction string

const (
	ActionCreated ActivityAction = "created"
	ActionUpdated ActivityAction = "updated"
)

type ActivityEntry struct {
	TaskID    int64          `json:"taskId"`
	Action    ActivityAction `json:"action"`
	Title     string         `json:"title"`
	Completed bool           `json:"completed"`
	Priority  Priority       `json:"priority"`
	Timestamp time.Time      `json:"timestamp"`
}
