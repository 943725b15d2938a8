// Package sqlite is a single-file task store built on gorm, for local runs
// and small deployments where Postgres is not available.
package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const priorityRank = "CASE priority WHEN 'LOW' THEN 1 WHEN 'MEDIUM' THEN 2 WHEN 'HIGH' THEN 3 WHEN 'URGENT' THEN 4 ELSE 0 END"

var sortColumns = map[models.SortField]string{
	models.SortByCreatedAt: "created_at",
	models.SortByUpdatedAt: "updated_at",
	models.SortByTitle:     "title",
	models.SortByDueDate:   "due_date",
	models.SortByPriority:  priorityRank,
}

type Storage struct {
	db  *gorm.DB
	now func() time.Time
}

type Option func(*Storage)

func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

// zapWriter routes gorm's logger through zap.
type zapWriter struct {
	sugar *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...interface{}) {
	w.sugar.Warnf(format, args...)
}

// NewStorage opens (or creates) the database at path and migrates the schema.
func NewStorage(path string, opts ...Option) (*Storage, error) {
	if path == "" {
		path = "tasks.db"
	}
	if err := ensureDirForSQLite(path); err != nil {
		return nil, err
	}

	s := &Storage{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	dbLogger := logger.New(
		zapWriter{sugar: zap.L().Named("sqlite").Sugar()},
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         dbLogger,
		NowFunc:        func() time.Time { return s.now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite serializes writers anyway; one connection also keeps :memory: a single database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&userRecord{}, &categoryRecord{}, &taskRecord{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	s.db = db
	return s, nil
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	now := s.now().UTC()
	rec := userRecord{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Password:  user.Password,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := loginTaken(tx, user.Username, user.Email, "")
		if err != nil {
			return err
		}
		if taken {
			return errors.ErrUserAlreadyExists
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.ErrUserAlreadyExists
		}
		return err
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var rec userRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return rec.toModel(), nil
}

func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	var rec userRecord
	err := s.db.WithContext(ctx).
		Where("lower(username) = lower(?) OR lower(email) = lower(?)", login, login).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return rec.toModel(), nil
}

func (s *Storage) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	updates := map[string]any{"updated_at": s.now().UTC()}
	set := func(column string, v *string) {
		if v != nil {
			updates[column] = *v
		}
	}
	set("username", patch.Username)
	set("email", patch.Email)
	set("password", patch.Password)
	set("first_name", patch.FirstName)
	set("last_name", patch.LastName)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := loginTaken(tx, deref(patch.Username), deref(patch.Email), id)
		if err != nil {
			return err
		}
		if taken {
			return errors.ErrUserAlreadyExists
		}
		res := tx.Model(&userRecord{ID: id}).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.ErrUserNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.ErrUserAlreadyExists
		}
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

// loginTaken reports whether another user already holds username or email, ignoring case.
func loginTaken(tx *gorm.DB, username, email, exceptID string) (bool, error) {
	if username == "" && email == "" {
		return false, nil
	}
	var n int64
	err := tx.Model(&userRecord{}).
		Where("id <> ?", exceptID).
		Where(tx.Where("? <> '' AND lower(username) = lower(?)", username, username).
			Or("? <> '' AND lower(email) = lower(?)", email, email)).
		Count(&n).Error
	return n > 0, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&taskRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&userRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.ErrUserNotFound
		}
		return nil
	})
}

func (s *Storage) tasks(ctx context.Context, q models.TaskQuery) (*gorm.DB, error) {
	return scopeTasks(s.db.WithContext(ctx), q)
}

// scopeTasks applies the predicate of q to a tasks query. Queries without an
// owner never reach the database.
func scopeTasks(db *gorm.DB, q models.TaskQuery) (*gorm.DB, error) {
	if q.OwnerID == "" {
		return nil, errors.ErrUnscopedQuery
	}
	tx := db.Model(&taskRecord{}).Where("user_id = ?", q.OwnerID)
	if len(q.IDs) > 0 {
		tx = tx.Where("id IN ?", q.IDs)
	}
	if q.Completed != nil {
		tx = tx.Where("completed = ?", *q.Completed)
	}
	if q.Priority != nil {
		tx = tx.Where("priority = ?", string(*q.Priority))
	}
	if q.CategoryID != nil {
		tx = tx.Where("category_id = ?", *q.CategoryID)
	}
	if q.Search != "" {
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		tx = tx.Where(`(lower(title) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if q.DueBefore != nil {
		tx = tx.Where("due_date < ?", q.DueBefore.UTC())
	}
	if q.DueFrom != nil {
		tx = tx.Where("due_date >= ?", q.DueFrom.UTC())
	}
	if q.DueTo != nil {
		tx = tx.Where("due_date < ?", q.DueTo.UTC())
	}
	if q.CreatedSince != nil {
		tx = tx.Where("created_at >= ?", q.CreatedSince.UTC())
	}
	return tx, nil
}

func (s *Storage) categoryExists(tx *gorm.DB, id int64) (bool, error) {
	var n int64
	if err := tx.Model(&categoryRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	if task.UserID == "" {
		return errors.ErrUnscopedQuery
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if task.CategoryID != nil {
			exists, err := s.categoryExists(tx, *task.CategoryID)
			if err != nil {
				return err
			}
			if !exists {
				return errors.ErrInvalidCategory
			}
		}
		now := s.now().UTC()
		rec := newTaskRecord(task)
		rec.CreatedAt = now
		rec.UpdatedAt = now
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("create task: %w", err)
		}
		task.ID = rec.ID
		task.CreatedAt = now
		task.UpdatedAt = now
		return nil
	})
}

func (s *Storage) FindTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, error) {
	tx, err := s.tasks(ctx, q)
	if err != nil {
		return nil, err
	}
	column, ok := sortColumns[q.SortBy]
	if !ok {
		column = sortColumns[models.SortByCreatedAt]
	}
	dir := " ASC"
	if q.Descending() {
		dir = " DESC"
	}
	if q.SortBy == models.SortByDueDate {
		tx = tx.Order("due_date IS NULL")
	}
	tx = tx.Order(column + dir).Order("id" + dir)
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var recs []taskRecord
	if err := tx.Find(&recs).Error; err != nil {
		return nil, err
	}
	tasks := make([]models.Task, 0, len(recs))
	for _, rec := range recs {
		tasks = append(tasks, rec.toModel())
	}
	return tasks, nil
}

func (s *Storage) CountTasks(ctx context.Context, q models.TaskQuery) (int64, error) {
	tx, err := s.tasks(ctx, q)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := tx.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Storage) CountTasksByPriority(ctx context.Context, q models.TaskQuery) (map[models.Priority]int64, error) {
	tx, err := s.tasks(ctx, q)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		Priority string
		N        int64
	}
	if err := tx.Select("priority, COUNT(*) AS n").Group("priority").Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[models.Priority]int64, len(rows))
	for _, row := range rows {
		counts[models.Priority(row.Priority)] = row.N
	}
	return counts, nil
}

func (s *Storage) CountTasksByCategory(ctx context.Context, ownerID string) (map[int64]int64, error) {
	if ownerID == "" {
		return nil, errors.ErrUnscopedQuery
	}
	var rows []struct {
		CategoryID int64
		N          int64
	}
	err := s.db.WithContext(ctx).Model(&taskRecord{}).
		Select("category_id, COUNT(*) AS n").
		Where("user_id = ? AND category_id IS NOT NULL", ownerID).
		Group("category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[int64]int64, len(rows))
	for _, row := range rows {
		counts[row.CategoryID] = row.N
	}
	return counts, nil
}

func (s *Storage) UpdateTasks(ctx context.Context, q models.TaskQuery, patch models.TaskPatch) (int64, error) {
	if patch.IsEmpty() {
		return 0, errors.ErrEmptyUpdate
	}
	if q.OwnerID == "" {
		return 0, errors.ErrUnscopedQuery
	}

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if patch.CategoryID.Value != nil {
			exists, err := s.categoryExists(tx, *patch.CategoryID.Value)
			if err != nil {
				return err
			}
			if !exists {
				return errors.ErrInvalidCategory
			}
		}

		scoped, err := scopeTasks(tx, q)
		if err != nil {
			return err
		}
		res := scoped.Updates(taskUpdates(patch, s.now().UTC()))
		if res.Error != nil {
			return res.Error
		}
		affected = res.RowsAffected
		return nil
	})
	return affected, err
}

func taskUpdates(patch models.TaskPatch, now time.Time) map[string]any {
	updates := map[string]any{
		"updated_at": gorm.Expr("max(?, created_at)", now),
	}
	if patch.Title.Value != nil {
		updates["title"] = *patch.Title.Value
	}
	if patch.Description.Set {
		updates["description"] = patch.Description.Value
	}
	if patch.Completed.Value != nil {
		updates["completed"] = *patch.Completed.Value
	}
	if patch.Priority.Value != nil {
		updates["priority"] = string(*patch.Priority.Value)
	}
	if patch.DueDate.Set {
		updates["due_date"] = patch.DueDate.Value
	}
	if patch.CategoryID.Set {
		updates["category_id"] = patch.CategoryID.Value
	}
	return updates
}

func (s *Storage) DeleteTasks(ctx context.Context, q models.TaskQuery) (int64, error) {
	tx, err := s.tasks(ctx, q)
	if err != nil {
		return 0, err
	}
	res := tx.Delete(&taskRecord{})
	return res.RowsAffected, res.Error
}

func (s *Storage) ListCategories(ctx context.Context) ([]models.Category, error) {
	var recs []categoryRecord
	if err := s.db.WithContext(ctx).Order("name").Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	categories := make([]models.Category, 0, len(recs))
	for _, rec := range recs {
		categories = append(categories, rec.toModel())
	}
	return categories, nil
}

func (s *Storage) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var rec categoryRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrCategoryNotFound
		}
		return nil, err
	}
	category := rec.toModel()
	return &category, nil
}

func (s *Storage) CategoryExists(ctx context.Context, id int64) (bool, error) {
	return s.categoryExists(s.db.WithContext(ctx), id)
}

func (s *Storage) CreateCategory(ctx context.Context, category *models.Category) error {
	now := s.now().UTC()
	rec := categoryRecord{Name: category.Name, Color: category.Color, CreatedAt: now, UpdatedAt: now}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errors.ErrCategoryExists
		}
		return fmt.Errorf("create category: %w", err)
	}
	category.ID = rec.ID
	category.CreatedAt = now
	category.UpdatedAt = now
	return nil
}

func (s *Storage) UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error) {
	updates := map[string]any{"updated_at": s.now().UTC()}
	if patch.Name.Value != nil {
		updates["name"] = *patch.Name.Value
	}
	if patch.Color.Set {
		updates["color"] = patch.Color.Value
	}

	res := s.db.WithContext(ctx).Model(&categoryRecord{ID: id}).Updates(updates)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, errors.ErrCategoryExists
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, errors.ErrCategoryNotFound
	}
	return s.GetCategory(ctx, id)
}

func (s *Storage) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	var detached int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&taskRecord{}).Where("category_id = ?", id).Updates(map[string]any{
			"category_id": nil,
			"updated_at":  gorm.Expr("max(?, created_at)", s.now().UTC()),
		})
		if res.Error != nil {
			return res.Error
		}
		detached = res.RowsAffected

		res = tx.Where("id = ?", id).Delete(&categoryRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errors.ErrCategoryNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return detached, nil
}

func escapeLike(v string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(v)
}
