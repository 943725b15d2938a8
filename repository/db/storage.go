package db

import (
	"context"
	"strings"
	"time"

	"tasktracker/internal/domain/errors"
	"tasktracker/internal/domain/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	queryTimeout = 15 * time.Second

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type Storage struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	now    func() time.Time
}

func NewStorage(ctx context.Context, connStr string) (*Storage, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		zap.L().Error("не удалось подключиться к базе данных", zap.Error(err))
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		zap.L().Error("база данных не отвечает", zap.Error(err))
		return nil, err
	}

	zap.L().Info("соединение с базой данных установлено")
	return &Storage{pool: pool, logger: zap.L().Named("postgres"), now: time.Now}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const userColumns = `id, username, email, password, first_name, last_name, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.Password,
		&user.FirstName, &user.LastName, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := s.now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		user.ID, user.Username, user.Email, user.Password, user.FirstName, user.LastName, now)
	if err != nil {
		if isCode(err, pgUniqueViolation) {
			return errors.ErrUserAlreadyExists
		}
		s.logger.Error("не удалось создать пользователя", zap.Error(err))
		return err
	}
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetUserByLogin matches either the username or the email, ignoring case.
func (s *Storage) GetUserByLogin(ctx context.Context, login string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1) OR lower(email) = lower($1) LIMIT 1`, login))
}

func (s *Storage) UpdateUser(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var st statement
	var sets []string
	add := func(column string, v *string) {
		if v != nil {
			sets = append(sets, column+" = "+st.arg(*v))
		}
	}
	add("username", patch.Username)
	add("email", patch.Email)
	add("password", patch.Password)
	add("first_name", patch.FirstName)
	add("last_name", patch.LastName)
	sets = append(sets, "updated_at = "+st.arg(s.now().UTC()))

	sql := `UPDATE users SET ` + strings.Join(sets, ", ") +
		` WHERE id = ` + st.arg(id) + ` RETURNING ` + userColumns
	user, err := scanUser(s.pool.QueryRow(ctx, sql, st.args...))
	if err != nil {
		if isCode(err, pgUniqueViolation) {
			return nil, errors.ErrUserAlreadyExists
		}
		return nil, err
	}
	return user, nil
}

// DeleteUser relies on ON DELETE CASCADE to remove the user's tasks.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ct, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (models.Task, error) {
	var (
		task     models.Task
		priority string
	)
	err := row.Scan(&task.ID, &task.UserID, &task.Title, &task.Description, &task.Completed,
		&priority, &task.DueDate, &task.CategoryID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return models.Task{}, err
	}
	task.Priority = models.Priority(priority)
	if task.DueDate != nil {
		due := task.DueDate.UTC()
		task.DueDate = &due
	}
	task.CreatedAt = task.CreatedAt.UTC()
	task.UpdatedAt = task.UpdatedAt.UTC()
	return task, nil
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	if task.UserID == "" {
		return errors.ErrUnscopedQuery
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := s.now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (user_id, title, description, completed, priority, due_date, category_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`,
		task.UserID, task.Title, task.Description, task.Completed, string(task.Priority),
		task.DueDate, task.CategoryID, now).Scan(&task.ID)
	if err != nil {
		if isCode(err, pgForeignKeyViolation) {
			return errors.ErrInvalidCategory
		}
		s.logger.Error("не удалось создать задачу", zap.Error(err))
		return err
	}
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

func (s *Storage) FindTasks(ctx context.Context, q models.TaskQuery) ([]models.Task, error) {
	sql, args, err := selectTasksSQL(q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		s.logger.Error("не удалось получить задачи", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (s *Storage) CountTasks(ctx context.Context, q models.TaskQuery) (int64, error) {
	sql, args, err := countTasksSQL(q)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int64
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Storage) CountTasksByPriority(ctx context.Context, q models.TaskQuery) (map[models.Priority]int64, error) {
	sql, args, err := countByPrioritySQL(q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Priority]int64)
	for rows.Next() {
		var (
			priority string
			n        int64
		)
		if err := rows.Scan(&priority, &n); err != nil {
			return nil, err
		}
		counts[models.Priority(priority)] = n
	}
	return counts, rows.Err()
}

func (s *Storage) CountTasksByCategory(ctx context.Context, ownerID string) (map[int64]int64, error) {
	if ownerID == "" {
		return nil, errors.ErrUnscopedQuery
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT category_id, COUNT(*) FROM tasks WHERE user_id = $1 AND category_id IS NOT NULL GROUP BY category_id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var id, n int64
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

func (s *Storage) UpdateTasks(ctx context.Context, q models.TaskQuery, patch models.TaskPatch) (int64, error) {
	sql, args, err := updateTasksSQL(q, patch, s.now().UTC())
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ct, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		if isCode(err, pgForeignKeyViolation) {
			return 0, errors.ErrInvalidCategory
		}
		s.logger.Error("не удалось обновить задачи", zap.Error(err))
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (s *Storage) DeleteTasks(ctx context.Context, q models.TaskQuery) (int64, error) {
	sql, args, err := deleteTasksSQL(q)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ct, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		s.logger.Error("не удалось удалить задачи", zap.Error(err))
		return 0, err
	}
	return ct.RowsAffected(), nil
}

const categoryColumns = `id, name, color, created_at, updated_at`

func scanCategory(row pgx.Row) (*models.Category, error) {
	category := &models.Category{}
	if err := row.Scan(&category.ID, &category.Name, &category.Color, &category.CreatedAt, &category.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrCategoryNotFound
		}
		return nil, err
	}
	category.CreatedAt = category.CreatedAt.UTC()
	category.UpdatedAt = category.UpdatedAt.UTC()
	return category, nil
}

func (s *Storage) ListCategories(ctx context.Context) ([]models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY name COLLATE "C", id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *category)
	}
	return categories, rows.Err()
}

func (s *Storage) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	return scanCategory(s.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
}

func (s *Storage) CategoryExists(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (s *Storage) CreateCategory(ctx context.Context, category *models.Category) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := s.now().UTC()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO categories (name, color, created_at, updated_at) VALUES ($1, $2, $3, $3) RETURNING id`,
		category.Name, category.Color, now).Scan(&category.ID)
	if err != nil {
		if isCode(err, pgUniqueViolation) {
			return errors.ErrCategoryExists
		}
		return err
	}
	category.CreatedAt = now
	category.UpdatedAt = now
	return nil
}

func (s *Storage) UpdateCategory(ctx context.Context, id int64, patch models.CategoryPatch) (*models.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var st statement
	var sets []string
	if patch.Name.Value != nil {
		sets = append(sets, "name = "+st.arg(*patch.Name.Value))
	}
	if patch.Color.Set {
		sets = append(sets, "color = "+st.arg(patch.Color.Value))
	}
	sets = append(sets, "updated_at = "+st.arg(s.now().UTC()))

	sql := `UPDATE categories SET ` + strings.Join(sets, ", ") +
		` WHERE id = ` + st.arg(id) + ` RETURNING ` + categoryColumns
	category, err := scanCategory(s.pool.QueryRow(ctx, sql, st.args...))
	if err != nil {
		if isCode(err, pgUniqueViolation) {
			return nil, errors.ErrCategoryExists
		}
		return nil, err
	}
	return category, nil
}

// DeleteCategory detaches referencing tasks and removes the category in one
// transaction, returning how many tasks were detached.
func (s *Storage) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	detached, err := tx.Exec(ctx,
		`UPDATE tasks SET category_id = NULL, updated_at = GREATEST($2::timestamptz, created_at) WHERE category_id = $1`,
		id, s.now().UTC())
	if err != nil {
		return 0, err
	}
	deleted, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	if deleted.RowsAffected() == 0 {
		return 0, errors.ErrCategoryNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	s.logger.Info("категория удалена", zap.Int64("id", id), zap.Int64("detached", detached.RowsAffected()))
	return detached.RowsAffected(), nil
}

func isCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
