package db

import (
	"embed"
	"fmt"

	"tasktracker/internal/domain/errors"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// newMigrate opens a migrator over migratePath, or over the embedded
// migrations when migratePath is empty.
func newMigrate(dsn, migratePath string) (*migrate.Migrate, error) {
	if dsn == "" {
		return nil, errors.New("пустая строка подключения к базе данных")
	}
	if migratePath != "" {
		return migrate.New("file://"+migratePath, dsn)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	return migrate.NewWithSourceInstance("iofs", src, dsn)
}

func closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		zap.L().Warn("ошибка при закрытии мигратора", zap.NamedError("source", srcErr), zap.NamedError("database", dbErr))
	}
}

// Migration applies every pending up migration. An already current schema is not an error.
func Migration(dsn, migratePath string) error {
	m, err := newMigrate(dsn, migratePath)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать миграции: %w", err)
	}
	defer closeMigrate(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("не удалось применить миграции: %w", err)
	}
	version, dirty, _ := m.Version()
	zap.L().Info("миграции применены", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// MigrateDown rolls back the given number of migrations, or all of them when steps <= 0.
func MigrateDown(dsn, migratePath string, steps int) error {
	m, err := newMigrate(dsn, migratePath)
	if err != nil {
		return fmt.Errorf("не удалось инициализировать миграции: %w", err)
	}
	defer closeMigrate(m)

	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("не удалось откатить миграции: %w", err)
	}
	return nil
}

func MigrationVersion(dsn, migratePath string) (uint, bool, error) {
	m, err := newMigrate(dsn, migratePath)
	if err != nil {
		return 0, false, fmt.Errorf("не удалось инициализировать миграции: %w", err)
	}
	defer closeMigrate(m)

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
