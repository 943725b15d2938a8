// Command migrate applies, rolls back or reports the postgres schema version
// without starting the API.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"tasktracker/repository/db"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	_ = godotenv.Load()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		logger.Fatal("ошибка миграции", zap.Error(err))
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(out)
	dsn := fs.String("dsn", os.Getenv("DB_STR"), "строка подключения к БД")
	path := fs.String("path", os.Getenv("MIGRATE_PATH"), "путь к папке с миграциями (пусто - встроенные)")
	steps := fs.Int("steps", 1, "количество шагов отката для down")
	if err := fs.Parse(args); err != nil {
		return err
	}

	command := "up"
	if fs.NArg() > 0 {
		command = fs.Arg(0)
	}

	switch command {
	case "up":
		return db.Migration(*dsn, *path)
	case "down":
		return db.MigrateDown(*dsn, *path, *steps)
	case "version":
		version, dirty, err := db.MigrationVersion(*dsn, *path)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "version=%d dirty=%t\n", version, dirty)
		return err
	default:
		return fmt.Errorf("неизвестная команда %q: ожидается up, down или version", command)
	}
}
