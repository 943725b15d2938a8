package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tasktracker/internal/auth"
	"tasktracker/internal/server"
	"tasktracker/internal/service"
	"tasktracker/internal/translator"
	"tasktracker/repository/db"
	"tasktracker/repository/inmemory"
	"tasktracker/repository/sqlite"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Runner is the part of the API that main drives.
type Runner interface {
	Start() error
	Shutdown(ctx context.Context) error
}

func main() {
	cfg, err := server.ReadConfig(os.Args[1:])
	logger := NewLogger(logLevel(cfg))
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if err != nil {
		logger.Fatal("некорректная конфигурация", zap.Error(err))
	}
	logger.Info("Запуск сервиса задач...", zap.String("version", cfg.Version), zap.String("storage", cfg.Storage))

	store, closeStore := InitializeStorage(context.Background(), cfg, logger)
	defer closeStore()

	tr, err := translator.New(cfg.DefaultLang)
	if err != nil {
		logger.Fatal("не удалось загрузить переводы", zap.Error(err))
	}

	tokens := auth.NewTokens(cfg.JWTSecret, time.Duration(cfg.TokenTTL))
	api := server.NewTaskAPI(cfg, server.Deps{
		Tasks:      service.NewTaskService(store, store),
		Categories: service.NewCategoryService(store, store),
		Accounts:   service.NewAccountService(store, auth.NewBcryptHasher(cfg.BcryptCost), tokens),
		Identities: tokens,
		Health:     store,
		Translator: tr,
		Logger:     logger,
	})
	if api == nil {
		logger.Fatal("не удалось инициализировать API")
	}

	sigChan, serverErr := StartServer(api, cfg, logger)

	select {
	case sig := <-sigChan:
		logger.Info("получен сигнал, начинаем graceful shutdown", zap.String("signal", sig.String()))
		if err := HandleShutdown(api, time.Duration(cfg.ShutdownTimeout)); err != nil {
			logger.Error("ошибка при graceful shutdown", zap.Error(err))
		} else {
			logger.Info("graceful shutdown выполнен успешно")
		}
	case err := <-serverErr:
		logger.Error("ошибка сервера", zap.Error(err))
	}

	logger.Info("Сервис завершен")
}

func logLevel(cfg *server.Config) string {
	if cfg == nil {
		return "info"
	}
	return cfg.LogLevel
}

// NewLogger builds a production JSON logger. Unknown levels fall back to info.
func NewLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewExample()
	}
	return logger
}

// InitializeStorage opens the configured backend. A postgres backend that
// cannot be migrated or reached degrades to the in-memory store so the
// service still comes up.
func InitializeStorage(ctx context.Context, cfg *server.Config, logger *zap.Logger) (service.Store, func()) {
	switch cfg.Storage {
	case server.StorageSQLite:
		storage, err := sqlite.NewStorage(cfg.SQLitePath)
		if err != nil {
			logger.Warn("не удалось открыть SQLite, используем память", zap.String("path", cfg.SQLitePath), zap.Error(err))
			return inmemory.NewStorage(), func() {}
		}
		return storage, func() {
			if err := storage.Close(); err != nil {
				logger.Warn("ошибка закрытия SQLite", zap.Error(err))
			}
		}
	case server.StoragePostgres:
		if err := db.Migration(cfg.DBStr, cfg.MigratePath); err != nil {
			logger.Warn("не удалось применить миграции, используем память", zap.Error(err))
			return inmemory.NewStorage(), func() {}
		}
		storage, err := db.NewStorage(ctx, cfg.DBStr)
		if err != nil {
			logger.Warn("не удалось подключиться к БД, используем память", zap.Error(err))
			return inmemory.NewStorage(), func() {}
		}
		return storage, storage.Close
	default:
		return inmemory.NewStorage(), func() {}
	}
}

// StartServer runs api in the background. The returned channels deliver the
// shutdown signal and any error that stopped the listener.
func StartServer(api Runner, cfg *server.Config, logger *zap.Logger) (chan os.Signal, chan error) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Сервис запущен", zap.String("addr", cfg.ListenAddr()))
		if err := api.Start(); err != nil {
			serverErr <- err
		}
	}()
	return sigChan, serverErr
}

func HandleShutdown(api Runner, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return api.Shutdown(ctx)
}
