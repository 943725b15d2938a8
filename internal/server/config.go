package server

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tasktracker/internal/domain/errors"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageMemory   = "memory"
)

// Duration reads "15s"/"24h" style strings from JSON config files.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type Config struct {
	Addr            string   `json:"addr"`
	Port            int      `json:"port"`
	Storage         string   `json:"storage"`
	DBStr           string   `json:"db_str"`
	SQLitePath      string   `json:"sqlite_path"`
	MigratePath     string   `json:"migrate_path"`
	JWTSecret       string   `json:"jwt_secret"`
	TokenTTL        Duration `json:"token_ttl"`
	BcryptCost      int      `json:"bcrypt_cost"`
	SecureCookie    bool     `json:"secure_cookie"`
	LogLevel        string   `json:"log_level"`
	DefaultLang     string   `json:"default_lang"`
	ShutdownTimeout Duration `json:"shutdown_timeout"`
	GzipMinSize     int      `json:"gzip_min_size"`
	Version         string   `json:"version"`
}

const (
	defaultAddr            = "0.0.0.0"
	defaultPort            = 8080
	defaultStorage         = StoragePostgres
	defaultDBStr           = "postgresql://tasks:tasks@db:5432/tasks?sslmode=disable"
	defaultSQLitePath      = "data/tasks.db"
	defaultTokenTTL        = Duration(24 * time.Hour)
	defaultBcryptCost      = 12
	defaultLogLevel        = "info"
	defaultLang            = "ru"
	defaultShutdownTimeout = Duration(30 * time.Second)
	defaultGzipMinSize     = 1024
	defaultVersion         = "1.0.0"
)

func DefaultConfig() *Config {
	return &Config{
		Addr:            defaultAddr,
		Port:            defaultPort,
		Storage:         defaultStorage,
		DBStr:           defaultDBStr,
		SQLitePath:      defaultSQLitePath,
		TokenTTL:        defaultTokenTTL,
		BcryptCost:      defaultBcryptCost,
		LogLevel:        defaultLogLevel,
		DefaultLang:     defaultLang,
		ShutdownTimeout: defaultShutdownTimeout,
		GzipMinSize:     defaultGzipMinSize,
		Version:         defaultVersion,
	}
}

// ReadConfig layers defaults, the JSON file, the .env file, the environment
// and finally any flags that were set explicitly on the command line.
func ReadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("tasks", flag.ContinueOnError)
	var (
		addr        = fs.String("addr", defaultAddr, "адрес сервера")
		port        = fs.Int("port", defaultPort, "порт сервера")
		storage     = fs.String("storage", defaultStorage, "хранилище: postgres, sqlite или memory")
		dbstr       = fs.String("dbstr", defaultDBStr, "строка подключения к БД")
		dbDsn       = fs.String("dbdsn", "", "DSN для подключения к базе данных (приоритетнее dbstr)")
		sqlitePath  = fs.String("sqlitepath", defaultSQLitePath, "путь к файлу SQLite")
		migratePath = fs.String("migratepath", "", "путь к папке с миграциями (пусто - встроенные)")
		logLevel    = fs.String("loglevel", defaultLogLevel, "уровень логирования")
		configFile  = fs.String("c", "", "путь к файлу конфигурации JSON")
		envFile     = fs.String("env", ".env", "путь к .env файлу")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if jsonConfig := loadJSONConfig(*configFile); jsonConfig != nil {
		cfg = jsonConfig
	}

	loadDotEnv(*envFile)
	cfg = applyEnvOverrides(cfg)

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "port":
			cfg.Port = *port
		case "storage":
			cfg.Storage = *storage
		case "dbstr":
			if *dbDsn == "" {
				cfg.DBStr = *dbstr
			}
		case "dbdsn":
			cfg.DBStr = *dbDsn
		case "sqlitepath":
			cfg.SQLitePath = *sqlitePath
		case "migratepath":
			cfg.MigratePath = *migratePath
		case "loglevel":
			cfg.LogLevel = *logLevel
		}
	})

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: порт должен быть от 1 до 65535: %d", errors.ErrConfigInvalidFormat, c.Port)
	}
	switch c.Storage {
	case StoragePostgres, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("%w: %q", errors.ErrUnknownStorage, c.Storage)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.ErrConfigMissingSecret
	}
	return nil
}

func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Addr, c.Port)
}

func loadJSONConfig(configPath string) *Config {
	if configPath == "" {
		configPath = os.Getenv("CONFIG")
	}
	if configPath == "" {
		return nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		zap.L().Warn(errors.ErrConfigFileReadFailed.Error(), zap.String("path", configPath), zap.Error(err))
		return nil
	}

	jsonConfig := DefaultConfig()
	if err := json.Unmarshal(data, jsonConfig); err != nil {
		zap.L().Warn(errors.ErrConfigParseFailed.Error(), zap.String("path", configPath), zap.Error(err))
		return nil
	}

	zap.L().Info("JSON конфигурация успешно загружена", zap.String("path", configPath))
	return jsonConfig
}

// loadDotEnv never overrides variables that are already set in the environment.
func loadDotEnv(path string) {
	if path == "" {
		return
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("не удалось загрузить .env файл", zap.String("path", path), zap.Error(err))
	}
}

func applyEnvOverrides(cfg *Config) *Config {
	if addr := os.Getenv("ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if port, ok := envInt("PORT"); ok {
		if port < 1 || port > 65535 {
			warnEnv("PORT", strconv.Itoa(port))
		} else {
			cfg.Port = port
		}
	}
	if storage := os.Getenv("STORAGE"); storage != "" {
		cfg.Storage = strings.ToLower(storage)
	}
	if dbStr := os.Getenv("DB_STR"); dbStr != "" {
		cfg.DBStr = dbStr
	}
	if sqlitePath := os.Getenv("SQLITE_PATH"); sqlitePath != "" {
		cfg.SQLitePath = sqlitePath
	}
	if migratePath := os.Getenv("MIGRATE_PATH"); migratePath != "" {
		cfg.MigratePath = migratePath
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg.JWTSecret = secret
	}
	if ttl, ok := envDuration("TOKEN_TTL"); ok {
		cfg.TokenTTL = Duration(ttl)
	}
	if cost, ok := envInt("BCRYPT_COST"); ok {
		cfg.BcryptCost = cost
	}
	if secure := os.Getenv("SECURE_COOKIE"); secure != "" {
		if v, err := strconv.ParseBool(secure); err != nil {
			warnEnv("SECURE_COOKIE", secure)
		} else {
			cfg.SecureCookie = v
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if lang := os.Getenv("DEFAULT_LANG"); lang != "" {
		cfg.DefaultLang = lang
	}
	if timeout, ok := envDuration("SHUTDOWN_TIMEOUT"); ok {
		cfg.ShutdownTimeout = Duration(timeout)
	}
	if size, ok := envInt("GZIP_MIN_SIZE"); ok {
		cfg.GzipMinSize = size
	}
	if version := os.Getenv("APP_VERSION"); version != "" {
		cfg.Version = version
	}

	if cfg.DBStr == defaultDBStr {
		dbUser := os.Getenv("DB_USER")
		dbPassword := os.Getenv("DB_PASSWORD")
		dbName := os.Getenv("DB_NAME")
		dbHost := os.Getenv("DB_HOST")
		dbPort := os.Getenv("DB_PORT")
		if dbUser != "" && dbPassword != "" && dbName != "" && dbHost != "" && dbPort != "" {
			cfg.DBStr = fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPassword, dbHost, dbPort, dbName)
		}
	}

	return cfg
}

func envInt(key string) (int, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		warnEnv(key, raw)
		return 0, false
	}
	return v, true
}

func envDuration(key string) (time.Duration, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		warnEnv(key, raw)
		return 0, false
	}
	return v, true
}

func warnEnv(key, value string) {
	zap.L().Warn(errors.ErrConfigInvalidFormat.Error(), zap.String("env", key), zap.String("value", value))
}
