package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config содержит все настройки сервиса выражений.
type Config struct {
	Address         string        `yaml:"address"`
	LogLevel        string        `yaml:"log_level"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Хранилище кэша разобранных выражений
	DatabaseDSN     string `yaml:"database_dsn"`
	SQLitePath      string `yaml:"sqlite_path"`
	FilePath        string `yaml:"file_path"`
	CacheMaxEntries int    `yaml:"cache_max_entries"`

	// Ограничения пакетной обработки
	MaxBatchSize        int `yaml:"max_batch_size"`
	Workers             int `yaml:"workers"`
	ExpressionSizeLimit int `yaml:"expression_size_limit"`
	RecursionLimit      int `yaml:"recursion_limit"`

	// ConfigPath — путь к YAML-файлу, из которого загружена конфигурация.
	ConfigPath string `yaml:"-"`

	// Overlay применяет настройки, которые старше файла: явные флаги и окружение.
	// Вызывается после каждого чтения файла, в том числе при перезагрузке.
	Overlay func(*Config) error `yaml:"-"`
}

func New() *Config {
	return &Config{
		Address:             "localhost:8080",
		LogLevel:            "info",
		ShutdownTimeout:     10 * time.Second,
		CacheMaxEntries:     10000,
		MaxBatchSize:        1000,
		Workers:             8,
		ExpressionSizeLimit: 100000,
		RecursionLimit:      250,
	}
}

// LoadFile читает YAML-файл поверх текущих значений. Поля, отсутствующие в файле, не меняются.
func LoadFile(config *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	config.ConfigPath = path
	return nil
}

// ParseEnv перекрывает настройки значениями переменных окружения.
func ParseEnv(config *Config) error {
	if Address := os.Getenv("SERVER_ADDRESS"); Address != "" {
		config.Address = Address
	}
	if LogLevel := os.Getenv("LOG_LEVEL"); LogLevel != "" {
		config.LogLevel = LogLevel
	}
	if DatabaseDSN := os.Getenv("DATABASE_DSN"); DatabaseDSN != "" {
		config.DatabaseDSN = DatabaseDSN
	}
	if SQLitePath := os.Getenv("SQLITE_PATH"); SQLitePath != "" {
		config.SQLitePath = SQLitePath
	}
	if FilePath := os.Getenv("FILE_STORAGE_PATH"); FilePath != "" {
		config.FilePath = FilePath
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"MAX_BATCH_SIZE", &config.MaxBatchSize},
		{"WORKERS", &config.Workers},
		{"EXPRESSION_SIZE_LIMIT", &config.ExpressionSizeLimit},
		{"CACHE_MAX_ENTRIES", &config.CacheMaxEntries},
	}
	for _, v := range ints {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", v.name, raw, err)
		}
		*v.dst = n
	}

	return nil
}

// Validate проверяет, что значения настроек имеют смысл.
func (c *Config) Validate() error {
	var errs []error
	if c.Address == "" {
		errs = append(errs, errors.New("address must not be empty"))
	}
	if c.MaxBatchSize <= 0 {
		errs = append(errs, fmt.Errorf("max_batch_size must be positive, got %d", c.MaxBatchSize))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers must be positive, got %d", c.Workers))
	}
	if c.ExpressionSizeLimit < 0 {
		errs = append(errs, fmt.Errorf("expression_size_limit must not be negative, got %d", c.ExpressionSizeLimit))
	}
	if c.RecursionLimit < 0 {
		errs = append(errs, fmt.Errorf("recursion_limit must not be negative, got %d", c.RecursionLimit))
	}
	if c.CacheMaxEntries < 0 {
		errs = append(errs, fmt.Errorf("cache_max_entries must not be negative, got %d", c.CacheMaxEntries))
	}
	return errors.Join(errs...)
}
