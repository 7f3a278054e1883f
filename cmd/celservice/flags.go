package main

import (
	"os"

	"github.com/MaxRadzey/celservice/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// options — значения флагов до слияния с файлом и окружением.
type options struct {
	configPath string
	cfg        *config.Config
}

func bindServerFlags(fs *pflag.FlagSet, opts *options) {
	fs.StringVarP(&opts.cfg.Address, "address", "a", opts.cfg.Address, "address and port to run server")
	fs.StringVarP(&opts.cfg.DatabaseDSN, "database-dsn", "d", opts.cfg.DatabaseDSN, "PostgreSQL DSN for the expression cache")
	fs.StringVar(&opts.cfg.SQLitePath, "sqlite-path", opts.cfg.SQLitePath, "SQLite database for the expression cache")
	fs.StringVarP(&opts.cfg.FilePath, "file-storage-path", "f", opts.cfg.FilePath, "JSON file for the expression cache")
	fs.IntVar(&opts.cfg.CacheMaxEntries, "cache-max-entries", opts.cfg.CacheMaxEntries, "in-memory cache capacity, 0 for unbounded")
	fs.DurationVar(&opts.cfg.ShutdownTimeout, "shutdown-timeout", opts.cfg.ShutdownTimeout, "graceful shutdown timeout")
}

func bindLimitFlags(fs *pflag.FlagSet, opts *options) {
	fs.IntVar(&opts.cfg.MaxBatchSize, "max-batch-size", opts.cfg.MaxBatchSize, "maximum expressions per batch")
	fs.IntVar(&opts.cfg.Workers, "workers", opts.cfg.Workers, "parallel workers per batch")
	fs.IntVar(&opts.cfg.ExpressionSizeLimit, "expression-size-limit", opts.cfg.ExpressionSizeLimit, "maximum expression size in code points")
	fs.IntVar(&opts.cfg.RecursionLimit, "recursion-limit", opts.cfg.RecursionLimit, "maximum parser recursion depth")
}

// resolve собирает итоговую конфигурацию: значения по умолчанию, YAML-файл,
// явно заданные флаги и, в последнюю очередь, переменные окружения.
func (o *options) resolve(cmd *cobra.Command) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	// Флаги, заданные явно, перекрывают файл, окружение перекрывает всё.
	flagged := *o.cfg
	overlay := func(c *config.Config) error {
		cmd.Flags().Visit(func(f *pflag.Flag) {
			applyFlag(c, &flagged, f.Name)
		})
		return config.ParseEnv(c)
	}

	cfg := config.New()
	if err := config.LoadFile(cfg, path); err != nil {
		return nil, err
	}
	if err := overlay(cfg); err != nil {
		return nil, err
	}
	cfg.Overlay = overlay

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlag(dst, src *config.Config, name string) {
	switch name {
	case "address":
		dst.Address = src.Address
	case "log-level":
		dst.LogLevel = src.LogLevel
	case "database-dsn":
		dst.DatabaseDSN = src.DatabaseDSN
	case "sqlite-path":
		dst.SQLitePath = src.SQLitePath
	case "file-storage-path":
		dst.FilePath = src.FilePath
	case "cache-max-entries":
		dst.CacheMaxEntries = src.CacheMaxEntries
	case "shutdown-timeout":
		dst.ShutdownTimeout = src.ShutdownTimeout
	case "max-batch-size":
		dst.MaxBatchSize = src.MaxBatchSize
	case "workers":
		dst.Workers = src.Workers
	case "expression-size-limit":
		dst.ExpressionSizeLimit = src.ExpressionSizeLimit
	case "recursion-limit":
		dst.RecursionLimit = src.RecursionLimit
	}
}
