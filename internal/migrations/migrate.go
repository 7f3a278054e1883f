package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/MaxRadzey/celservice/internal/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

//go:embed sql/*.sql
var files embed.FS

// Run применяет миграции базы данных, встроенные в бинарник.
// Принимает DSN строку подключения и создает временное подключение через *sql.DB,
// необходимое для golang-migrate (библиотека не поддерживает pgxpool напрямую).
// Если миграции уже применены, функция возвращает nil.
func Run(dsn string) error {
	if dsn == "" {
		return nil
	}

	logger.Log.Info("Starting database migrations")

	source, err := iofs.New(files, "sql")
	if err != nil {
		return fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		logger.Log.Error("Failed to open database for migrations", zap.Error(err))
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	// Создаем экземпляр драйвера PostgreSQL для миграций
	instance, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		logger.Log.Error("Failed to create postgres instance for migrations", zap.Error(err))
		return fmt.Errorf("failed to create postgres instance: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", instance)
	if err != nil {
		logger.Log.Error("Failed to create migrate instance", zap.Error(err))
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	logger.Log.Info("Running migrations")
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.Log.Error("Migrations failed", zap.Error(err))
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Log.Info("Migrations already applied, no changes needed")
	} else {
		logger.Log.Info("Migrations completed successfully")
	}

	return nil
}
