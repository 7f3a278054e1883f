package storage

import (
	"context"

	"github.com/MaxRadzey/celservice/internal/db"
	"github.com/MaxRadzey/celservice/internal/logger"
	"github.com/MaxRadzey/celservice/internal/migrations"
	"github.com/MaxRadzey/celservice/internal/utils"
	"go.uber.org/zap"
)

// Названия бэкендов кэша.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendFile     = "file"
	BackendMemory   = "memory"
)

// Settings — параметры выбора хранилища.
type Settings struct {
	DatabaseDSN string
	SQLitePath  string
	FilePath    string
	MaxEntries  int
}

// StorageResult содержит результат инициализации хранилища.
type StorageResult struct {
	Storage ExprCache
	Backend string
}

// InitializeStorage выбирает и инициализирует хранилище согласно приоритетам:
// 1. PostgreSQL (если указан DATABASE_DSN)
// 2. SQLite (если указан SQLITE_PATH)
// 3. Файловое хранилище (если указан FILE_STORAGE_PATH)
// 4. In-memory (fallback)
// Хранилище, которое не удалось поднять, пропускается с предупреждением.
func InitializeStorage(ctx context.Context, settings Settings) (*StorageResult, error) {
	// Приоритет 1: PostgreSQL
	if settings.DatabaseDSN != "" {
		logger.Log.Info("Attempting to connect to PostgreSQL", zap.String("dsn", utils.MaskDSN(settings.DatabaseDSN)))
		postgresStorage, err := initPostgres(ctx, settings.DatabaseDSN)
		if err == nil {
			return selected(postgresStorage, BackendPostgres), nil
		}
		logger.Log.Warn("Failed to initialize PostgreSQL storage, will try fallback storage", zap.Error(err))
	}

	// Приоритет 2: SQLite
	if settings.SQLitePath != "" {
		logger.Log.Info("Attempting to use SQLite storage", zap.String("path", settings.SQLitePath))
		sqliteStorage, err := NewSQLiteStorage(ctx, settings.SQLitePath)
		if err == nil {
			return selected(sqliteStorage, BackendSQLite), nil
		}
		logger.Log.Warn("Failed to initialize SQLite storage", zap.Error(err))
	}

	// Приоритет 3: Файловое хранилище
	if settings.FilePath != "" {
		logger.Log.Info("Attempting to use file storage", zap.String("path", settings.FilePath))
		fileStorage, err := NewFileStorage(settings.FilePath)
		if err == nil {
			return selected(fileStorage, BackendFile), nil
		}
		logger.Log.Warn("Failed to initialize file storage", zap.Error(err))
	}

	// Приоритет 4: In-memory (fallback)
	logger.Log.Info("Using in-memory storage as fallback")
	return selected(NewMemoryStorage(settings.MaxEntries), BackendMemory), nil
}

func selected(storage ExprCache, backend string) *StorageResult {
	logger.Log.Info("Storage selected", zap.String("backend", backend))
	return &StorageResult{
		Storage: storage,
		Backend: backend,
	}
}

// initPostgres поднимает пул, применяет миграции и создаёт хранилище.
func initPostgres(ctx context.Context, dsn string) (*PostgresStorage, error) {
	logger.Log.Debug("Creating PostgreSQL connection pool")
	pool, err := db.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := migrations.Run(dsn); err != nil {
		pool.Close()
		return nil, err
	}

	storage, err := NewPostgresStorage(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return storage, nil
}
