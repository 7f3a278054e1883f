package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStorage struct {
	db *pgxpool.Pool
}

func NewPostgresStorage(db *pgxpool.Pool) (*PostgresStorage, error) {
	if db == nil {
		return nil, errors.New("database connection is nil")
	}

	// Проверяем соединение
	ctx := context.Background()
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStorage{
		db: db,
	}, nil
}

func (p *PostgresStorage) GetBatch(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := p.db.Query(ctx, "SELECT cache_key, value FROM expr_cache WHERE cache_key = ANY($1)", keys)
	if err != nil {
		return nil, fmt.Errorf("failed to get cache entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key   string
			value []byte
		)
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (p *PostgresStorage) CreateBatch(ctx context.Context, items []Entry) error {
	if len(items) == 0 {
		return nil
	}

	// Используем транзакцию для атомарности
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue("INSERT INTO expr_cache (cache_key, kind, value) VALUES ($1, $2, $3) ON CONFLICT (cache_key) DO NOTHING", item.Key, item.Kind, item.Value)
	}

	results := tx.SendBatch(ctx, batch)

	// Выполняем все запросы
	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			results.Close()
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to insert batch item: %w", err)
		}
	}

	if err := results.Close(); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("failed to close batch results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (p *PostgresStorage) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

func (p *PostgresStorage) Close() error {
	p.db.Close()
	return nil
}
