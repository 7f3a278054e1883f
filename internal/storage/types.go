package storage

import (
	"context"
)

// Виды операций, результаты которых кэшируются.
const (
	KindParse   = "parse"
	KindDeparse = "deparse"
)

// Entry — запись кэша: результат операции Kind, сохранённый под ключом Key.
type Entry struct {
	Key   string
	Kind  string
	Value []byte
}

// ExprCache — интерфейс хранилища результатов разбора и сборки выражений.
// GetBatch возвращает только найденные ключи, промахи в ответе отсутствуют.
type ExprCache interface {
	GetBatch(ctx context.Context, keys []string) (map[string][]byte, error)
	CreateBatch(ctx context.Context, items []Entry) error
	Ping(ctx context.Context) error
	Close() error
}
