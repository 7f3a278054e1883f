package testing

import (
	"context"
	"sync"

	"github.com/MaxRadzey/celservice/internal/storage"
)

// FakeStorage - мок хранилища для тестов. Считает обращения и умеет возвращать ошибки.
type FakeStorage struct {
	mu   sync.Mutex
	data map[string]storage.Entry

	GetErr    error
	CreateErr error
	PingErr   error

	GetCalls    int
	CreateCalls int
}

// NewFakeStorage создает новый экземпляр FakeStorage с пустыми данными.
func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		data: make(map[string]storage.Entry),
	}
}

// NewFakeStorageWithEntries создает новый экземпляр FakeStorage с указанными записями.
func NewFakeStorageWithEntries(entries map[string]storage.Entry) *FakeStorage {
	return &FakeStorage{data: entries}
}

func (f *FakeStorage) GetBatch(ctx context.Context, keys []string) (map[string][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.GetCalls++
	if f.GetErr != nil {
		return nil, f.GetErr
	}

	out := make(map[string][]byte)
	for _, key := range keys {
		if e, ok := f.data[key]; ok {
			out[key] = e.Value
		}
	}
	return out, nil
}

func (f *FakeStorage) CreateBatch(ctx context.Context, items []storage.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CreateCalls++
	if f.CreateErr != nil {
		return f.CreateErr
	}

	for _, item := range items {
		f.data[item.Key] = item
	}
	return nil
}

// Entries возвращает копию всех сохранённых записей.
func (f *FakeStorage) Entries() map[string]storage.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]storage.Entry, len(f.data))
	for k, v := range f.data {
		out[k] = v
	}
	return out
}

func (f *FakeStorage) Ping(ctx context.Context) error {
	return f.PingErr
}

func (f *FakeStorage) Close() error {
	return nil
}
