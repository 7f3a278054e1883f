package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileStorage хранит записи в JSON-файле. Файл целиком перезаписывается на каждый пакет.
type FileStorage struct {
	mu       sync.RWMutex
	data     map[string]Entry
	filePath string
}

func NewFileStorage(filePath string) (*FileStorage, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	data, err := readEntries(filePath)
	if err != nil {
		return nil, fmt.Errorf("read cache from file error: %w", err)
	}

	return &FileStorage{
		data:     data,
		filePath: filePath,
	}, nil
}

func readEntries(filePath string) (map[string]Entry, error) {
	file, err := os.OpenFile(filePath, os.O_RDONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	res := make(map[string]Entry)

	if ok := scanner.Scan(); !ok {
		return res, scanner.Err()
	}

	err = json.Unmarshal(scanner.Bytes(), &res)
	if err != nil {
		return nil, err
	}

	return res, nil
}

func (s *FileStorage) GetBatch(ctx context.Context, keys []string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if e, ok := s.data[key]; ok {
			out[key] = e.Value
		}
	}
	return out, nil
}

func (s *FileStorage) CreateBatch(ctx context.Context, items []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, item := range items {
		if _, exists := s.data[item.Key]; !exists {
			s.data[item.Key] = item
			changed = true
		}
	}
	if !changed {
		return nil
	}

	// Записываем весь файл за одну операцию
	data, err := json.Marshal(s.data)
	if err != nil {
		return fmt.Errorf("serialize cache error: %w", err)
	}

	if err := os.WriteFile(s.filePath, data, 0644); err != nil {
		return fmt.Errorf("write cache to file error: %w", err)
	}

	return nil
}

func (s *FileStorage) Ping(ctx context.Context) error {
	_, err := os.Stat(s.filePath)
	return err
}

func (s *FileStorage) Close() error {
	return nil
}
