package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher следит за YAML-файлом конфигурации и перечитывает его при изменении.
type Watcher struct {
	path     string
	overlay  func(*Config) error
	watcher  *fsnotify.Watcher
	onChange func(*Config)
	onError  func(error)
	debounce time.Duration
	doneCh   chan struct{}
}

// NewWatcher создаёт наблюдатель за файлом path. При каждом изменении конфигурация
// собирается заново: значения по умолчанию, файл, затем overlay (может быть nil).
// Результат передаётся в onChange. Следим за директорией, а не за самим файлом,
// чтобы переживать сохранение через rename.
func NewWatcher(path string, overlay func(*Config) error, onChange func(*Config), onError func(error)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	if onError == nil {
		onError = func(error) {}
	}

	return &Watcher{
		path:     abs,
		overlay:  overlay,
		watcher:  w,
		onChange: onChange,
		onError:  onError,
		debounce: 100 * time.Millisecond,
		doneCh:   make(chan struct{}),
	}, nil
}

// Run обрабатывает события до отмены контекста. Блокирующий вызов.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.watcher.Close()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Редакторы пишут файл в несколько приёмов, ждём затишья.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

// Done закрывается, когда Run завершился.
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

func (w *Watcher) reload() {
	next := New()
	if err := LoadFile(next, w.path); err != nil {
		w.onError(err)
		return
	}
	if w.overlay != nil {
		if err := w.overlay(next); err != nil {
			w.onError(fmt.Errorf("apply overrides: %w", err))
			return
		}
		next.Overlay = w.overlay
	}
	if err := next.Validate(); err != nil {
		w.onError(fmt.Errorf("reloaded config is invalid: %w", err))
		return
	}
	w.onChange(next)
}
