package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/MaxRadzey/celservice/internal/celexpr"
	"github.com/MaxRadzey/celservice/internal/config"
	"github.com/MaxRadzey/celservice/internal/dashboard"
	httphandlers "github.com/MaxRadzey/celservice/internal/handler"
	"github.com/MaxRadzey/celservice/internal/logger"
	"github.com/MaxRadzey/celservice/internal/router"
	"github.com/MaxRadzey/celservice/internal/service"
	dbstorage "github.com/MaxRadzey/celservice/internal/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewParser создаёт парсер с ограничениями из конфигурации.
func NewParser(appConfig *config.Config) (*celexpr.Parser, error) {
	return celexpr.NewParser(celexpr.Options{
		ExpressionSizeLimit: appConfig.ExpressionSizeLimit,
		RecursionLimit:      appConfig.RecursionLimit,
	})
}

// NewHandler собирает зависимости HTTP-слоя. Возвращённое хранилище нужно закрыть.
func NewHandler(ctx context.Context, appConfig *config.Config) (*httphandlers.Handler, dbstorage.ExprCache, error) {
	result, err := dbstorage.InitializeStorage(ctx, dbstorage.Settings{
		DatabaseDSN: appConfig.DatabaseDSN,
		SQLitePath:  appConfig.SQLitePath,
		FilePath:    appConfig.FilePath,
		MaxEntries:  appConfig.CacheMaxEntries,
	})
	if err != nil {
		return nil, nil, err
	}

	parser, err := NewParser(appConfig)
	if err != nil {
		_ = result.Storage.Close()
		return nil, nil, err
	}

	exprService := service.NewService(parser, result.Storage, *appConfig)
	handler := &httphandlers.Handler{
		Service: exprService,
		Routes:  dashboard.Routes(dashboard.Groups{}),
	}
	return handler, result.Storage, nil
}

// Run запускает http сервер и останавливает его по SIGINT/SIGTERM.
func Run(appConfig *config.Config) error {
	if err := logger.Initialize(appConfig.LogLevel); err != nil {
		return err
	}
	defer func() { _ = logger.Log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler, storage, err := NewHandler(ctx, appConfig)
	if err != nil {
		return err
	}
	defer storage.Close()

	if appConfig.ConfigPath != "" {
		watchConfig(ctx, appConfig)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    appConfig.Address,
		Handler: router.SetupRouter(handler),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Starting server", zap.String("address", appConfig.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// watchConfig применяет новый уровень логирования при изменении файла конфигурации.
// Остальные настройки требуют перезапуска.
func watchConfig(ctx context.Context, appConfig *config.Config) {
	w, err := config.NewWatcher(appConfig.ConfigPath, appConfig.Overlay,
		func(next *config.Config) {
			if next.LogLevel == logger.Level() {
				return
			}
			if err := logger.SetLevel(next.LogLevel); err != nil {
				logger.Log.Warn("Ignoring invalid log level from config", zap.String("level", next.LogLevel), zap.Error(err))
				return
			}
			logger.Log.Info("Log level changed", zap.String("level", next.LogLevel))
		},
		func(err error) {
			logger.Log.Warn("Config watcher error", zap.Error(err))
		},
	)
	if err != nil {
		logger.Log.Warn("Config file will not be watched", zap.Error(err))
		return
	}
	go w.Run(ctx)
}
