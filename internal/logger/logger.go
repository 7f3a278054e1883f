package logger

import (
	"time"

	"github.com/MaxRadzey/celservice/internal/contextkeys"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var Log *zap.Logger = zap.NewNop()

// level общий для всех логгеров, созданных через Initialize, чтобы уровень менялся на лету.
var level = zap.NewAtomicLevelAt(zap.InfoLevel)

type (
	responseData struct {
		status int
		size   int
	}

	loggingResponseWriter struct {
		gin.ResponseWriter
		responseData *responseData
	}
)

func (r *loggingResponseWriter) Write(b []byte) (int, error) {
	size, err := r.ResponseWriter.Write(b)
	r.responseData.size += size
	return size, err
}

func (r *loggingResponseWriter) WriteString(s string) (int, error) {
	size, err := r.ResponseWriter.WriteString(s)
	r.responseData.size += size
	return size, err
}

func (r *loggingResponseWriter) WriteHeader(statusCode int) {
	r.ResponseWriter.WriteHeader(statusCode)
	r.responseData.status = statusCode
}

func Initialize(lvl string) error {
	if err := SetLevel(lvl); err != nil {
		return err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level

	zl, err := cfg.Build()
	if err != nil {
		return err
	}

	Log = zl
	return nil
}

// SetLevel меняет уровень логирования без пересоздания логгера.
func SetLevel(lvl string) error {
	parsed, err := zap.ParseAtomicLevel(lvl)
	if err != nil {
		return err
	}
	level.SetLevel(parsed.Level())
	return nil
}

// Level возвращает текущий уровень логирования.
func Level() string {
	return level.Level().String()
}

func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		Log.Info("got incoming HTTP request",
			zap.String("URI", c.Request.RequestURI),
			zap.String("method", c.Request.Method),
			zap.String("request_id", c.GetString(contextkeys.RequestIDKey)),
			zap.Duration("duration", duration),
		)
	}
}

func ResponseLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		responseData := &responseData{
			status: 0,
			size:   0,
		}

		lw := &loggingResponseWriter{
			ResponseWriter: c.Writer,
			responseData:   responseData,
		}
		c.Writer = lw
		c.Next()

		Log.Info("response",
			zap.Int("status", lw.responseData.status),
			zap.Int("size", lw.responseData.size),
			zap.String("request_id", c.GetString(contextkeys.RequestIDKey)),
		)
	}
}
