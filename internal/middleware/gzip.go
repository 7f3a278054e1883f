package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/MaxRadzey/celservice/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type compressWriter struct {
	gin.ResponseWriter
	Writer *gzip.Writer
}

func (c *compressWriter) Write(data []byte) (int, error) {
	return c.Writer.Write(data)
}

func (c *compressWriter) Close() error {
	return c.Writer.Close()
}

func (c *compressWriter) WriteString(s string) (int, error) {
	return c.Writer.Write([]byte(s))
}

// Gzip обрабатывает сжатие и распаковку gzip для HTTP запросов и ответов.
// Клиенты Connect сообщают о сжатии тела через Content-Encoding и Accept-Encoding.
// Сжатое и распакованное тело запроса не длиннее maxBodyBytes.
func Gzip(maxBodyBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		acceptEncoding := c.GetHeader("Accept-Encoding")
		supportGzip := strings.Contains(acceptEncoding, "gzip")

		if supportGzip {
			gz := gzip.NewWriter(c.Writer)
			defer func() {
				if err := gz.Close(); err != nil {
					logger.Log.Warn("Error closing gzip writer", zap.Error(err))
				}
			}()
			c.Writer = &compressWriter{Writer: gz, ResponseWriter: c.Writer}
			c.Header("Content-Encoding", "gzip")
			c.Header("Vary", "Accept-Encoding")
		}

		contentEncoding := c.GetHeader("Content-Encoding")
		sendGzip := strings.Contains(contentEncoding, "gzip")

		if sendGzip {
			reader, err := gzip.NewReader(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": "invalid_argument", "message": "invalid gzip body"})
				return
			}

			defer func() {
				if err := reader.Close(); err != nil {
					logger.Log.Warn("Error closing gzip reader", zap.Error(err))
				}
			}()
			c.Request.Body = http.MaxBytesReader(c.Writer, reader, maxBodyBytes)
		}
		c.Next()
	}
}
