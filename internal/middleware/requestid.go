package middleware

import (
	"github.com/MaxRadzey/celservice/internal/contextkeys"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDHeader — заголовок, в котором передаётся идентификатор запроса.
const RequestIDHeader = "X-Request-Id"

// RequestID — middleware, который берёт идентификатор запроса из заголовка или создаёт новый.
// Чужой идентификатор принимается, только если это валидный UUID.
// Всегда устанавливает request_id в контекст запроса и возвращает его в ответе.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}

		c.Set(contextkeys.RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}
