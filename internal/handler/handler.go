package handler

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/MaxRadzey/celservice/internal/dashboard"
	"github.com/MaxRadzey/celservice/internal/logger"
	"github.com/MaxRadzey/celservice/internal/models"
	"github.com/MaxRadzey/celservice/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Коды ошибок протокола Connect.
const (
	CodeCanceled          = "canceled"
	CodeInvalidArgument   = "invalid_argument"
	CodeNotFound          = "not_found"
	CodeDeadlineExceeded  = "deadline_exceeded"
	CodeResourceExhausted = "resource_exhausted"
	CodeInternal          = "internal"
	CodeUnavailable       = "unavailable"
)

// statusCanceled — нестандартный HTTP-код, которым Connect отвечает на отменённый запрос.
const statusCanceled = 499

var httpStatus = map[string]int{
	CodeCanceled:          statusCanceled,
	CodeInvalidArgument:   http.StatusBadRequest,
	CodeNotFound:          http.StatusNotFound,
	CodeDeadlineExceeded:  http.StatusGatewayTimeout,
	CodeResourceExhausted: http.StatusTooManyRequests,
	CodeInternal:          http.StatusInternalServerError,
	CodeUnavailable:       http.StatusServiceUnavailable,
}

// DefaultMaxBodyBytes — ограничение размера тела запроса после распаковки.
const DefaultMaxBodyBytes int64 = 8 << 20

type Handler struct {
	Service *service.Service
	Routes  []dashboard.Route
	// MaxBodyBytes ограничивает тело запроса; ноль означает DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// BodyLimit возвращает действующее ограничение размера тела запроса.
func (h *Handler) BodyLimit() int64 {
	if h.MaxBodyBytes > 0 {
		return h.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

// BatchParse хэндлер метода bytebase.v1.CelService/BatchParse: принимает список строк
// и возвращает список синтаксических деревьев в том же порядке.
func (h *Handler) BatchParse(c *gin.Context) {
	var req models.BatchParseRequest
	if !decodeRequest(c, &req, h.BodyLimit()) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	exprs, err := h.Service.BatchParse(ctx, req.Expressions)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BatchParseResponse{Expressions: exprs})
}

// BatchDeparse хэндлер метода bytebase.v1.CelService/BatchDeparse: принимает список деревьев
// и возвращает их текстовое представление в том же порядке.
func (h *Handler) BatchDeparse(c *gin.Context) {
	var req models.BatchDeparseRequest
	if !decodeRequest(c, &req, h.BodyLimit()) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	texts, err := h.Service.BatchDeparse(ctx, req.Expressions)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.BatchDeparseResponse{Expressions: texts})
}

// Ping проверяет доступность хранилища кэша.
func (h *Handler) Ping(c *gin.Context) {
	if err := h.Service.Ping(c.Request.Context()); err != nil {
		logger.Log.Warn("Ping failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "Storage unavailable!")
		return
	}
	c.String(http.StatusOK, "OK")
}

// DashboardRoutes отдаёт таблицу маршрутов дашборда.
// С параметром name отвечает полным путём маршрута с этим именем.
func (h *Handler) DashboardRoutes(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusOK, h.Routes)
		return
	}

	path, ok := dashboard.FullPath(h.Routes, name)
	if !ok {
		writeError(c, CodeNotFound, "route "+strconv.Quote(name)+" not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "path": path})
}

// decodeRequest проверяет Content-Type и читает тело. При ошибке ответ уже записан.
func decodeRequest(c *gin.Context, dst any, limit int64) bool {
	mediaType, _, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || mediaType != "application/json" {
		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, models.Error{
			Code:    CodeInvalidArgument,
			Message: "unsupported content type, expected application/json",
		})
		return false
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(c, CodeResourceExhausted, "request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
			return false
		}
		writeError(c, CodeInvalidArgument, "invalid request: "+err.Error())
		return false
	}
	return true
}

// requestContext учитывает заголовок Connect-Timeout-Ms, если клиент его передал.
func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request.Context()
	raw := c.GetHeader("Connect-Timeout-Ms")
	if raw == "" {
		return context.WithCancel(ctx)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
}

func writeServiceError(c *gin.Context, err error) {
	var (
		tooLarge *service.ErrBatchTooLarge
		invalid  *service.ErrInvalidExpression
	)

	switch {
	case errors.As(err, &tooLarge):
		writeError(c, CodeResourceExhausted, err.Error())
	case errors.As(err, &invalid):
		writeError(c, CodeInvalidArgument, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(c, CodeDeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		writeError(c, CodeCanceled, err.Error())
	default:
		logger.Log.Error("Request failed", zap.Error(err))
		writeError(c, CodeInternal, "Internal server error!")
	}
}

func writeError(c *gin.Context, code, message string) {
	status, ok := httpStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	c.AbortWithStatusJSON(status, models.Error{Code: code, Message: message})
}
