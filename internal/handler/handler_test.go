package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MaxRadzey/celservice/internal/celexpr"
	"github.com/MaxRadzey/celservice/internal/config"
	"github.com/MaxRadzey/celservice/internal/dashboard"
	"github.com/MaxRadzey/celservice/internal/handler"
	"github.com/MaxRadzey/celservice/internal/models"
	"github.com/MaxRadzey/celservice/internal/router"
	"github.com/MaxRadzey/celservice/internal/service"
	teststorage "github.com/MaxRadzey/celservice/internal/testing"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = &config.Config{
	Address:             "localhost:8080",
	LogLevel:            "info",
	MaxBatchSize:        3,
	Workers:             2,
	ExpressionSizeLimit: 1000,
}

// setupTestHandler создает handler для тестов с указанным хранилищем.
func setupTestHandler(t *testing.T, storage *teststorage.FakeStorage) *handler.Handler {
	t.Helper()

	parser, err := celexpr.NewParser(celexpr.Options{ExpressionSizeLimit: testConfig.ExpressionSizeLimit})
	require.NoError(t, err)

	exprService := service.NewService(parser, storage, *testConfig)
	return &handler.Handler{Service: exprService, Routes: dashboard.Routes(dashboard.Groups{})}
}

func doRequest(rt http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)
	return rec
}

func TestBatchParse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := setupTestHandler(t, teststorage.NewFakeStorage())
	rt := router.SetupRouter(h)

	type want struct {
		code      int
		errorCode string
		length    int
	}

	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		want        want
	}{
		{
			name:        "Test #1 valid batch",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"expressions":["a == 1","b in [\"x\"]"]}`,
			want:        want{code: http.StatusOK, length: 2},
		},
		{
			name:        "Test #2 empty batch",
			method:      http.MethodPost,
			contentType: "application/json; charset=utf-8",
			body:        `{"expressions":[]}`,
			want:        want{code: http.StatusOK, length: 0},
		},
		{
			name:        "Test #3 syntax error",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"expressions":["a ==", "b"]}`,
			want:        want{code: http.StatusBadRequest, errorCode: handler.CodeInvalidArgument},
		},
		{
			name:        "Test #4 batch too large",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"expressions":["a","b","c","d"]}`,
			want:        want{code: http.StatusTooManyRequests, errorCode: handler.CodeResourceExhausted},
		},
		{
			name:        "Test #5 malformed json",
			method:      http.MethodPost,
			contentType: "application/json",
			body:        `{"expressions":`,
			want:        want{code: http.StatusBadRequest, errorCode: handler.CodeInvalidArgument},
		},
		{
			name:        "Test #6 wrong content type",
			method:      http.MethodPost,
			contentType: "text/plain",
			body:        `a == 1`,
			want:        want{code: http.StatusUnsupportedMediaType, errorCode: handler.CodeInvalidArgument},
		},
		{
			name:   "Test #7 invalid method",
			method: http.MethodGet,
			want:   want{code: http.StatusMethodNotAllowed},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := doRequest(rt, test.method, models.BatchParsePath, test.contentType, test.body)
			require.Equal(t, test.want.code, rec.Code, "Код ответа не совпадает с ожидаемым: %s", rec.Body.String())

			if test.want.errorCode != "" {
				var e models.Error
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
				assert.Equal(t, test.want.errorCode, e.Code)
				assert.NotEmpty(t, e.Message)
				return
			}
			if test.want.code != http.StatusOK {
				return
			}

			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
			var resp models.BatchParseResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Len(t, resp.Expressions, test.want.length)
		})
	}
}

func TestBatchParseThenDeparse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := setupTestHandler(t, teststorage.NewFakeStorage())
	rt := router.SetupRouter(h)

	input := []string{`request.time < timestamp("2025-01-01T00:00:00Z")`, `resource.database in ["db1", "db2"]`}
	body, err := json.Marshal(models.BatchParseRequest{Expressions: input})
	require.NoError(t, err)

	rec := doRequest(rt, http.MethodPost, models.BatchParsePath, "application/json", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var parsed models.BatchParseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	require.Len(t, parsed.Expressions, len(input))

	body, err = json.Marshal(models.BatchDeparseRequest{Expressions: parsed.Expressions})
	require.NoError(t, err)

	rec = doRequest(rt, http.MethodPost, models.BatchDeparsePath, "application/json", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var deparsed models.BatchDeparseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deparsed))
	assert.Equal(t, input, deparsed.Expressions)
}

func TestBatchDeparse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := setupTestHandler(t, teststorage.NewFakeStorage())
	rt := router.SetupRouter(h)

	tests := []struct {
		name      string
		body      string
		code      int
		errorCode string
		want      []string
	}{
		{
			name: "Test #1 hand written tree",
			body: `{"expressions":[{"id":"2","callExpr":{"function":"_==_","args":[{"id":"1","identExpr":{"name":"x"}},{"id":"3","constExpr":{"int64Value":"1"}}]}}]}`,
			code: http.StatusOK,
			want: []string{"x == 1"},
		},
		{
			name:      "Test #2 empty tree",
			body:      `{"expressions":[{"identExpr":{"name":"a"}},{}]}`,
			code:      http.StatusBadRequest,
			errorCode: handler.CodeInvalidArgument,
		},
		{
			name:      "Test #3 element is not a tree",
			body:      `{"expressions":["x == 1"]}`,
			code:      http.StatusBadRequest,
			errorCode: handler.CodeInvalidArgument,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := doRequest(rt, http.MethodPost, models.BatchDeparsePath, "application/json", test.body)
			require.Equal(t, test.code, rec.Code, rec.Body.String())

			if test.errorCode != "" {
				var e models.Error
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
				assert.Equal(t, test.errorCode, e.Code)
				return
			}

			var resp models.BatchDeparseResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, test.want, resp.Expressions)
		})
	}
}

func TestConnectTimeoutHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := setupTestHandler(t, teststorage.NewFakeStorage())
	rt := router.SetupRouter(h)

	req := httptest.NewRequest(http.MethodPost, models.BatchParsePath, strings.NewReader(`{"expressions":["a"]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Connect-Timeout-Ms", "5000")
	rec := httptest.NewRecorder()
	rt.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		pingErr error
		code    int
	}{
		{name: "Test #1 storage available", code: http.StatusOK},
		{name: "Test #2 storage down", pingErr: errors.New("down"), code: http.StatusInternalServerError},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			storage := teststorage.NewFakeStorage()
			storage.PingErr = test.pingErr
			rt := router.SetupRouter(setupTestHandler(t, storage))

			rec := doRequest(rt, http.MethodGet, "/ping", "", "")
			assert.Equal(t, test.code, rec.Code)
		})
	}
}

func TestDashboardRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rt := router.SetupRouter(setupTestHandler(t, teststorage.NewFakeStorage()))

	rec := doRequest(rt, http.MethodGet, "/v1/dashboard/routes", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var routes []dashboard.Route
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &routes))

	r, path, ok := dashboard.Find(routes, dashboard.RouteMyIssues)
	require.True(t, ok)
	assert.Equal(t, "/issues", path)
	assert.Equal(t, dashboard.MyIssues, r.Components["content"])
}

func TestRequestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := setupTestHandler(t, teststorage.NewFakeStorage())
	h.MaxBodyBytes = 64
	rt := router.SetupRouter(h)

	small := `{"expressions":["a == 1"]}`
	rec := doRequest(rt, http.MethodPost, models.BatchParsePath, "application/json", small)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	large := `{"expressions":["` + strings.Repeat("a", 128) + `"]}`
	rec = doRequest(rt, http.MethodPost, models.BatchParsePath, "application/json", large)
	require.Equal(t, http.StatusTooManyRequests, rec.Code, rec.Body.String())

	var body models.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, handler.CodeResourceExhausted, body.Code)
	assert.Contains(t, body.Message, "64 bytes")
}

func TestDashboardRouteByName(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rt := router.SetupRouter(setupTestHandler(t, teststorage.NewFakeStorage()))

	rec := doRequest(rt, http.MethodGet, "/v1/dashboard/routes?name="+dashboard.RouteMyIssues, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"workspace.my-issues","path":"/issues"}`, rec.Body.String())

	rec = doRequest(rt, http.MethodGet, "/v1/dashboard/routes?name=nope", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var body models.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, handler.CodeNotFound, body.Code)
}
