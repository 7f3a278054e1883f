package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MaxRadzey/celservice/internal/celexpr"
	"github.com/MaxRadzey/celservice/internal/client"
	"github.com/MaxRadzey/celservice/internal/config"
	"github.com/MaxRadzey/celservice/internal/handler"
	"github.com/MaxRadzey/celservice/internal/router"
	"github.com/MaxRadzey/celservice/internal/service"
	teststorage "github.com/MaxRadzey/celservice/internal/testing"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	parser, err := celexpr.NewParser(celexpr.Options{})
	require.NoError(t, err)

	cfg := config.New()
	cfg.MaxBatchSize = 10
	h := &handler.Handler{Service: service.NewService(parser, teststorage.NewFakeStorage(), *cfg)}

	srv := httptest.NewServer(router.SetupRouter(h))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundTrip(t *testing.T) {
	srv := startServer(t)
	c := client.New(srv.URL+"/", client.WithHTTPClient(srv.Client()), client.WithTimeout(5*time.Second))
	ctx := context.Background()

	input := []string{"a == 1", `b.startsWith("x") || c`}
	trees, err := c.BatchParse(ctx, input)
	require.NoError(t, err)
	require.Len(t, trees, len(input))

	texts, err := c.BatchDeparse(ctx, trees)
	require.NoError(t, err)
	assert.Equal(t, input, texts)
}

func TestClientErrors(t *testing.T) {
	srv := startServer(t)
	c := client.New(srv.URL, client.WithHTTPClient(srv.Client()))
	ctx := context.Background()

	_, err := c.BatchParse(ctx, []string{"ok", "broken ("})
	var apiErr *client.Error
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, handler.CodeInvalidArgument, apiErr.Code)
	assert.Contains(t, apiErr.Message, "expressions[1]")

	_, err = c.BatchParse(ctx, make([]string, 11))
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, handler.CodeResourceExhausted, apiErr.Code)
}

func TestClientNonConnectError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := client.New(srv.URL).BatchParse(context.Background(), []string{"a"})
	var apiErr *client.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "unknown", apiErr.Code)
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestClientLengthMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"expressions":[]}`))
	}))
	defer srv.Close()

	_, err := client.New(srv.URL).BatchDeparse(context.Background(), nil)
	require.NoError(t, err)

	_, err = client.New(srv.URL).BatchParse(context.Background(), []string{"a"})
	assert.Error(t, err)
}
