// Package client — клиент сервиса выражений, говорящий на протоколе Connect (JSON).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MaxRadzey/celservice/internal/models"
	exprpb "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Error — ошибка, которую вернул сервер.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Code, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

// WithHTTPClient подменяет HTTP-клиент, например на клиент httptest-сервера.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout передаёт серверу ограничение времени через Connect-Timeout-Ms.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.timeout = d
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BatchParse разбирает выражения на сервере. Ответ i соответствует выражению i.
func (c *Client) BatchParse(ctx context.Context, expressions []string) ([]*exprpb.Expr, error) {
	var resp models.BatchParseResponse
	if err := c.call(ctx, models.BatchParsePath, models.BatchParseRequest{Expressions: expressions}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Expressions) != len(expressions) {
		return nil, fmt.Errorf("server returned %d expressions for %d inputs", len(resp.Expressions), len(expressions))
	}
	return resp.Expressions, nil
}

// BatchDeparse собирает деревья в текст на сервере. Ответ i соответствует дереву i.
func (c *Client) BatchDeparse(ctx context.Context, expressions []*exprpb.Expr) ([]string, error) {
	var resp models.BatchDeparseResponse
	if err := c.call(ctx, models.BatchDeparsePath, models.BatchDeparseRequest{Expressions: expressions}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Expressions) != len(expressions) {
		return nil, fmt.Errorf("server returned %d expressions for %d inputs", len(resp.Expressions), len(expressions))
	}
	return resp.Expressions, nil
}

func (c *Client) call(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Connect-Protocol-Version", "1")
	if c.timeout > 0 {
		request.Header.Set("Connect-Timeout-Ms", strconv.FormatInt(c.timeout.Milliseconds(), 10))
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("call %s: %w", path, err)
	}
	defer response.Body.Close()

	data, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if response.StatusCode != http.StatusOK {
		e := &Error{Status: response.StatusCode}
		var wire models.Error
		if json.Unmarshal(data, &wire) == nil && wire.Code != "" {
			e.Code, e.Message = wire.Code, wire.Message
		} else {
			e.Code, e.Message = "unknown", strings.TrimSpace(string(data))
		}
		return e
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
