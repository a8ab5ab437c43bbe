package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ai-charchat-go/internal/config"
	"github.com/ai-charchat-go/internal/middleware"
	"github.com/ai-charchat-go/internal/models"
	"github.com/sirupsen/logrus"
)

// Service is the backend REST API as seen by the page controllers.
type Service interface {
	CheckServerHealth(ctx context.Context) (*models.Status, error)
	CheckAIStatus(ctx context.Context) (*models.Status, error)
	CheckProviderStatus(ctx context.Context, provider string) (*models.Status, error)
	TestCharacterResponse(ctx context.Context, character *models.Character, userMessage string) (*models.CharacterReply, error)

	CreateUser(ctx context.Context, user *NewUser) (*models.User, error)
	GetUser(ctx context.Context, id models.ID) (*models.User, error)
	UpdateUser(ctx context.Context, id models.ID, user *models.User) (*models.User, error)

	CreateCharacter(ctx context.Context, character *models.Character) (*models.Character, error)
	GetCharacters(ctx context.Context, filter CharacterFilter) ([]models.Character, error)
	GetCharacter(ctx context.Context, id models.ID) (*models.Character, error)
	UpdateCharacter(ctx context.Context, id models.ID, character *models.Character) (*models.Character, error)
	DeleteCharacter(ctx context.Context, id models.ID) error

	CreateChatSession(ctx context.Context, session *models.ChatSession) (*models.ChatSession, error)
	GetChatSession(ctx context.Context, id models.ID) (*models.ChatSession, error)
	GetChatSessions(ctx context.Context, userID models.ID) ([]models.ChatSession, error)
	DeleteChatSession(ctx context.Context, id models.ID) error

	CreateMessage(ctx context.Context, message *models.Message) (*models.Message, error)
	GetMessages(ctx context.Context, sessionID models.ID) ([]models.Message, error)
	MarkMessagesAsRead(ctx context.Context, sessionID models.ID) error
}

// NewUser is the signup payload.
type NewUser struct {
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Name     string `json:"name"`
}

// CharacterFilter narrows GetCharacters. Zero fields are not sent.
type CharacterFilter struct {
	CreatorID models.ID
	IsPublic  bool
}

// Client talks to the backend under <base>/api.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    middleware.RateLimiter
	metrics    *middleware.Metrics
	logger     *logrus.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithRateLimiter paces requests through limiter.
func WithRateLimiter(limiter middleware.RateLimiter) Option {
	return func(c *Client) { c.limiter = limiter }
}

// WithMetrics records per-request metrics.
func WithMetrics(metrics *middleware.Metrics) Option {
	return func(c *Client) { c.metrics = metrics }
}

// New creates a client for baseURL.
func New(baseURL string, logger *logrus.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/api",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClient creates a client from configuration.
func NewClient(cfg *config.Config, limiter middleware.RateLimiter, metrics *middleware.Metrics, logger *logrus.Logger) *Client {
	return New(cfg.API.BaseURL, logger,
		WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		WithRateLimiter(limiter),
		WithMetrics(metrics),
	)
}

// request describes one call. fallback is the message reported when the call
// fails before a backend answer could be read.
type request struct {
	op       string
	method   string
	path     string
	query    url.Values
	body     interface{}
	fallback string
}

// do performs req and decodes the JSON answer into out. It never panics and
// always reports failures as *Error.
func (c *Client) do(ctx context.Context, req request, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = c.fail(req, fmt.Errorf("panic: %v", r), 0)
		}
		c.observe(req.op, start, err)
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.fail(req, err, 0)
		}
	}

	endpoint := c.baseURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return c.fail(req, fmt.Errorf("failed to marshal request: %w", err), 0)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return c.fail(req, fmt.Errorf("failed to create request: %w", err), 0)
	}
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	c.logger.WithFields(logrus.Fields{
		"operation": req.op,
		"method":    req.method,
		"url":       endpoint,
	}).Debug("Sending API request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.fail(req, fmt.Errorf("failed to send request: %w", err), 0)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(req, fmt.Errorf("failed to read response: %w", err), resp.StatusCode)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		// Deletes and read receipts may answer without a body
		if out == nil && resp.StatusCode < 300 {
			return nil
		}
		return c.fail(req, fmt.Errorf("empty response body"), resp.StatusCode)
	}

	if msg, ok := backendError(data); ok {
		apiErr := &Error{Op: req.op, Message: msg, Backend: true, StatusCode: resp.StatusCode}
		c.logger.WithFields(logrus.Fields{
			"operation": req.op,
			"status":    resp.StatusCode,
		}).Warn(msg)
		return apiErr
	}

	if out == nil {
		if !json.Valid(data) {
			return c.fail(req, fmt.Errorf("invalid JSON response"), resp.StatusCode)
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return c.fail(req, fmt.Errorf("failed to parse response: %w", err), resp.StatusCode)
	}
	return nil
}

func (c *Client) fail(req request, err error, status int) *Error {
	c.logger.WithError(err).WithField("operation", req.op).Error(req.fallback)
	return &Error{Op: req.op, Message: req.fallback, StatusCode: status, Err: err}
}

func (c *Client) observe(op string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordAPIRequest(op, status, time.Since(start))
}

// backendError extracts the message of an {"error": ...} body. An explicit
// {"success": false} without an error text also counts as a failure.
func backendError(data []byte) (string, bool) {
	if len(data) == 0 || data[0] != '{' {
		return "", false
	}

	var probe struct {
		Error   json.RawMessage `json:"error"`
		Success *bool           `json:"success"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", false
	}

	if msg, ok := errorText(probe.Error); ok {
		return msg, true
	}
	if probe.Success != nil && !*probe.Success {
		if probe.Message != "" {
			return probe.Message, true
		}
		return "Unknown error", true
	}
	return "", false
}

// errorText reports whether raw is a truthy error value and returns its text.
func errorText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false", `""`, "0":
		return "", false
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, true
	}

	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message, true
	}
	return string(raw), true
}
