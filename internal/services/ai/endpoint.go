package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ai-charchat-go/internal/config"
	"github.com/ai-charchat-go/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	defaultModel          = "gpt-3.5-turbo"
	defaultMemoryStrength = 5
)

// KeySource returns the user's stored API key for a provider.
type KeySource interface {
	APIKey(ctx context.Context, provider string) (string, error)
}

// EndpointResponder talks to OpenAI-compatible chat completion endpoints
// directly, using the key stored in the user's settings.
type EndpointResponder struct {
	registry     *Registry
	defaultModel string
	provider     string
	keys         KeySource
	httpClient   *http.Client
	logger       *logrus.Logger

	maxRetries  int
	backoffBase time.Duration
}

// NewEndpointResponder creates an endpoint responder. provider names the
// endpoint used for models that no endpoint lists.
func NewEndpointResponder(cfg *config.ModelsConfig, provider string, registry *Registry, keys KeySource, logger *logrus.Logger) *EndpointResponder {
	model := cfg.Default
	if model == "" {
		model = defaultModel
	}
	return &EndpointResponder{
		registry:     registry,
		defaultModel: model,
		provider:     provider,
		keys:         keys,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger:      logger,
		maxRetries:  3,
		backoffBase: 2 * time.Second,
	}
}

// WithBackoff overrides the retry count and base delay.
func (e *EndpointResponder) WithBackoff(maxRetries int, base time.Duration) *EndpointResponder {
	e.maxRetries = maxRetries
	e.backoffBase = base
	return e
}

func (e *EndpointResponder) Name() string { return "endpoint" }

// permanentError marks failures that retrying cannot fix.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Reply gets the character's reply with retry logic
func (e *EndpointResponder) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	if req.Character == nil {
		return "", errors.New("character is required")
	}

	modelID := req.Character.AIModel
	if modelID == "" {
		modelID = e.defaultModel
	}

	endpoint, maxTokens, err := e.resolve(ctx, modelID)
	if err != nil {
		return "", err
	}

	apiKey := endpoint.APIKey
	if e.keys != nil {
		stored, err := e.keys.APIKey(ctx, endpoint.Name)
		if err != nil {
			e.logger.WithError(err).Warn("Failed to read stored API key")
		} else if stored != "" {
			apiKey = stored
		}
	}
	if apiKey == "" {
		return "", fmt.Errorf("no API key configured for %s", endpoint.Name)
	}

	messages := BuildMessages(req)

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		response, err := e.complete(ctx, endpoint, apiKey, modelID, maxTokens, messages, attempt)
		if err == nil {
			return response, nil
		}

		lastErr = err
		var perm *permanentError
		if errors.As(err, &perm) {
			return "", perm.err
		}

		e.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
			"modelID": modelID,
		}).Warn("AI request failed, retrying...")

		if attempt < e.maxRetries {
			// Exponential backoff: base, 2*base, 4*base
			wait := e.backoffBase << uint(attempt-1)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return "", fmt.Errorf("all retry attempts failed: %w", lastErr)
}

func (e *EndpointResponder) resolve(ctx context.Context, modelID string) (*config.ModelEndpoint, int, error) {
	endpoint, model, err := e.registry.Resolve(ctx, modelID)
	if err == nil {
		return endpoint, model.MaxTokens, nil
	}

	// Unlisted models go to the configured provider
	endpoint, perr := e.registry.Endpoint(ctx, e.provider)
	if perr != nil {
		return nil, 0, err
	}
	return endpoint, 0, nil
}

// complete performs a single request attempt
func (e *EndpointResponder) complete(ctx context.Context, endpoint *config.ModelEndpoint, apiKey, modelID string, maxTokens int, messages []models.ReplyMessage, attempt int) (string, error) {
	reqBody := map[string]interface{}{
		"model":       modelID,
		"messages":    messages,
		"temperature": 0.7,
	}
	if maxTokens > 0 {
		reqBody["max_tokens"] = maxTokens
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &permanentError{fmt.Errorf("failed to marshal request: %w", err)}
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/chat/completions", strings.TrimSuffix(endpoint.BaseURL, "/"))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &permanentError{fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", apiKey))

	e.logger.WithFields(logrus.Fields{
		"model":    modelID,
		"endpoint": endpoint.Name,
		"url":      url,
		"attempt":  attempt,
	}).Debug("Sending AI request")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		e.logger.WithFields(logrus.Fields{
			"status":  resp.StatusCode,
			"attempt": attempt,
		}).Error("AI request failed")

		err := fmt.Errorf("AI request failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
		// Client errors other than rate limiting are not retried
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return "", &permanentError{err}
		}
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("AI error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", ErrEmptyReply
	}

	return result.Choices[0].Message.Content, nil
}

// BuildMessages turns the character and the recent history into a chat
// completion prompt. Memory strength bounds how many past messages are sent.
func BuildMessages(req ReplyRequest) []models.ReplyMessage {
	c := req.Character

	var sys strings.Builder
	fmt.Fprintf(&sys, "You are %s.", c.Name)
	if c.Tagline != "" {
		fmt.Fprintf(&sys, " %s", c.Tagline)
	}
	if c.Personality != "" {
		fmt.Fprintf(&sys, "\nPersonality: %s", c.Personality)
	}
	if c.Background != "" {
		fmt.Fprintf(&sys, "\nBackground: %s", c.Background)
	}
	if req.UserName != "" {
		fmt.Fprintf(&sys, "\nYou are talking with %s.", req.UserName)
	}
	sys.WriteString("\nStay in character and answer conversationally.")
	if !c.IsNSFW {
		sys.WriteString(" Keep the conversation safe for work.")
	}

	strength := c.MemoryStrength
	if strength <= 0 {
		strength = defaultMemoryStrength
	}
	history := req.History
	if window := strength * 2; len(history) > window {
		history = history[len(history)-window:]
	}

	messages := make([]models.ReplyMessage, 0, len(history)+2)
	messages = append(messages, models.ReplyMessage{Role: "system", Content: sys.String()})
	for _, m := range history {
		role := "user"
		if m.IsCharacter {
			role = "assistant"
		}
		messages = append(messages, models.ReplyMessage{Role: role, Content: m.Content})
	}
	return append(messages, models.ReplyMessage{Role: "user", Content: req.UserMessage})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
