package middleware

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ai-charchat-go/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter paces outgoing backend requests.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// RequestRateLimiter is a token bucket shared by every request of a client.
type RequestRateLimiter struct {
	enabled bool
	limiter *rate.Limiter
	metrics *Metrics
	logger  *logrus.Logger
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg *config.Config, metrics *Metrics, logger *logrus.Logger) RateLimiter {
	if !cfg.RateLimit.Enabled || cfg.RateLimit.RequestsPerMinute <= 0 {
		return &RequestRateLimiter{enabled: false}
	}

	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 1
	}

	// Rate per second = RPM / 60
	rps := float64(cfg.RateLimit.RequestsPerMinute) / 60.0
	return &RequestRateLimiter{
		enabled: true,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		metrics: metrics,
		logger:  logger,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (r *RequestRateLimiter) Wait(ctx context.Context) error {
	if !r.enabled {
		return nil
	}

	if r.limiter.Allow() {
		return nil
	}

	if r.metrics != nil {
		r.metrics.RecordRateLimitWait()
	}
	r.logger.Debug("Request rate limited, waiting")
	return r.limiter.Wait(ctx)
}

// InputValidator checks chat input before it is sent.
type InputValidator struct {
	maxLength int
}

// NewInputValidator creates an input validator
func NewInputValidator(maxLength int) *InputValidator {
	return &InputValidator{maxLength: maxLength}
}

// ValidateInput performs input validation
func (v *InputValidator) ValidateInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("message is empty")
	}
	if len(text) > v.maxLength {
		return fmt.Errorf("message too long: %d bytes", len(text))
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("message is not valid UTF-8")
	}
	return nil
}
