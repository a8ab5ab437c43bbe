package middleware

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/ai-charchat-go/internal/config"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestInputValidator(t *testing.T) {
	v := NewInputValidator(10)
	cases := map[string]bool{
		"hello":                 false,
		"   ":                   true,
		"":                      true,
		strings.Repeat("a", 10): false,
		strings.Repeat("a", 11): true,
		"héllo wörld":           true,
		"\xff\xfe":              true,
	}
	for in, wantErr := range cases {
		if err := v.ValidateInput(in); (err != nil) != wantErr {
			t.Fatalf("ValidateInput(%q) = %v, want error %v", in, err, wantErr)
		}
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	cfg := &config.Config{RateLimit: config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1}}
	l := NewRateLimiter(cfg, nil, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("disabled limiter blocked: %v", err)
		}
	}
}

func TestRateLimiterBurst(t *testing.T) {
	cfg := &config.Config{RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2}}
	l := NewRateLimiter(cfg, NewMetrics(), quietLogger())

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := l.Wait(ctx); err != nil {
			t.Fatalf("burst request %d: %v", i, err)
		}
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := l.Wait(canceled); err == nil {
		t.Fatalf("request beyond burst was not limited")
	}
}
