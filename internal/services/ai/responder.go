package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ai-charchat-go/internal/config"
	"github.com/ai-charchat-go/internal/middleware"
	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/api"
	"github.com/sirupsen/logrus"
)

// ReplyRequest is everything a responder may use to answer as a character.
type ReplyRequest struct {
	Character   *models.Character
	History     []models.Message
	UserMessage string
	UserName    string
}

// Responder produces a character's reply to the user's latest message.
type Responder interface {
	Name() string
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}

// ErrEmptyReply is returned when a responder produced no text.
var ErrEmptyReply = errors.New("no response from AI")

// NewResponder builds the responder selected by cfg.Chat.Responder.
func NewResponder(cfg *config.Config, svc api.Service, registry *Registry, keys KeySource, metrics *middleware.Metrics, logger *logrus.Logger) (Responder, error) {
	var r Responder
	switch cfg.Chat.Responder {
	case "backend":
		r = NewBackendResponder(svc, logger)
	case "endpoint":
		r = NewEndpointResponder(&cfg.Models, cfg.Chat.Provider, registry, keys, logger)
	case "canned":
		r = NewCannedResponder(cfg.Chat.ReplyDelay, nil)
	default:
		return nil, fmt.Errorf("unsupported chat responder: %s", cfg.Chat.Responder)
	}
	return Instrument(r, metrics, logger), nil
}

// CharacterReplier is the part of the API client BackendResponder needs.
type CharacterReplier interface {
	TestCharacterResponse(ctx context.Context, character *models.Character, userMessage string) (*models.CharacterReply, error)
}

// BackendResponder asks the backend's test-character endpoint for replies.
type BackendResponder struct {
	api    CharacterReplier
	logger *logrus.Logger
}

func NewBackendResponder(svc CharacterReplier, logger *logrus.Logger) *BackendResponder {
	return &BackendResponder{api: svc, logger: logger}
}

func (b *BackendResponder) Name() string { return "backend" }

func (b *BackendResponder) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	reply, err := b.api.TestCharacterResponse(ctx, req.Character, req.UserMessage)
	if err != nil {
		return "", err
	}
	if !reply.Success {
		msg := reply.Error
		if msg == "" {
			msg = "Could not generate character response"
		}
		return "", errors.New(msg)
	}
	if strings.TrimSpace(reply.Response) == "" {
		return "", ErrEmptyReply
	}
	return reply.Response, nil
}

var cannedReplies = []string{
	"I understand what you're saying about \"%s...\" That's an interesting perspective.",
	"I'm not sure I fully agree with your point about \"%s...\" Let me think about it.",
	"Thanks for sharing that! I've been thinking about similar things lately.",
	"That's fascinating! I'd love to hear more about your thoughts on this topic.",
	"I've been considering something similar. What made you think about this?",
	"I appreciate you sharing that with me. It helps me understand you better.",
	"I'm curious to know more about what led you to that conclusion?",
	"That's a really good point! I hadn't thought about it that way before.",
}

// CannedResponder answers from a fixed set of replies after a short delay.
type CannedResponder struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	delay time.Duration
}

// NewCannedResponder creates a canned responder. A nil rnd is seeded from the
// clock.
func NewCannedResponder(delay time.Duration, rnd *rand.Rand) *CannedResponder {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &CannedResponder{rnd: rnd, delay: delay}
}

func (c *CannedResponder) Name() string { return "canned" }

func (c *CannedResponder) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	if c.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.delay):
		}
	}

	c.mu.Lock()
	tmpl := cannedReplies[c.rnd.Intn(len(cannedReplies))]
	c.mu.Unlock()

	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, prefix(req.UserMessage, 20)), nil
	}
	return tmpl, nil
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

type instrumented struct {
	Responder
	metrics *middleware.Metrics
	logger  *logrus.Logger
}

// Instrument records duration and outcome of every reply.
func Instrument(r Responder, metrics *middleware.Metrics, logger *logrus.Logger) Responder {
	if metrics == nil {
		return r
	}
	return &instrumented{Responder: r, metrics: metrics, logger: logger}
}

func (i *instrumented) Reply(ctx context.Context, req ReplyRequest) (string, error) {
	start := time.Now()
	reply, err := i.Responder.Reply(ctx, req)

	status := "success"
	if err != nil {
		status = "error"
		i.logger.WithError(err).WithField("responder", i.Name()).Warn("Character reply failed")
	}
	i.metrics.RecordReply(i.Name(), status, time.Since(start))
	return reply, err
}
