package ai

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ai-charchat-go/internal/config"
	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/storage"
	"github.com/ai-charchat-go/pkg/logger"
)

func testModels(baseURL string) *config.ModelsConfig {
	return &config.ModelsConfig{
		Default: "gpt-3.5-turbo",
		Endpoints: []config.ModelEndpoint{
			{
				Name:    "openai",
				BaseURL: baseURL,
				Models:  []config.ModelInfo{{ID: "gpt-3.5-turbo", MaxTokens: 256}},
			},
		},
	}
}

type staticKeys map[string]string

func (k staticKeys) APIKey(ctx context.Context, provider string) (string, error) {
	return k[provider], nil
}

func TestRegistryAddAndResolve(t *testing.T) {
	log := logger.Discard()
	r := NewRegistry(testModels("https://api.example.com/v1"), storage.NewSessionStore(log), log)
	ctx := context.Background()

	if err := r.AddEndpoint(ctx, config.ModelEndpoint{Name: "openai", BaseURL: "https://x.example"}); err == nil {
		t.Fatalf("duplicate endpoint accepted")
	}
	if err := r.AddEndpoint(ctx, config.ModelEndpoint{Name: "local", BaseURL: "ftp://nope"}); err == nil {
		t.Fatalf("invalid base url accepted")
	}
	if err := r.AddEndpoint(ctx, config.ModelEndpoint{
		Name:    "local",
		BaseURL: "http://localhost:11434/v1",
		Models:  []config.ModelInfo{{ID: "llama3"}},
	}); err != nil {
		t.Fatalf("add endpoint: %v", err)
	}

	ep, model, err := r.Resolve(ctx, "llama3")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ep.Name != "local" || model.EndpointName != "local" {
		t.Fatalf("unexpected resolution %+v %+v", ep, model)
	}

	if err := r.AddModel(ctx, "openai", config.ModelInfo{ID: "gpt-4o"}); err != nil {
		t.Fatalf("add model: %v", err)
	}
	if _, _, err := r.Resolve(ctx, "gpt-4o"); err != nil {
		t.Fatalf("resolve added model: %v", err)
	}
	options, err := r.Models(ctx)
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if len(options) != 3 {
		t.Fatalf("expected 3 models, got %+v", options)
	}

	if err := r.RemoveEndpoint(ctx, "openai"); err != nil {
		t.Fatalf("remove override: %v", err)
	}
	if _, _, err := r.Resolve(ctx, "gpt-4o"); err == nil {
		t.Fatalf("override still active after removal")
	}
	if _, _, err := r.Resolve(ctx, "gpt-3.5-turbo"); err != nil {
		t.Fatalf("configured endpoint lost: %v", err)
	}
}

type stubReplier struct {
	reply *models.CharacterReply
	err   error
}

func (s stubReplier) TestCharacterResponse(ctx context.Context, c *models.Character, msg string) (*models.CharacterReply, error) {
	return s.reply, s.err
}

func TestBackendResponder(t *testing.T) {
	ctx := context.Background()
	req := ReplyRequest{Character: &models.Character{Name: "Nova"}, UserMessage: "hi"}

	r := NewBackendResponder(stubReplier{reply: &models.CharacterReply{Success: true, Response: "hello"}}, logger.Discard())
	got, err := r.Reply(ctx, req)
	if err != nil || got != "hello" {
		t.Fatalf("unexpected reply %q %v", got, err)
	}

	r = NewBackendResponder(stubReplier{reply: &models.CharacterReply{Success: false, Error: "AI offline"}}, logger.Discard())
	if _, err := r.Reply(ctx, req); err == nil || err.Error() != "AI offline" {
		t.Fatalf("expected AI offline error, got %v", err)
	}

	r = NewBackendResponder(stubReplier{reply: &models.CharacterReply{Success: true}}, logger.Discard())
	if _, err := r.Reply(ctx, req); err != ErrEmptyReply {
		t.Fatalf("expected empty reply error, got %v", err)
	}
}

func TestCannedResponderDeterministic(t *testing.T) {
	a := NewCannedResponder(0, rand.New(rand.NewSource(7)))
	b := NewCannedResponder(0, rand.New(rand.NewSource(7)))
	req := ReplyRequest{UserMessage: "Tell me about the old lighthouse on the hill"}

	for i := 0; i < 5; i++ {
		x, err := a.Reply(context.Background(), req)
		if err != nil {
			t.Fatalf("reply: %v", err)
		}
		y, _ := b.Reply(context.Background(), req)
		if x != y {
			t.Fatalf("same seed produced %q and %q", x, y)
		}
		if strings.Contains(x, "\"") && !strings.Contains(x, "\"Tell me about the ol...\"") {
			t.Fatalf("quoted prefix not truncated to 20 runes: %q", x)
		}
	}
}

func TestCannedResponderHonoursContext(t *testing.T) {
	r := NewCannedResponder(time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Reply(ctx, ReplyRequest{}); err != context.Canceled {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestEndpointResponderRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-user" {
			t.Errorf("unexpected auth %q", r.Header.Get("Authorization"))
		}
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		var body struct {
			Model     string                `json:"model"`
			Messages  []models.ReplyMessage `json:"messages"`
			MaxTokens int                   `json:"max_tokens"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Model != "gpt-3.5-turbo" || body.MaxTokens != 256 || body.Messages[0].Role != "system" {
			t.Errorf("unexpected body %+v", body)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{{"message": map[string]string{"content": "Greetings!"}}},
		})
	}))
	defer srv.Close()

	log := logger.Discard()
	cfg := testModels(srv.URL)
	r := NewEndpointResponder(cfg, "openai", NewRegistry(cfg, nil, log), staticKeys{"openai": "sk-user"}, log).
		WithBackoff(3, time.Millisecond)

	got, err := r.Reply(context.Background(), ReplyRequest{Character: &models.Character{Name: "Nova"}, UserMessage: "hi"})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if got != "Greetings!" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("unexpected reply %q after %d calls", got, calls)
	}
}

func TestEndpointResponderClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	log := logger.Discard()
	cfg := testModels(srv.URL)
	cfg.Endpoints[0].APIKey = "sk-config"
	r := NewEndpointResponder(cfg, "openai", NewRegistry(cfg, nil, log), nil, log).WithBackoff(3, time.Millisecond)

	if _, err := r.Reply(context.Background(), ReplyRequest{Character: &models.Character{Name: "Nova"}}); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("client error retried %d times", calls)
	}
}

func TestEndpointResponderRequiresKey(t *testing.T) {
	log := logger.Discard()
	cfg := testModels("https://api.example.com/v1")
	r := NewEndpointResponder(cfg, "openai", NewRegistry(cfg, nil, log), staticKeys{}, log)
	if _, err := r.Reply(context.Background(), ReplyRequest{Character: &models.Character{Name: "Nova"}}); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestBuildMessagesMemoryWindow(t *testing.T) {
	history := make([]models.Message, 10)
	for i := range history {
		history[i] = models.Message{Content: string(rune('a' + i)), IsCharacter: i%2 == 1}
	}
	msgs := BuildMessages(ReplyRequest{
		Character:   &models.Character{Name: "Nova", MemoryStrength: 2},
		History:     history,
		UserMessage: "latest",
	})

	// system + 4 history + latest
	if len(msgs) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(msgs))
	}
	if msgs[1].Content != "g" || msgs[1].Role != "user" || msgs[2].Role != "assistant" {
		t.Fatalf("unexpected window %+v", msgs)
	}
	if msgs[5].Content != "latest" || !strings.HasPrefix(msgs[0].Content, "You are Nova.") {
		t.Fatalf("unexpected prompt %+v", msgs)
	}
}
