package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, logger.Discard())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestCheckServerHealthOK(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	status, err := c.CheckServerHealth(context.Background())
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !status.OK() {
		t.Fatalf("expected ok status, got %+v", status)
	}
}

func TestCheckServerHealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, logger.Discard())
	status, err := c.CheckServerHealth(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	if status == nil || status.Status != "error" || status.Message != "Could not connect to server" {
		t.Fatalf("unexpected status %+v", status)
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Backend {
		t.Fatalf("expected transport *Error, got %v", err)
	}
}

func TestCheckProviderStatusPaths(t *testing.T) {
	var paths []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, provider := range []string{models.ProviderOpenAI, models.ProviderOpenRouter} {
		if _, err := c.CheckProviderStatus(context.Background(), provider); err != nil {
			t.Fatalf("%s: %v", provider, err)
		}
	}
	if len(paths) != 2 || paths[0] != "/api/openai/status" || paths[1] != "/api/ai/status" {
		t.Fatalf("unexpected paths %v", paths)
	}
}

func TestBackendErrorField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Email already registered"})
	})

	user, err := c.CreateUser(context.Background(), &NewUser{Email: "a@b.c", Name: "A"})
	if user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
	if !IsBackendError(err) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if got := Message(err, "x"); got != "Email already registered" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestErrorFieldOnSuccessStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"error": map[string]string{"message": "quota"}})
	})

	_, err := c.GetCharacters(context.Background(), CharacterFilter{})
	if Message(err, "") != "quota" {
		t.Fatalf("expected quota error, got %v", err)
	}
}

func TestFallbackMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "<html>boom</html>")
	})
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
		want string
	}{
		{"create user", func() error { _, err := c.CreateUser(ctx, &NewUser{}); return err }, "Could not create user"},
		{"get user", func() error { _, err := c.GetUser(ctx, "1"); return err }, "Could not fetch user data"},
		{"update user", func() error { _, err := c.UpdateUser(ctx, "1", &models.User{}); return err }, "Could not update user data"},
		{"create character", func() error { _, err := c.CreateCharacter(ctx, &models.Character{}); return err }, "Could not create character"},
		{"get characters", func() error { _, err := c.GetCharacters(ctx, CharacterFilter{}); return err }, "Could not fetch characters"},
		{"get character", func() error { _, err := c.GetCharacter(ctx, "1"); return err }, "Could not fetch character data"},
		{"update character", func() error { _, err := c.UpdateCharacter(ctx, "1", &models.Character{}); return err }, "Could not update character data"},
		{"delete character", func() error { return c.DeleteCharacter(ctx, "1") }, "Could not delete character"},
		{"create session", func() error { _, err := c.CreateChatSession(ctx, &models.ChatSession{}); return err }, "Could not create chat session"},
		{"get session", func() error { _, err := c.GetChatSession(ctx, "1"); return err }, "Could not fetch chat session"},
		{"get sessions", func() error { _, err := c.GetChatSessions(ctx, "1"); return err }, "Could not fetch chat sessions"},
		{"delete session", func() error { return c.DeleteChatSession(ctx, "1") }, "Could not delete chat session"},
		{"create message", func() error { _, err := c.CreateMessage(ctx, &models.Message{}); return err }, "Could not create message"},
		{"get messages", func() error { _, err := c.GetMessages(ctx, "1"); return err }, "Could not fetch messages"},
		{"mark read", func() error { return c.MarkMessagesAsRead(ctx, "1") }, "Could not mark messages as read"},
		{"check ai", func() error { _, err := c.CheckAIStatus(ctx); return err }, "Could not check AI API status"},
	}

	for _, tc := range cases {
		err := tc.call()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if IsBackendError(err) {
			t.Fatalf("%s: parse failure reported as backend error", tc.name)
		}
		if got := Message(err, ""); got != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, got, tc.want)
		}
	}
}

func TestGetCharactersQuery(t *testing.T) {
	var queries []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		writeJSON(w, http.StatusOK, []map[string]interface{}{{"id": 7, "name": "Nova", "creator_id": 1}})
	})
	ctx := context.Background()

	chars, err := c.GetCharacters(ctx, CharacterFilter{CreatorID: "1"})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(chars) != 1 || chars[0].ID != "7" || chars[0].CreatorID != "1" {
		t.Fatalf("unexpected characters %+v", chars)
	}
	if _, err := c.GetCharacters(ctx, CharacterFilter{IsPublic: true}); err != nil {
		t.Fatalf("get public: %v", err)
	}
	if _, err := c.GetCharacters(ctx, CharacterFilter{}); err != nil {
		t.Fatalf("get all: %v", err)
	}

	want := []string{"creatorId=1", "isPublic=true", ""}
	for i, q := range want {
		if queries[i] != q {
			t.Fatalf("query %d: got %q want %q", i, queries[i], q)
		}
	}
}

func TestListQueriesSkipEmptyFilters(t *testing.T) {
	var requests []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.RequestURI())
		writeJSON(w, http.StatusOK, []interface{}{})
	})
	ctx := context.Background()

	for _, call := range []func() error{
		func() error { _, err := c.GetChatSessions(ctx, "1"); return err },
		func() error { _, err := c.GetChatSessions(ctx, ""); return err },
		func() error { _, err := c.GetMessages(ctx, "9"); return err },
		func() error { _, err := c.GetMessages(ctx, ""); return err },
	} {
		if err := call(); err != nil {
			t.Fatalf("list: %v", err)
		}
	}

	want := []string{
		"/api/chat-sessions?userId=1",
		"/api/chat-sessions",
		"/api/messages?sessionId=9",
		"/api/messages",
	}
	for i, uri := range want {
		if requests[i] != uri {
			t.Fatalf("request %d: got %q want %q", i, requests[i], uri)
		}
	}
}

func TestTestCharacterResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/test-character" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Character   models.Character `json:"character"`
			UserMessage string           `json:"userMessage"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"response": body.Character.Name + " heard: " + body.UserMessage,
		})
	})

	reply, err := c.TestCharacterResponse(context.Background(), &models.Character{Name: "Nova"}, "hi")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if !reply.Success || reply.Response != "Nova heard: hi" {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestTestCharacterResponseFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "error": "AI offline"})
	})

	reply, err := c.TestCharacterResponse(context.Background(), &models.Character{}, "hi")
	if err == nil {
		t.Fatalf("expected error")
	}
	if reply.Success || reply.Error != "AI offline" {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestDeleteWithEmptyBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api/chat-sessions/42" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.DeleteChatSession(context.Background(), "42"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestMarkMessagesAsReadBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["sessionId"] != float64(5) {
			t.Errorf("unexpected body %v", body)
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	if err := c.MarkMessagesAsRead(context.Background(), "5"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
}

type failingLimiter struct{}

func (failingLimiter) Wait(ctx context.Context) error { return context.Canceled }

func TestRateLimiterFailure(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := New(srv.URL, logger.Discard(), WithRateLimiter(failingLimiter{}))
	_, err := c.GetMessages(context.Background(), "1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
	if called {
		t.Fatalf("request sent despite limiter failure")
	}
}
