package devserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/api"
	"github.com/ai-charchat-go/pkg/logger"
)

func newClient(t *testing.T, s *Server) *api.Client {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return api.New(srv.URL, logger.Discard())
}

func TestUserLifecycle(t *testing.T) {
	client := newClient(t, New(logger.Discard()))
	ctx := context.Background()

	user, err := client.CreateUser(ctx, &api.NewUser{Email: "a@example.com", Name: "Ada"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID == "" || user.Name != "Ada" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := client.CreateUser(ctx, &api.NewUser{Email: "A@example.com"}); !api.IsBackendError(err) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}

	user.Bio = "hello"
	updated, err := client.UpdateUser(ctx, user.ID, user)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Bio != "hello" {
		t.Fatalf("bio not saved: %+v", updated)
	}
}

func TestChatFlow(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := New(logger.Discard(), WithClock(func() time.Time { return now }))
	client := newClient(t, s)
	ctx := context.Background()

	nova := s.SeedCharacter(models.Character{Name: "Nova", CreatorID: "1", IsPublic: true})
	session, err := client.CreateChatSession(ctx, &models.ChatSession{UserID: "1", CharacterID: nova.ID})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if _, err := client.CreateMessage(ctx, &models.Message{SessionID: session.ID, SenderID: "1", Content: "hi"}); err != nil {
		t.Fatalf("user message: %v", err)
	}
	if _, err := client.CreateMessage(ctx, &models.Message{SessionID: session.ID, SenderID: nova.ID, IsCharacter: true, Content: "hello"}); err != nil {
		t.Fatalf("character message: %v", err)
	}

	sessions, err := client.GetChatSessions(ctx, "1")
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].UnreadCount != 1 || sessions[0].LastMessage != "hello" {
		t.Fatalf("unexpected sessions %+v", sessions)
	}

	if err := client.MarkMessagesAsRead(ctx, session.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	got, err := client.GetChatSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.UnreadCount != 0 {
		t.Fatalf("unread not reset: %+v", got)
	}

	messages, err := client.GetMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(messages) != 2 || !messages[0].CreatedAt.Equal(now) {
		t.Fatalf("unexpected messages %+v", messages)
	}

	if err := client.DeleteChatSession(ctx, session.ID); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := client.GetChatSession(ctx, session.ID); !api.IsBackendError(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCharacterFilters(t *testing.T) {
	s := New(logger.Discard())
	client := newClient(t, s)
	ctx := context.Background()

	s.SeedCharacter(models.Character{Name: "Mine", CreatorID: "1"})
	s.SeedCharacter(models.Character{Name: "Public", CreatorID: "2", IsPublic: true})

	mine, err := client.GetCharacters(ctx, api.CharacterFilter{CreatorID: "1"})
	if err != nil || len(mine) != 1 || mine[0].Name != "Mine" {
		t.Fatalf("unexpected own characters %+v, %v", mine, err)
	}
	public, err := client.GetCharacters(ctx, api.CharacterFilter{IsPublic: true})
	if err != nil || len(public) != 1 || public[0].Name != "Public" {
		t.Fatalf("unexpected public characters %+v, %v", public, err)
	}
}

func TestTestCharacterUnavailable(t *testing.T) {
	s := New(logger.Discard(), WithAIStatus("error"))
	client := newClient(t, s)

	reply, err := client.TestCharacterResponse(context.Background(), &models.Character{Name: "Nova"}, "hi")
	if err == nil || reply.Success {
		t.Fatalf("expected failure, got %+v", reply)
	}

	s.SetAIStatus("ok")
	reply, err = client.TestCharacterResponse(context.Background(), &models.Character{Name: "Nova"}, "*waves*")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply.Response != "*Nova smiles back*" {
		t.Fatalf("unexpected reply %q", reply.Response)
	}
}
