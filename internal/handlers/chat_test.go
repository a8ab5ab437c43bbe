package handlers

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/ai"
)

type scriptedResponder struct {
	reply string
	err   error
	last  ai.ReplyRequest
}

func (s *scriptedResponder) Name() string { return "scripted" }

func (s *scriptedResponder) Reply(ctx context.Context, req ai.ReplyRequest) (string, error) {
	s.last = req
	return s.reply, s.err
}

func openChat(t *testing.T, f *fixture, character models.Character, r ai.Responder) (*ChatController, models.ID) {
	t.Helper()
	ctx := context.Background()
	f.login(t, models.User{ID: "1", Name: "Ana"})
	ch := f.backend.SeedCharacter(character)
	sess, err := f.client.CreateChatSession(ctx, &models.ChatSession{UserID: "1", CharacterID: ch.ID})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return NewChatController(f.deps, r, rand.New(rand.NewSource(1))), sess.ID
}

func TestChatOpenShowsGreeting(t *testing.T) {
	f := newFixture(t)
	c, id := openChat(t, f, models.Character{
		Name:         "Nova",
		Greeting:     "Hello, *traveler*!",
		QuickReplies: []string{"Hi", "Who are you?"},
	}, &scriptedResponder{})

	v, err := c.Open(context.Background(), id)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if v.CharacterName != "Nova" || v.Status != "online" {
		t.Fatalf("unexpected header %+v", v)
	}
	if len(v.Messages) != 1 || v.Messages[0].ID != "greeting" || !v.Messages[0].IsCharacter {
		t.Fatalf("expected greeting, got %+v", v.Messages)
	}
	if !strings.Contains(v.Messages[0].HTML, "<em>traveler</em>") {
		t.Fatalf("greeting not rendered: %q", v.Messages[0].HTML)
	}
	if len(v.QuickReplies) != 2 {
		t.Fatalf("quick replies not offered: %v", v.QuickReplies)
	}
}

func TestChatOpenWithoutSession(t *testing.T) {
	f := newFixture(t)
	f.login(t, models.User{ID: "1"})
	c := NewChatController(f.deps, &scriptedResponder{}, nil)

	_, err := c.Open(context.Background(), "")
	var formErr *FormError
	if !errors.As(err, &formErr) {
		t.Fatalf("expected form error, got %v", err)
	}
	f.wantStatus(t, KindError, "No chat session specified")

	if _, err := c.Open(context.Background(), "999"); err == nil {
		t.Fatalf("expected error for unknown session")
	}
	f.wantStatus(t, KindError, "Failed to load chat session")
}

func TestChatOpenRedirectsWhenLoggedOut(t *testing.T) {
	f := newFixture(t)
	c := NewChatController(f.deps, &scriptedResponder{}, nil)
	if _, err := c.Open(context.Background(), "1"); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if page, _ := f.rec.lastPage(); page != PageLogin {
		t.Fatalf("expected login redirect, got %q", page)
	}
}

func TestChatSendStoresBothMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := &scriptedResponder{reply: "Nice to meet you, **Ana**."}
	c, id := openChat(t, f, models.Character{Name: "Nova", Greeting: "Hello!"}, r)
	if _, err := c.Open(ctx, id); err != nil {
		t.Fatalf("open: %v", err)
	}

	v, err := c.Send(ctx, "  Hi Nova  ")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(v.Messages) != 3 {
		t.Fatalf("expected greeting, user and reply, got %+v", v.Messages)
	}
	user, reply := v.Messages[1], v.Messages[2]
	if user.Content != "Hi Nova" || user.IsCharacter || user.Pending {
		t.Fatalf("unexpected user message %+v", user)
	}
	if !reply.IsCharacter || !strings.Contains(reply.HTML, "<strong>Ana</strong>") {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if v.Status != "online" {
		t.Fatalf("typing status left on: %q", v.Status)
	}

	if r.last.UserMessage != "Hi Nova" || r.last.UserName != "Ana" || len(r.last.History) != 1 {
		t.Fatalf("unexpected reply request %+v", r.last)
	}

	stored, err := f.client.GetMessages(ctx, id)
	if err != nil {
		t.Fatalf("messages: %v", err)
	}
	if len(stored) != 2 || stored[0].Content != "Hi Nova" || !stored[1].IsCharacter {
		t.Fatalf("unexpected stored messages %+v", stored)
	}

	c2 := NewChatController(f.deps, r, nil)
	v, err = c2.Open(ctx, id)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if len(v.Messages) != 2 || v.Messages[0].Content != "Hi Nova" {
		t.Fatalf("stored conversation not restored: %+v", v.Messages)
	}
}

func TestChatSendValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, id := openChat(t, f, models.Character{Name: "Nova"}, &scriptedResponder{reply: "ok"})
	if _, err := c.Open(ctx, id); err != nil {
		t.Fatalf("open: %v", err)
	}

	var formErr *FormError
	if _, err := c.Send(ctx, "   "); !errors.As(err, &formErr) || formErr.Message != "Message cannot be empty" {
		t.Fatalf("unexpected empty error %v", err)
	}
	if _, err := c.Send(ctx, strings.Repeat("a", 101)); !errors.As(err, &formErr) || formErr.Message != "Message is too long (max 100 characters)" {
		t.Fatalf("unexpected length error %v", err)
	}
	if msgs, _ := f.client.GetMessages(ctx, id); len(msgs) != 0 {
		t.Fatalf("invalid input was sent: %+v", msgs)
	}
}

func TestChatReplyFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, id := openChat(t, f, models.Character{Name: "Nova"}, &scriptedResponder{err: ai.ErrEmptyReply})
	if _, err := c.Open(ctx, id); err != nil {
		t.Fatalf("open: %v", err)
	}

	v, err := c.Send(ctx, "hello")
	if !errors.Is(err, ai.ErrEmptyReply) {
		t.Fatalf("expected empty reply error, got %v", err)
	}
	f.wantStatus(t, KindError, "Failed to generate character response")
	if len(v.Messages) != 1 || v.Messages[0].Content != "hello" {
		t.Fatalf("user message should stay visible: %+v", v.Messages)
	}
	if v.Status != "online" {
		t.Fatalf("typing status left on: %q", v.Status)
	}
}

func TestChatWithBackendResponder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c, id := openChat(t, f, models.Character{Name: "Nova"}, ai.NewBackendResponder(f.client, f.deps.Logger))
	if _, err := c.Open(ctx, id); err != nil {
		t.Fatalf("open: %v", err)
	}

	v, err := c.SendEmote(ctx, "*waves*")
	if err != nil {
		t.Fatalf("emote: %v", err)
	}
	if got := v.Messages[len(v.Messages)-1].Content; got != "*Nova smiles back*" {
		t.Fatalf("unexpected emote reply %q", got)
	}
}

func TestChatListLoadAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, models.User{ID: "1"})
	list := NewChatListController(f.deps)

	empty, err := list.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !empty.Empty {
		t.Fatalf("expected empty state, got %+v", empty)
	}

	nova := f.backend.SeedCharacter(models.Character{Name: "Nova"})
	orbit := f.backend.SeedCharacter(models.Character{Name: "Orbit"})
	first, _ := f.client.CreateChatSession(ctx, &models.ChatSession{UserID: "1", CharacterID: nova.ID})
	second, _ := f.client.CreateChatSession(ctx, &models.ChatSession{UserID: "1", CharacterID: orbit.ID})
	if _, err := f.client.CreateMessage(ctx, &models.Message{
		SessionID:   first.ID,
		SenderID:    nova.ID,
		IsCharacter: true,
		Content:     "Are you there?",
		CreatedAt:   models.At(f.now.Add(-2 * time.Hour)),
	}); err != nil {
		t.Fatalf("message: %v", err)
	}

	got, err := list.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected two chats, got %+v", got)
	}
	if got.Items[0].SessionID != second.ID || got.Items[0].LastMessage != "No messages yet" || got.Items[0].Updated != "just now" {
		t.Fatalf("unexpected first item %+v", got.Items[0])
	}
	older := got.Items[1]
	if older.CharacterName != "Nova" || older.Unread != 1 || older.Updated != "2 hours ago" || older.LastMessage != "Are you there?" {
		t.Fatalf("unexpected second item %+v", older)
	}

	list.Open(first.ID)
	if page, params := f.rec.lastPage(); page != PageChat || params["sessionId"] != first.ID.String() {
		t.Fatalf("unexpected navigation %s %v", page, params)
	}

	after, err := list.Delete(ctx, second.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	f.wantStatus(t, KindSuccess, "Chat deleted successfully")
	if len(after.Items) != 1 {
		t.Fatalf("expected one chat left, got %+v", after.Items)
	}

	if _, err := list.Delete(ctx, "999"); err == nil {
		t.Fatalf("expected error deleting unknown session")
	}
	f.wantStatus(t, KindError, "Failed to delete chat session")
}

func TestChatListDeleteRequiresLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	nova := f.backend.SeedCharacter(models.Character{Name: "Nova"})
	sess, err := f.client.CreateChatSession(ctx, &models.ChatSession{UserID: "1", CharacterID: nova.ID})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	list := NewChatListController(f.deps)
	if _, err := list.Delete(ctx, sess.ID); !errors.Is(err, ErrNotLoggedIn) {
		t.Fatalf("expected ErrNotLoggedIn, got %v", err)
	}
	if page, _ := f.rec.lastPage(); page != PageLogin {
		t.Fatalf("expected redirect to login, got %q", page)
	}
	if _, err := f.client.GetChatSession(ctx, sess.ID); err != nil {
		t.Fatalf("session removed while logged out: %v", err)
	}
}

func TestChatSendQuickReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := &scriptedResponder{reply: "Glad you asked!"}
	c, id := openChat(t, f, models.Character{Name: "Nova", Greeting: "Hi", QuickReplies: []string{"Tell me more"}}, r)
	v, err := c.Open(ctx, id)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(v.QuickReplies) != 1 {
		t.Fatalf("greeting should offer quick replies, got %+v", v.QuickReplies)
	}

	v, err = c.SendQuickReply(ctx, v.QuickReplies[0])
	if err != nil {
		t.Fatalf("quick reply: %v", err)
	}
	if r.last.UserMessage != "Tell me more" {
		t.Fatalf("responder saw %q", r.last.UserMessage)
	}
	n := len(v.Messages)
	if n < 2 || v.Messages[n-2].Content != "Tell me more" || v.Messages[n-1].Content != "Glad you asked!" {
		t.Fatalf("unexpected messages %+v", v.Messages)
	}
}
