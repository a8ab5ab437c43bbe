package handlers

import (
	"context"
	"math/rand"
	"strings"

	"github.com/ai-charchat-go/internal/i18n"
	"github.com/ai-charchat-go/internal/middleware"
	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/ai"
	"github.com/ai-charchat-go/internal/view"
	"github.com/ai-charchat-go/pkg/logger"
	"github.com/ai-charchat-go/pkg/markdown"
	"github.com/google/uuid"
)

const (
	statusOnline = "online"
	statusTyping = "typing..."
)

// ChatMessage is one rendered message. Pending messages are not yet stored
// by the backend and carry a temporary id.
type ChatMessage struct {
	ID          string
	Content     string
	HTML        string
	IsCharacter bool
	Time        string
	Pending     bool
	Failed      bool
}

// ChatView is the chat page view model.
type ChatView struct {
	SessionID     models.ID
	CharacterName string
	AvatarURL     string
	Status        string
	Messages      []ChatMessage
	QuickReplies  []string
	Emotes        []string
	ShowEmotes    bool
	Error         string
}

// ChatController drives a conversation with one character.
type ChatController struct {
	base
	responder ai.Responder
	validator *middleware.InputValidator
	rnd       *rand.Rand

	session *models.ChatSession
	char    *models.Character
	user    *models.User
	history []models.Message
	view    ChatView
}

// NewChatController creates a chat controller. rnd decides when quick replies
// and emotes are offered after a reply; nil seeds from the clock.
func NewChatController(deps Deps, responder ai.Responder, rnd *rand.Rand) *ChatController {
	b := newBase(deps)
	if rnd == nil {
		rnd = rand.New(rand.NewSource(b.Now().UnixNano()))
	}
	return &ChatController{
		base:      b,
		responder: responder,
		validator: middleware.NewInputValidator(b.maxInputLength()),
		rnd:       rnd,
	}
}

// Open loads sessionID with its character and messages and marks it read.
// An empty conversation starts with the character's greeting.
func (c *ChatController) Open(ctx context.Context, sessionID models.ID) (ChatView, error) {
	user, err := c.currentUser(ctx)
	if err != nil {
		return ChatView{}, err
	}
	c.user = user

	if sessionID == "" {
		c.notify(ctx, KindError, i18n.MsgNoSession, nil)
		c.navigate(PageIndex, nil)
		return ChatView{}, &FormError{Field: "sessionId", Message: c.text(ctx, i18n.MsgNoSession, nil)}
	}

	sess, err := c.API.GetChatSession(ctx, sessionID)
	if err != nil {
		c.notify(ctx, KindError, i18n.MsgSessionLoadFailed, nil)
		return ChatView{}, err
	}
	character, err := c.character(ctx, sess.CharacterID)
	if err != nil {
		c.notify(ctx, KindError, i18n.MsgCharacterLoadFailed, nil)
		return ChatView{}, err
	}
	c.session = sess
	c.char = character
	c.view = ChatView{
		SessionID:     sess.ID,
		CharacterName: character.Name,
		AvatarURL:     character.AvatarURL,
		Status:        statusOnline,
		Emotes:        character.Emotes,
	}
	if c.view.CharacterName == "" {
		c.view.CharacterName = "Unknown Character"
	}

	if err := c.API.MarkMessagesAsRead(ctx, sess.ID); err != nil {
		c.Logger.WithError(err).Warn("Failed to mark messages as read")
	}

	msgs, err := c.API.GetMessages(ctx, sess.ID)
	if err != nil {
		c.view.Error = c.text(ctx, i18n.MsgMessagesLoadFailed, nil)
		return c.view, err
	}

	if len(msgs) == 0 && character.Greeting != "" {
		greeting := models.Message{
			ID:          "greeting",
			SessionID:   sess.ID,
			SenderID:    character.ID,
			IsCharacter: true,
			Content:     character.Greeting,
			CreatedAt:   models.At(c.Now()),
		}
		c.history = []models.Message{greeting}
		c.view.Messages = []ChatMessage{render(greeting, false)}
		c.view.QuickReplies = character.QuickReplies
		return c.view, nil
	}

	view.SortMessages(msgs)
	c.history = msgs
	c.view.Messages = make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		c.view.Messages = append(c.view.Messages, render(m, false))
	}
	return c.view, nil
}

// View returns the current view model.
func (c *ChatController) View() ChatView {
	return c.view
}

// Send posts text as the user, then asks the responder for the character's
// reply and stores it too.
func (c *ChatController) Send(ctx context.Context, text string) (ChatView, error) {
	if err := c.validator.ValidateInput(text); err != nil {
		id := i18n.MsgMessageTooLong
		if len(text) <= c.maxInputLength() {
			id = i18n.MsgMessageEmpty
		}
		return c.view, &FormError{Field: "message", Message: c.text(ctx, id, map[string]interface{}{"Max": c.maxInputLength()})}
	}
	user, err := c.requireUser(ctx, "send messages")
	if err != nil {
		return c.view, err
	}
	if c.session == nil || c.char == nil {
		c.notify(ctx, KindError, i18n.MsgNoSession, nil)
		return c.view, &FormError{Field: "sessionId", Message: c.text(ctx, i18n.MsgNoSession, nil)}
	}

	log := logger.WithContext(c.Logger, user.ID.String(), c.session.ID.String())
	content := strings.TrimSpace(text)
	c.view.QuickReplies = nil
	c.view.ShowEmotes = false

	msg := models.Message{
		SessionID: c.session.ID,
		SenderID:  user.ID,
		Content:   content,
		CreatedAt: models.At(c.Now()),
	}
	tempID := uuid.NewString()
	pending := render(msg, true)
	pending.ID = tempID
	c.view.Messages = append(c.view.Messages, pending)
	last := len(c.view.Messages) - 1

	stored, err := c.API.CreateMessage(ctx, &msg)
	if err != nil {
		log.WithError(err).Error("Failed to send message")
		c.Metrics.RecordMessageSent("error")
		c.view.Messages[last].Pending = false
		c.view.Messages[last].Failed = true
		c.notify(ctx, KindError, i18n.MsgSendFailed, nil)
		return c.view, err
	}
	c.Metrics.RecordMessageSent("success")
	c.view.Messages[last] = render(*stored, false)

	history := c.history
	c.history = append(c.history, *stored)

	c.view.Status = statusTyping
	reply, err := c.responder.Reply(ctx, ai.ReplyRequest{
		Character:   c.char,
		History:     history,
		UserMessage: content,
		UserName:    user.Name,
	})
	c.view.Status = statusOnline
	if err != nil {
		log.WithError(err).Error("Failed to generate character response")
		c.notify(ctx, KindError, i18n.MsgReplyFailed, nil)
		return c.view, err
	}

	answer := models.Message{
		SessionID:   c.session.ID,
		SenderID:    c.char.ID,
		IsCharacter: true,
		Content:     reply,
		CreatedAt:   models.At(c.Now()),
	}
	if saved, err := c.API.CreateMessage(ctx, &answer); err != nil {
		log.WithError(err).Warn("Failed to store character reply")
		answer.ID = models.ID(uuid.NewString())
	} else {
		answer = *saved
	}
	c.history = append(c.history, answer)
	c.view.Messages = append(c.view.Messages, render(answer, false))

	if c.rnd.Float64() > 0.5 && len(c.char.QuickReplies) > 0 {
		c.view.QuickReplies = c.char.QuickReplies
	} else if c.rnd.Float64() > 0.7 && len(c.view.Emotes) > 0 {
		c.view.ShowEmotes = true
	}
	return c.view, nil
}

// SendEmote sends emote as a message.
func (c *ChatController) SendEmote(ctx context.Context, emote string) (ChatView, error) {
	return c.Send(ctx, emote)
}

// SendQuickReply sends one of the offered quick replies.
func (c *ChatController) SendQuickReply(ctx context.Context, reply string) (ChatView, error) {
	return c.Send(ctx, reply)
}

func render(m models.Message, pending bool) ChatMessage {
	out := ChatMessage{
		ID:          m.ID.String(),
		Content:     m.Content,
		HTML:        markdown.ToHTML(m.Content),
		IsCharacter: m.IsCharacter,
		Pending:     pending,
	}
	if !m.CreatedAt.IsZero() {
		out.Time = view.FormatTime(m.CreatedAt.Time.Local())
	}
	return out
}
