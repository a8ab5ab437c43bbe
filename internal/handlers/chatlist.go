package handlers

import (
	"context"

	"github.com/ai-charchat-go/internal/i18n"
	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/view"
)

// ChatListItem is one session on the index page.
type ChatListItem struct {
	SessionID     models.ID
	CharacterID   models.ID
	CharacterName string
	AvatarURL     string
	LastMessage   string
	Updated       string
	Unread        int
}

// ChatList is the index page view model.
type ChatList struct {
	Items     []ChatListItem
	Empty     bool
	EmptyText string
	Error     string
}

// ChatListController drives the index page listing the user's chats.
type ChatListController struct {
	base
}

func NewChatListController(deps Deps) *ChatListController {
	return &ChatListController{base: newBase(deps)}
}

// Load lists the user's sessions, most recently active first.
func (c *ChatListController) Load(ctx context.Context) (ChatList, error) {
	user, err := c.currentUser(ctx)
	if err != nil {
		return ChatList{}, err
	}

	sessions, err := c.API.GetChatSessions(ctx, user.ID)
	if err != nil {
		c.Logger.WithError(err).Error("Failed to load chat sessions")
		return ChatList{Error: c.text(ctx, i18n.MsgSessionsLoadFailed, nil)}, err
	}
	if len(sessions) == 0 {
		return ChatList{Empty: true, EmptyText: c.text(ctx, i18n.MsgNoChats, nil)}, nil
	}

	view.SortSessions(sessions)
	now := c.Now()
	items := make([]ChatListItem, 0, len(sessions))
	for _, s := range sessions {
		item := ChatListItem{
			SessionID:     s.ID,
			CharacterID:   s.CharacterID,
			CharacterName: "Unknown Character",
			LastMessage:   s.LastMessage,
			Unread:        s.UnreadCount,
		}
		if item.LastMessage == "" {
			item.LastMessage = "No messages yet"
		}
		if !s.UpdatedAt.IsZero() {
			item.Updated = view.FormatRelativeTime(s.UpdatedAt.Time, now)
		}

		character, err := c.character(ctx, s.CharacterID)
		if err != nil {
			c.Logger.WithError(err).WithField("character_id", s.CharacterID).Warn("Failed to load chat character")
		} else {
			if character.Name != "" {
				item.CharacterName = character.Name
			}
			item.AvatarURL = character.AvatarURL
		}
		items = append(items, item)
	}
	return ChatList{Items: items}, nil
}

// Open navigates to the chat page of sessionID.
func (c *ChatListController) Open(sessionID models.ID) {
	c.navigate(PageChat, map[string]string{"sessionId": sessionID.String()})
}

// Delete removes a chat session and returns the refreshed list.
func (c *ChatListController) Delete(ctx context.Context, sessionID models.ID) (ChatList, error) {
	if _, err := c.currentUser(ctx); err != nil {
		return ChatList{}, err
	}
	if err := c.API.DeleteChatSession(ctx, sessionID); err != nil {
		c.Logger.WithError(err).Error("Failed to delete chat session")
		c.notify(ctx, KindError, i18n.MsgChatDeleteFailed, nil)
		return ChatList{}, err
	}
	c.notify(ctx, KindSuccess, i18n.MsgChatDeleted, nil)
	return c.Load(ctx)
}
