package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/ai-charchat-go/internal/models"
)

// Probes

// CheckServerHealth calls GET /health. On failure the returned status is
// {status: "error"} alongside the error.
func (c *Client) CheckServerHealth(ctx context.Context) (*models.Status, error) {
	return c.probe(ctx, "check_server_health", "/health", "Could not connect to server")
}

// CheckAIStatus calls GET /ai/status.
func (c *Client) CheckAIStatus(ctx context.Context) (*models.Status, error) {
	return c.probe(ctx, "check_ai_status", "/ai/status", "Could not check AI API status")
}

// CheckProviderStatus probes the status endpoint of an AI provider.
// OpenRouter shares the generic AI status endpoint.
func (c *Client) CheckProviderStatus(ctx context.Context, provider string) (*models.Status, error) {
	path := "/ai/status"
	if provider == models.ProviderOpenAI {
		path = "/openai/status"
	}
	return c.probe(ctx, "check_provider_status", path, "Could not check AI API status")
}

func (c *Client) probe(ctx context.Context, op, path, fallback string) (*models.Status, error) {
	var status models.Status
	err := c.do(ctx, request{op: op, method: http.MethodGet, path: path, fallback: fallback}, &status)
	if err != nil {
		return &models.Status{Status: "error", Message: Message(err, fallback)}, err
	}
	return &status, nil
}

type testCharacterRequest struct {
	Character   *models.Character `json:"character"`
	UserMessage string            `json:"userMessage"`
}

// TestCharacterResponse asks the backend to generate the character's reply to
// userMessage.
func (c *Client) TestCharacterResponse(ctx context.Context, character *models.Character, userMessage string) (*models.CharacterReply, error) {
	const fallback = "Could not generate character response"

	var reply models.CharacterReply
	err := c.do(ctx, request{
		op:       "test_character",
		method:   http.MethodPost,
		path:     "/test-character",
		body:     testCharacterRequest{Character: character, UserMessage: userMessage},
		fallback: fallback,
	}, &reply)
	if err != nil {
		return &models.CharacterReply{Success: false, Error: Message(err, fallback)}, err
	}
	return &reply, nil
}

// Users

func (c *Client) CreateUser(ctx context.Context, user *NewUser) (*models.User, error) {
	var created models.User
	err := c.do(ctx, request{
		op:       "create_user",
		method:   http.MethodPost,
		path:     "/users",
		body:     user,
		fallback: "Could not create user",
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) GetUser(ctx context.Context, id models.ID) (*models.User, error) {
	var user models.User
	err := c.do(ctx, request{
		op:       "get_user",
		method:   http.MethodGet,
		path:     "/users/" + url.PathEscape(id.String()),
		fallback: "Could not fetch user data",
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateUser(ctx context.Context, id models.ID, user *models.User) (*models.User, error) {
	var updated models.User
	err := c.do(ctx, request{
		op:       "update_user",
		method:   http.MethodPatch,
		path:     "/users/" + url.PathEscape(id.String()),
		body:     user,
		fallback: "Could not update user data",
	}, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Characters

func (c *Client) CreateCharacter(ctx context.Context, character *models.Character) (*models.Character, error) {
	var created models.Character
	err := c.do(ctx, request{
		op:       "create_character",
		method:   http.MethodPost,
		path:     "/characters",
		body:     character,
		fallback: "Could not create character",
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetCharacters lists characters, optionally by creator and/or public only.
func (c *Client) GetCharacters(ctx context.Context, filter CharacterFilter) ([]models.Character, error) {
	query := url.Values{}
	if filter.CreatorID != "" {
		query.Set("creatorId", filter.CreatorID.String())
	}
	if filter.IsPublic {
		query.Set("isPublic", "true")
	}

	var characters []models.Character
	err := c.do(ctx, request{
		op:       "get_characters",
		method:   http.MethodGet,
		path:     "/characters",
		query:    query,
		fallback: "Could not fetch characters",
	}, &characters)
	if err != nil {
		return nil, err
	}
	return characters, nil
}

func (c *Client) GetCharacter(ctx context.Context, id models.ID) (*models.Character, error) {
	var character models.Character
	err := c.do(ctx, request{
		op:       "get_character",
		method:   http.MethodGet,
		path:     "/characters/" + url.PathEscape(id.String()),
		fallback: "Could not fetch character data",
	}, &character)
	if err != nil {
		return nil, err
	}
	return &character, nil
}

func (c *Client) UpdateCharacter(ctx context.Context, id models.ID, character *models.Character) (*models.Character, error) {
	var updated models.Character
	err := c.do(ctx, request{
		op:       "update_character",
		method:   http.MethodPatch,
		path:     "/characters/" + url.PathEscape(id.String()),
		body:     character,
		fallback: "Could not update character data",
	}, &updated)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (c *Client) DeleteCharacter(ctx context.Context, id models.ID) error {
	return c.do(ctx, request{
		op:       "delete_character",
		method:   http.MethodDelete,
		path:     "/characters/" + url.PathEscape(id.String()),
		fallback: "Could not delete character",
	}, nil)
}

// Chat sessions

func (c *Client) CreateChatSession(ctx context.Context, session *models.ChatSession) (*models.ChatSession, error) {
	var created models.ChatSession
	err := c.do(ctx, request{
		op:       "create_chat_session",
		method:   http.MethodPost,
		path:     "/chat-sessions",
		body:     session,
		fallback: "Could not create chat session",
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) GetChatSession(ctx context.Context, id models.ID) (*models.ChatSession, error) {
	var session models.ChatSession
	err := c.do(ctx, request{
		op:       "get_chat_session",
		method:   http.MethodGet,
		path:     "/chat-sessions/" + url.PathEscape(id.String()),
		fallback: "Could not fetch chat session",
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) GetChatSessions(ctx context.Context, userID models.ID) ([]models.ChatSession, error) {
	query := url.Values{}
	if userID != "" {
		query.Set("userId", userID.String())
	}

	var sessions []models.ChatSession
	err := c.do(ctx, request{
		op:       "get_chat_sessions",
		method:   http.MethodGet,
		path:     "/chat-sessions",
		query:    query,
		fallback: "Could not fetch chat sessions",
	}, &sessions)
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

func (c *Client) DeleteChatSession(ctx context.Context, id models.ID) error {
	return c.do(ctx, request{
		op:       "delete_chat_session",
		method:   http.MethodDelete,
		path:     "/chat-sessions/" + url.PathEscape(id.String()),
		fallback: "Could not delete chat session",
	}, nil)
}

// Messages

func (c *Client) CreateMessage(ctx context.Context, message *models.Message) (*models.Message, error) {
	var created models.Message
	err := c.do(ctx, request{
		op:       "create_message",
		method:   http.MethodPost,
		path:     "/messages",
		body:     message,
		fallback: "Could not create message",
	}, &created)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) GetMessages(ctx context.Context, sessionID models.ID) ([]models.Message, error) {
	query := url.Values{}
	if sessionID != "" {
		query.Set("sessionId", sessionID.String())
	}

	var messages []models.Message
	err := c.do(ctx, request{
		op:       "get_messages",
		method:   http.MethodGet,
		path:     "/messages",
		query:    query,
		fallback: "Could not fetch messages",
	}, &messages)
	if err != nil {
		return nil, err
	}
	return messages, nil
}

type markReadRequest struct {
	SessionID models.ID `json:"sessionId"`
}

func (c *Client) MarkMessagesAsRead(ctx context.Context, sessionID models.ID) error {
	return c.do(ctx, request{
		op:       "mark_messages_read",
		method:   http.MethodPost,
		path:     "/messages/read",
		body:     markReadRequest{SessionID: sessionID},
		fallback: "Could not mark messages as read",
	}, nil)
}

var _ Service = (*Client)(nil)
