package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID is a backend identifier. The backend returns numeric ids while the
// client creates string ids (anonymous users), so both forms decode into a
// string and ownership checks compare strings.
type ID string

// UnmarshalJSON accepts JSON strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", string(data), err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes ids in canonical integer form as numbers so the backend's
// integer columns accept them, everything else ("007", "+5") as strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// User is the logged-in identity plus profile extensions.
type User struct {
	ID                 ID               `json:"id"`
	Email              string           `json:"email"`
	Name               string           `json:"name"`
	AvatarURL          string           `json:"avatar_url,omitempty"`
	IsAnonymous        bool             `json:"isAnonymous,omitempty"`
	Gender             string           `json:"gender,omitempty"`
	Pronouns           string           `json:"pronouns,omitempty"`
	Bio                string           `json:"bio,omitempty"`
	BirthDate          string           `json:"birth_date,omitempty"`
	CommunicationStyle string           `json:"communication_style,omitempty"`
	MessageLength      string           `json:"message_length,omitempty"`
	Interests          []string         `json:"interests,omitempty"`
	Goals              string           `json:"goals,omitempty"`
	Avoid              string           `json:"avoid,omitempty"`
	PrivacySettings    *PrivacySettings `json:"privacy_settings,omitempty"`
	ChatCount          int              `json:"chat_count,omitempty"`
	CharacterCount     int              `json:"character_count,omitempty"`
	MessageCount       int              `json:"message_count,omitempty"`
}

type PrivacySettings struct {
	ShareUsageData     bool `json:"share_usage_data"`
	AllowNotifications bool `json:"allow_notifications"`
	ShowOnlineStatus   bool `json:"show_online_status"`
}

// Character is a configurable AI persona.
type Character struct {
	ID             ID        `json:"id,omitempty"`
	Name           string    `json:"name"`
	CreatorID      ID        `json:"creator_id"`
	Personality    string    `json:"personality,omitempty"`
	Greeting       string    `json:"greeting,omitempty"`
	Farewell       string    `json:"farewell,omitempty"`
	Background     string    `json:"background,omitempty"`
	Tagline        string    `json:"tagline,omitempty"`
	IsNSFW         bool      `json:"is_nsfw"`
	IsPublic       bool      `json:"is_public"`
	AIModel        string    `json:"ai_model,omitempty"`
	MemoryStrength int       `json:"memory_strength,omitempty"`
	QuickReplies   []string  `json:"quick_replies,omitempty"`
	Emotes         []string  `json:"emotes,omitempty"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	CreatedAt      Timestamp `json:"created_at,omitempty"`
	LikeCount      *int      `json:"like_count,omitempty"`
	ChatCount      *int      `json:"chat_count,omitempty"`
}

// ChatSession pairs one user with one character.
type ChatSession struct {
	ID          ID        `json:"id,omitempty"`
	UserID      ID        `json:"user_id"`
	CharacterID ID        `json:"character_id"`
	UpdatedAt   Timestamp `json:"updated_at,omitempty"`
	LastMessage string    `json:"last_message,omitempty"`
	UnreadCount int       `json:"unread_count,omitempty"`
}

// Message is one entry of a chat session, ordered by CreatedAt.
type Message struct {
	ID          ID        `json:"id,omitempty"`
	SessionID   ID        `json:"session_id"`
	SenderID    ID        `json:"sender_id"`
	IsCharacter bool      `json:"is_character"`
	Content     string    `json:"content"`
	CreatedAt   Timestamp `json:"created_at"`
}

// Status is returned by the health probes.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the probe answered "ok".
func (s *Status) OK() bool {
	return s != nil && s.Status == "ok"
}

// CharacterReply is the generated reply of the test-character endpoint.
type CharacterReply struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ReplyMessage is a role/content pair sent to OpenAI-compatible endpoints.
type ReplyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
