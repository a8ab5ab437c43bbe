package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/ai-charchat-go/internal/i18n"
	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/api"
	"github.com/ai-charchat-go/internal/view"
	"github.com/sirupsen/logrus"
)

const defaultMemoryStrength = 5

// CharacterCard is one character in a grid.
type CharacterCard struct {
	Character   models.Character
	Tagline     string
	Created     string
	MemoryLabel string
	Owned       bool
}

// CharacterList is the grid view model. Empty and Error are mutually
// exclusive with Cards.
type CharacterList struct {
	Cards     []CharacterCard
	Empty     bool
	EmptyText string
	Error     string
}

// CharacterForm is the create/edit form. QuickReplies and Emotes are comma
// separated.
type CharacterForm struct {
	Name           string
	Personality    string
	Greeting       string
	Farewell       string
	Background     string
	Tagline        string
	IsNSFW         bool
	IsPublic       bool
	AIModel        string
	MemoryStrength int
	QuickReplies   string
	Emotes         string
	AvatarURL      string
}

// QuickView describes the character detail panel.
type QuickView struct {
	Character   models.Character
	LikeCount   string
	MemoryLabel string
	CanEdit     bool
	CanDelete   bool
	CanAdd      bool
}

// CharacterController drives the character management page.
type CharacterController struct {
	base
	current  *models.Character
	mine     []models.Character
	sortMode string
}

func NewCharacterController(deps Deps) *CharacterController {
	return &CharacterController{base: newBase(deps), sortMode: view.SortDate}
}

// LoadUserCharacters lists the characters created by the session user.
func (c *CharacterController) LoadUserCharacters(ctx context.Context) (CharacterList, error) {
	user, err := c.currentUser(ctx)
	if err != nil {
		return CharacterList{}, err
	}

	chars, err := c.API.GetCharacters(ctx, api.CharacterFilter{CreatorID: user.ID})
	if err != nil {
		c.Logger.WithError(err).Error("Failed to load user characters")
		return CharacterList{Error: c.text(ctx, i18n.MsgCharactersLoadFailed, nil)}, err
	}

	c.mine = chars
	view.SortCharacters(c.mine, c.sortMode, i18n.Tag(c.lang(ctx)))
	return c.list(ctx, c.mine, user, i18n.MsgNoCharacters), nil
}

// LoadPublicCharacters lists public characters, most liked first.
func (c *CharacterController) LoadPublicCharacters(ctx context.Context) (CharacterList, error) {
	chars, err := c.API.GetCharacters(ctx, api.CharacterFilter{IsPublic: true})
	if err != nil {
		c.Logger.WithError(err).Error("Failed to load public characters")
		return CharacterList{Error: c.text(ctx, i18n.MsgPublicLoadFailed, nil)}, err
	}

	view.SortByPopularity(chars)
	user, _ := c.Session.GetUser(ctx)
	return c.list(ctx, chars, user, i18n.MsgNoPublicCharacters), nil
}

// Sort reorders the user's characters by mode (date, name or popular).
func (c *CharacterController) Sort(ctx context.Context, mode string) (CharacterList, error) {
	if !view.SortCharacters(c.mine, mode, i18n.Tag(c.lang(ctx))) {
		return CharacterList{}, &FormError{Field: "sort", Message: "unknown sort mode: " + mode}
	}
	c.sortMode = mode

	switch mode {
	case view.SortName:
		c.notify(ctx, KindInfo, i18n.MsgSortedByName, nil)
	case view.SortDate:
		c.notify(ctx, KindInfo, i18n.MsgSortedByDate, nil)
	case view.SortPopular:
		c.notify(ctx, KindInfo, i18n.MsgSortedByPopularity, nil)
	}

	user, _ := c.Session.GetUser(ctx)
	return c.list(ctx, c.mine, user, i18n.MsgNoCharacters), nil
}

func (c *CharacterController) list(ctx context.Context, chars []models.Character, user *models.User, emptyID string) CharacterList {
	if len(chars) == 0 {
		return CharacterList{Empty: true, EmptyText: c.text(ctx, emptyID, nil)}
	}
	cards := make([]CharacterCard, 0, len(chars))
	for _, ch := range chars {
		card := CharacterCard{
			Character:   ch,
			Tagline:     view.TruncateText(ch.Tagline, 60),
			MemoryLabel: view.MemoryLabel(memoryOrDefault(ch.MemoryStrength)),
			Owned:       owns(user, &ch),
		}
		if !ch.CreatedAt.IsZero() {
			card.Created = view.FormatDate(ch.CreatedAt.Time)
		}
		cards = append(cards, card)
	}
	return CharacterList{Cards: cards}
}

// New clears the edited character so the next Save creates one.
func (c *CharacterController) New() CharacterForm {
	c.current = nil
	return CharacterForm{AIModel: c.defaultModel(), MemoryStrength: defaultMemoryStrength}
}

func (c *CharacterController) defaultModel() string {
	if c.Config != nil && c.Config.Models.Default != "" {
		return c.Config.Models.Default
	}
	return "gpt-3.5-turbo"
}

// Edit selects character for editing and returns the prefilled form.
func (c *CharacterController) Edit(character *models.Character) CharacterForm {
	form := c.New()
	if character == nil {
		return form
	}
	copied := *character
	c.current = &copied

	form.Name = character.Name
	form.Personality = character.Personality
	form.Greeting = character.Greeting
	form.Farewell = character.Farewell
	form.Background = character.Background
	form.Tagline = character.Tagline
	form.IsNSFW = character.IsNSFW
	form.IsPublic = character.IsPublic
	form.AvatarURL = character.AvatarURL
	form.MemoryStrength = memoryOrDefault(character.MemoryStrength)
	if character.AIModel != "" {
		form.AIModel = character.AIModel
	}
	form.QuickReplies = strings.Join(character.QuickReplies, ", ")
	form.Emotes = strings.Join(character.Emotes, ", ")
	return form
}

// Save creates a character, or updates the one selected with Edit, then
// reloads the user's list.
func (c *CharacterController) Save(ctx context.Context, form CharacterForm) (*models.Character, error) {
	user, err := c.requireUser(ctx, "save a character")
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(form.Name)
	if name == "" {
		c.notify(ctx, KindError, i18n.MsgCharacterNameRequired, nil)
		return nil, &FormError{Field: "name", Message: c.text(ctx, i18n.MsgCharacterNameRequired, nil)}
	}

	data := &models.Character{
		Name:           name,
		CreatorID:      user.ID,
		Personality:    strings.TrimSpace(form.Personality),
		Greeting:       strings.TrimSpace(form.Greeting),
		Farewell:       strings.TrimSpace(form.Farewell),
		Background:     strings.TrimSpace(form.Background),
		Tagline:        strings.TrimSpace(form.Tagline),
		IsNSFW:         form.IsNSFW,
		IsPublic:       form.IsPublic,
		AIModel:        form.AIModel,
		MemoryStrength: clampMemory(form.MemoryStrength),
		QuickReplies:   splitList(form.QuickReplies),
		Emotes:         splitList(form.Emotes),
		AvatarURL:      form.AvatarURL,
	}
	if data.AIModel == "" {
		data.AIModel = c.defaultModel()
	}

	var saved *models.Character
	if c.current != nil {
		saved, err = c.API.UpdateCharacter(ctx, c.current.ID, data)
		if err != nil {
			c.status(KindError, c.text(ctx, i18n.MsgCharacterUpdateFailed, map[string]interface{}{"Error": c.errorText(ctx, err)}))
			return nil, err
		}
		c.invalidate(c.current.ID)
		c.notify(ctx, KindSuccess, i18n.MsgCharacterUpdated, nil)
	} else {
		saved, err = c.API.CreateCharacter(ctx, data)
		if err != nil {
			c.status(KindError, c.text(ctx, i18n.MsgCharacterCreateFailed, map[string]interface{}{"Error": c.errorText(ctx, err)}))
			return nil, err
		}
		c.notify(ctx, KindSuccess, i18n.MsgCharacterCreated, nil)
	}

	c.Logger.WithFields(logrus.Fields{
		"character_id": saved.ID,
		"user_id":      user.ID,
	}).Info("Character saved")

	c.current = nil
	if _, err := c.LoadUserCharacters(ctx); err != nil {
		c.Logger.WithError(err).Warn("Failed to refresh characters after save")
	}
	return saved, nil
}

// QuickView selects character and describes which actions the user has on
// it. Owners may edit and delete, everyone else may add a copy.
func (c *CharacterController) QuickView(ctx context.Context, character *models.Character) QuickView {
	copied := *character
	c.current = &copied

	user, _ := c.Session.GetUser(ctx)
	owned := owns(user, character)
	qv := QuickView{
		Character:   copied,
		LikeCount:   "N/A",
		MemoryLabel: view.MemoryLabel(memoryOrDefault(character.MemoryStrength)),
		CanEdit:     owned,
		CanDelete:   owned,
		CanAdd:      !owned,
	}
	if character.LikeCount != nil && *character.LikeCount > 0 {
		qv.LikeCount = strconv.Itoa(*character.LikeCount)
	}
	return qv
}

// Current returns the selected character, if any.
func (c *CharacterController) Current() *models.Character {
	return c.current
}

// DeleteCurrent deletes the selected character and reloads the list.
func (c *CharacterController) DeleteCurrent(ctx context.Context) error {
	if c.current == nil {
		return nil
	}
	if _, err := c.requireUser(ctx, "delete a character"); err != nil {
		return err
	}
	id := c.current.ID
	if err := c.API.DeleteCharacter(ctx, id); err != nil {
		c.status(KindError, c.text(ctx, i18n.MsgCharacterDeleteFailed, map[string]interface{}{"Error": c.errorText(ctx, err)}))
		return err
	}

	c.invalidate(id)
	c.current = nil
	c.notify(ctx, KindSuccess, i18n.MsgCharacterDeleted, nil)
	if _, err := c.LoadUserCharacters(ctx); err != nil {
		c.Logger.WithError(err).Warn("Failed to refresh characters after delete")
	}
	return nil
}

// StartChat opens a new chat session with the selected character.
func (c *CharacterController) StartChat(ctx context.Context) (*models.ChatSession, error) {
	if c.current == nil {
		return nil, nil
	}
	user, err := c.requireUser(ctx, "chat with a character")
	if err != nil {
		return nil, err
	}

	sess, err := c.API.CreateChatSession(ctx, &models.ChatSession{UserID: user.ID, CharacterID: c.current.ID})
	if err != nil {
		c.status(KindError, c.text(ctx, i18n.MsgChatStartFailed, map[string]interface{}{"Error": c.errorText(ctx, err)}))
		return nil, err
	}

	c.navigate(PageChat, map[string]string{"sessionId": sess.ID.String()})
	return sess, nil
}

// AddToMine saves a private copy of the selected character for the user.
func (c *CharacterController) AddToMine(ctx context.Context) (*models.Character, error) {
	if c.current == nil {
		return nil, nil
	}
	user, err := c.requireUser(ctx, "add a character")
	if err != nil {
		return nil, err
	}

	copied := *c.current
	copied.ID = ""
	copied.CreatorID = user.ID
	copied.IsPublic = false
	copied.CreatedAt = models.Timestamp{}
	copied.LikeCount = nil
	copied.ChatCount = nil

	saved, err := c.API.CreateCharacter(ctx, &copied)
	if err != nil {
		c.status(KindError, c.text(ctx, i18n.MsgCharacterAddFailed, map[string]interface{}{"Error": c.errorText(ctx, err)}))
		return nil, err
	}
	c.current = nil
	c.notify(ctx, KindSuccess, i18n.MsgCharacterAdded, nil)
	return saved, nil
}

// MemoryLabel names a memory strength for the form slider.
func (c *CharacterController) MemoryLabel(strength int) string {
	return view.MemoryLabel(strength)
}

// owns compares ids as strings so anonymous "anon-..." ids work too.
func owns(user *models.User, character *models.Character) bool {
	return user != nil && character != nil && user.ID != "" && character.CreatorID == user.ID
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func memoryOrDefault(strength int) int {
	if strength == 0 {
		return defaultMemoryStrength
	}
	return strength
}

func clampMemory(strength int) int {
	switch {
	case strength == 0:
		return defaultMemoryStrength
	case strength < 1:
		return 1
	case strength > 10:
		return 10
	}
	return strength
}
