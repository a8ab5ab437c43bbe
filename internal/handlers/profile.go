package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-charchat-go/internal/i18n"
	"github.com/ai-charchat-go/internal/models"
)

// ProfileForm holds the editable profile fields.
type ProfileForm struct {
	Name               string
	Pronouns           string
	Bio                string
	BirthDate          string
	Gender             string
	CommunicationStyle string
	MessageLength      string
	Interests          []string
	Goals              string
	Avoid              string
	AvatarURL          string
}

// ProfileView is the profile page view model.
type ProfileView struct {
	User        models.User
	DisplayName string
	Chats       int
	Characters  int
	Messages    int
}

// ProfileController drives the profile page.
type ProfileController struct {
	base
}

func NewProfileController(deps Deps) *ProfileController {
	return &ProfileController{base: newBase(deps)}
}

// Load returns the session user with the profile defaults filled in.
func (c *ProfileController) Load(ctx context.Context) (ProfileView, error) {
	user, err := c.currentUser(ctx)
	if err != nil {
		return ProfileView{}, err
	}
	withProfileDefaults(user)
	return profileView(user), nil
}

// Save merges form into the session user. Registered users are also updated
// on the backend; a failure there is logged and the local copy kept.
func (c *ProfileController) Save(ctx context.Context, form ProfileForm) (ProfileView, error) {
	user, err := c.currentUser(ctx)
	if err != nil {
		return ProfileView{}, err
	}
	withProfileDefaults(user)

	user.Name = strings.TrimSpace(form.Name)
	user.Pronouns = form.Pronouns
	user.Bio = strings.TrimSpace(form.Bio)
	user.BirthDate = form.BirthDate
	user.Gender = form.Gender
	user.CommunicationStyle = form.CommunicationStyle
	user.MessageLength = form.MessageLength
	user.Interests = form.Interests
	user.Goals = strings.TrimSpace(form.Goals)
	user.Avoid = strings.TrimSpace(form.Avoid)
	if form.AvatarURL != "" {
		user.AvatarURL = form.AvatarURL
	}

	if err := c.Session.SetUser(ctx, user); err != nil {
		c.notify(ctx, KindError, i18n.MsgProfileFailed, nil)
		return ProfileView{}, fmt.Errorf("failed to save profile: %w", err)
	}
	if !user.IsAnonymous && c.API != nil {
		if _, err := c.API.UpdateUser(ctx, user.ID, user); err != nil {
			c.Logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to update user on backend")
		}
	}

	c.notify(ctx, KindSuccess, i18n.MsgProfileSaved, nil)
	return profileView(user), nil
}

// SavePrivacy stores the privacy preferences on the session user.
func (c *ProfileController) SavePrivacy(ctx context.Context, privacy models.PrivacySettings) error {
	user, err := c.currentUser(ctx)
	if err != nil {
		return err
	}
	user.PrivacySettings = &privacy
	if err := c.Session.SetUser(ctx, user); err != nil {
		c.notify(ctx, KindError, i18n.MsgProfileFailed, nil)
		return fmt.Errorf("failed to save privacy settings: %w", err)
	}
	c.notify(ctx, KindSuccess, i18n.MsgPrivacySaved, nil)
	return nil
}

// SignOut logs the user out and returns to the login page.
func (c *ProfileController) SignOut(ctx context.Context) error {
	if err := c.Session.Logout(ctx); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	c.notify(ctx, KindSuccess, i18n.MsgLoggedOut, nil)
	c.navigate(PageLogin, nil)
	return nil
}

// withProfileDefaults fills unset profile fields. Stored values win.
func withProfileDefaults(u *models.User) {
	if u.Gender == "" {
		u.Gender = "male"
	}
	if u.CommunicationStyle == "" {
		u.CommunicationStyle = "casual"
	}
	if u.MessageLength == "" {
		u.MessageLength = "medium"
	}
	if u.Interests == nil {
		u.Interests = []string{"AI", "Technology", "Chat"}
	}
	if u.PrivacySettings == nil {
		u.PrivacySettings = &models.PrivacySettings{
			ShareUsageData:     true,
			AllowNotifications: false,
			ShowOnlineStatus:   true,
		}
	}
}

func profileView(u *models.User) ProfileView {
	name := u.Name
	if name == "" {
		name = "User"
	}
	return ProfileView{
		User:        *u,
		DisplayName: name,
		Chats:       u.ChatCount,
		Characters:  u.CharacterCount,
		Messages:    u.MessageCount,
	}
}
