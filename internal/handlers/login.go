package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ai-charchat-go/internal/i18n"
	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/validation"
	"github.com/sirupsen/logrus"
)

// Authenticator turns credentials into a session user.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.User, error)
	Signup(ctx context.Context, email, password string) (*models.User, error)
	Anonymous(ctx context.Context) (*models.User, error)
}

// DemoAuthenticator accepts any well-formed credentials after Delay. Every
// registered user gets id "1".
type DemoAuthenticator struct {
	Delay time.Duration
	Now   func() time.Time
}

func (d *DemoAuthenticator) Login(ctx context.Context, email, password string) (*models.User, error) {
	if err := sleep(ctx, d.Delay); err != nil {
		return nil, err
	}
	return &models.User{ID: "1", Email: email, Name: "User"}, nil
}

func (d *DemoAuthenticator) Signup(ctx context.Context, email, password string) (*models.User, error) {
	if err := sleep(ctx, d.Delay); err != nil {
		return nil, err
	}
	name := email
	if i := strings.Index(email, "@"); i >= 0 {
		name = email[:i]
	}
	return &models.User{ID: "1", Email: email, Name: name}, nil
}

func (d *DemoAuthenticator) Anonymous(ctx context.Context) (*models.User, error) {
	if err := sleep(ctx, d.Delay); err != nil {
		return nil, err
	}
	now := time.Now
	if d.Now != nil {
		now = d.Now
	}
	return &models.User{
		ID:          models.ID(fmt.Sprintf("anon-%d", now().UnixMilli())),
		Email:       "anonymous@user.com",
		Name:        "Anonymous User",
		IsAnonymous: true,
	}, nil
}

// LoginController drives the login and signup page.
type LoginController struct {
	base
	auth Authenticator
}

// NewLoginController creates a login controller. A nil auth uses the demo
// authenticator with the configured login delay.
func NewLoginController(deps Deps, auth Authenticator) *LoginController {
	b := newBase(deps)
	if auth == nil {
		demo := &DemoAuthenticator{Now: b.Now}
		if deps.Config != nil {
			demo.Delay = deps.Config.Chat.LoginDelay
		}
		auth = demo
	}
	return &LoginController{base: b, auth: auth}
}

// CheckLoginStatus sends a logged-in user straight to the chat list.
func (c *LoginController) CheckLoginStatus(ctx context.Context) bool {
	if c.Session.IsLoggedIn(ctx) {
		c.navigate(PageIndex, nil)
		return true
	}
	return false
}

// Login validates the credentials and stores the authenticated user.
func (c *LoginController) Login(ctx context.Context, email, password string) (*models.User, error) {
	res := validation.Validate(map[string]string{"email": email, "password": password},
		validation.Rule{Field: "email", Required: true, Email: true, Message: c.text(ctx, i18n.MsgInvalidEmail, nil)},
		validation.Rule{Field: "password", Required: true, Message: c.text(ctx, i18n.MsgPasswordRequired, nil)},
	)
	if err := formError(res); err != nil {
		return nil, err
	}

	user, err := c.auth.Login(ctx, email, password)
	return c.finish(ctx, user, err, i18n.MsgLoginSuccess, i18n.MsgLoginFailed)
}

// Signup validates the new account and stores it as the session user.
func (c *LoginController) Signup(ctx context.Context, email, password string) (*models.User, error) {
	res := validation.Validate(map[string]string{"email": email, "password": password},
		validation.Rule{Field: "email", Required: true, Email: true, Message: c.text(ctx, i18n.MsgInvalidEmail, nil)},
		validation.Rule{Field: "password", Required: true, MinLength: 6, Message: c.text(ctx, i18n.MsgPasswordTooShort, nil)},
	)
	if err := formError(res); err != nil {
		return nil, err
	}

	user, err := c.auth.Signup(ctx, email, password)
	return c.finish(ctx, user, err, i18n.MsgSignupSuccess, i18n.MsgSignupFailed)
}

// LoginAnonymous stores a throwaway anonymous user.
func (c *LoginController) LoginAnonymous(ctx context.Context) (*models.User, error) {
	user, err := c.auth.Anonymous(ctx)
	return c.finish(ctx, user, err, i18n.MsgAnonymousSuccess, i18n.MsgAnonymousFailed)
}

func (c *LoginController) finish(ctx context.Context, user *models.User, err error, okID, failID string) (*models.User, error) {
	if err == nil {
		err = c.Session.SetUser(ctx, user)
	}
	if err != nil {
		c.Logger.WithError(err).Error("Login failed")
		return nil, &FormError{Message: c.text(ctx, failID, nil)}
	}

	c.Logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"anonymous": user.IsAnonymous,
	}).Info("User logged in")
	c.notify(ctx, KindSuccess, okID, nil)
	c.navigate(PageIndex, nil)
	return user, nil
}

// Logout ends the session and returns to the login page.
func (c *LoginController) Logout(ctx context.Context) error {
	if err := c.Session.Logout(ctx); err != nil {
		return fmt.Errorf("failed to log out: %w", err)
	}
	c.notify(ctx, KindSuccess, i18n.MsgLoggedOut, nil)
	c.navigate(PageLogin, nil)
	return nil
}

func formError(res validation.Result) error {
	if res.Valid() {
		return nil
	}
	return &FormError{Field: res.FirstField(), Message: res.First()}
}
