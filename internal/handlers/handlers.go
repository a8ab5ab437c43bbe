package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/ai-charchat-go/internal/config"
	"github.com/ai-charchat-go/internal/i18n"
	"github.com/ai-charchat-go/internal/middleware"
	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/api"
	"github.com/ai-charchat-go/internal/services/cache"
	"github.com/ai-charchat-go/internal/services/session"
	"github.com/ai-charchat-go/internal/services/settings"
	"github.com/sirupsen/logrus"
)

// Pages a controller may navigate to.
const (
	PageLogin      = "login"
	PageIndex      = "index"
	PageCharacters = "characters"
	PageChat       = "chat"
	PageProfile    = "profile"
	PageSettings   = "settings"
)

// StatusKind classifies a status message.
type StatusKind string

const (
	KindSuccess StatusKind = "success"
	KindError   StatusKind = "error"
	KindInfo    StatusKind = "info"
	KindWarning StatusKind = "warning"
)

// StatusMessage is a transient notice shown to the user for Duration.
type StatusMessage struct {
	Text     string
	Kind     StatusKind
	Duration time.Duration
}

// Notifier shows status messages.
type Notifier interface {
	Status(msg StatusMessage)
}

// Navigator moves the user to another page.
type Navigator interface {
	Navigate(page string, params map[string]string)
}

// ErrNotLoggedIn is returned by actions that need a session user.
var ErrNotLoggedIn = errors.New("not logged in")

// FormError reports invalid form input.
type FormError struct {
	Field   string
	Message string
}

func (e *FormError) Error() string { return e.Message }

// Deps are the collaborators shared by every controller.
type Deps struct {
	Config *config.Config
	API    api.Service
	// Characters caches character lookups. Optional.
	Characters cache.Characters
	Session    *session.Manager
	Settings   *settings.Manager
	Localizer  *i18n.Localizer
	Notifier   Notifier
	Navigator  Navigator
	Metrics    *middleware.Metrics
	Logger     *logrus.Logger
	Now        func() time.Time
}

type base struct {
	Deps
}

func newBase(deps Deps) base {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return base{Deps: deps}
}

// lang returns the language chosen in settings.
func (b *base) lang(ctx context.Context) string {
	if b.Settings == nil {
		return "en"
	}
	s, err := b.Settings.Load(ctx)
	if err != nil || s.Language == "" {
		return "en"
	}
	return s.Language
}

func (b *base) text(ctx context.Context, messageID string, data map[string]interface{}) string {
	if b.Localizer == nil {
		return messageID
	}
	return b.Localizer.Get(b.lang(ctx), messageID, data)
}

func (b *base) notify(ctx context.Context, kind StatusKind, messageID string, data map[string]interface{}) {
	b.status(kind, b.text(ctx, messageID, data))
}

func (b *base) status(kind StatusKind, text string) {
	if b.Notifier == nil {
		return
	}
	duration := 3 * time.Second
	if b.Config != nil && b.Config.UI.StatusDuration > 0 {
		duration = b.Config.UI.StatusDuration
	}
	b.Notifier.Status(StatusMessage{Text: text, Kind: kind, Duration: duration})
}

func (b *base) navigate(page string, params map[string]string) {
	if b.Navigator != nil {
		b.Navigator.Navigate(page, params)
	}
}

// currentUser returns the session user, redirecting to login when there is
// none.
func (b *base) currentUser(ctx context.Context) (*models.User, error) {
	user, err := b.Session.GetUser(ctx)
	if err != nil {
		b.Logger.WithError(err).Warn("Failed to read session user")
	}
	if user == nil {
		b.navigate(PageLogin, nil)
		return nil, ErrNotLoggedIn
	}
	return user, nil
}

// requireUser is currentUser for actions that explain the failure with a
// "You must be logged in to <action>" status instead of redirecting.
func (b *base) requireUser(ctx context.Context, action string) (*models.User, error) {
	user, err := b.Session.GetUser(ctx)
	if err != nil {
		b.Logger.WithError(err).Warn("Failed to read session user")
	}
	if user == nil {
		b.notify(ctx, KindError, i18n.MsgLoginRequired, map[string]interface{}{"Action": action})
		return nil, ErrNotLoggedIn
	}
	return user, nil
}

// errorText is the message shown for a failed API call.
func (b *base) errorText(ctx context.Context, err error) string {
	return api.Message(err, b.text(ctx, i18n.MsgUnknownError, nil))
}

// character resolves id through the character cache when there is one.
func (b *base) character(ctx context.Context, id models.ID) (*models.Character, error) {
	if b.Characters != nil {
		return b.Characters.Get(ctx, id)
	}
	return b.API.GetCharacter(ctx, id)
}

func (b *base) invalidate(id models.ID) {
	if b.Characters != nil {
		b.Characters.Invalidate(id)
	}
}

func (b *base) maxInputLength() int {
	if b.Config != nil && b.Config.Chat.MaxInputLength > 0 {
		return b.Config.Chat.MaxInputLength
	}
	return 4096
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
