package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-charchat-go/internal/i18n"
	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/audio"
	"github.com/ai-charchat-go/internal/services/settings"
)

// SettingsView is the settings page view model. API keys are masked.
type SettingsView struct {
	Settings           models.Settings
	Theme              string
	MusicVolumeLabel   string
	EffectsVolumeLabel string
	Tracks             []string
	Languages          []string
}

// SettingsController drives the settings page.
type SettingsController struct {
	base
	player *audio.Player
}

// NewSettingsController creates a settings controller. player may be nil
// when audio is unavailable.
func NewSettingsController(deps Deps, player *audio.Player) *SettingsController {
	return &SettingsController{base: newBase(deps), player: player}
}

// Load returns the current settings.
func (c *SettingsController) Load(ctx context.Context) (SettingsView, error) {
	s, err := c.Settings.Load(ctx)
	if err != nil {
		c.Logger.WithError(err).Warn("Failed to load settings, using defaults")
	}
	return c.viewOf(ctx, s), err
}

func (c *SettingsController) viewOf(ctx context.Context, s models.Settings) SettingsView {
	s.APIKeys = settings.MaskedKeys(s.APIKeys)
	v := SettingsView{
		Settings:           s,
		Theme:              c.Settings.Theme(ctx),
		MusicVolumeLabel:   settings.VolumeLabel(s.MusicVolume),
		EffectsVolumeLabel: settings.VolumeLabel(s.EffectsVolume),
		Tracks:             audio.Tracks(),
	}
	if c.Localizer != nil {
		v.Languages = c.Localizer.Languages()
	}
	return v
}

// SaveLanguageAndTheme stores the display preferences.
func (c *SettingsController) SaveLanguageAndTheme(ctx context.Context, language, theme string, darkMode, notifications bool) (SettingsView, error) {
	s, err := c.Settings.SaveLanguageAndTheme(ctx, language, theme, darkMode, notifications)
	return c.finish(ctx, s, err, i18n.MsgLanguageThemeSaved)
}

// SaveAudio stores the audio preferences and applies them to the player.
func (c *SettingsController) SaveAudio(ctx context.Context, prefs settings.Audio) (SettingsView, error) {
	if prefs.MusicTrack != "" && !knownTrack(prefs.MusicTrack) {
		msg := c.text(ctx, i18n.MsgTrackUnknown, map[string]interface{}{"Track": prefs.MusicTrack})
		c.status(KindError, msg)
		return SettingsView{}, &FormError{Field: "musicTrack", Message: msg}
	}
	s, err := c.Settings.SaveAudio(ctx, prefs)
	if err == nil && c.player != nil {
		if s.MusicEnabled {
			if err := c.player.PlayMusic(ctx); err != nil {
				c.Logger.WithError(err).Warn("Could not start music")
			}
		} else {
			c.player.PauseMusic(ctx)
		}
		c.player.SetMusicVolume(ctx, s.MusicVolume)
		c.player.SetEffectsVolume(ctx, s.EffectsVolume)
		if s.SoundEffectsEnabled {
			c.player.EnableSoundEffects(ctx)
		} else {
			c.player.DisableSoundEffects(ctx)
		}
		c.player.ChangeTrack(ctx, s.MusicTrack)
	}
	return c.finish(ctx, s, err, i18n.MsgAudioSaved)
}

// SaveContentFilter stores the content filter preferences.
func (c *SettingsController) SaveContentFilter(ctx context.Context, enabled bool, level string) (SettingsView, error) {
	s, err := c.Settings.SaveContentFilter(ctx, enabled, level)
	return c.finish(ctx, s, err, i18n.MsgContentFilterSaved)
}

// SetShareUsage stores the usage data preference.
func (c *SettingsController) SetShareUsage(ctx context.Context, share bool) (SettingsView, error) {
	s, err := c.Settings.SetShareUsage(ctx, share)
	id := i18n.MsgUsageSharingOff
	if share {
		id = i18n.MsgUsageSharingOn
	}
	return c.finish(ctx, s, err, id)
}

// SaveAPIKey stores a provider key. Masked or empty input leaves the stored
// key untouched.
func (c *SettingsController) SaveAPIKey(ctx context.Context, provider, value string) (bool, error) {
	saved, err := c.Settings.SetAPIKey(ctx, provider, value)
	if err != nil {
		c.notify(ctx, KindError, i18n.MsgSettingsFailed, nil)
		return false, err
	}
	id := i18n.MsgAPIKeyUnchanged
	kind := KindInfo
	if saved {
		id, kind = i18n.MsgAPIKeySaved, KindSuccess
	}
	c.notify(ctx, kind, id, map[string]interface{}{"Provider": providerLabel(provider)})
	return saved, nil
}

// TestAPIKey probes provider and returns the status with its label.
func (c *SettingsController) TestAPIKey(ctx context.Context, provider string) (settings.KeyStatus, string) {
	status := c.Settings.TestAPIKey(ctx, provider)
	switch status {
	case settings.KeyValid:
		return status, c.text(ctx, i18n.MsgKeyValid, nil)
	case settings.KeyInvalid:
		return status, c.text(ctx, i18n.MsgKeyInvalid, nil)
	}
	return status, c.text(ctx, i18n.MsgKeyError, nil)
}

// ResetToDefaults restores the default settings, keeping API keys.
func (c *SettingsController) ResetToDefaults(ctx context.Context) (SettingsView, error) {
	s, err := c.Settings.ResetToDefaults(ctx)
	return c.finish(ctx, s, err, i18n.MsgSettingsReset)
}

// ToggleTheme switches between light and dark.
func (c *SettingsController) ToggleTheme(ctx context.Context) (string, error) {
	theme, err := c.Settings.ToggleTheme(ctx)
	if err != nil {
		c.notify(ctx, KindError, i18n.MsgSettingsFailed, nil)
		return "", err
	}
	c.notify(ctx, KindSuccess, i18n.MsgThemeChanged, nil)
	return theme, nil
}

func (c *SettingsController) ResetTutorials(ctx context.Context) error {
	if err := c.Settings.ResetTutorials(ctx); err != nil {
		c.notify(ctx, KindError, i18n.MsgSettingsFailed, nil)
		return err
	}
	c.notify(ctx, KindSuccess, i18n.MsgTutorialsReset, nil)
	return nil
}

func (c *SettingsController) ResetOnboarding(ctx context.Context) error {
	if err := c.Settings.ResetOnboarding(ctx); err != nil {
		c.notify(ctx, KindError, i18n.MsgSettingsFailed, nil)
		return err
	}
	c.notify(ctx, KindSuccess, i18n.MsgOnboardingReset, nil)
	return nil
}

// ClearCache wipes all stored state and returns to the login page.
func (c *SettingsController) ClearCache(ctx context.Context) error {
	// Resolve the message first; clearing also drops the language setting.
	text := c.text(ctx, i18n.MsgCacheCleared, nil)
	if err := c.Settings.ClearCache(ctx); err != nil {
		c.notify(ctx, KindError, i18n.MsgSettingsFailed, nil)
		return err
	}
	if c.Characters != nil {
		c.Characters.Clear()
	}
	c.status(KindSuccess, text)
	c.navigate(PageLogin, nil)
	return nil
}

func (c *SettingsController) finish(ctx context.Context, s models.Settings, err error, okID string) (SettingsView, error) {
	if err != nil {
		c.Logger.WithError(err).Error("Failed to save settings")
		c.notify(ctx, KindError, i18n.MsgSettingsFailed, nil)
		return c.viewOf(ctx, s), fmt.Errorf("failed to save settings: %w", err)
	}
	c.notify(ctx, KindSuccess, okID, nil)
	return c.viewOf(ctx, s), nil
}

// providerLabel capitalizes the provider name as the settings page shows it.
func providerLabel(provider string) string {
	if provider == "" {
		return provider
	}
	return strings.ToUpper(provider[:1]) + provider[1:]
}

func knownTrack(id string) bool {
	for _, track := range audio.Tracks() {
		if track == id {
			return true
		}
	}
	return false
}
