package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/api"
	"github.com/ai-charchat-go/internal/services/storage"
	"github.com/sirupsen/logrus"
)

// Storage keys.
const (
	SettingsKey   = "userSettings"
	ThemeKey      = "theme"
	TutorialsKey  = "tutorialsCompleted"
	OnboardingKey = "onboardingCompleted"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// KeyStatus is the outcome of TestAPIKey.
type KeyStatus string

const (
	KeyValid   KeyStatus = "valid"
	KeyInvalid KeyStatus = "invalid"
	KeyError   KeyStatus = "error"
)

// ProviderChecker probes an AI provider's status endpoint.
type ProviderChecker interface {
	CheckProviderStatus(ctx context.Context, provider string) (*models.Status, error)
}

// Audio groups the audio preferences saved together.
type Audio struct {
	MusicEnabled   bool
	EffectsEnabled bool
	MusicVolume    float64
	EffectsVolume  float64
	MusicTrack     string
}

// Manager loads and saves user settings.
type Manager struct {
	store   *storage.Manager
	scratch *storage.Manager
	checker ProviderChecker
	logger  *logrus.Logger
}

// NewManager creates a settings manager. scratch is the session-scoped store
// wiped by ClearCache and may be nil.
func NewManager(store, scratch *storage.Manager, checker ProviderChecker, logger *logrus.Logger) *Manager {
	return &Manager{
		store:   store,
		scratch: scratch,
		checker: checker,
		logger:  logger,
	}
}

// Load returns the stored settings merged over the defaults.
func (m *Manager) Load(ctx context.Context) (models.Settings, error) {
	s := models.DefaultSettings()
	if _, err := m.store.Get(ctx, SettingsKey, &s); err != nil {
		return models.DefaultSettings(), fmt.Errorf("failed to load settings: %w", err)
	}
	return s, nil
}

// Save persists s verbatim.
func (m *Manager) Save(ctx context.Context, s models.Settings) error {
	if err := m.store.Set(ctx, SettingsKey, s, 0); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (m *Manager) update(ctx context.Context, apply func(*models.Settings)) (models.Settings, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return s, err
	}
	apply(&s)
	return s, m.Save(ctx, s)
}

// SaveLanguageAndTheme stores the display preferences and the standalone theme.
func (m *Manager) SaveLanguageAndTheme(ctx context.Context, language, theme string, darkMode, notifications bool) (models.Settings, error) {
	s, err := m.update(ctx, func(s *models.Settings) {
		s.Language = language
		s.Theme = theme
		s.DarkMode = darkMode
		s.Notifications = notifications
	})
	if err != nil {
		return s, err
	}

	if darkMode {
		theme = ThemeDark
	}
	if theme == ThemeLight || theme == ThemeDark {
		if err := m.ApplyTheme(ctx, theme); err != nil {
			return s, err
		}
	}
	return s, nil
}

// SaveAudio stores the audio preferences.
func (m *Manager) SaveAudio(ctx context.Context, audio Audio) (models.Settings, error) {
	return m.update(ctx, func(s *models.Settings) {
		s.MusicEnabled = audio.MusicEnabled
		s.SoundEffectsEnabled = audio.EffectsEnabled
		s.MusicVolume = clampVolume(audio.MusicVolume)
		s.EffectsVolume = clampVolume(audio.EffectsVolume)
		if audio.MusicTrack != "" {
			s.MusicTrack = audio.MusicTrack
		}
	})
}

// SaveContentFilter stores the content filter preferences.
func (m *Manager) SaveContentFilter(ctx context.Context, enabled bool, level string) (models.Settings, error) {
	return m.update(ctx, func(s *models.Settings) {
		s.ContentFilter = enabled
		if level != "" {
			s.ContentFilterLevel = level
		}
	})
}

// SetShareUsage stores the usage data preference.
func (m *Manager) SetShareUsage(ctx context.Context, share bool) (models.Settings, error) {
	return m.update(ctx, func(s *models.Settings) {
		s.ShareUsage = share
	})
}

// SetAPIKey stores a provider key. Empty input and masked keys echoed back
// from the view are ignored; the return value reports whether a key was
// stored.
func (m *Manager) SetAPIKey(ctx context.Context, provider, value string) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.Contains(value, "...") {
		return false, nil
	}
	if _, ok := (models.APIKeys{}).Get(provider); !ok {
		return false, fmt.Errorf("unknown provider: %s", provider)
	}

	if _, err := m.update(ctx, func(s *models.Settings) {
		s.APIKeys.Set(provider, value)
	}); err != nil {
		return false, err
	}

	m.logger.WithField("provider", provider).Info("API key saved")
	return true, nil
}

// APIKey returns the full stored key for provider.
func (m *Manager) APIKey(ctx context.Context, provider string) (string, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return "", err
	}
	key, _ := s.APIKeys.Get(provider)
	return key, nil
}

// ResetToDefaults restores the defaults but keeps the stored API keys.
func (m *Manager) ResetToDefaults(ctx context.Context) (models.Settings, error) {
	current, err := m.Load(ctx)
	if err != nil {
		return current, err
	}

	s := models.DefaultSettings()
	s.APIKeys = current.APIKeys
	if err := m.Save(ctx, s); err != nil {
		return s, err
	}
	return s, m.ApplyTheme(ctx, ThemeLight)
}

// Theme returns the stored theme, light by default.
func (m *Manager) Theme(ctx context.Context) string {
	var theme string
	found, err := m.store.Get(ctx, ThemeKey, &theme)
	if err != nil {
		m.logger.WithError(err).Warn("Failed to read theme")
	}
	if !found || theme != ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ApplyTheme stores theme.
func (m *Manager) ApplyTheme(ctx context.Context, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("unknown theme: %s", theme)
	}
	return m.store.Set(ctx, ThemeKey, theme, 0)
}

// ToggleTheme flips between light and dark and returns the new theme.
func (m *Manager) ToggleTheme(ctx context.Context) (string, error) {
	theme := ThemeDark
	if m.Theme(ctx) == ThemeDark {
		theme = ThemeLight
	}
	return theme, m.ApplyTheme(ctx, theme)
}

// ResetTutorials forgets completed tutorials.
func (m *Manager) ResetTutorials(ctx context.Context) error {
	return m.store.Remove(ctx, TutorialsKey)
}

// ResetOnboarding forgets completed onboarding.
func (m *Manager) ResetOnboarding(ctx context.Context) error {
	return m.store.Remove(ctx, OnboardingKey)
}

// ClearCache wipes all persisted and session-scoped state, which also logs the
// user out.
func (m *Manager) ClearCache(ctx context.Context) error {
	if err := m.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	if m.scratch != nil {
		if err := m.scratch.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear session store: %w", err)
		}
	}
	m.logger.Info("Cache cleared")
	return nil
}

// TestAPIKey probes the provider. Only an "ok" status is valid; an answer
// that could not be obtained at all is an error.
func (m *Manager) TestAPIKey(ctx context.Context, provider string) KeyStatus {
	if m.checker == nil {
		return KeyError
	}
	status, err := m.checker.CheckProviderStatus(ctx, provider)
	if err != nil {
		if api.IsBackendError(err) {
			return KeyInvalid
		}
		m.logger.WithError(err).WithField("provider", provider).Warn("Error testing API key")
		return KeyError
	}
	if status.OK() {
		return KeyValid
	}
	return KeyInvalid
}

// MaskKey shows the first three and last four characters of key. Keys too
// short to mask that way only keep their prefix.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) < 7 {
		n := 3
		if len(key) < n {
			n = len(key)
		}
		return key[:n] + "..."
	}
	return key[:3] + "..." + key[len(key)-4:]
}

// MaskedKeys returns keys with every value masked.
func MaskedKeys(keys models.APIKeys) models.APIKeys {
	return models.APIKeys{
		OpenAI:     MaskKey(keys.OpenAI),
		OpenRouter: MaskKey(keys.OpenRouter),
	}
}

// VolumeLabel formats a 0..1 volume as a percentage.
func VolumeLabel(volume float64) string {
	return fmt.Sprintf("%d%%", int(clampVolume(volume)*100+0.5))
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
