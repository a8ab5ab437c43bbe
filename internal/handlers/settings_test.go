package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/ai-charchat-go/internal/models"
	"github.com/ai-charchat-go/internal/services/audio"
	"github.com/ai-charchat-go/internal/services/settings"
)

func TestSettingsAPIKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := NewSettingsController(f.deps, nil)

	saved, err := c.SaveAPIKey(ctx, models.ProviderOpenAI, "sk-abcdefghijkl")
	if err != nil || !saved {
		t.Fatalf("save key: %v %v", saved, err)
	}
	f.wantStatus(t, KindSuccess, "Openai API key saved successfully")

	v, err := c.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if v.Settings.APIKeys.OpenAI != "sk-...ijkl" {
		t.Fatalf("key not masked: %q", v.Settings.APIKeys.OpenAI)
	}

	saved, err = c.SaveAPIKey(ctx, models.ProviderOpenAI, v.Settings.APIKeys.OpenAI)
	if err != nil || saved {
		t.Fatalf("masked key overwrote stored key: %v %v", saved, err)
	}
	f.wantStatus(t, KindInfo, "Openai API key unchanged")

	key, _ := f.deps.Settings.APIKey(ctx, models.ProviderOpenAI)
	if key != "sk-abcdefghijkl" {
		t.Fatalf("stored key changed to %q", key)
	}
}

func TestSettingsTestAPIKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := NewSettingsController(f.deps, nil)

	status, label := c.TestAPIKey(ctx, models.ProviderOpenAI)
	if status != settings.KeyValid || label != "Valid" {
		t.Fatalf("unexpected result %s %q", status, label)
	}

	f.backend.SetAIStatus("error")
	status, label = c.TestAPIKey(ctx, models.ProviderOpenRouter)
	if status != settings.KeyInvalid || label != "Invalid" {
		t.Fatalf("unexpected result %s %q", status, label)
	}
}

func TestSettingsSaveAudioDrivesPlayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	device := audio.NewNullDevice()
	player := audio.NewPlayer(device, f.store, f.deps.Logger)
	if err := player.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	c := NewSettingsController(f.deps, player)

	v, err := c.SaveAudio(ctx, settings.Audio{
		MusicEnabled:  true,
		MusicVolume:   0.8,
		EffectsVolume: 1.5,
		MusicTrack:    "calm",
	})
	if err != nil {
		t.Fatalf("save audio: %v", err)
	}
	f.wantStatus(t, KindSuccess, "Audio settings saved successfully")

	if !player.IsMusicOn() || device.Paused() {
		t.Fatalf("music not started")
	}
	if player.AreEffectsOn() {
		t.Fatalf("effects still on")
	}
	if player.CurrentTrack() != "calm" || device.Source() != "/music/calm-track.mp3" {
		t.Fatalf("track not changed: %q %q", player.CurrentTrack(), device.Source())
	}
	if device.Volume() != 0.8 || player.EffectsVolume() != 1 {
		t.Fatalf("volumes not applied: %v %v", device.Volume(), player.EffectsVolume())
	}
	if v.MusicVolumeLabel != "80%" || v.EffectsVolumeLabel != "100%" {
		t.Fatalf("unexpected labels %q %q", v.MusicVolumeLabel, v.EffectsVolumeLabel)
	}

	_, err = c.SaveAudio(ctx, settings.Audio{MusicTrack: "polka"})
	var formErr *FormError
	if !errors.As(err, &formErr) || formErr.Field != "musicTrack" {
		t.Fatalf("expected track form error, got %v", err)
	}
	f.wantStatus(t, KindError, "Unknown track: polka")
	if !player.IsMusicOn() || player.CurrentTrack() != "calm" {
		t.Fatalf("unknown track changed the player")
	}
	stored, err := f.deps.Settings.Load(ctx)
	if err != nil || stored.MusicTrack != "calm" || !stored.MusicEnabled {
		t.Fatalf("unknown track reached the settings record: %+v %v", stored, err)
	}
}

func TestSettingsThemeAndReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := NewSettingsController(f.deps, nil)

	theme, err := c.ToggleTheme(ctx)
	if err != nil || theme != settings.ThemeDark {
		t.Fatalf("toggle: %q %v", theme, err)
	}
	f.wantStatus(t, KindSuccess, "Theme changed successfully")

	if _, err := c.SaveAPIKey(ctx, models.ProviderOpenRouter, "or-1234567890"); err != nil {
		t.Fatalf("save key: %v", err)
	}
	v, err := c.ResetToDefaults(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	f.wantStatus(t, KindSuccess, "Settings reset to defaults")
	if v.Theme != settings.ThemeLight {
		t.Fatalf("theme not reset: %q", v.Theme)
	}
	if v.Settings.APIKeys.OpenRouter != "or-...7890" {
		t.Fatalf("api key lost on reset: %q", v.Settings.APIKeys.OpenRouter)
	}
}

func TestSettingsLanguageChangesStatusText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := NewSettingsController(f.deps, nil)

	if _, err := c.SaveLanguageAndTheme(ctx, "id", settings.ThemeLight, false, false); err != nil {
		t.Fatalf("save: %v", err)
	}
	f.wantStatus(t, KindSuccess, "Pengaturan bahasa dan tema berhasil disimpan")
}

func TestSettingsClearCacheLogsOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, models.User{ID: "1"})
	c := NewSettingsController(f.deps, nil)

	if err := c.ClearCache(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if f.deps.Session.IsLoggedIn(ctx) {
		t.Fatalf("still logged in after clearing cache")
	}
	f.wantStatus(t, KindSuccess, "Cache cleared successfully. Logging out...")
	if page, _ := f.rec.lastPage(); page != PageLogin {
		t.Fatalf("expected login page, got %q", page)
	}
}
