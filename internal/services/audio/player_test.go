package audio

import (
	"context"
	"testing"

	"github.com/ai-charchat-go/internal/services/storage"
	"github.com/ai-charchat-go/pkg/logger"
)

func newPlayer() (*Player, *NullDevice, *storage.Manager) {
	log := logger.Discard()
	store := storage.NewSessionStore(log)
	device := NewNullDevice()
	return NewPlayer(device, store, log), device, store
}

func TestInitDefaults(t *testing.T) {
	p, device, _ := newPlayer()
	if err := p.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if p.IsMusicOn() || !p.AreEffectsOn() {
		t.Fatalf("unexpected default flags")
	}
	if device.Source() != "/music/default-track.mp3" || device.Volume() != DefaultMusicVolume {
		t.Fatalf("unexpected device state %q %v", device.Source(), device.Volume())
	}
	if !device.Paused() {
		t.Fatalf("music started without preference")
	}
}

func TestInitRestoresPreferences(t *testing.T) {
	p, device, store := newPlayer()
	ctx := context.Background()
	store.Set(ctx, MusicEnabledKey, true, 0)
	store.Set(ctx, EffectsEnabledKey, false, 0)
	store.Set(ctx, MusicVolumeKey, 0.7, 0)
	store.Set(ctx, EffectsVolumeKey, 0.2, 0)
	store.Set(ctx, CurrentTrackKey, "calm", 0)

	if err := p.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if !p.IsMusicOn() || p.AreEffectsOn() || p.CurrentTrack() != "calm" {
		t.Fatalf("preferences not restored")
	}
	if p.MusicVolume() != 0.7 || p.EffectsVolume() != 0.2 {
		t.Fatalf("volumes not restored: %v %v", p.MusicVolume(), p.EffectsVolume())
	}
	if device.Paused() || device.Source() != "/music/calm-track.mp3" {
		t.Fatalf("music not playing calm track")
	}
}

func TestPlayMusicFailureDisables(t *testing.T) {
	p, device, store := newPlayer()
	ctx := context.Background()
	device.Blocked = true

	if err := p.PlayMusic(ctx); err == nil {
		t.Fatalf("expected playback error")
	}
	if p.IsMusicOn() {
		t.Fatalf("music flag left on after failure")
	}
	var stored bool
	if found, _ := store.Get(ctx, MusicEnabledKey, &stored); !found || stored {
		t.Fatalf("expected stored false, got %v %v", found, stored)
	}
}

func TestToggleMusic(t *testing.T) {
	p, device, _ := newPlayer()
	ctx := context.Background()

	if !p.ToggleMusic(ctx) || device.Paused() {
		t.Fatalf("expected music on")
	}
	if p.ToggleMusic(ctx) || !device.Paused() {
		t.Fatalf("expected music off")
	}
}

func TestVolumesClamped(t *testing.T) {
	p, device, store := newPlayer()
	ctx := context.Background()

	p.SetMusicVolume(ctx, 2)
	p.SetEffectsVolume(ctx, -0.5)
	if p.MusicVolume() != 1 || device.Volume() != 1 || p.EffectsVolume() != 0 {
		t.Fatalf("volumes not clamped")
	}
	var v float64
	store.Get(ctx, MusicVolumeKey, &v)
	if v != 1 {
		t.Fatalf("stored volume %v", v)
	}
}

func TestChangeTrack(t *testing.T) {
	p, device, _ := newPlayer()
	ctx := context.Background()

	if p.ChangeTrack(ctx, "disco") {
		t.Fatalf("unknown track accepted")
	}
	p.PlayMusic(ctx)
	if !p.ChangeTrack(ctx, "upbeat") {
		t.Fatalf("track rejected")
	}
	if device.Source() != "/music/upbeat-track.mp3" || device.Paused() {
		t.Fatalf("track not playing after change")
	}
	if got := p.AvailableTracks(); len(got) != 4 || got[0] != "ambient" || got[3] != "upbeat" {
		t.Fatalf("unexpected tracks %v", got)
	}
}

func TestPlaySound(t *testing.T) {
	p, device, _ := newPlayer()
	ctx := context.Background()

	p.PlaySound("message")
	p.PlaySound("message")
	p.PlaySound("unknown")
	if clips := device.Clips(); len(clips) != 2 || clips[0].Source != "/sounds/message.mp3" || clips[0].Volume != DefaultEffectsVolume {
		t.Fatalf("unexpected clips %+v", clips)
	}

	if p.ToggleSoundEffects(ctx) {
		t.Fatalf("expected effects off")
	}
	p.PlaySound("call")
	if len(device.Clips()) != 2 {
		t.Fatalf("sound played while effects disabled")
	}
}

func TestVisibility(t *testing.T) {
	p, device, _ := newPlayer()
	ctx := context.Background()
	p.PlayMusic(ctx)

	p.SetVisible(false)
	if !device.Paused() || !p.IsMusicOn() {
		t.Fatalf("hidden client should pause without disabling")
	}
	p.SetVisible(true)
	if device.Paused() {
		t.Fatalf("music not resumed")
	}
}

func TestToggleMusicWhileHidden(t *testing.T) {
	p, device, _ := newPlayer()
	ctx := context.Background()
	p.PlayMusic(ctx)
	p.SetVisible(false)

	if p.ToggleMusic(ctx) || p.IsMusicOn() {
		t.Fatalf("toggle while hidden should switch music off")
	}
	p.SetVisible(true)
	if !device.Paused() {
		t.Fatalf("disabled music resumed when shown")
	}

	p.SetVisible(false)
	if !p.ToggleMusic(ctx) {
		t.Fatalf("toggle while hidden should switch music on")
	}
	if !device.Paused() {
		t.Fatalf("hidden client started playback")
	}
	p.SetVisible(true)
	if device.Paused() {
		t.Fatalf("enabled music not resumed when shown")
	}
}
