package audio

import (
	"context"
	"sort"
	"sync"

	"github.com/ai-charchat-go/internal/services/storage"
	"github.com/sirupsen/logrus"
)

// Storage keys for audio preferences.
const (
	MusicEnabledKey   = "musicEnabled"
	EffectsEnabledKey = "effectsEnabled"
	MusicVolumeKey    = "musicVolume"
	EffectsVolumeKey  = "effectsVolume"
	CurrentTrackKey   = "currentTrack"
)

const (
	DefaultTrack         = "default"
	DefaultMusicVolume   = 0.3
	DefaultEffectsVolume = 0.5
)

var tracks = map[string]string{
	"default": "/music/default-track.mp3",
	"calm":    "/music/calm-track.mp3",
	"upbeat":  "/music/upbeat-track.mp3",
	"ambient": "/music/ambient-track.mp3",
}

var effects = map[string]string{
	"message":      "/sounds/message.mp3",
	"notification": "/sounds/notification.mp3",
	"typing":       "/sounds/typing.mp3",
	"call":         "/sounds/call.mp3",
}

// Player manages background music and sound effects over a Device and
// persists the preferences.
type Player struct {
	mu     sync.Mutex
	device Device
	store  *storage.Manager
	logger *logrus.Logger

	musicEnabled   bool
	effectsEnabled bool
	musicVolume    float64
	effectsVolume  float64
	currentTrack   string
	hidden         bool
}

func NewPlayer(device Device, store *storage.Manager, logger *logrus.Logger) *Player {
	return &Player{
		device:         device,
		store:          store,
		logger:         logger,
		effectsEnabled: true,
		musicVolume:    DefaultMusicVolume,
		effectsVolume:  DefaultEffectsVolume,
		currentTrack:   DefaultTrack,
	}
}

// Init restores the stored preferences, loads the current track and starts
// the music when it was enabled.
func (p *Player) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.restore(ctx, MusicEnabledKey, &p.musicEnabled)
	p.restore(ctx, EffectsEnabledKey, &p.effectsEnabled)
	p.restore(ctx, MusicVolumeKey, &p.musicVolume)
	p.restore(ctx, EffectsVolumeKey, &p.effectsVolume)
	p.restore(ctx, CurrentTrackKey, &p.currentTrack)

	p.musicVolume = clamp(p.musicVolume)
	p.effectsVolume = clamp(p.effectsVolume)
	if _, ok := tracks[p.currentTrack]; !ok {
		p.currentTrack = DefaultTrack
	}

	if err := p.device.Load(tracks[p.currentTrack]); err != nil {
		p.logger.WithError(err).Warn("Could not load music track")
		return err
	}
	p.device.SetVolume(p.musicVolume)

	if p.musicEnabled {
		return p.playLocked(ctx)
	}
	return nil
}

// PlayMusic enables and starts the background music. When playback fails the
// preference is switched back off.
func (p *Player) PlayMusic(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playLocked(ctx)
}

func (p *Player) playLocked(ctx context.Context) error {
	p.musicEnabled = true
	p.persist(ctx, MusicEnabledKey, true)

	if p.hidden {
		return nil
	}
	if err := p.device.Play(); err != nil {
		p.logger.WithError(err).Warn("Could not play music")
		p.musicEnabled = false
		p.persist(ctx, MusicEnabledKey, false)
		return err
	}
	return nil
}

// PauseMusic stops the music and disables it.
func (p *Player) PauseMusic(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.device.Pause()
	p.musicEnabled = false
	p.persist(ctx, MusicEnabledKey, false)
}

// ToggleMusic flips the music preference, starting or pausing playback, and
// returns whether music is now enabled. A hidden client only records the
// preference.
func (p *Player) ToggleMusic(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.musicEnabled {
		p.playLocked(ctx)
	} else {
		p.device.Pause()
		p.musicEnabled = false
		p.persist(ctx, MusicEnabledKey, false)
	}
	return p.musicEnabled
}

// SetMusicVolume sets the music volume, clamped to [0, 1].
func (p *Player) SetMusicVolume(ctx context.Context, volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.musicVolume = clamp(volume)
	p.device.SetVolume(p.musicVolume)
	p.persist(ctx, MusicVolumeKey, p.musicVolume)
}

// SetEffectsVolume sets the effects volume, clamped to [0, 1].
func (p *Player) SetEffectsVolume(ctx context.Context, volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.effectsVolume = clamp(volume)
	p.persist(ctx, EffectsVolumeKey, p.effectsVolume)
}

func (p *Player) EnableSoundEffects(ctx context.Context) {
	p.setEffects(ctx, true)
}

func (p *Player) DisableSoundEffects(ctx context.Context) {
	p.setEffects(ctx, false)
}

// ToggleSoundEffects flips the effects preference and returns the new value.
func (p *Player) ToggleSoundEffects(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.effectsEnabled = !p.effectsEnabled
	p.persist(ctx, EffectsEnabledKey, p.effectsEnabled)
	return p.effectsEnabled
}

func (p *Player) setEffects(ctx context.Context, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.effectsEnabled = enabled
	p.persist(ctx, EffectsEnabledKey, enabled)
}

// ChangeTrack switches to trackID, resuming playback if music was playing.
// Unknown tracks are rejected.
func (p *Player) ChangeTrack(ctx context.Context, trackID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	src, ok := tracks[trackID]
	if !ok {
		return false
	}

	wasPlaying := !p.device.Paused()
	p.currentTrack = trackID
	if err := p.device.Load(src); err != nil {
		p.logger.WithError(err).WithField("track", trackID).Warn("Could not load music track")
	}
	if wasPlaying {
		if err := p.device.Play(); err != nil {
			p.logger.WithError(err).Warn("Could not play music")
		}
	}

	p.persist(ctx, CurrentTrackKey, trackID)
	return true
}

// PlaySound plays a one-shot effect. Overlapping effects are allowed.
func (p *Player) PlaySound(soundID string) {
	p.mu.Lock()
	enabled, volume := p.effectsEnabled, p.effectsVolume
	p.mu.Unlock()

	src, ok := effects[soundID]
	if !enabled || !ok {
		return
	}
	if err := p.device.PlayClip(src, volume); err != nil {
		p.logger.WithError(err).WithField("sound", soundID).Warn("Could not play sound")
	}
}

// SetVisible pauses playing music while the client is hidden and resumes it
// when shown again, without changing the stored preference.
func (p *Player) SetVisible(visible bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.hidden = !visible
	if !p.musicEnabled {
		return
	}
	if p.hidden {
		if !p.device.Paused() {
			p.device.Pause()
		}
		return
	}
	if p.device.Paused() {
		if err := p.device.Play(); err != nil {
			p.logger.WithError(err).Warn("Could not resume music")
		}
	}
}

func (p *Player) IsMusicOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.musicEnabled
}

func (p *Player) AreEffectsOn() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.effectsEnabled
}

func (p *Player) CurrentTrack() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentTrack
}

func (p *Player) MusicVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.musicVolume
}

func (p *Player) EffectsVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.effectsVolume
}

// Tracks lists the available track ids.
func Tracks() []string {
	ids := make([]string, 0, len(tracks))
	for id := range tracks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AvailableTracks lists the track ids the player can switch to.
func (p *Player) AvailableTracks() []string {
	return Tracks()
}

func (p *Player) restore(ctx context.Context, key string, dst interface{}) {
	if _, err := p.store.Get(ctx, key, dst); err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("Could not restore audio preference")
	}
}

func (p *Player) persist(ctx context.Context, key string, value interface{}) {
	if err := p.store.Set(ctx, key, value, 0); err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("Could not store audio preference")
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
