package audio

import (
	"errors"
	"sync"
)

// Device is the sound output. Background music is a single looping stream;
// effects are independent one-shot clips.
type Device interface {
	Load(src string) error
	Play() error
	Pause()
	Paused() bool
	SetVolume(volume float64)
	PlayClip(src string, volume float64) error
}

// ErrPlaybackBlocked is returned by NullDevice when playback is refused.
var ErrPlaybackBlocked = errors.New("audio: playback blocked")

// Clip is a played effect recorded by NullDevice.
type Clip struct {
	Source string
	Volume float64
}

// NullDevice produces no sound and records what would have been played.
type NullDevice struct {
	mu sync.Mutex

	// Blocked makes Play fail, as an output that refuses to start would.
	Blocked bool

	source  string
	playing bool
	volume  float64
	clips   []Clip
}

func NewNullDevice() *NullDevice {
	return &NullDevice{volume: 1}
}

func (d *NullDevice) Load(src string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = src
	return nil
}

func (d *NullDevice) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Blocked {
		return ErrPlaybackBlocked
	}
	d.playing = true
	return nil
}

func (d *NullDevice) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.playing = false
}

func (d *NullDevice) Paused() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.playing
}

func (d *NullDevice) SetVolume(volume float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.volume = volume
}

func (d *NullDevice) PlayClip(src string, volume float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Blocked {
		return ErrPlaybackBlocked
	}
	d.clips = append(d.clips, Clip{Source: src, Volume: volume})
	return nil
}

// Source returns the loaded music source.
func (d *NullDevice) Source() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.source
}

// Volume returns the music volume.
func (d *NullDevice) Volume() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.volume
}

// Clips returns the effects played so far.
func (d *NullDevice) Clips() []Clip {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Clip(nil), d.clips...)
}
