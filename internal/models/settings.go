package models

// Provider names for stored API keys.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
)

// APIKeys holds full, unmasked provider credentials.
type APIKeys struct {
	OpenAI     string `json:"openai"`
	OpenRouter string `json:"openrouter"`
}

// Get returns the key stored for provider.
func (k APIKeys) Get(provider string) (string, bool) {
	switch provider {
	case ProviderOpenAI:
		return k.OpenAI, true
	case ProviderOpenRouter:
		return k.OpenRouter, true
	}
	return "", false
}

// Set stores value for provider and reports whether the provider is known.
func (k *APIKeys) Set(provider, value string) bool {
	switch provider {
	case ProviderOpenAI:
		k.OpenAI = value
	case ProviderOpenRouter:
		k.OpenRouter = value
	default:
		return false
	}
	return true
}

// Settings are the user-configurable client preferences.
type Settings struct {
	Language            string  `json:"language"`
	Theme               string  `json:"theme"`
	DarkMode            bool    `json:"darkMode"`
	Notifications       bool    `json:"notifications"`
	MusicEnabled        bool    `json:"musicEnabled"`
	SoundEffectsEnabled bool    `json:"soundEffectsEnabled"`
	MusicVolume         float64 `json:"musicVolume"`
	EffectsVolume       float64 `json:"effectsVolume"`
	MusicTrack          string  `json:"musicTrack"`
	ContentFilter       bool    `json:"contentFilter"`
	ContentFilterLevel  string  `json:"contentFilterLevel"`
	ShareUsage          bool    `json:"shareUsage"`
	APIKeys             APIKeys `json:"apiKeys"`
}

// DefaultSettings returns the settings used for keys absent from storage.
func DefaultSettings() Settings {
	return Settings{
		Language:            "en",
		Theme:               "light",
		DarkMode:            false,
		Notifications:       false,
		MusicEnabled:        false,
		SoundEffectsEnabled: true,
		MusicVolume:         0.3,
		EffectsVolume:       0.5,
		MusicTrack:          "default",
		ContentFilter:       true,
		ContentFilterLevel:  "medium",
		ShareUsage:          true,
	}
}
