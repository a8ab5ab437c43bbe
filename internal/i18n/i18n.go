package i18n

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/ai-charchat-go/internal/config"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var locales embed.FS

// Localizer manages internationalization
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a new localizer
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	// Load language files
	for _, lang := range cfg.Languages {
		if _, err := bundle.LoadMessageFileFS(locales, fmt.Sprintf("locales/%s.json", lang)); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	defaultLanguage := cfg.DefaultLanguage
	if _, ok := localizers[defaultLanguage]; !ok {
		defaultLanguage = language.English.String()
		localizers[defaultLanguage] = i18n.NewLocalizer(bundle, defaultLanguage)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: defaultLanguage,
		localizers:      localizers,
	}, nil
}

// Get returns localized message
func (l *Localizer) Get(lang, messageID string, data map[string]interface{}) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    messageID,
		TemplateData: data,
	})
	if err != nil {
		return messageID // Fallback to message ID
	}

	return msg
}

// Languages lists the loaded language tags.
func (l *Localizer) Languages() []string {
	tags := l.bundle.LanguageTags()
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, tag.String())
	}
	return out
}

// Tag parses lang, falling back to English.
func Tag(lang string) language.Tag {
	tag, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	return tag
}

// Message IDs
const (
	MsgLoginSuccess     = "login_success"
	MsgSignupSuccess    = "signup_success"
	MsgAnonymousSuccess = "anonymous_login_success"
	MsgLoginFailed      = "login_failed"
	MsgSignupFailed     = "signup_failed"
	MsgAnonymousFailed  = "anonymous_login_failed"
	MsgInvalidEmail     = "invalid_email"
	MsgPasswordRequired = "password_required"
	MsgPasswordTooShort = "password_too_short"
	MsgLoggedOut        = "logged_out"
	MsgLoginRequired    = "login_required"
	MsgUnknownError     = "unknown_error"

	MsgCharacterNameRequired = "character_name_required"
	MsgCharacterCreated      = "character_created"
	MsgCharacterUpdated      = "character_updated"
	MsgCharacterDeleted      = "character_deleted"
	MsgCharacterAdded        = "character_added"
	MsgCharacterCreateFailed = "character_create_failed"
	MsgCharacterUpdateFailed = "character_update_failed"
	MsgCharacterDeleteFailed = "character_delete_failed"
	MsgCharacterAddFailed    = "character_add_failed"
	MsgCharacterLoadFailed   = "character_load_failed"
	MsgCharactersLoadFailed  = "characters_load_failed"
	MsgPublicLoadFailed      = "public_characters_load_failed"
	MsgNoCharacters          = "no_characters"
	MsgNoPublicCharacters    = "no_public_characters"
	MsgSortedByName          = "sorted_by_name"
	MsgSortedByDate          = "sorted_by_date"
	MsgSortedByPopularity    = "sorted_by_popularity"
	MsgChatStartFailed       = "chat_start_failed"

	MsgNoSession          = "no_session"
	MsgSessionLoadFailed  = "session_load_failed"
	MsgMessagesLoadFailed = "messages_load_failed"
	MsgSendFailed         = "send_failed"
	MsgReplyFailed        = "reply_failed"
	MsgMessageEmpty       = "message_empty"
	MsgMessageTooLong     = "message_too_long"
	MsgChatDeleted        = "chat_deleted"
	MsgChatDeleteFailed   = "chat_delete_failed"
	MsgSessionsLoadFailed = "sessions_load_failed"
	MsgNoChats            = "no_chats"

	MsgProfileSaved   = "profile_saved"
	MsgProfileFailed  = "profile_save_failed"
	MsgPrivacySaved   = "privacy_saved"
	MsgUserLoadFailed = "user_load_failed"

	MsgLanguageThemeSaved = "language_theme_saved"
	MsgAudioSaved         = "audio_saved"
	MsgContentFilterSaved = "content_filter_saved"
	MsgAPIKeySaved        = "api_key_saved"
	MsgAPIKeyUnchanged    = "api_key_unchanged"
	MsgSettingsReset      = "settings_reset"
	MsgTutorialsReset     = "tutorials_reset"
	MsgOnboardingReset    = "onboarding_reset"
	MsgCacheCleared       = "cache_cleared"
	MsgThemeChanged       = "theme_changed"
	MsgUsageSharingOn     = "usage_sharing_enabled"
	MsgUsageSharingOff    = "usage_sharing_disabled"
	MsgSettingsFailed     = "settings_failed"
	MsgKeyValid           = "key_valid"
	MsgKeyInvalid         = "key_invalid"
	MsgKeyError           = "key_error"
	MsgTrackChanged       = "track_changed"
	MsgTrackUnknown       = "track_unknown"
)
