// Package view holds the formatting and ordering helpers shared by the page
// controllers.
package view

import (
	"fmt"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/ai-charchat-go/internal/models"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort modes accepted by SortCharacters.
const (
	SortDate    = "date"
	SortName    = "name"
	SortPopular = "popular"
)

var intervals = []struct {
	unit    string
	seconds int64
}{
	{"year", 31536000},
	{"month", 2592000},
	{"week", 604800},
	{"day", 86400},
	{"hour", 3600},
	{"minute", 60},
}

// FormatRelativeTime renders t relative to now, e.g. "2 hours ago". Anything
// under a minute, or in the future, is "just now".
func FormatRelativeTime(t, now time.Time) string {
	if t.IsZero() {
		return "Invalid date"
	}
	seconds := int64(now.Sub(t) / time.Second)
	for _, iv := range intervals {
		n := seconds / iv.seconds
		if n <= 0 {
			continue
		}
		if n == 1 {
			return fmt.Sprintf("1 %s ago", iv.unit)
		}
		return fmt.Sprintf("%d %ss ago", n, iv.unit)
	}
	return "just now"
}

// FormatTime renders the clock time in 12-hour form, e.g. "2:30 PM".
func FormatTime(t time.Time) string {
	return t.Format("3:04 PM")
}

// FormatDate renders a short date, e.g. "May 15, 2025".
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

// TruncateText cuts text to max runes and appends "..." when it was longer.
func TruncateText(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}

// MemoryLabel names a memory strength on the 1..10 scale.
func MemoryLabel(strength int) string {
	switch {
	case strength <= 2:
		return "Very Weak"
	case strength <= 4:
		return "Weak"
	case strength <= 6:
		return "Medium"
	case strength <= 8:
		return "Strong"
	default:
		return "Very Strong"
	}
}

// SortCharacters orders characters in place by mode. Unknown modes leave the
// order untouched and return false.
func SortCharacters(chars []models.Character, mode string, lang language.Tag) bool {
	switch mode {
	case SortDate:
		SortByDate(chars)
	case SortName:
		SortByName(chars, lang)
	case SortPopular:
		SortByPopularity(chars)
	default:
		return false
	}
	return true
}

// SortByDate puts the most recently created characters first.
func SortByDate(chars []models.Character) {
	sort.SliceStable(chars, func(i, j int) bool {
		return chars[i].CreatedAt.After(chars[j].CreatedAt.Time)
	})
}

// SortByName orders characters A-Z using the collation rules of lang.
func SortByName(chars []models.Character, lang language.Tag) {
	c := collate.New(lang, collate.IgnoreCase)
	sort.SliceStable(chars, func(i, j int) bool {
		return c.CompareString(chars[i].Name, chars[j].Name) < 0
	})
}

// SortByPopularity orders by like count, falling back to creation date for
// pairs where either count is unknown.
func SortByPopularity(chars []models.Character) {
	sort.SliceStable(chars, func(i, j int) bool {
		a, b := chars[i], chars[j]
		if a.LikeCount != nil && b.LikeCount != nil && *a.LikeCount != *b.LikeCount {
			return *a.LikeCount > *b.LikeCount
		}
		return a.CreatedAt.After(b.CreatedAt.Time)
	})
}

// SortSessions puts the most recently updated sessions first.
func SortSessions(sessions []models.ChatSession) {
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt.Time)
	})
}

// SortMessages orders messages oldest first.
func SortMessages(msgs []models.Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt.Time)
	})
}
