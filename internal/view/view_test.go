package view

import (
	"testing"
	"time"

	"github.com/ai-charchat-go/internal/models"
	"golang.org/x/text/language"
)

func TestFormatRelativeTime(t *testing.T) {
	now := time.Date(2025, 5, 15, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{-time.Hour, "just now"},
		{time.Minute, "1 minute ago"},
		{5 * time.Minute, "5 minutes ago"},
		{2 * time.Hour, "2 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{15 * 24 * time.Hour, "2 weeks ago"},
		{45 * 24 * time.Hour, "1 month ago"},
		{800 * 24 * time.Hour, "2 years ago"},
	}
	for _, tc := range cases {
		if got := FormatRelativeTime(now.Add(-tc.ago), now); got != tc.want {
			t.Fatalf("%v ago: got %q want %q", tc.ago, got, tc.want)
		}
	}
	if got := FormatRelativeTime(time.Time{}, now); got != "Invalid date" {
		t.Fatalf("zero time: got %q", got)
	}
}

func TestFormatTimeAndDate(t *testing.T) {
	ts := time.Date(2025, 5, 15, 14, 30, 0, 0, time.UTC)
	if got := FormatTime(ts); got != "2:30 PM" {
		t.Fatalf("FormatTime: %q", got)
	}
	if got := FormatDate(ts); got != "May 15, 2025" {
		t.Fatalf("FormatDate: %q", got)
	}
}

func TestTruncateText(t *testing.T) {
	if got := TruncateText("short", 10); got != "short" {
		t.Fatalf("unexpected %q", got)
	}
	if got := TruncateText("héllo wörld", 5); got != "héllo..." {
		t.Fatalf("unexpected %q", got)
	}
}

func TestMemoryLabel(t *testing.T) {
	want := map[int]string{1: "Very Weak", 2: "Very Weak", 3: "Weak", 5: "Medium", 6: "Medium", 8: "Strong", 10: "Very Strong"}
	for in, label := range want {
		if got := MemoryLabel(in); got != label {
			t.Fatalf("MemoryLabel(%d) = %q want %q", in, got, label)
		}
	}
}

func intp(n int) *int { return &n }

func names(chars []models.Character) string {
	out := ""
	for i, c := range chars {
		if i > 0 {
			out += ","
		}
		out += c.Name
	}
	return out
}

func TestSortCharacters(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	chars := []models.Character{
		{Name: "bravo", CreatedAt: models.At(base.Add(time.Hour)), LikeCount: intp(1)},
		{Name: "Alpha", CreatedAt: models.At(base), LikeCount: intp(9)},
		{Name: "charlie", CreatedAt: models.At(base.Add(2 * time.Hour)), LikeCount: intp(5)},
	}

	SortCharacters(chars, SortDate, language.English)
	if got := names(chars); got != "charlie,bravo,Alpha" {
		t.Fatalf("date order: %s", got)
	}
	SortCharacters(chars, SortName, language.English)
	if got := names(chars); got != "Alpha,bravo,charlie" {
		t.Fatalf("name order: %s", got)
	}
	SortCharacters(chars, SortPopular, language.English)
	if got := names(chars); got != "Alpha,charlie,bravo" {
		t.Fatalf("popular order: %s", got)
	}
	if SortCharacters(chars, "random", language.English) {
		t.Fatalf("unknown mode accepted")
	}
}

func TestSortByPopularityFallsBackToDate(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	chars := []models.Character{
		{Name: "old", CreatedAt: models.At(base)},
		{Name: "new", CreatedAt: models.At(base.Add(time.Hour))},
	}
	SortByPopularity(chars)
	if got := names(chars); got != "new,old" {
		t.Fatalf("fallback order: %s", got)
	}
}
