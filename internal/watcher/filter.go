package watcher

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/Adda-Baaj/board-reminder/internal/domain"
)

// Normalize lowercases s and strips every whitespace rune, so "Foo  Bar"
// and "foobar" compare equal.
func Normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// NormalizeKeywords normalizes each keyword, dropping empties and duplicates
// while keeping the first-seen order.
func NormalizeKeywords(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		n := Normalize(kw)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Matches reports whether item should be reported for the normalized keywords.
// Withdrawn and moderator-flagged items never match; an empty keyword set
// matches nothing.
func Matches(item domain.Item, keywords []string) bool {
	if item.Withdrawn() || item.Locked() {
		return false
	}
	title := Normalize(item.Title)
	for _, kw := range keywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}

// FormatItem renders the new-article notification text.
func FormatItem(board string, item domain.Item) string {
	return fmt.Sprintf("New article\nBoard: %s\nDate: %s\nAuthor: %s\nTitle: %s\nLink: %s",
		board, item.Date, item.Author, item.Title, item.Link)
}

func startMessage(board string, keywords []string) string {
	return fmt.Sprintf("Service start, searching in %s, for keywords: %v", board, keywords)
}

func watchdogMessage(board string) string {
	return "Watchdog: " + board
}
