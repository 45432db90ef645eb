package transcription

import (
	"strings"
	"unicode/utf8"
)

const (
	titleMinWords = 5
	titleMaxWords = 8
	titleMaxRunes = 100

	// Unspaced scripts are measured in characters instead of words.
	titleMinChars = 5
	titleMaxChars = 20
)

var placeholderTitles = map[string]bool{
	"":                  true,
	"untitled":          true,
	"untitled job":      true,
	"new transcription": true,
	"processing":        true,
	"processing...":     true,
	"uploaded audio":    true,
	"uploaded file":     true,
	"audio":             true,
	"video":             true,
	"recording":         true,
}

// IsPlaceholderTitle reports whether title was set by intake rather than by
// the user.
func IsPlaceholderTitle(title string) bool {
	return placeholderTitles[strings.ToLower(strings.TrimSpace(title))]
}

// InferTitle builds a title from the first words of text. It stops at a
// sentence end between the fifth and eighth word, otherwise takes eight
// words and appends an ellipsis when text continues. Text that opens in
// Chinese or Japanese is cut by characters instead, since it has no spaces
// to split on.
func InferTitle(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	if r, _ := utf8.DecodeRuneInString(words[0]); isCJK(r) {
		return inferUnspacedTitle(strings.Join(words, " "))
	}

	n := min(len(words), titleMaxWords)
	title := strings.Join(words[:n], " ")
	truncated := len(words) > n
	for i := titleMinWords - 1; i < n; i++ {
		if endsSentence(words[i]) {
			title = strings.Join(words[:i+1], " ")
			truncated = false
			break
		}
	}
	if truncated {
		title = strings.TrimRight(title, ",;:") + "..."
	}

	if utf8.RuneCountInString(title) > titleMaxRunes {
		r := []rune(title)
		title = string(r[:titleMaxRunes-3]) + "..."
	}
	return title
}

// inferUnspacedTitle stops at a sentence end between the fifth and
// twentieth character, otherwise takes twenty characters and appends an
// ellipsis when text continues.
func inferUnspacedTitle(text string) string {
	runes := []rune(text)
	n := min(len(runes), titleMaxChars)
	for i := titleMinChars - 1; i < n; i++ {
		if endsSentence(string(runes[i])) {
			return string(runes[:i+1])
		}
	}
	title := string(runes[:n])
	if len(runes) > n {
		title = strings.TrimRightFunc(title, func(r rune) bool {
			return isCJKPunct(r) || strings.ContainsRune(",;: ", r)
		}) + "…"
	}
	return title
}
