package transcription

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// cjkLanguages use no inter-word spaces and full-width punctuation.
var cjkLanguages = map[string]bool{"zh": true, "ja": true, "yue": true}

// NeedsRefinement reports whether lang (BCP 47, e.g. "zh-CN") is in the
// Chinese/Japanese script family.
func NeedsRefinement(lang string) bool {
	base, _, _ := strings.Cut(strings.ToLower(lang), "-")
	base, _, _ = strings.Cut(base, "_")
	return cjkLanguages[base]
}

// Refine normalizes spacing and punctuation of CJK transcripts. Other
// languages are returned unchanged.
func Refine(t Transcript) Transcript {
	if !NeedsRefinement(t.Language) {
		return t
	}
	segs := make([]Segment, len(t.Segments))
	for i, s := range t.Segments {
		s.Text = refineCJK(s.Text)
		segs[i] = s
	}
	t.Segments = segs
	t.Text = joinSegments(segs, "")
	return t
}

func refineCJK(text string) string {
	// Full-width Latin letters and digits become narrow.
	runes := []rune(width.Fold.String(strings.TrimSpace(text)))

	var b strings.Builder
	var prev rune
	for i, r := range runes {
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case unicode.IsSpace(r) && (isCJK(prev) || isCJKPunct(prev) || isCJK(next)):
			continue
		case isCJK(prev) && isASCIIPunct(r):
			r = localizePunct(r)
		}
		b.WriteRune(r)
		prev = r
	}

	out := b.String()
	if last := lastRune(out); isCJK(last) {
		out += "。"
	}
	return out
}

func localizePunct(r rune) rune {
	if r == '.' {
		return '。'
	}
	return []rune(width.Widen.String(string(r)))[0]
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana)
}

func isASCIIPunct(r rune) bool {
	return strings.ContainsRune(",.?!:;", r)
}

func isCJKPunct(r rune) bool {
	return strings.ContainsRune("，。？！：；、", r)
}

func lastRune(s string) rune {
	r := []rune(s)
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1]
}
