package transcription

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrEmptyTranscript is returned when no extractor yields a segment.
var ErrEmptyTranscript = errors.New("transcription: payload has no transcript")

// DefaultWordGroup is the maximum number of words per synthesized segment.
const DefaultWordGroup = 15

// flatWordsPerSecond estimates speech rate when a flat transcript has no
// timing and no known duration.
const flatWordsPerSecond = 2.5

// Options tune Normalize.
type Options struct {
	// WordGroup caps words per segment. Zero means DefaultWordGroup.
	WordGroup int
	// FallbackDuration spans a flat transcript when the payload has none,
	// typically the job's resolved audio duration.
	FallbackDuration float64
}

// Extractor turns one payload shape into segments. An empty result passes
// control to the next extractor.
type Extractor interface {
	Name() string
	Extract(p Payload, opts Options) []Segment
}

// Extractors is the priority order used by Normalize.
var Extractors = []Extractor{ParagraphExtractor{}, WordExtractor{}, FlatExtractor{}}

// Normalize runs Extractors in order and returns the first non-empty result.
func Normalize(p Payload, opts Options) (Transcript, error) {
	for _, ex := range Extractors {
		segs := ex.Extract(p, opts)
		if len(segs) == 0 {
			continue
		}
		text := strings.TrimSpace(p.Text)
		if text == "" {
			text = joinSegments(segs, " ")
		}
		return Transcript{Text: text, Segments: segs, Language: p.Language, Extractor: ex.Name()}, nil
	}
	return Transcript{}, ErrEmptyTranscript
}

// ParagraphExtractor flattens paragraph or sentence structure.
type ParagraphExtractor struct{}

func (ParagraphExtractor) Name() string { return KindParagraphs.String() }

func (ParagraphExtractor) Extract(p Payload, _ Options) []Segment {
	segs := make([]Segment, 0, len(p.Paragraphs))
	for _, para := range p.Paragraphs {
		text := strings.TrimSpace(para.Text)
		if text == "" {
			continue
		}
		segs = append(segs, Segment{Start: para.Start, End: max(para.End, para.Start), Text: text, Speaker: para.Speaker})
	}
	return segs
}

// WordExtractor groups timed words into segments, closing a segment after
// sentence-ending punctuation, after WordGroup words or on a speaker change.
type WordExtractor struct{}

func (WordExtractor) Name() string { return KindWords.String() }

func (WordExtractor) Extract(p Payload, opts Options) []Segment {
	limit := opts.WordGroup
	if limit <= 0 {
		limit = DefaultWordGroup
	}

	var segs []Segment
	var cur []Word
	flush := func() {
		if len(cur) == 0 {
			return
		}
		texts := make([]string, len(cur))
		for i, w := range cur {
			texts[i] = w.Text
		}
		segs = append(segs, Segment{
			Start:   cur[0].Start,
			End:     max(cur[len(cur)-1].End, cur[0].Start),
			Text:    strings.Join(texts, " "),
			Speaker: cur[0].Speaker,
		})
		cur = cur[:0]
	}

	for _, w := range p.Words {
		w.Text = strings.TrimSpace(w.Text)
		if w.Text == "" {
			continue
		}
		if len(cur) > 0 && w.Speaker != cur[0].Speaker {
			flush()
		}
		cur = append(cur, w)
		if endsSentence(w.Text) || len(cur) >= limit {
			flush()
		}
	}
	flush()
	return segs
}

// FlatExtractor synthesizes a single segment covering the whole transcript.
type FlatExtractor struct{}

func (FlatExtractor) Name() string { return KindFlat.String() }

func (FlatExtractor) Extract(p Payload, opts Options) []Segment {
	text := strings.TrimSpace(p.Text)
	if text == "" {
		return nil
	}
	end := p.Duration
	if end <= 0 {
		end = opts.FallbackDuration
	}
	if end <= 0 {
		end = max(float64(len(strings.Fields(text)))/flatWordsPerSecond, 0.5)
	}
	return []Segment{{Start: 0, End: end, Text: text}}
}

func endsSentence(word string) bool {
	r, _ := utf8.DecodeLastRuneInString(word)
	switch r {
	case '.', '?', '!', '。', '？', '！':
		return true
	}
	return false
}
