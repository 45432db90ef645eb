package transcription

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timedWords(texts ...string) []Word {
	words := make([]Word, len(texts))
	for i, t := range texts {
		words[i] = Word{Start: float64(i) * 0.5, End: float64(i)*0.5 + 0.4, Text: t}
	}
	return words
}

func TestNormalize_ParagraphsWin(t *testing.T) {
	p := Payload{
		Paragraphs: []Paragraph{{Start: 0, End: 2, Text: "First part."}, {Start: 2, End: 4.2, Text: " Second part. "}},
		Words:      timedWords("ignored", "words"),
		Text:       "First part. Second part.",
	}

	tr, err := Normalize(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, "paragraphs", tr.Extractor)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, "Second part.", tr.Segments[1].Text)
	assert.InDelta(t, 4.2, tr.LastEnd(), 1e-9)
}

func TestNormalize_WordsGroupAtPunctuation(t *testing.T) {
	p := Payload{Words: timedWords("Hello", "world.", "How", "are", "you?", "Fine")}

	tr, err := Normalize(p, Options{})
	require.NoError(t, err)
	assert.Equal(t, "words", tr.Extractor)
	require.Len(t, tr.Segments, 3)
	assert.Equal(t, "Hello world.", tr.Segments[0].Text)
	assert.Equal(t, "How are you?", tr.Segments[1].Text)
	assert.Equal(t, "Fine", tr.Segments[2].Text)
	assert.Equal(t, 1.0, tr.Segments[1].Start)
	assert.Equal(t, "Hello world. How are you? Fine", tr.Text)
}

func TestNormalize_WordsGroupEveryFifteen(t *testing.T) {
	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("w%d", i)
	}

	tr, err := Normalize(Payload{Words: timedWords(texts...)}, Options{})
	require.NoError(t, err)
	require.Len(t, tr.Segments, 2)
	assert.Len(t, strings.Fields(tr.Segments[0].Text), DefaultWordGroup)
	assert.Len(t, strings.Fields(tr.Segments[1].Text), 5)
}

func TestNormalize_WordsSplitOnSpeakerChange(t *testing.T) {
	words := timedWords("hi", "there", "hello")
	words[0].Speaker, words[1].Speaker, words[2].Speaker = "A", "A", "B"

	tr, err := Normalize(Payload{Words: words}, Options{})
	require.NoError(t, err)
	require.Len(t, tr.Segments, 2)
	assert.Equal(t, "A", tr.Segments[0].Speaker)
	assert.Equal(t, "B", tr.Segments[1].Speaker)
}

func TestNormalize_FlatSingleSegment(t *testing.T) {
	tests := []struct {
		name    string
		payload Payload
		opts    Options
		wantEnd float64
	}{
		{"payload duration", Payload{Text: "Hello world.", Duration: 3.2}, Options{FallbackDuration: 9}, 3.2},
		{"job duration", Payload{Text: "Hello world."}, Options{FallbackDuration: 9}, 9},
		{"estimated", Payload{Text: "Hello world."}, Options{}, 0.8},
		{"estimate floor", Payload{Text: "Hi"}, Options{}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := Normalize(tt.payload, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, "flat", tr.Extractor)
			require.Len(t, tr.Segments, 1)
			assert.Equal(t, 0.0, tr.Segments[0].Start)
			assert.InDelta(t, tt.wantEnd, tr.Segments[0].End, 1e-9)
			assert.Equal(t, strings.TrimSpace(tt.payload.Text), tr.Segments[0].Text)
		})
	}
}

func TestNormalize_Empty(t *testing.T) {
	_, err := Normalize(Payload{Paragraphs: []Paragraph{{Text: "  "}}, Text: " "}, Options{})
	assert.ErrorIs(t, err, ErrEmptyTranscript)
}

func TestPayload_Kind(t *testing.T) {
	assert.Equal(t, KindEmpty, Payload{}.Kind())
	assert.Equal(t, KindFlat, Payload{Text: "x"}.Kind())
	assert.Equal(t, KindWords, Payload{Text: "x", Words: timedWords("x")}.Kind())
	assert.Equal(t, KindParagraphs, Payload{Paragraphs: []Paragraph{{Text: "x"}}}.Kind())
}
