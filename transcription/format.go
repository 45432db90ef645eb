package transcription

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Format is a stored output representation.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatJSON Format = "json"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatMD   Format = "md"
)

// Formats lists every output in storage order.
var Formats = []Format{FormatTXT, FormatJSON, FormatSRT, FormatVTT, FormatMD}

// Output is the rendered content of one format.
type Output struct {
	Format  Format
	Content string
}

// RenderAll renders every format of t. title heads the markdown output.
func RenderAll(t Transcript, title string) ([]Output, error) {
	sep := "\n"
	if NeedsRefinement(t.Language) {
		sep = ""
	}
	jsonBody, err := RenderJSON(t)
	if err != nil {
		return nil, err
	}
	return []Output{
		{Format: FormatTXT, Content: joinSegments(t.Segments, sep)},
		{Format: FormatJSON, Content: jsonBody},
		{Format: FormatSRT, Content: RenderSRT(t)},
		{Format: FormatVTT, Content: RenderVTT(t)},
		{Format: FormatMD, Content: RenderMarkdown(t, title)},
	}, nil
}

// RenderJSON serializes the segments as a JSON array.
func RenderJSON(t Transcript) (string, error) {
	segs := t.Segments
	if segs == nil {
		segs = []Segment{}
	}
	data, err := json.Marshal(segs)
	if err != nil {
		return "", fmt.Errorf("render json: %w", err)
	}
	return string(data), nil
}

// RenderSRT renders SubRip captions.
func RenderSRT(t Transcript) string {
	var b strings.Builder
	for i, s := range t.Segments {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", i+1, timecode(s.Start, ","), timecode(s.End, ","), captionText(s))
	}
	return b.String()
}

// RenderVTT renders WebVTT captions.
func RenderVTT(t Transcript) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, s := range t.Segments {
		text := s.Text
		if s.Speaker != "" {
			text = fmt.Sprintf("<v %s>%s", s.Speaker, s.Text)
		}
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n", timecode(s.Start, "."), timecode(s.End, "."), text)
	}
	return b.String()
}

// RenderMarkdown renders a titled transcript with a timestamp per segment.
func RenderMarkdown(t Transcript, title string) string {
	if title == "" {
		title = "Transcript"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if t.Language != "" {
		fmt.Fprintf(&b, "- Language: %s\n", t.Language)
	}
	fmt.Fprintf(&b, "- Duration: %s\n\n---\n\n", clock(t.LastEnd()))
	for _, s := range t.Segments {
		fmt.Fprintf(&b, "**[%s]** %s\n\n", clock(s.Start), captionText(s))
	}
	return b.String()
}

func captionText(s Segment) string {
	if s.Speaker != "" {
		return s.Speaker + ": " + s.Text
	}
	return s.Text
}

// timecode formats seconds as HH:MM:SS<sep>mmm.
func timecode(sec float64, sep string) string {
	ms := int64(math.Round(max(sec, 0) * 1000))
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, sep, ms%1000)
}

// clock formats seconds as MM:SS, or H:MM:SS past an hour.
func clock(sec float64) string {
	total := int64(max(sec, 0))
	h, m, s := total/3600, total/60%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
