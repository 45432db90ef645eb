package transcription

import "strings"

// Segment is a time-aligned portion of a transcript. Times are seconds.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// Transcript is a normalized supplier result.
type Transcript struct {
	Text     string
	Segments []Segment
	Language string
	// Extractor names the path that produced Segments.
	Extractor string
}

// LastEnd returns the end of the last segment, or 0.
func (t Transcript) LastEnd() float64 {
	var end float64
	for _, s := range t.Segments {
		end = max(end, s.End)
	}
	return end
}

func joinSegments(segs []Segment, sep string) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if txt := strings.TrimSpace(s.Text); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, sep)
}
