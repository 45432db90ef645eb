package transcription

// Kind tags the richest shape present in a Payload.
type Kind int

const (
	KindEmpty Kind = iota
	KindFlat
	KindWords
	KindParagraphs
)

func (k Kind) String() string {
	switch k {
	case KindParagraphs:
		return "paragraphs"
	case KindWords:
		return "words"
	case KindFlat:
		return "flat"
	default:
		return "empty"
	}
}

// Paragraph is a sentence or paragraph with its own timing.
type Paragraph struct {
	Start   float64
	End     float64
	Text    string
	Speaker string
}

// Word is a single timed token.
type Word struct {
	Start   float64
	End     float64
	Text    string
	Speaker string
}

// Payload is the decoded body of a supplier completion. Suppliers fill the
// variants they recognize; times are converted to seconds by the decoder.
type Payload struct {
	Paragraphs []Paragraph
	Words      []Word
	Text       string
	Language   string
	// Duration is the audio length in seconds when the supplier reports it.
	Duration float64
}

// Kind returns the richest non-empty variant.
func (p Payload) Kind() Kind {
	switch {
	case len(p.Paragraphs) > 0:
		return KindParagraphs
	case len(p.Words) > 0:
		return KindWords
	case p.Text != "":
		return KindFlat
	default:
		return KindEmpty
	}
}
