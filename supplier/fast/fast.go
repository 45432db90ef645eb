// Package fast implements the speed-optimized supplier. Its completion
// bodies carry paragraphs of sentences, timed words or a flat transcript,
// with all times in seconds.
package fast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/kbukum/scribe/httpclient"
	"github.com/kbukum/scribe/supplier"
	"github.com/kbukum/scribe/transcription"
)

// SignatureHeader carries the hex HMAC-SHA256 of the callback body.
const SignatureHeader = "x-fast-signature"

const defaultModel = "general"

func init() {
	supplier.Register(supplier.NameFast, New)
}

// Supplier is the fast supplier client.
type Supplier struct {
	cfg    supplier.Config
	client *httpclient.Client
	signer *supplier.Signer
}

// New creates the fast supplier from deps.
func New(deps supplier.Deps) (supplier.Supplier, error) {
	cfg := deps.Config
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Auth:    httpclient.TokenAuth(cfg.APIKey),
		Policy:  deps.Policy(supplier.NameFast),
	})
	if err != nil {
		return nil, fmt.Errorf("fast client: %w", err)
	}
	return &Supplier{cfg: cfg, client: client, signer: supplier.NewSigner(cfg.WebhookSecret)}, nil
}

func (s *Supplier) Name() string                       { return supplier.NameFast }
func (s *Supplier) IsAvailable(_ context.Context) bool { return s.cfg.Allowed() }
func (s *Supplier) SignatureHeader() string            { return SignatureHeader }
func (s *Supplier) Signer() *supplier.Signer           { return s.signer }

type submitResponse struct {
	RequestID string `json:"request_id"`
}

// Submit posts the audio URL with the callback to /v1/listen.
func (s *Supplier) Submit(ctx context.Context, req supplier.SubmitRequest) (supplier.Submission, error) {
	model := s.cfg.Model
	if model == "" {
		model = defaultModel
	}
	query := map[string]string{
		"callback":    req.CallbackURL,
		"model":       model,
		"punctuate":   "true",
		"paragraphs":  "true",
		"diarize":     strconv.FormatBool(req.Diarization),
		"detect_lang": strconv.FormatBool(req.Language == ""),
	}
	if req.Language != "" {
		query["language"] = req.Language
	}

	resp, err := s.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v1/listen",
		Query:  query,
		Body:   map[string]string{"url": req.AudioURL},
	})
	if err != nil {
		return supplier.Submission{}, fmt.Errorf("fast submit: %w", err)
	}
	var out submitResponse
	if err := resp.JSON(&out); err != nil || out.RequestID == "" {
		return supplier.Submission{}, fmt.Errorf("fast submit: unexpected response %q", truncate(resp.Body))
	}
	return supplier.Submission{Supplier: supplier.NameFast, Ref: out.RequestID}, nil
}

type requestStatus struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

// Fetch polls /v1/requests/{ref}.
func (s *Supplier) Fetch(ctx context.Context, ref string) ([]byte, bool, error) {
	resp, err := s.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/v1/requests/" + ref})
	if err != nil {
		return nil, false, fmt.Errorf("fast fetch %s: %w", ref, err)
	}
	var st requestStatus
	if err := resp.JSON(&st); err != nil {
		return nil, false, fmt.Errorf("fast fetch %s: decode: %w", ref, err)
	}
	switch st.Status {
	case "done":
		return st.Result, true, nil
	case "failed":
		return nil, false, supplier.ErrTranscriptionFailed
	default:
		return nil, false, nil
	}
}

type sentence struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type paragraph struct {
	Start     float64    `json:"start"`
	End       float64    `json:"end"`
	Text      string     `json:"text"`
	Speaker   *int       `json:"speaker"`
	Sentences []sentence `json:"sentences"`
}

type word struct {
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word"`
	Speaker        *int    `json:"speaker"`
}

type results struct {
	Language   string      `json:"language"`
	Transcript string      `json:"transcript"`
	Paragraphs []paragraph `json:"paragraphs"`
	Words      []word      `json:"words"`
}

type body struct {
	Transcript string   `json:"transcript"`
	Language   string   `json:"language"`
	Duration   float64  `json:"duration"`
	Error      string   `json:"error"`
	Results    *results `json:"results"`
	Metadata   struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
}

// Decode maps a completion body onto the shared payload variants.
func (s *Supplier) Decode(raw []byte) (transcription.Payload, error) {
	var b body
	if err := json.Unmarshal(raw, &b); err != nil {
		return transcription.Payload{}, fmt.Errorf("fast decode: %w", err)
	}
	if b.Error != "" {
		return transcription.Payload{}, fmt.Errorf("%w: %s", supplier.ErrTranscriptionFailed, b.Error)
	}

	p := transcription.Payload{Text: b.Transcript, Language: b.Language, Duration: b.Duration}
	if p.Duration == 0 {
		p.Duration = b.Metadata.Duration
	}
	if b.Results == nil {
		return p, nil
	}
	r := b.Results
	if r.Transcript != "" {
		p.Text = r.Transcript
	}
	if r.Language != "" {
		p.Language = r.Language
	}

	for _, para := range r.Paragraphs {
		speaker := speakerLabel(para.Speaker)
		if len(para.Sentences) == 0 {
			p.Paragraphs = append(p.Paragraphs, transcription.Paragraph{Start: para.Start, End: para.End, Text: para.Text, Speaker: speaker})
			continue
		}
		for _, st := range para.Sentences {
			p.Paragraphs = append(p.Paragraphs, transcription.Paragraph{Start: st.Start, End: st.End, Text: st.Text, Speaker: speaker})
		}
	}
	for _, w := range r.Words {
		text := w.PunctuatedWord
		if text == "" {
			text = w.Word
		}
		p.Words = append(p.Words, transcription.Word{Start: w.Start, End: w.End, Text: text, Speaker: speakerLabel(w.Speaker)})
	}
	return p, nil
}

func speakerLabel(n *int) string {
	if n == nil {
		return ""
	}
	return fmt.Sprintf("Speaker %d", *n+1)
}

func truncate(b []byte) string {
	if len(b) > 200 {
		return string(b[:200])
	}
	return string(b)
}
