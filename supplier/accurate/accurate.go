// Package accurate implements the accuracy-optimized supplier. Completion
// bodies carry utterances and words timed in milliseconds, or plain text.
package accurate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kbukum/scribe/httpclient"
	"github.com/kbukum/scribe/supplier"
	"github.com/kbukum/scribe/transcription"
)

// SignatureHeader carries the hex HMAC-SHA256 of the callback body.
const SignatureHeader = "x-accurate-signature"

const defaultModel = "best"

func init() {
	supplier.Register(supplier.NameAccurate, New)
}

// Supplier is the accurate supplier client.
type Supplier struct {
	cfg    supplier.Config
	client *httpclient.Client
	signer *supplier.Signer
}

// New creates the accurate supplier from deps.
func New(deps supplier.Deps) (supplier.Supplier, error) {
	cfg := deps.Config
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
		Auth:    httpclient.HeaderAuth("Authorization", cfg.APIKey),
		Policy:  deps.Policy(supplier.NameAccurate),
	})
	if err != nil {
		return nil, fmt.Errorf("accurate client: %w", err)
	}
	return &Supplier{cfg: cfg, client: client, signer: supplier.NewSigner(cfg.WebhookSecret)}, nil
}

func (s *Supplier) Name() string                       { return supplier.NameAccurate }
func (s *Supplier) IsAvailable(_ context.Context) bool { return s.cfg.Allowed() }
func (s *Supplier) SignatureHeader() string            { return SignatureHeader }
func (s *Supplier) Signer() *supplier.Signer           { return s.signer }

type submitRequest struct {
	AudioURL          string `json:"audio_url"`
	WebhookURL        string `json:"webhook_url"`
	SpeechModel       string `json:"speech_model"`
	SpeakerLabels     bool   `json:"speaker_labels"`
	LanguageCode      string `json:"language_code,omitempty"`
	LanguageDetection bool   `json:"language_detection"`
}

// Submit posts a transcript request to /v2/transcript.
func (s *Supplier) Submit(ctx context.Context, req supplier.SubmitRequest) (supplier.Submission, error) {
	model := s.cfg.Model
	if model == "" {
		model = defaultModel
	}
	resp, err := s.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/v2/transcript",
		Body: submitRequest{
			AudioURL:          req.AudioURL,
			WebhookURL:        req.CallbackURL,
			SpeechModel:       model,
			SpeakerLabels:     req.Diarization,
			LanguageCode:      req.Language,
			LanguageDetection: req.Language == "",
		},
	})
	if err != nil {
		return supplier.Submission{}, fmt.Errorf("accurate submit: %w", err)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := resp.JSON(&out); err != nil || out.ID == "" {
		return supplier.Submission{}, fmt.Errorf("accurate submit: unexpected response (HTTP %d)", resp.StatusCode)
	}
	return supplier.Submission{Supplier: supplier.NameAccurate, Ref: out.ID}, nil
}

// Fetch polls /v2/transcript/{ref}. The transcript body itself is the
// completion payload.
func (s *Supplier) Fetch(ctx context.Context, ref string) ([]byte, bool, error) {
	resp, err := s.client.Do(ctx, httpclient.Request{Method: http.MethodGet, Path: "/v2/transcript/" + ref})
	if err != nil {
		return nil, false, fmt.Errorf("accurate fetch %s: %w", ref, err)
	}
	var st struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := resp.JSON(&st); err != nil {
		return nil, false, fmt.Errorf("accurate fetch %s: decode: %w", ref, err)
	}
	switch st.Status {
	case "completed":
		return resp.Body, true, nil
	case "error":
		return nil, false, fmt.Errorf("%w: %s", supplier.ErrTranscriptionFailed, st.Error)
	default:
		return nil, false, nil
	}
}

type timed struct {
	Start   int64  `json:"start"`
	End     int64  `json:"end"`
	Text    string `json:"text"`
	Speaker string `json:"speaker"`
}

type body struct {
	Status        string  `json:"status"`
	Error         string  `json:"error"`
	Text          string  `json:"text"`
	LanguageCode  string  `json:"language_code"`
	AudioDuration float64 `json:"audio_duration"`
	Utterances    []timed `json:"utterances"`
	Words         []timed `json:"words"`
}

// Decode maps a transcript body onto the shared payload variants,
// converting milliseconds to seconds.
func (s *Supplier) Decode(raw []byte) (transcription.Payload, error) {
	var b body
	if err := json.Unmarshal(raw, &b); err != nil {
		return transcription.Payload{}, fmt.Errorf("accurate decode: %w", err)
	}
	if b.Status == "error" {
		return transcription.Payload{}, fmt.Errorf("%w: %s", supplier.ErrTranscriptionFailed, b.Error)
	}

	p := transcription.Payload{Text: b.Text, Language: b.LanguageCode, Duration: b.AudioDuration}
	for _, u := range b.Utterances {
		p.Paragraphs = append(p.Paragraphs, transcription.Paragraph{
			Start: seconds(u.Start), End: seconds(u.End), Text: u.Text, Speaker: speakerLabel(u.Speaker),
		})
	}
	for _, w := range b.Words {
		p.Words = append(p.Words, transcription.Word{
			Start: seconds(w.Start), End: seconds(w.End), Text: w.Text, Speaker: speakerLabel(w.Speaker),
		})
	}
	return p, nil
}

func seconds(ms int64) float64 { return float64(ms) / 1000 }

func speakerLabel(s string) string {
	if s == "" {
		return ""
	}
	return "Speaker " + s
}
