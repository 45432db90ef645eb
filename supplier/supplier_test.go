package supplier

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribe/transcription"
)

func TestResolve_Totality(t *testing.T) {
	bools := []bool{false, true}
	for _, force := range bools {
		for _, fast := range bools {
			for _, accurate := range bools {
				for _, audio := range bools {
					in := StrategyInput{ForceHighAccuracy: force, FastAllowed: fast, AccurateAllowed: accurate, HasAudio: audio}
					s := Resolve(in)

					assert.False(t, s.UseFast && s.UseAccurate, "%+v", in)
					if s.FallbackToAccurate {
						assert.False(t, s.UseFast, "%+v", in)
					}
					if !audio {
						assert.True(t, s.Empty(), "%+v", in)
					}
					if force {
						assert.False(t, s.UseFast, "high accuracy never routes to fast: %+v", in)
						assert.False(t, s.FallbackToAccurate, "%+v", in)
					}
				}
			}
		}
	}
}

func TestResolve_Cases(t *testing.T) {
	tests := []struct {
		name string
		in   StrategyInput
		want []string
	}{
		{"standard prefers fast", StrategyInput{FastAllowed: true, AccurateAllowed: true, HasAudio: true}, []string{NameFast}},
		{"standard falls back", StrategyInput{AccurateAllowed: true, HasAudio: true}, []string{NameAccurate}},
		{"high accuracy", StrategyInput{ForceHighAccuracy: true, FastAllowed: true, AccurateAllowed: true, HasAudio: true}, []string{NameAccurate}},
		{"high accuracy unavailable", StrategyInput{ForceHighAccuracy: true, FastAllowed: true, HasAudio: true}, nil},
		{"no audio", StrategyInput{FastAllowed: true, AccurateAllowed: true}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.in).Targets())
		})
	}
}

func TestSigner(t *testing.T) {
	s := NewSigner("secret")

	token := s.Token("j1")
	assert.True(t, s.VerifyToken("j1", token))
	assert.False(t, s.VerifyToken("j2", token))
	assert.False(t, s.VerifyToken("j1", "not-hex"))

	body := []byte(`{"transcript":"x"}`)
	sig := s.Sign(body)
	assert.True(t, s.VerifyBody(body, sig))
	assert.True(t, s.VerifyBody(body, "sha256="+sig))
	assert.False(t, s.VerifyBody([]byte(`{}`), sig))
	assert.False(t, NewSigner("other").VerifyBody(body, sig))
}

func TestSigner_Disabled(t *testing.T) {
	s := NewSigner("")
	assert.False(t, s.Enabled())
	assert.False(t, s.VerifyToken("j1", s.Token("j1")))

	cb, err := s.CallbackURL("https://api.example.com/", "fast", "j1")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/callback/fast?job_id=j1", cb)
}

func TestSigner_CallbackURL(t *testing.T) {
	s := NewSigner("secret")
	cb, err := s.CallbackURL("https://api.example.com", "accurate", "j 1")
	require.NoError(t, err)

	u, err := url.Parse(cb)
	require.NoError(t, err)
	assert.Equal(t, "/callback/accurate", u.Path)
	assert.Equal(t, "j 1", u.Query().Get(QueryJobID))
	assert.True(t, s.VerifyToken("j 1", u.Query().Get(QuerySig)))
}

type stubSupplier struct {
	name    string
	allowed bool
}

func (s stubSupplier) Name() string                     { return s.name }
func (s stubSupplier) IsAvailable(context.Context) bool { return s.allowed }
func (s stubSupplier) Submit(context.Context, SubmitRequest) (Submission, error) {
	return Submission{}, nil
}
func (s stubSupplier) Fetch(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (s stubSupplier) Decode([]byte) (transcription.Payload, error)      { return transcription.Payload{}, nil }
func (s stubSupplier) SignatureHeader() string                          { return "x-stub-signature" }
func (s stubSupplier) Signer() *Signer                                  { return NewSigner("") }

func TestSet_Allowed(t *testing.T) {
	set := NewSet(stubSupplier{name: NameFast, allowed: true}, stubSupplier{name: NameAccurate})
	ctx := context.Background()
	assert.True(t, set.Allowed(ctx, NameFast))
	assert.False(t, set.Allowed(ctx, NameAccurate))
	assert.False(t, set.Allowed(ctx, "missing"))
}

func TestConfig(t *testing.T) {
	c := Config{Enabled: true}
	c.ApplyDefaults()
	assert.Error(t, c.Validate())
	assert.False(t, c.Allowed())

	c.BaseURL, c.APIKey = "https://api", "k"
	require.NoError(t, c.Validate())
	assert.True(t, c.Allowed())
}
