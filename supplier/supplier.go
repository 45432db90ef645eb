package supplier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/provider"
	"github.com/kbukum/scribe/resilience"
	"github.com/kbukum/scribe/transcription"
)

// ErrTranscriptionFailed is returned by Decode or Fetch when the supplier
// reports that it could not transcribe the audio.
var ErrTranscriptionFailed = errors.New("supplier: transcription failed")

// SubmitRequest is an asynchronous transcription submission.
type SubmitRequest struct {
	JobID        string
	AudioURL     string
	CallbackURL  string
	Language     string
	Diarization  bool
	HighAccuracy bool
}

// Submission identifies an accepted submission at the supplier.
type Submission struct {
	Supplier string
	Ref      string
}

// Supplier is an external speech-recognition service.
type Supplier interface {
	provider.Provider

	// Submit starts an asynchronous transcription. The supplier calls
	// req.CallbackURL when done.
	Submit(ctx context.Context, req SubmitRequest) (Submission, error)
	// Fetch polls a submission. ready is false while the supplier is still
	// working.
	Fetch(ctx context.Context, ref string) (raw []byte, ready bool, err error)
	// Decode parses a completion body into a Payload with times in seconds.
	Decode(raw []byte) (transcription.Payload, error)
	// SignatureHeader names the header carrying the body signature.
	SignatureHeader() string
	// Signer verifies callbacks with the supplier's webhook secret.
	Signer() *Signer
}

// Config configures one supplier.
type Config struct {
	Enabled       bool                    `yaml:"enabled" mapstructure:"enabled"`
	APIKey        string                  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL       string                  `yaml:"base_url" mapstructure:"base_url"`
	WebhookSecret string                  `yaml:"webhook_secret" mapstructure:"webhook_secret"`
	Model         string                  `yaml:"model" mapstructure:"model"`
	Timeout       time.Duration           `yaml:"timeout" mapstructure:"timeout"`
	Resilience    resilience.PolicyConfig `yaml:"resilience" mapstructure:"resilience"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	c.Resilience.ApplyDefaults()
}

// Validate checks an enabled supplier has an endpoint.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.BaseURL == "" {
		return errors.New("base_url is required when enabled")
	}
	return c.Resilience.Validate()
}

// Allowed reports whether the supplier may be called.
func (c *Config) Allowed() bool { return c.Enabled && c.APIKey != "" }

// Deps are handed to supplier factories.
type Deps struct {
	Config Config
	Log    *logger.Logger
}

// Policy builds the retry and breaker policy for a supplier, logging
// breaker transitions.
func (d Deps) Policy(name string) *resilience.Policy {
	log := d.Log
	return resilience.NewPolicy(name, d.Config.Resilience, func(name string, from, to resilience.State) {
		log.Warn("Supplier circuit changed", logger.Fields(logger.FieldSupplier, name, "from", from.String(), "to", to.String()))
	})
}

var registry = provider.NewRegistry[Supplier, Deps]()

// Register makes a supplier implementation available to Build.
func Register(name string, f provider.Factory[Supplier, Deps]) {
	registry.RegisterFactory(name, f)
}

// Registered lists the registered supplier names.
func Registered() []string { return registry.List() }

// Set is the group of configured suppliers.
type Set struct {
	suppliers map[string]Supplier
}

// NewSet groups already constructed suppliers.
func NewSet(suppliers ...Supplier) *Set {
	s := &Set{suppliers: make(map[string]Supplier, len(suppliers))}
	for _, sp := range suppliers {
		s.suppliers[sp.Name()] = sp
	}
	return s
}

// Build creates every registered supplier that has a config entry.
func Build(cfgs map[string]Config, log *logger.Logger) (*Set, error) {
	set := NewSet()
	for _, name := range registry.List() {
		cfg, ok := cfgs[name]
		if !ok {
			continue
		}
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("supplier %s: %w", name, err)
		}
		sp, err := registry.Create(name, Deps{Config: cfg, Log: log.WithComponent("supplier." + name)})
		if err != nil {
			return nil, err
		}
		set.suppliers[name] = sp
		log.Info("Supplier configured", logger.Fields(logger.FieldSupplier, name, "allowed", cfg.Allowed()))
	}
	return set, nil
}

// Get returns the named supplier.
func (s *Set) Get(name string) (Supplier, bool) {
	sp, ok := s.suppliers[name]
	return sp, ok
}

// Allowed reports whether the named supplier exists and is available.
func (s *Set) Allowed(ctx context.Context, name string) bool {
	sp, ok := s.suppliers[name]
	return ok && sp.IsAvailable(ctx)
}
