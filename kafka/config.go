package kafka

import (
	"errors"
	"fmt"
	"time"

	scribesecurity "github.com/kbukum/scribe/security"
)

// Config configures the broker connection, the job event producer and the
// pack grant consumer. With Enabled off nothing connects: job events go to
// a no-op publisher and grants are not consumed.
type Config struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	GroupID string   `yaml:"group_id" mapstructure:"group_id"`

	Topics   TopicsConfig             `yaml:"topics" mapstructure:"topics"`
	TLS      scribesecurity.TLSConfig `yaml:"tls" mapstructure:"tls"`
	SASL     SASLConfig               `yaml:"sasl" mapstructure:"sasl"`
	Producer ProducerConfig           `yaml:"producer" mapstructure:"producer"`
	Consumer ConsumerConfig           `yaml:"consumer" mapstructure:"consumer"`

	DialTimeout string `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	IdleTimeout string `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	MetadataTTL string `yaml:"metadata_ttl" mapstructure:"metadata_ttl"`
}

// TopicsConfig names the topics scribe writes to and reads from.
type TopicsConfig struct {
	JobEvents  string `yaml:"job_events" mapstructure:"job_events"`
	PackGrants string `yaml:"pack_grants" mapstructure:"pack_grants"`
}

// SASLConfig enables broker authentication.
type SASLConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Mechanism string `yaml:"mechanism" mapstructure:"mechanism"` // PLAIN, SCRAM-SHA-256, SCRAM-SHA-512
	Username  string `yaml:"username" mapstructure:"username"`
	Password  string `yaml:"password" mapstructure:"password"`
}

type ProducerConfig struct {
	Compression  string `yaml:"compression" mapstructure:"compression"` // none, gzip, snappy, lz4, zstd
	Retries      int    `yaml:"retries" mapstructure:"retries"`
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size"`
	BatchTimeout string `yaml:"batch_timeout" mapstructure:"batch_timeout"`
	WriteTimeout string `yaml:"write_timeout" mapstructure:"write_timeout"`
	RequiredAcks int    `yaml:"required_acks" mapstructure:"required_acks"`
}

type ConsumerConfig struct {
	SessionTimeout    string `yaml:"session_timeout" mapstructure:"session_timeout"`
	HeartbeatInterval string `yaml:"heartbeat_interval" mapstructure:"heartbeat_interval"`
}

func orDefault(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	orDefault(&c.GroupID, "scribe")
	orDefault(&c.Topics.JobEvents, "scribe.job-events")
	orDefault(&c.Topics.PackGrants, "billing.minute-pack-granted")
	if c.SASL.Enabled {
		orDefault(&c.SASL.Mechanism, "PLAIN")
	}

	p := &c.Producer
	orDefault(&p.Compression, "snappy")
	if p.Retries <= 0 {
		p.Retries = 3
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 100
	}
	// Job events are low volume; do not hold them for a full batch.
	orDefault(&p.BatchTimeout, "50ms")
	orDefault(&p.WriteTimeout, "10s")
	if p.RequiredAcks == 0 {
		p.RequiredAcks = -1
	}

	orDefault(&c.Consumer.SessionTimeout, "30s")
	orDefault(&c.Consumer.HeartbeatInterval, "3s")
	orDefault(&c.DialTimeout, "10s")
	orDefault(&c.IdleTimeout, "30s")
	orDefault(&c.MetadataTTL, "6s")
}

// Validate reports the first problem with an enabled configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return errors.New("kafka brokers are required")
	}
	durations := map[string]string{
		"producer.batch_timeout":      c.Producer.BatchTimeout,
		"producer.write_timeout":      c.Producer.WriteTimeout,
		"consumer.session_timeout":    c.Consumer.SessionTimeout,
		"consumer.heartbeat_interval": c.Consumer.HeartbeatInterval,
		"dial_timeout":                c.DialTimeout,
		"idle_timeout":                c.IdleTimeout,
		"metadata_ttl":                c.MetadataTTL,
	}
	for name, val := range durations {
		if _, err := time.ParseDuration(val); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, val, err)
		}
	}
	if _, ok := codecs[c.Producer.Compression]; !ok {
		return fmt.Errorf("unsupported compression %q", c.Producer.Compression)
	}
	if err := c.TLS.Validate(); err != nil {
		return err
	}
	return c.SASL.validate()
}

func (s SASLConfig) validate() error {
	if !s.Enabled {
		return nil
	}
	switch s.Mechanism {
	case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
	default:
		return fmt.Errorf("unsupported SASL mechanism %q", s.Mechanism)
	}
	if s.Username == "" {
		return errors.New("SASL username is required")
	}
	return nil
}

// ParseDuration parses a validated duration string; empty input yields zero.
func ParseDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
