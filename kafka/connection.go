package kafka

import (
	"crypto/tls"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

// security resolves the TLS and SASL settings shared by writers and readers.
func security(cfg *Config) (*tls.Config, sasl.Mechanism, error) {
	tc, err := cfg.TLS.Build()
	if err != nil {
		return nil, nil, fmt.Errorf("kafka tls: %w", err)
	}
	if !cfg.SASL.Enabled {
		return tc, nil, nil
	}
	var m sasl.Mechanism
	switch cfg.SASL.Mechanism {
	case "PLAIN":
		m = plain.Mechanism{Username: cfg.SASL.Username, Password: cfg.SASL.Password}
	case "SCRAM-SHA-256":
		m, err = scram.Mechanism(scram.SHA256, cfg.SASL.Username, cfg.SASL.Password)
	case "SCRAM-SHA-512":
		m, err = scram.Mechanism(scram.SHA512, cfg.SASL.Username, cfg.SASL.Password)
	default:
		err = fmt.Errorf("unsupported mechanism %q", cfg.SASL.Mechanism)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("kafka sasl: %w", err)
	}
	return tc, m, nil
}

// CreateTransport returns the writer transport used by the producer.
func CreateTransport(cfg *Config) (*kafka.Transport, error) {
	tc, m, err := security(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Transport{
		IdleTimeout: ParseDuration(cfg.IdleTimeout),
		MetadataTTL: ParseDuration(cfg.MetadataTTL),
		TLS:         tc,
		SASL:        m,
	}, nil
}

// CreateDialer returns the dialer used by consumers and health checks.
func CreateDialer(cfg *Config) (*kafka.Dialer, error) {
	tc, m, err := security(cfg)
	if err != nil {
		return nil, err
	}
	return &kafka.Dialer{
		Timeout:       ParseDuration(cfg.DialTimeout),
		DualStack:     true,
		TLS:           tc,
		SASLMechanism: m,
	}, nil
}

var codecs = map[string]kafka.Compression{
	"none":   0,
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

// ResolveCompression maps a codec name to kafka-go; unknown names use snappy.
func ResolveCompression(name string) kafka.Compression {
	if c, ok := codecs[name]; ok {
		return c
	}
	return kafka.Snappy
}
