package ingest

import (
	"context"
	"errors"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/events"
	"github.com/kbukum/scribe/jobs"
	"github.com/kbukum/scribe/ledger"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/supplier"
	"github.com/kbukum/scribe/transcription"
)

// Webhook outcome labels.
const (
	OutcomeIngested  = "ingested"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeError     = "error"
)

// Config configures ingestion.
type Config struct {
	// StrictSignatures rejects unverifiable callbacks with 401. When false a
	// failed check is logged and the callback is processed.
	StrictSignatures bool `yaml:"strict_signatures" mapstructure:"strict_signatures"`
	// Lease is how long an ingestion claim blocks duplicates.
	Lease time.Duration `yaml:"lease" mapstructure:"lease"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Lease <= 0 {
		c.Lease = 2 * time.Minute
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error { return nil }

// JobStore is the part of *jobs.Store ingestion uses.
type JobStore interface {
	Get(ctx context.Context, id string) (*jobs.Job, error)
	ClaimForIngest(ctx context.Context, id string, lease time.Duration) (bool, error)
	ReleaseIngest(ctx context.Context, id string) error
	Finalize(ctx context.Context, id string, c jobs.Completion) (bool, error)
	MarkFailed(ctx context.Context, id, reason string) (bool, error)
}

// Settler meters a finished job. *ledger.Ledger implements it.
type Settler interface {
	Settle(ctx context.Context, c ledger.Charge) []ledger.UsageRecord
}

// Callback is one webhook delivery.
type Callback struct {
	Supplier string
	JobID    string
	Body     []byte
	// Signature is the value of the supplier's signature header.
	Signature string
	// Token is the cb_sig query parameter.
	Token string
}

// Ingestor runs the ingestion pipeline.
type Ingestor struct {
	cfg       Config
	store     JobStore
	suppliers *supplier.Set
	settler   Settler
	events    events.Publisher
	metrics   *observability.Metrics
	log       *logger.Logger
}

// Option customizes an Ingestor.
type Option func(*Ingestor)

// WithEvents publishes completion and failure events.
func WithEvents(p events.Publisher) Option { return func(i *Ingestor) { i.events = p } }

// WithMetrics records webhook and ingestion metrics.
func WithMetrics(m *observability.Metrics) Option { return func(i *Ingestor) { i.metrics = m } }

// New creates an Ingestor.
func New(cfg Config, store JobStore, suppliers *supplier.Set, settler Settler, log *logger.Logger, opts ...Option) *Ingestor {
	cfg.ApplyDefaults()
	i := &Ingestor{
		cfg:       cfg,
		store:     store,
		suppliers: suppliers,
		settler:   settler,
		events:    events.Nop{},
		log:       log.WithComponent("ingest"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// HandleCallback verifies and applies a webhook. A nil error means the
// delivery should be acknowledged, including idempotent skips. Input and
// signature problems come back as 4xx AppErrors; processing failures as
// 5xx so the supplier redelivers.
func (i *Ingestor) HandleCallback(ctx context.Context, cb Callback) (err error) {
	outcome := OutcomeError
	defer func() { i.metrics.RecordWebhook(ctx, cb.Supplier, outcome) }()

	if cb.JobID == "" {
		outcome = OutcomeRejected
		return apperrors.MissingField(supplier.QueryJobID)
	}
	sp, ok := i.suppliers.Get(cb.Supplier)
	if !ok {
		outcome = OutcomeRejected
		return apperrors.NotFound("supplier", cb.Supplier)
	}
	ctx = logger.ContextWithJobID(ctx, cb.JobID)
	log := i.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldSupplier, cb.Supplier))

	job, err := i.store.Get(ctx, cb.JobID)
	if err != nil {
		outcome = OutcomeRejected
		return err
	}
	if !i.verify(sp, cb) {
		if i.cfg.StrictSignatures {
			outcome = OutcomeRejected
			log.Warn("Callback signature rejected")
			return apperrors.SignatureInvalid(cb.Supplier)
		}
		log.Warn("Callback signature did not verify, accepting in soft mode")
	}

	outcome, err = i.apply(ctx, sp, job, cb.Body)
	return err
}

// Ingest applies a payload fetched by the pull queue.
func (i *Ingestor) Ingest(ctx context.Context, supplierName, jobID string, raw []byte) error {
	sp, ok := i.suppliers.Get(supplierName)
	if !ok {
		return apperrors.NotFound("supplier", supplierName)
	}
	job, err := i.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	_, err = i.apply(ctx, sp, job, raw)
	return err
}

// Fail records that the supplier gave up on jobID.
func (i *Ingestor) Fail(ctx context.Context, supplierName, jobID string, cause error) error {
	failed, err := i.store.MarkFailed(ctx, jobID, jobs.ReasonSupplierFailed)
	if err != nil {
		return err
	}
	if !failed {
		return nil
	}
	job, err := i.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	i.log.Warn("Supplier reported failure", logger.Fields(
		logger.FieldJobID, jobID, logger.FieldSupplier, supplierName, logger.FieldError, cause.Error()))
	events.Emit(ctx, i.events, i.log, events.JobEvent{
		Type: events.TypeFailed, JobID: jobID, UserID: job.UserID,
		Status: string(jobs.StatusFailed), Suppliers: []string{supplierName}, Reason: jobs.ReasonSupplierFailed,
	})
	return nil
}

// verify accepts either a valid body signature or a valid callback token.
// Without a configured secret there is nothing to check against.
func (i *Ingestor) verify(sp supplier.Supplier, cb Callback) bool {
	signer := sp.Signer()
	if !signer.Enabled() {
		return true
	}
	if cb.Signature != "" && signer.VerifyBody(cb.Body, cb.Signature) {
		return true
	}
	return cb.Token != "" && signer.VerifyToken(cb.JobID, cb.Token)
}

func (i *Ingestor) apply(ctx context.Context, sp supplier.Supplier, job *jobs.Job, raw []byte) (string, error) {
	ctx = logger.ContextWithJobID(ctx, job.ID)
	log := i.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldSupplier, sp.Name()))
	switch job.Status {
	case jobs.StatusCompleted:
		log.Debug("Job already completed, skipping delivery")
		return OutcomeDuplicate, nil
	case jobs.StatusCancelled, jobs.StatusFailed:
		log.Info("Delivery for terminal job ignored", logger.Fields(logger.FieldStatus, job.Status))
		return OutcomeIgnored, nil
	}

	claimed, err := i.store.ClaimForIngest(ctx, job.ID, i.cfg.Lease)
	if err != nil {
		return OutcomeError, err
	}
	if !claimed {
		log.Debug("Ingestion lease held elsewhere, skipping delivery")
		return OutcomeDuplicate, nil
	}

	ctx, span := observability.StartSpan(ctx, "ingest",
		attribute.String(observability.AttrJobID, job.ID), attribute.String(observability.AttrSupplier, sp.Name()))
	start := time.Now()
	outcome, err := i.process(ctx, sp, job, raw, log)
	observability.EndSpan(span, err)
	if err != nil {
		if rerr := i.store.ReleaseIngest(ctx, job.ID); rerr != nil {
			log.Error("Ingestion lease not released", logger.ErrorFields("release", rerr))
		}
		log.Error("Ingestion failed", logger.ErrorFields("ingest", err))
		if _, ok := apperrors.AsAppError(err); !ok {
			err = apperrors.Internal(err)
		}
		return OutcomeError, err
	}
	i.metrics.RecordIngest(ctx, sp.Name(), time.Since(start))
	return outcome, nil
}

func (i *Ingestor) process(ctx context.Context, sp supplier.Supplier, job *jobs.Job, raw []byte, log *logger.Logger) (string, error) {
	payload, err := sp.Decode(raw)
	if errors.Is(err, supplier.ErrTranscriptionFailed) {
		if ferr := i.Fail(ctx, sp.Name(), job.ID, err); ferr != nil {
			return OutcomeError, ferr
		}
		return OutcomeFailed, nil
	}
	if err != nil {
		return OutcomeError, err
	}

	t, err := transcription.Normalize(payload, transcription.Options{FallbackDuration: job.OriginalDurationSec})
	if errors.Is(err, transcription.ErrEmptyTranscript) {
		log.Warn("Supplier returned an empty transcript")
		t, err = transcription.Transcript{Language: payload.Language}, nil
	}
	if err != nil {
		return OutcomeError, err
	}
	if transcription.NeedsRefinement(t.Language) {
		t = transcription.Refine(t)
	}

	title := ""
	if transcription.IsPlaceholderTitle(job.Title) {
		title = transcription.InferTitle(t.Text)
	}
	displayTitle := title
	if displayTitle == "" {
		displayTitle = job.Title
	}

	outputs, err := transcription.RenderAll(t, displayTitle)
	if err != nil {
		return OutcomeError, err
	}

	duration := int(math.Ceil(t.LastEnd()))
	cost := round3(float64(duration) / 60)
	completed, err := i.store.Finalize(ctx, job.ID, jobs.Completion{
		DurationSec: duration,
		CostMinutes: cost,
		Language:    t.Language,
		Title:       title,
		Outputs:     outputs,
	})
	if err != nil {
		return OutcomeError, err
	}
	if !completed {
		log.Info("Job left processing during ingestion, not finalized")
		return OutcomeIgnored, nil
	}

	i.settler.Settle(ctx, ledger.Charge{
		UserID:       job.UserID,
		JobID:        job.ID,
		Tier:         string(job.Tier),
		Minutes:      cost,
		HighAccuracy: job.HighAccuracy,
	})
	events.Emit(ctx, i.events, log, events.JobEvent{
		Type: events.TypeCompleted, JobID: job.ID, UserID: job.UserID,
		Status: string(jobs.StatusCompleted), Suppliers: []string{sp.Name()},
		DurationSec: duration, CostMinutes: cost,
	})
	log.Info("Transcript ingested", logger.Fields("duration_sec", duration, "segments", len(t.Segments)))
	return OutcomeIngested, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
