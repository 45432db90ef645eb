// Package dispatch submits a job to the suppliers chosen by the routing
// strategy and settles the outcome.
//
// Each submission runs in its own goroutine with its own timeout and
// re-reads the job status first, so a cancellation that landed after
// preparation started suppresses the outbound call. Settlement fails the
// job only when every submission failed.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/events"
	"github.com/kbukum/scribe/jobs"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/queue"
	"github.com/kbukum/scribe/supplier"
)

// Outcome labels.
const (
	OutcomeSubmitted = "submitted"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// errCancelled marks a submission skipped because the job was cancelled.
var errCancelled = errors.New("job cancelled before submission")

// Config configures dispatch.
type Config struct {
	// CallbackBaseURL is the public base URL suppliers call back on.
	CallbackBaseURL string `yaml:"callback_base_url" mapstructure:"callback_base_url"`
	// CallTimeout bounds each submission.
	CallTimeout time.Duration `yaml:"call_timeout" mapstructure:"call_timeout"`
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 30 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.CallbackBaseURL == "" {
		return errors.New("dispatch.callback_base_url is required")
	}
	return nil
}

// JobStore is the part of *jobs.Store dispatch uses.
type JobStore interface {
	Status(ctx context.Context, id string) (jobs.Status, error)
	MarkProcessing(ctx context.Context, id, supplier, ref string) (bool, error)
	MarkFailed(ctx context.Context, id, reason string) (bool, error)
}

// Enqueuer records a pull-mode work item for a submitted job.
type Enqueuer interface {
	Enqueue(ctx context.Context, e queue.Entry) error
}

// Outcome is the result of one submission.
type Outcome struct {
	Supplier string `json:"supplier"`
	Ref      string `json:"ref,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// Report summarizes a dispatch.
type Report struct {
	Outcomes  []Outcome `json:"dispatched"`
	Cancelled bool      `json:"cancelled"`
	Failed    bool      `json:"failed"`
}

// Submitted returns the successful outcomes.
func (r Report) Submitted() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == OutcomeSubmitted {
			out = append(out, o)
		}
	}
	return out
}

// Dispatcher fans a job out to suppliers.
type Dispatcher struct {
	cfg       Config
	suppliers *supplier.Set
	store     JobStore
	queue     Enqueuer
	events    events.Publisher
	metrics   *observability.Metrics
	log       *logger.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithQueue enqueues pull-mode work for every submitted job.
func WithQueue(q Enqueuer) Option { return func(d *Dispatcher) { d.queue = q } }

// WithEvents publishes lifecycle events.
func WithEvents(p events.Publisher) Option { return func(d *Dispatcher) { d.events = p } }

// WithMetrics records dispatch counters.
func WithMetrics(m *observability.Metrics) Option { return func(d *Dispatcher) { d.metrics = m } }

// New creates a Dispatcher.
func New(cfg Config, suppliers *supplier.Set, store JobStore, log *logger.Logger, opts ...Option) *Dispatcher {
	cfg.ApplyDefaults()
	d := &Dispatcher{
		cfg:       cfg,
		suppliers: suppliers,
		store:     store,
		events:    events.Nop{},
		log:       log.WithComponent("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch submits job to every supplier strategy selects and settles the
// job. Submission errors are reported in the Report, never returned; the
// error result covers an empty strategy and store failures.
func (d *Dispatcher) Dispatch(ctx context.Context, job *jobs.Job, strategy supplier.Strategy) (Report, error) {
	ctx, span := observability.StartSpan(ctx, "dispatch", attribute.String(observability.AttrJobID, job.ID))
	report, err := d.dispatch(ctx, job, strategy)
	observability.EndSpan(span, err)
	return report, err
}

func (d *Dispatcher) dispatch(ctx context.Context, job *jobs.Job, strategy supplier.Strategy) (Report, error) {
	ctx = logger.ContextWithJobID(ctx, job.ID)
	log := d.log.WithContext(ctx)
	targets := strategy.Targets()
	if len(targets) == 0 {
		if _, err := d.store.MarkFailed(ctx, job.ID, jobs.ReasonNoSupplier); err != nil {
			return Report{}, err
		}
		d.emitFailed(ctx, job, jobs.ReasonNoSupplier)
		return Report{Failed: true}, apperrors.NoSupplier("no supplier is enabled for this request")
	}

	outcomes := make([]Outcome, len(targets))
	var wg sync.WaitGroup
	for i, name := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = d.submit(ctx, job, name)
		}()
	}
	wg.Wait()

	report := Report{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Status == OutcomeCancelled {
			report.Cancelled = true
		}
	}
	if report.Cancelled {
		log.Info("Dispatch skipped, job cancelled")
		return report, nil
	}

	submitted := report.Submitted()
	if len(submitted) == 0 {
		report.Failed = true
		if _, err := d.store.MarkFailed(ctx, job.ID, jobs.ReasonDispatchFailed); err != nil {
			return report, err
		}
		d.emitFailed(ctx, job, jobs.ReasonDispatchFailed)
		return report, nil
	}

	first := submitted[0]
	if _, err := d.store.MarkProcessing(ctx, job.ID, first.Supplier, first.Ref); err != nil {
		return report, err
	}
	if d.queue != nil {
		for _, o := range submitted {
			err := d.queue.Enqueue(ctx, queue.Entry{
				JobID: job.ID, UserID: job.UserID, Tier: string(job.Tier), Supplier: o.Supplier, Ref: o.Ref,
			})
			if err != nil {
				log.Warn("Pull fallback not enqueued", logger.ErrorFields("enqueue", err))
			}
		}
	}

	names := make([]string, len(submitted))
	for i, o := range submitted {
		names[i] = o.Supplier
	}
	events.Emit(ctx, d.events, log, events.JobEvent{
		Type: events.TypeDispatched, JobID: job.ID, UserID: job.UserID,
		Status: string(jobs.StatusProcessing), Suppliers: names,
	})
	log.Info("Job dispatched", logger.Fields("suppliers", names))
	return report, nil
}

func (d *Dispatcher) submit(ctx context.Context, job *jobs.Job, name string) (out Outcome) {
	out = Outcome{Supplier: name}
	log := d.log.WithContext(ctx).WithFields(logger.Fields(logger.FieldSupplier, name))
	ctx, span := observability.StartSpan(ctx, "dispatch.submit",
		attribute.String(observability.AttrJobID, job.ID), attribute.String(observability.AttrSupplier, name))
	var spanErr error
	defer func() {
		span.SetAttributes(attribute.String(observability.AttrOutcome, out.Status))
		observability.EndSpan(span, spanErr)
		d.metrics.RecordDispatch(ctx, name, out.Status)
	}()

	fail := func(err error) Outcome {
		spanErr = err
		out.Status, out.Error = OutcomeFailed, err.Error()
		log.Warn("Submission failed", logger.ErrorFields("submit", err))
		return out
	}

	status, err := d.store.Status(ctx, job.ID)
	if err != nil {
		return fail(fmt.Errorf("read status: %w", err))
	}
	if status == jobs.StatusCancelled {
		out.Status, out.Error = OutcomeCancelled, errCancelled.Error()
		return out
	}

	sp, ok := d.suppliers.Get(name)
	if !ok {
		return fail(fmt.Errorf("supplier %q is not configured", name))
	}
	callback, err := sp.Signer().CallbackURL(d.cfg.CallbackBaseURL, name, job.ID)
	if err != nil {
		return fail(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.cfg.CallTimeout)
	defer cancel()
	start := time.Now()
	sub, err := sp.Submit(callCtx, supplier.SubmitRequest{
		JobID:        job.ID,
		AudioURL:     job.ProcessedURL,
		CallbackURL:  callback,
		Language:     job.Language,
		Diarization:  job.Diarization,
		HighAccuracy: job.HighAccuracy,
	})
	if err != nil {
		return fail(err)
	}
	out.Status, out.Ref = OutcomeSubmitted, sub.Ref
	log.Info("Submitted", logger.DurationFields("submit", time.Since(start)))
	return out
}

func (d *Dispatcher) emitFailed(ctx context.Context, job *jobs.Job, reason string) {
	events.Emit(ctx, d.events, d.log, events.JobEvent{
		Type: events.TypeFailed, JobID: job.ID, UserID: job.UserID,
		Status: string(jobs.StatusFailed), Reason: reason,
	})
}
