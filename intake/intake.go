// Package intake prepares a job: it resolves the source audio, picks the
// supplier strategy and dispatches, all within one synchronous request.
package intake

import (
	"context"

	"github.com/kbukum/scribe/audio"
	"github.com/kbukum/scribe/dispatch"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/events"
	"github.com/kbukum/scribe/jobs"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/supplier"
	"github.com/kbukum/scribe/validation"
)

// Request is a job preparation request.
type Request struct {
	JobID        string          `json:"job_id" validate:"required,max=64"`
	UserID       string          `json:"user_id" validate:"required,max=64"`
	SourceType   jobs.SourceType `json:"source_type" validate:"required,oneof=upload linked_video direct_url"`
	SourceURL    string          `json:"source_url" validate:"required,url"`
	Tier         jobs.Tier       `json:"user_tier" validate:"required,oneof=free paid"`
	HighAccuracy bool            `json:"high_accuracy"`
	Diarization  bool            `json:"diarization"`
	Language     string          `json:"language" validate:"omitempty,max=16"`
	Title        string          `json:"title" validate:"omitempty,max=255"`
}

// Response reports what preparation did.
type Response struct {
	JobID      string             `json:"job_id"`
	Status     jobs.Status        `json:"status"`
	Strategy   *supplier.Strategy `json:"strategy,omitempty"`
	Dispatched []dispatch.Outcome `json:"dispatched"`
	Cancelled  bool               `json:"cancelled"`
	Reused     bool               `json:"reused_audio"`
}

// JobStore is the part of *jobs.Store intake uses.
type JobStore interface {
	Ensure(ctx context.Context, job *jobs.Job) (*jobs.Job, error)
	Get(ctx context.Context, id string) (*jobs.Job, error)
	Status(ctx context.Context, id string) (jobs.Status, error)
	SetResolved(ctx context.Context, id string, r jobs.Resolution) error
	MarkFailed(ctx context.Context, id, reason string) (bool, error)
}

// AudioResolver resolves source audio. *audio.Resolver implements it.
type AudioResolver interface {
	Resolve(ctx context.Context, req audio.Request) (audio.Result, error)
}

// Dispatcher submits a job to suppliers. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, job *jobs.Job, strategy supplier.Strategy) (dispatch.Report, error)
}

// Service prepares jobs.
type Service struct {
	store      JobStore
	resolver   AudioResolver
	suppliers  *supplier.Set
	dispatcher Dispatcher
	events     events.Publisher
	log        *logger.Logger
}

// New creates a Service. publisher may be nil.
func New(store JobStore, resolver AudioResolver, suppliers *supplier.Set, dispatcher Dispatcher, publisher events.Publisher, log *logger.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		store:      store,
		resolver:   resolver,
		suppliers:  suppliers,
		dispatcher: dispatcher,
		events:     publisher,
		log:        log.WithComponent("intake"),
	}
}

// Prepare runs audio resolution, strategy selection and dispatch for req.
// Preparing a job that already left pending is a no-op that reports its
// current status.
func (s *Service) Prepare(ctx context.Context, req Request) (Response, error) {
	if err := validation.Validate(req); err != nil {
		return Response{}, err
	}
	log := s.log.WithFields(logger.Fields(logger.FieldJobID, req.JobID, logger.FieldUserID, req.UserID))

	job, err := s.store.Ensure(ctx, &jobs.Job{
		ID:           req.JobID,
		UserID:       req.UserID,
		SourceType:   req.SourceType,
		SourceURL:    req.SourceURL,
		Status:       jobs.StatusPending,
		Tier:         req.Tier,
		HighAccuracy: req.HighAccuracy,
		Diarization:  req.Diarization,
		Language:     req.Language,
		Title:        req.Title,
	})
	if err != nil {
		return Response{}, err
	}
	if job.UserID != req.UserID {
		return Response{}, apperrors.Forbidden("job belongs to another user")
	}
	resp := Response{JobID: job.ID, Status: job.Status, Dispatched: []dispatch.Outcome{}}
	if job.Status != jobs.StatusPending {
		resp.Cancelled = job.Status == jobs.StatusCancelled
		log.Info("Job already prepared", logger.Fields(logger.FieldStatus, job.Status))
		return resp, nil
	}

	resolved, err := s.resolver.Resolve(ctx, audio.Request{
		JobID:        job.ID,
		SourceURL:    job.SourceURL,
		SourceType:   job.SourceType,
		HighAccuracy: job.HighAccuracy,
		Tier:         job.Tier,
	})
	if err != nil {
		return s.resolutionFailed(ctx, job, err, log)
	}
	resp.Reused = resolved.Reused

	if status, err := s.store.Status(ctx, job.ID); err != nil {
		return Response{}, err
	} else if status == jobs.StatusCancelled {
		resp.Status, resp.Cancelled = status, true
		log.Info("Job cancelled during audio resolution")
		return resp, nil
	}

	if err := s.store.SetResolved(ctx, job.ID, jobs.Resolution{
		ProcessedURL: resolved.ProcessedURL,
		IdentityKey:  resolved.IdentityKey,
		Title:        resolved.Title,
		DurationSec:  resolved.DurationSec,
	}); err != nil {
		return Response{}, err
	}
	if job, err = s.store.Get(ctx, job.ID); err != nil {
		return Response{}, err
	}

	strategy := supplier.Resolve(supplier.StrategyInput{
		ForceHighAccuracy: job.HighAccuracy,
		FastAllowed:       s.suppliers.Allowed(ctx, supplier.NameFast),
		AccurateAllowed:   s.suppliers.Allowed(ctx, supplier.NameAccurate),
		HasAudio:          job.ProcessedURL != "",
	})
	resp.Strategy = &strategy

	report, err := s.dispatcher.Dispatch(ctx, job, strategy)
	resp.Dispatched = append(resp.Dispatched, report.Outcomes...)
	resp.Cancelled = report.Cancelled
	if err != nil {
		return resp, err
	}
	if resp.Status, err = s.store.Status(ctx, job.ID); err != nil {
		return Response{}, err
	}
	return resp, nil
}

func (s *Service) resolutionFailed(ctx context.Context, job *jobs.Job, cause error, log *logger.Logger) (Response, error) {
	if appErr, ok := apperrors.AsAppError(cause); !ok || appErr.Code != apperrors.ErrCodeManualUploadRequired {
		return Response{}, cause
	}
	if _, err := s.store.MarkFailed(ctx, job.ID, jobs.ReasonManualUploadRequired); err != nil {
		return Response{}, err
	}
	events.Emit(ctx, s.events, log, events.JobEvent{
		Type: events.TypeFailed, JobID: job.ID, UserID: job.UserID,
		Status: string(jobs.StatusFailed), Reason: jobs.ReasonManualUploadRequired,
	})
	return Response{JobID: job.ID, Status: jobs.StatusFailed, Dispatched: []dispatch.Outcome{}}, cause
}
