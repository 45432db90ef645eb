package queue

import (
	"context"
	"errors"

	"github.com/kbukum/scribe/jobs"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/supplier"
)

// Result states reported by ProcessOne.
const (
	ResultEmpty     = "empty"
	ResultPending   = "pending"
	ResultProcessed = "processed"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// Result describes one ProcessOne call.
type Result struct {
	Status string `json:"status"`
	JobID  string `json:"job_id,omitempty"`
}

// Ingester runs a fetched supplier payload through ingestion.
type Ingester interface {
	Ingest(ctx context.Context, supplierName, jobID string, raw []byte) error
	Fail(ctx context.Context, supplierName, jobID string, cause error) error
}

// StatusReader reads a job's status.
type StatusReader interface {
	Status(ctx context.Context, id string) (jobs.Status, error)
}

// Worker processes queue entries on request.
type Worker struct {
	store     *Store
	jobs      StatusReader
	suppliers *supplier.Set
	ingester  Ingester
	log       *logger.Logger
}

// NewWorker creates a Worker.
func NewWorker(store *Store, jobStatus StatusReader, suppliers *supplier.Set, ingester Ingester, log *logger.Logger) *Worker {
	return &Worker{
		store:     store,
		jobs:      jobStatus,
		suppliers: suppliers,
		ingester:  ingester,
		log:       log.WithComponent("queue-worker"),
	}
}

// ProcessOne claims at most one of userID's entries and tries to finish
// it. A result that is not ready yet releases the claim.
func (w *Worker) ProcessOne(ctx context.Context, userID string) (Result, error) {
	e, err := w.store.Claim(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if e == nil {
		return Result{Status: ResultEmpty}, nil
	}
	log := w.log.WithFields(logger.Fields(logger.FieldJobID, e.JobID, logger.FieldSupplier, e.Supplier))
	res := Result{JobID: e.JobID}

	status, err := w.jobs.Status(ctx, e.JobID)
	if err != nil {
		w.release(ctx, e, log)
		return Result{}, err
	}
	if status.IsTerminal() {
		res.Status = ResultSkipped
		return res, w.store.MarkDone(ctx, e.ID)
	}

	sp, ok := w.suppliers.Get(e.Supplier)
	if !ok {
		log.Warn("Queue entry names an unconfigured supplier")
		res.Status = ResultSkipped
		return res, w.store.MarkDone(ctx, e.ID)
	}

	raw, ready, err := sp.Fetch(ctx, e.Ref)
	switch {
	case errors.Is(err, supplier.ErrTranscriptionFailed):
		if ferr := w.ingester.Fail(ctx, e.Supplier, e.JobID, err); ferr != nil {
			w.release(ctx, e, log)
			return Result{}, ferr
		}
		res.Status = ResultFailed
		return res, w.store.MarkDone(ctx, e.ID)
	case err != nil:
		w.release(ctx, e, log)
		return Result{}, err
	case !ready:
		w.release(ctx, e, log)
		res.Status = ResultPending
		return res, nil
	}

	if err := w.ingester.Ingest(ctx, e.Supplier, e.JobID, raw); err != nil {
		w.release(ctx, e, log)
		return Result{}, err
	}
	res.Status = ResultProcessed
	log.Info("Queue entry processed")
	return res, w.store.MarkDone(ctx, e.ID)
}

func (w *Worker) release(ctx context.Context, e *Entry, log *logger.Logger) {
	if err := w.store.Release(ctx, e.ID); err != nil {
		log.Error("Queue claim not released", logger.ErrorFields("release", err))
	}
}
