package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribe/component"
	"github.com/kbukum/scribe/database/testutil"
	"github.com/kbukum/scribe/jobs"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/supplier"
	"github.com/kbukum/scribe/transcription"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testutil.NewDB(t, Models()...), logger.NewNop())
}

func TestStore_ClaimOldestFirst(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, job := range []string{"j1", "j2"} {
		require.NoError(t, s.Enqueue(ctx, Entry{
			JobID: job, UserID: "u1", Tier: "free", Supplier: "fast", Ref: "r" + job,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.Enqueue(ctx, Entry{JobID: "other", UserID: "u2", Tier: "free", Supplier: "fast", Ref: "x"}))

	e, err := s.Claim(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "j1", e.JobID)
	assert.NotNil(t, e.PickedAt)

	e2, err := s.Claim(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, e2)
	assert.Equal(t, "j2", e2.JobID)

	e3, err := s.Claim(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, e3)

	require.NoError(t, s.Release(ctx, e.ID))
	again, err := s.Claim(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, e.ID, again.ID)

	require.NoError(t, s.MarkDone(ctx, again.ID))
	require.NoError(t, s.Release(ctx, again.ID))
	none, err := s.Claim(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestStore_ReleaseStale(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Enqueue(ctx, Entry{JobID: "j1", UserID: "u1", Tier: "free", Supplier: "fast", Ref: "r"}))

	_, err := s.Claim(ctx, "u1")
	require.NoError(t, err)

	n, err := s.ReleaseStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	s.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	n, err = s.ReleaseStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

type fetchSupplier struct {
	raw   []byte
	ready bool
	err   error
}

func (f fetchSupplier) Name() string                     { return supplier.NameFast }
func (f fetchSupplier) IsAvailable(context.Context) bool { return true }
func (f fetchSupplier) Submit(context.Context, supplier.SubmitRequest) (supplier.Submission, error) {
	return supplier.Submission{}, nil
}
func (f fetchSupplier) Fetch(context.Context, string) ([]byte, bool, error) {
	return f.raw, f.ready, f.err
}
func (f fetchSupplier) Decode([]byte) (transcription.Payload, error) {
	return transcription.Payload{}, nil
}
func (f fetchSupplier) SignatureHeader() string   { return "x-test" }
func (f fetchSupplier) Signer() *supplier.Signer { return supplier.NewSigner("") }

type statusMap map[string]jobs.Status

func (m statusMap) Status(_ context.Context, id string) (jobs.Status, error) {
	st, ok := m[id]
	if !ok {
		return "", fmt.Errorf("job %s not found", id)
	}
	return st, nil
}

type recordingIngester struct {
	ingested []string
	failed   []string
	err      error
}

func (r *recordingIngester) Ingest(_ context.Context, _, jobID string, _ []byte) error {
	if r.err != nil {
		return r.err
	}
	r.ingested = append(r.ingested, jobID)
	return nil
}

func (r *recordingIngester) Fail(_ context.Context, _, jobID string, _ error) error {
	r.failed = append(r.failed, jobID)
	return nil
}

func TestWorker_ProcessOne(t *testing.T) {
	tests := []struct {
		name      string
		status    jobs.Status
		sp        fetchSupplier
		ingestErr error
		want      string
		wantErr   bool
		reclaim   bool
	}{
		{name: "processed", status: jobs.StatusProcessing, sp: fetchSupplier{raw: []byte(`{}`), ready: true}, want: ResultProcessed},
		{name: "not ready", status: jobs.StatusProcessing, sp: fetchSupplier{}, want: ResultPending, reclaim: true},
		{name: "terminal job", status: jobs.StatusCompleted, sp: fetchSupplier{ready: true}, want: ResultSkipped},
		{name: "supplier failed", status: jobs.StatusProcessing, sp: fetchSupplier{err: supplier.ErrTranscriptionFailed}, want: ResultFailed},
		{name: "fetch error", status: jobs.StatusProcessing, sp: fetchSupplier{err: errors.New("timeout")}, wantErr: true, reclaim: true},
		{name: "ingest error", status: jobs.StatusProcessing, sp: fetchSupplier{ready: true}, ingestErr: errors.New("db down"), wantErr: true, reclaim: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			ctx := context.Background()
			require.NoError(t, s.Enqueue(ctx, Entry{JobID: "j1", UserID: "u1", Tier: "free", Supplier: supplier.NameFast, Ref: "r1"}))

			ing := &recordingIngester{err: tc.ingestErr}
			w := NewWorker(s, statusMap{"j1": tc.status}, supplier.NewSet(tc.sp), ing, logger.NewNop())

			res, err := w.ProcessOne(ctx, "u1")
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, res.Status)
				assert.Equal(t, "j1", res.JobID)
			}

			next, err := s.Claim(ctx, "u1")
			require.NoError(t, err)
			assert.Equal(t, tc.reclaim, next != nil)
		})
	}
}

func TestWorker_Empty(t *testing.T) {
	w := NewWorker(newStore(t), statusMap{}, supplier.NewSet(), &recordingIngester{}, logger.NewNop())
	res, err := w.ProcessOne(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, ResultEmpty, res.Status)
}

func TestSweeper(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	require.NoError(t, s.Enqueue(ctx, Entry{JobID: "j1", UserID: "u1", Tier: "free", Supplier: "fast", Ref: "r"}))
	_, err := s.Claim(ctx, "u1")
	require.NoError(t, err)

	sw := NewSweeper(Config{Enabled: true, StaleAfter: time.Minute}, s, logger.NewNop())
	require.NoError(t, sw.Start(ctx))
	defer func() { require.NoError(t, sw.Stop(ctx)) }()

	s.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	sw.Sweep(ctx)
	assert.Equal(t, component.StatusHealthy, sw.Health(ctx).Status)

	e, err := s.Claim(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, e)
}

func TestCronLogger_RecoveredPanicReachesServiceLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scribe.log")
	cfg := &logger.Config{Level: "info", Format: logger.FormatJSON, Output: logger.OutputFile, File: logger.FileConfig{Path: path}}
	cfg.ApplyDefaults()
	cl := cronLogger{logger.New(cfg, "scribe").WithComponent("sweeper")}

	job := cron.Recover(cl)(cron.FuncJob(func() { panic("sweep exploded") }))
	require.NotPanics(t, job.Run)
	cl.Info("wake", "now", "2026-03-01T00:00:00Z")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, "sweep exploded")
	assert.Contains(t, out, `"stack"`)
	assert.NotContains(t, out, `"wake"`)
}

func TestConfig_Validate(t *testing.T) {
	c := Config{Enabled: true, SweepSchedule: "not a schedule"}
	assert.Error(t, c.Validate())
	c = Config{Enabled: true}
	c.ApplyDefaults()
	assert.NoError(t, c.Validate())
}
