package dispatch

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribe/database/testutil"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/events"
	"github.com/kbukum/scribe/jobs"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/queue"
	"github.com/kbukum/scribe/supplier"
	"github.com/kbukum/scribe/transcription"
)

type fakeSupplier struct {
	name string
	ref  string
	err  error

	mu       sync.Mutex
	requests []supplier.SubmitRequest
}

func (f *fakeSupplier) Name() string                     { return f.name }
func (f *fakeSupplier) IsAvailable(context.Context) bool { return true }
func (f *fakeSupplier) Submit(_ context.Context, req supplier.SubmitRequest) (supplier.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return supplier.Submission{}, f.err
	}
	return supplier.Submission{Supplier: f.name, Ref: f.ref}, nil
}
func (f *fakeSupplier) Fetch(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (f *fakeSupplier) Decode([]byte) (transcription.Payload, error) {
	return transcription.Payload{}, nil
}
func (f *fakeSupplier) SignatureHeader() string   { return "x-test-signature" }
func (f *fakeSupplier) Signer() *supplier.Signer { return supplier.NewSigner("secret") }

func (f *fakeSupplier) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.JobEvent
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.JobEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type recordingQueue struct{ entries []queue.Entry }

func (q *recordingQueue) Enqueue(_ context.Context, e queue.Entry) error {
	q.entries = append(q.entries, e)
	return nil
}

func setup(t *testing.T, status jobs.Status, suppliers ...supplier.Supplier) (*Dispatcher, *jobs.Store, *recordingPublisher, *recordingQueue, *jobs.Job) {
	t.Helper()
	db := testutil.NewDB(t, jobs.Models()...)
	store := jobs.NewStore(db, logger.NewNop())
	job := &jobs.Job{
		ID: "j1", UserID: "u1", SourceType: jobs.SourceDirectURL,
		SourceURL: "https://example.com/a.mp3", ProcessedURL: "https://cdn.example.com/a.mp3",
		Status: status, Tier: jobs.TierPaid, Language: "en",
	}
	require.NoError(t, store.Create(context.Background(), job))

	pub := &recordingPublisher{}
	q := &recordingQueue{}
	d := New(Config{CallbackBaseURL: "https://scribe.example.com"}, supplier.NewSet(suppliers...), store,
		logger.NewNop(), WithEvents(pub), WithQueue(q))
	return d, store, pub, q, job
}

func TestDispatch_Submitted(t *testing.T) {
	fast := &fakeSupplier{name: supplier.NameFast, ref: "req-1"}
	d, store, pub, q, job := setup(t, jobs.StatusPending, fast)

	report, err := d.Dispatch(context.Background(), job, supplier.Strategy{UseFast: true})
	require.NoError(t, err)
	require.Len(t, report.Submitted(), 1)
	assert.False(t, report.Failed)
	assert.False(t, report.Cancelled)

	got, err := store.Get(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusProcessing, got.Status)
	assert.Equal(t, supplier.NameFast, got.Supplier)
	assert.Equal(t, "req-1", got.SupplierRef)

	require.Len(t, fast.requests, 1)
	req := fast.requests[0]
	assert.Equal(t, "https://cdn.example.com/a.mp3", req.AudioURL)
	assert.Equal(t, "en", req.Language)
	cb, err := url.Parse(req.CallbackURL)
	require.NoError(t, err)
	assert.Equal(t, "/callback/fast", cb.Path)
	assert.Equal(t, "j1", cb.Query().Get(supplier.QueryJobID))
	assert.NotEmpty(t, cb.Query().Get(supplier.QuerySig))

	require.Len(t, q.entries, 1)
	assert.Equal(t, "j1", q.entries[0].JobID)
	assert.Equal(t, supplier.NameFast, q.entries[0].Supplier)
	assert.Equal(t, "req-1", q.entries[0].Ref)
	assert.Equal(t, string(jobs.TierPaid), q.entries[0].Tier)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeDispatched, pub.events[0].Type)
	assert.Equal(t, []string{supplier.NameFast}, pub.events[0].Suppliers)
}

func TestDispatch_AllFailed(t *testing.T) {
	fast := &fakeSupplier{name: supplier.NameFast, err: errors.New("boom")}
	d, store, pub, q, job := setup(t, jobs.StatusPending, fast)

	report, err := d.Dispatch(context.Background(), job, supplier.Strategy{UseFast: true})
	require.NoError(t, err)
	assert.True(t, report.Failed)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, OutcomeFailed, report.Outcomes[0].Status)
	assert.Equal(t, "boom", report.Outcomes[0].Error)

	got, err := store.Get(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Equal(t, jobs.ReasonDispatchFailed, got.FailureReason)
	assert.Empty(t, q.entries)
	require.Len(t, pub.events, 1)
	assert.Equal(t, events.TypeFailed, pub.events[0].Type)
}

func TestDispatch_Cancelled(t *testing.T) {
	fast := &fakeSupplier{name: supplier.NameFast, ref: "req-1"}
	d, store, pub, _, job := setup(t, jobs.StatusCancelled, fast)

	report, err := d.Dispatch(context.Background(), job, supplier.Strategy{UseFast: true})
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Zero(t, fast.calls())
	assert.Empty(t, pub.events)

	status, err := store.Status(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusCancelled, status)
}

func TestDispatch_NoSupplier(t *testing.T) {
	d, store, _, _, job := setup(t, jobs.StatusPending)

	_, err := d.Dispatch(context.Background(), job, supplier.Strategy{})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.NoSupplier("").Code, appErr.Code)

	got, err := store.Get(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, jobs.StatusFailed, got.Status)
	assert.Equal(t, jobs.ReasonNoSupplier, got.FailureReason)
}

func TestDispatch_UnconfiguredTarget(t *testing.T) {
	d, _, _, _, job := setup(t, jobs.StatusPending)

	report, err := d.Dispatch(context.Background(), job, supplier.Strategy{UseAccurate: true})
	require.NoError(t, err)
	assert.True(t, report.Failed)
	assert.Equal(t, supplier.NameAccurate, report.Outcomes[0].Supplier)
}

func TestConfig(t *testing.T) {
	var c Config
	c.ApplyDefaults()
	assert.Error(t, c.Validate())
	c.CallbackBaseURL = "https://x"
	assert.NoError(t, c.Validate())
	assert.NotZero(t, c.CallTimeout)
}
