package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/scribe/logger"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafkago.Message
	fetchErrs []error
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	r.mu.Lock()
	if len(r.fetchErrs) > 0 {
		err := r.fetchErrs[0]
		r.fetchErrs = r.fetchErrs[1:]
		r.mu.Unlock()
		return kafkago.Message{}, err
	}
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafkago.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func (r *fakeReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func fastConsumer(r reader) *Consumer {
	c := newConsumer(r, "grants", logger.NewNop())
	c.handlerRetry.InitialBackoff = time.Millisecond
	c.handlerRetry.MaxBackoff = time.Millisecond
	c.maxReadWait = time.Millisecond
	return c
}

func TestConsumeCommitsAfterHandler(t *testing.T) {
	r := &fakeReader{msgs: []kafkago.Message{{Offset: 1}, {Offset: 2}}}
	c := fastConsumer(r)

	var mu sync.Mutex
	var seen []int64
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Consume(ctx, func(_ context.Context, m kafkago.Message) error {
			mu.Lock()
			seen = append(seen, m.Offset)
			mu.Unlock()
			return nil
		})
	}()

	waitFor(t, func() bool { return len(r.commits()) == 2 })
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Consume returned %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("handled %v", seen)
	}
}

func TestConsumeRetriesThenDrops(t *testing.T) {
	r := &fakeReader{msgs: []kafkago.Message{{Offset: 7}}}
	c := fastConsumer(r)

	var mu sync.Mutex
	calls := 0
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = c.Consume(ctx, func(context.Context, kafkago.Message) error {
			mu.Lock()
			calls++
			mu.Unlock()
			return errors.New("ledger unavailable")
		})
	}()

	waitFor(t, func() bool { return len(r.commits()) == 1 })
	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}
}

func TestConsumeSurvivesReadErrors(t *testing.T) {
	r := &fakeReader{
		fetchErrs: []error{errors.New("broker gone"), errors.New("broker gone")},
		msgs:      []kafkago.Message{{Offset: 3}},
	}
	c := fastConsumer(r)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Consume(ctx, func(context.Context, kafkago.Message) error { return nil }) }()

	waitFor(t, func() bool { return len(r.commits()) == 1 })
	if err := c.Close(); err != nil || !r.closed {
		t.Errorf("Close: %v closed=%v", err, r.closed)
	}
	if c.Topic() != "grants" {
		t.Errorf("Topic = %q", c.Topic())
	}
}

func TestAsRunnerUsesBoundHandler(t *testing.T) {
	r := &fakeReader{msgs: []kafkago.Message{{Offset: 4}}}
	handled := make(chan int64, 1)
	run := AsRunner(fastConsumer(r), func(_ context.Context, m kafkago.Message) error {
		handled <- m.Offset
		return nil
	})
	if run.Topic() != "grants" {
		t.Errorf("Topic = %q", run.Topic())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = run.Consume(ctx) }()
	select {
	case off := <-handled:
		if off != 4 {
			t.Errorf("offset = %d", off)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler not called")
	}
}
