package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/himanishpuri/TracklistDNA/pkg/logger"
	"github.com/himanishpuri/TracklistDNA/pkg/models"
)

func makeSegments(n int) []models.Segment {
	segs := make([]models.Segment, n)
	for i := range segs {
		segs[i] = models.Segment{Index: i, StartMs: i * 20_000, EndMs: (i + 1) * 20_000}
	}
	return segs
}

func titled(seg models.Segment) models.Outcome {
	return models.Matched(seg.Index, []models.RawHit{{Title: "track-" + string(rune('A'+seg.Index%26)), Score: 50}})
}

func TestDispatchPreservesOrder(t *testing.T) {
	segs := makeSegments(12)

	// later segments finish first
	rec := RecognizerFunc(func(ctx context.Context, seg models.Segment) (models.Outcome, error) {
		time.Sleep(time.Duration(len(segs)-seg.Index) * 3 * time.Millisecond)
		return titled(seg), nil
	})

	var order []int
	var mu sync.Mutex
	d := New(rec, WithWorkers(4), WithLogger(logger.Discard()))
	d.onProgress = func(done, total int) {
		mu.Lock()
		order = append(order, done)
		mu.Unlock()
	}

	outs, err := d.Dispatch(context.Background(), segs)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if len(outs) != len(segs) {
		t.Fatalf("Expected %d outcomes, got %d", len(segs), len(outs))
	}
	for i, out := range outs {
		if out.Index != i {
			t.Errorf("Outcome %d has index %d", i, out.Index)
		}
		if want := titled(segs[i]).Candidates[0].Title; out.Candidates[0].Title != want {
			t.Errorf("Outcome %d: expected %q, got %q", i, want, out.Candidates[0].Title)
		}
	}
	if len(order) != len(segs) || order[len(order)-1] != len(segs) {
		t.Errorf("Expected progress to reach %d, got %v", len(segs), order)
	}
}

func TestDispatchBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	rec := RecognizerFunc(func(ctx context.Context, seg models.Segment) (models.Outcome, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return models.NoMatch(seg.Index), nil
	})

	d := New(rec, WithWorkers(3), WithLogger(logger.Discard()))
	if _, err := d.Dispatch(context.Background(), makeSegments(20)); err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if got := atomic.LoadInt32(&peak); got > 3 {
		t.Errorf("Expected at most 3 concurrent calls, saw %d", got)
	}
}

func TestDispatchTransientFailureDoesNotCancel(t *testing.T) {
	segs := makeSegments(6)
	rec := RecognizerFunc(func(ctx context.Context, seg models.Segment) (models.Outcome, error) {
		if seg.Index == 2 {
			return models.Failed(seg.Index, &models.ServiceError{Kind: models.Transient, Message: "timeout"}), nil
		}
		return titled(seg), nil
	})

	outs, err := New(rec, WithLogger(logger.Discard())).Dispatch(context.Background(), segs)
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	for i, out := range outs {
		want := models.OutcomeMatched
		if i == 2 {
			want = models.OutcomeServiceError
		}
		if out.Kind != want {
			t.Errorf("Outcome %d: expected %s, got %s", i, want, out.Kind)
		}
	}
}

func TestDispatchFatalCancelsRemainingWork(t *testing.T) {
	segs := makeSegments(50)
	fatal := &models.ServiceError{Kind: models.Fatal, Code: 3001, Message: "invalid access key"}

	var started int32
	rec := RecognizerFunc(func(ctx context.Context, seg models.Segment) (models.Outcome, error) {
		atomic.AddInt32(&started, 1)
		if seg.Index == 1 {
			return models.Outcome{}, fatal
		}
		select {
		case <-ctx.Done():
			return models.Outcome{}, ctx.Err()
		case <-time.After(20 * time.Millisecond):
			return models.NoMatch(seg.Index), nil
		}
	})

	outs, err := New(rec, WithWorkers(2), WithLogger(logger.Discard())).Dispatch(context.Background(), segs)
	if !errors.Is(err, fatal) {
		t.Fatalf("Expected the fatal error, got %v", err)
	}
	if outs != nil {
		t.Errorf("Expected no outcomes on fatal error, got %d", len(outs))
	}
	if n := atomic.LoadInt32(&started); n >= int32(len(segs)) {
		t.Errorf("Expected queued segments to be skipped, %d of %d started", n, len(segs))
	}
}

func TestDispatchParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := RecognizerFunc(func(ctx context.Context, seg models.Segment) (models.Outcome, error) {
		return models.NoMatch(seg.Index), ctx.Err()
	})
	if _, err := New(rec, WithLogger(logger.Discard())).Dispatch(ctx, makeSegments(3)); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDispatchEmpty(t *testing.T) {
	rec := RecognizerFunc(func(ctx context.Context, seg models.Segment) (models.Outcome, error) {
		t.Fatal("Recognizer should not be called")
		return models.Outcome{}, nil
	})
	outs, err := New(rec, WithLogger(logger.Discard())).Dispatch(context.Background(), nil)
	if err != nil || len(outs) != 0 {
		t.Errorf("Expected empty result, got %v, %v", outs, err)
	}
}
