// Package dispatch fans segment recognition out over a bounded worker pool
// and restores temporal order by writing each outcome into its segment's slot.
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/himanishpuri/TracklistDNA/pkg/logger"
	"github.com/himanishpuri/TracklistDNA/pkg/models"
)

const DefaultWorkers = 4

// Recognizer queries the recognition service for one segment. A non-nil
// error is terminal for the whole run.
type Recognizer interface {
	Recognize(ctx context.Context, seg models.Segment) (models.Outcome, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, seg models.Segment) (models.Outcome, error)

func (f RecognizerFunc) Recognize(ctx context.Context, seg models.Segment) (models.Outcome, error) {
	return f(ctx, seg)
}

// Progress is called after each segment completes with the number of
// finished segments and the total. It may be called from several goroutines.
type Progress func(done, total int)

type Dispatcher struct {
	recognizer Recognizer
	workers    int
	log        *logger.Logger
	onProgress Progress
}

type Option func(*Dispatcher)

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		d.workers = n
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(d *Dispatcher) {
		d.log = log
	}
}

func WithProgress(p Progress) Option {
	return func(d *Dispatcher) {
		d.onProgress = p
	}
}

func New(recognizer Recognizer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		recognizer: recognizer,
		workers:    DefaultWorkers,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workers <= 0 {
		d.workers = DefaultWorkers
	}
	if d.log == nil {
		d.log = logger.GetLogger().WithPrefix("[dispatch]")
	}
	return d
}

// Dispatch recognizes every segment and returns the outcomes in segment
// order, independent of completion order. The first terminal error cancels
// queued and in-flight work and is returned; per-segment transient failures
// are kept as outcomes and never stop siblings.
func (d *Dispatcher) Dispatch(ctx context.Context, segments []models.Segment) ([]models.Outcome, error) {
	results := make([]models.Outcome, len(segments))
	if len(segments) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for pos := range segments {
			select {
			case jobs <- pos:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	var done atomic.Int32
	total := len(segments)
	workers := min(d.workers, total)

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for pos := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				seg := segments[pos]
				out, err := d.recognizer.Recognize(gctx, seg)
				if err != nil {
					return fmt.Errorf("segment %d: %w", seg.Index, err)
				}
				out.Index = seg.Index
				results[pos] = out

				n := int(done.Add(1))
				if d.onProgress != nil {
					d.onProgress(n, total)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		// the producer may have stopped on a cancelled parent before any worker noticed
		err = ctx.Err()
	}
	if err != nil {
		d.log.Errorf("dispatch aborted after %d/%d segments: %v", done.Load(), total, err)
		return nil, err
	}

	d.log.Infof("recognized %d segments with %d workers", total, workers)
	return results, nil
}
