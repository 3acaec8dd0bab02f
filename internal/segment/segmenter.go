// Package segment windows a decoded recording into recognition units.
package segment

import (
	"errors"
	"fmt"
	"iter"

	"github.com/himanishpuri/TracklistDNA/pkg/models"
)

// Default window: 20s segments overlapping by 5s.
const (
	DefaultWindowMs  = 20_000
	DefaultOverlapMs = 5_000
)

// Window is the [StartMs, EndMs) bounds of one segment.
type Window struct {
	Index   int
	StartMs int
	EndMs   int
}

// Validate checks windowMs > overlapMs >= 0.
func Validate(windowMs, overlapMs int) error {
	if overlapMs < 0 {
		return fmt.Errorf("overlap must be >= 0, got %dms", overlapMs)
	}
	if windowMs <= overlapMs {
		return fmt.Errorf("window (%dms) must be longer than overlap (%dms)", windowMs, overlapMs)
	}
	return nil
}

// Windows yields the window bounds covering [0, totalMs). The final window is
// clipped to totalMs and iteration stops once a window reaches the end. A
// non-positive totalMs yields nothing.
func Windows(totalMs, windowMs, overlapMs int) (iter.Seq[Window], error) {
	if err := Validate(windowMs, overlapMs); err != nil {
		return nil, err
	}
	step := windowMs - overlapMs
	return func(yield func(Window) bool) {
		if totalMs <= 0 {
			return
		}
		for idx, start := 0, 0; ; idx, start = idx+1, start+step {
			end := min(start+windowMs, totalMs)
			if !yield(Window{Index: idx, StartMs: start, EndMs: end}) {
				return
			}
			if end == totalMs {
				return
			}
		}
	}, nil
}

// Split returns a lazy, restartable sequence of segments over src. Segments
// share src's sample array and must not be modified.
func Split(src *models.AudioSource, windowMs, overlapMs int) (iter.Seq[models.Segment], error) {
	if src == nil || src.SampleRate <= 0 || src.Channels <= 0 {
		return nil, &models.SegmentationError{Index: -1, Err: errors.New("invalid audio source format")}
	}
	totalMs := src.DurationMs()
	windows, err := Windows(totalMs, windowMs, overlapMs)
	if err != nil {
		return nil, &models.SegmentationError{Index: -1, Err: err}
	}
	if totalMs <= 0 {
		return nil, &models.SegmentationError{Index: -1, Err: errors.New("audio source is empty")}
	}

	frames := src.Frames()
	return func(yield func(models.Segment) bool) {
		for w := range windows {
			startFrame := frameAt(w.StartMs, src.SampleRate)
			endFrame := frameAt(w.EndMs, src.SampleRate)
			if w.EndMs == totalMs {
				// keep the sub-millisecond tail
				endFrame = frames
			}
			seg := models.Segment{
				Index:      w.Index,
				StartMs:    w.StartMs,
				EndMs:      w.EndMs,
				Samples:    src.Samples[startFrame*src.Channels : endFrame*src.Channels],
				SampleRate: src.SampleRate,
				Channels:   src.Channels,
			}
			if !yield(seg) {
				return
			}
		}
	}, nil
}

func frameAt(ms, sampleRate int) int {
	return int(int64(ms) * int64(sampleRate) / 1000)
}
