package models

import (
	"errors"
	"fmt"
)

// OutcomeKind classifies the result of querying one segment.
type OutcomeKind int

const (
	OutcomeNoMatch OutcomeKind = iota
	OutcomeMatched
	OutcomeServiceError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNoMatch:
		return "no_match"
	case OutcomeMatched:
		return "matched"
	case OutcomeServiceError:
		return "service_error"
	default:
		return "unknown"
	}
}

// Outcome is the recognition result for the segment at Index.
type Outcome struct {
	Index      int
	Kind       OutcomeKind
	Candidates []RawHit      // Set when Kind == OutcomeMatched
	Err        *ServiceError // Set when Kind == OutcomeServiceError
}

// Matched builds a matched outcome.
func Matched(index int, candidates []RawHit) Outcome {
	return Outcome{Index: index, Kind: OutcomeMatched, Candidates: candidates}
}

// NoMatch builds an outcome for a segment the service did not recognize.
func NoMatch(index int) Outcome {
	return Outcome{Index: index, Kind: OutcomeNoMatch}
}

// Failed builds an outcome carrying a terminal service error.
func Failed(index int, err *ServiceError) Outcome {
	return Outcome{Index: index, Kind: OutcomeServiceError, Err: err}
}

// ErrorKind separates retryable service failures from terminal ones.
type ErrorKind int

const (
	Transient ErrorKind = iota
	Fatal
)

func (k ErrorKind) String() string {
	if k == Fatal {
		return "fatal"
	}
	return "transient"
}

// ServiceError is a failure reported by or while talking to the recognition service.
type ServiceError struct {
	Kind    ErrorKind
	Code    int // Service status code or HTTP status, 0 when unknown
	Message string
}

func (e *ServiceError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("recognition service %s error (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("recognition service %s error: %s", e.Kind, e.Message)
}

// IsFatal reports whether err is a fatal ServiceError.
func IsFatal(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == Fatal
}

// ErrMissingCredentials is returned when the access key or secret is empty.
var ErrMissingCredentials = errors.New("recognition service credentials are missing")

// SegmentationError reports that the source could not be windowed or a
// window could not be materialized.
type SegmentationError struct {
	Index int // Segment index, -1 when the whole source is at fault
	Err   error
}

func (e *SegmentationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("segmentation failed: %v", e.Err)
	}
	return fmt.Sprintf("segmentation failed for segment %d: %v", e.Index, e.Err)
}

func (e *SegmentationError) Unwrap() error { return e.Err }

// ErrTracklistNotFound is returned when no tracklist is stored for a source key.
var ErrTracklistNotFound = errors.New("tracklist not found")
