package tracklistdna

import "fmt"

// Stage names the pipeline step a fatal error came from.
type Stage string

const (
	StageConfigure Stage = "configure"
	StageAcquire   Stage = "acquire"
	StageSegment   Stage = "segment"
	StageRecognize Stage = "recognize"
	StagePersist   Stage = "persist"
)

// ConfigurationError reports an unusable setting, detected before any audio
// is read or any request is sent.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// StageError wraps every fatal error returned by a Service run.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
