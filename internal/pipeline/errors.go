package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

// Stage names the pipeline step an error came from.
type Stage string

const (
	StageDecode   Stage = "decode"
	StageChaos    Stage = "chaos"
	StageMetadata Stage = "metadata"
	StagePersist  Stage = "persist"
	StagePanic    Stage = "panic"
)

// ErrChaosInjected marks a failure forced by the chaos injector.
var ErrChaosInjected = errors.New("chaos injection: simulated failure")

// RetryableError is returned by the storage pipeline when a record fails. It
// must reach the invoking platform unhandled so the whole batch is redelivered
// and, once retries are exhausted, dead-lettered.
type RetryableError struct {
	Stage Stage
	// Index is the position of the failed record in its batch, or -1 when
	// the batch itself could not be decoded.
	Index int
	Err   error
}

func (e *RetryableError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("record %d: %s: %v", e.Index, e.Stage, e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err carries a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
