package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes of a run
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrSegmentation   = errors.New("segmentation error")
	ErrClassification = errors.New("classification error")
	ErrStage          = errors.New("stage error")
)

// StageError ties a failure to the pipeline stage it aborted.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Configuration wraps err as a configuration failure for the named artifact.
func Configuration(artifact string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrConfiguration, artifact, err)
}

// FromPanic turns a recovered value into an error wrapping kind.
func FromPanic(kind error, r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: panic: %w", kind, err)
	}
	return fmt.Errorf("%w: panic: %v", kind, r)
}
