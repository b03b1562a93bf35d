package plugin

import (
	"errors"
	"fmt"
)

// Stage names the step of a run that failed
type Stage string

const (
	StageConfig       Stage = "config"
	StageConnect      Stage = "connect"
	StageMetricsStore Stage = "metrics-store"
	StageQuery        Stage = "query"
	StageWrite        Stage = "write"
)

// RunError is the single error type every step of a run reports
type RunError struct {
	Stage Stage
	Cause error
}

func (e *RunError) Error() string {
	if e.Cause == nil {
		return string(e.Stage)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Cause)
}

func (e *RunError) Unwrap() error {
	return e.Cause
}

// Wrap tags err with a stage. nil stays nil and an error that already
// carries a stage keeps its original one.
func Wrap(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	var runErr *RunError
	if errors.As(err, &runErr) {
		return err
	}
	return &RunError{Stage: stage, Cause: err}
}

// StageOf returns the stage recorded in err, or "" if there is none
func StageOf(err error) Stage {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Stage
	}
	return ""
}
