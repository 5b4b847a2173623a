package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRequest signals a print request that fails validation.
	ErrInvalidRequest = errors.New("invalid print request")
	// ErrJobBusy signals that another job held the printer for longer than the lock wait.
	ErrJobBusy = errors.New("label printer busy")
)

// Stage names a step of the print pipeline.
type Stage string

const (
	StageDataWrite Stage = "data_write"
	StageRender    Stage = "render"
	StagePrint     Stage = "print"
)

// StageError reports a failed pipeline step. For external tools it records
// whether the process exited (and with which status), timed out, or could
// not be started.
type StageError struct {
	Stage Stage
	Tool  string

	Exited   bool
	ExitCode int
	// Output is the trimmed diagnostic output of the tool.
	Output string

	Timeout bool
	Limit   time.Duration

	Err error
}

func (e *StageError) Error() string {
	return e.Summary() + ": " + e.Detail()
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Summary is the stage-specific prefix shown to clients.
func (e *StageError) Summary() string {
	switch e.Stage {
	case StageDataWrite:
		return "Failed to write label data"
	case StageRender:
		if e.Timeout {
			return "Render timed out"
		}
		return "Render failed"
	case StagePrint:
		if e.Timeout {
			return "Print timed out"
		}
		return "Print failed"
	}
	return "Print job failed"
}

// Detail describes the underlying cause, including tool output when there is any.
func (e *StageError) Detail() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("%s did not finish within %s", e.Tool, e.Limit)
	case e.Exited:
		msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
		if e.Output != "" {
			msg += ": " + e.Output
		}
		return msg
	case e.Tool != "" && e.Err != nil:
		return fmt.Sprintf("failed to run %s: %v", e.Tool, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	}
	return "unknown error"
}
