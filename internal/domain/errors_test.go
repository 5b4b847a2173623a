package domain

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestDomainErrors_AreStableAndUsableWithErrorsIs(t *testing.T) {
	if ErrInvalidRequest == ErrJobBusy {
		t.Fatalf("domain errors must be distinct")
	}
	if !errors.Is(errors.Join(errors.New("context"), ErrJobBusy), ErrJobBusy) {
		t.Fatalf("expected errors.Is to match ErrJobBusy")
	}
}

func TestStageError_MessagesAreDistinctPerStage(t *testing.T) {
	render := &StageError{Stage: StageRender, Tool: "typst", Exited: true, ExitCode: 1, Output: "error: file not found"}
	spool := &StageError{Stage: StagePrint, Tool: "lp", Exited: true, ExitCode: 1, Output: "lp: The printer or class does not exist."}
	write := &StageError{Stage: StageDataWrite, Err: os.ErrPermission}

	if got := render.Error(); got != "Render failed: typst exited with status 1: error: file not found" {
		t.Fatalf("unexpected render message %q", got)
	}
	if !strings.HasPrefix(spool.Error(), "Print failed: lp exited with status 1") {
		t.Fatalf("unexpected print message %q", spool.Error())
	}
	if !strings.HasPrefix(write.Error(), "Failed to write label data: ") {
		t.Fatalf("unexpected data write message %q", write.Error())
	}
	if !errors.Is(write, os.ErrPermission) {
		t.Fatalf("expected StageError to unwrap its cause")
	}
}

func TestStageError_TimeoutAndLaunchFailure(t *testing.T) {
	timeout := &StageError{Stage: StageRender, Tool: "typst", Timeout: true, Limit: 30 * time.Second}
	if got := timeout.Error(); got != "Render timed out: typst did not finish within 30s" {
		t.Fatalf("unexpected timeout message %q", got)
	}

	launch := &StageError{Stage: StagePrint, Tool: "lp", Err: errors.New("executable file not found in $PATH")}
	if got := launch.Error(); got != "Print failed: failed to run lp: executable file not found in $PATH" {
		t.Fatalf("unexpected launch message %q", got)
	}

	exitNoOutput := &StageError{Stage: StagePrint, Tool: "lp", Exited: true, ExitCode: 2}
	if got := exitNoOutput.Detail(); got != "lp exited with status 2" {
		t.Fatalf("unexpected detail %q", got)
	}
}
