package command

import (
	"context"
	"time"

	"labelprint/internal/domain"
)

// Typst renders a label with `typst compile <template> <output>`, run from
// the job's working directory so the template finds its data file.
type Typst struct {
	Bin     string
	Timeout time.Duration
}

// NewTypst returns a renderer invoking bin.
func NewTypst(bin string, timeout time.Duration) *Typst {
	return &Typst{Bin: bin, Timeout: timeout}
}

// Render compiles job.Template into job.Output.
func (t *Typst) Render(ctx context.Context, job domain.RenderJob) error {
	return run(ctx, domain.StageRender, job.WorkDir, t.Timeout, t.Bin, "compile", job.Template, job.Output)
}

// LP hands documents to the CUPS print queue with `lp -d <printer> <document>`.
type LP struct {
	Bin     string
	Timeout time.Duration
}

// NewLP returns a spooler invoking bin.
func NewLP(bin string, timeout time.Duration) *LP {
	return &LP{Bin: bin, Timeout: timeout}
}

// Dispatch enqueues document on printer. Success means the queue accepted
// the job, not that it was printed.
func (l *LP) Dispatch(ctx context.Context, document, printer string) error {
	return run(ctx, domain.StagePrint, "", l.Timeout, l.Bin, "-d", printer, document)
}
