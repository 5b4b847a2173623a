// Package labels implements the print pipeline: normalize the request, write
// the data file, render the label and hand the document to the print queue.
package labels

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"labelprint/internal/config"
	"labelprint/internal/domain"
	"labelprint/internal/infra/lock"
	"labelprint/internal/infra/logging"
)

// Renderer turns a template and its data file into a document.
type Renderer interface {
	Render(ctx context.Context, job domain.RenderJob) error
}

// Spooler enqueues a document on a printer.
type Spooler interface {
	Dispatch(ctx context.Context, document, printer string) error
}

// Locker serializes jobs that share the fixed data and output paths.
type Locker interface {
	Lock(ctx context.Context) (unlock func(), err error)
}

// Service runs print jobs.
type Service struct {
	cfg      config.LabelConfig
	lockWait time.Duration
	renderer Renderer
	spooler  Spooler
	locker   Locker
}

// NewService wires the pipeline. A nil locker falls back to an in-process
// lock. Relative label paths are resolved against the working directory.
func NewService(cfg config.LabelConfig, lockWait time.Duration, renderer Renderer, spooler Spooler, locker Locker) *Service {
	if locker == nil {
		locker = lock.NewLocal()
	}
	if abs, err := cfg.WithAbsPaths(); err == nil {
		cfg = abs
	} else {
		logging.Warn("Keeping relative label paths", "base_dir", cfg.BaseDir, "error", err)
	}
	return &Service{
		cfg:      cfg,
		lockWait: lockWait,
		renderer: renderer,
		spooler:  spooler,
		locker:   locker,
	}
}

// Submit runs one print job to completion. It returns nil once the spooler
// has accepted the document, domain.ErrInvalidRequest for bad input,
// domain.ErrJobBusy when the printer stays locked, or a *domain.StageError
// naming the failed step. No step is retried and nothing is printed after a
// render failure.
func (s *Service) Submit(ctx context.Context, req domain.PrintRequest) error {
	data, err := domain.Normalize(req, s.cfg.AllowBlankText)
	if err != nil {
		return err
	}

	ws, err := s.prepareWorkspace()
	if err != nil {
		return &domain.StageError{Stage: domain.StageDataWrite, Err: err}
	}
	defer ws.release()

	if !ws.isolated {
		unlock, err := s.acquire(ctx)
		if err != nil {
			return err
		}
		defer unlock()
	}

	if err := writeData(ws.job.Data, data); err != nil {
		return &domain.StageError{Stage: domain.StageDataWrite, Err: err}
	}

	if err := s.renderer.Render(ctx, ws.job); err != nil {
		return asStageError(domain.StageRender, err)
	}

	printer := s.cfg.PrinterName
	if printer == "" {
		printer = config.DefaultPrinterName
	}
	if err := s.spooler.Dispatch(ctx, ws.job.Output, printer); err != nil {
		return asStageError(domain.StagePrint, err)
	}

	logging.Info("Label queued", "job_id", ws.id, "printer", printer, "label_text", data.Grocery, "isolated", ws.isolated)
	return nil
}

func (s *Service) acquire(ctx context.Context) (func(), error) {
	if s.lockWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.lockWait)
		defer cancel()
	}
	return s.locker.Lock(ctx)
}

// writeData replaces the data file with the YAML form of data.
func writeData(path string, data domain.RenderData) error {
	b, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode label data: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return err
	}
	return nil
}

func asStageError(stage domain.Stage, err error) error {
	var se *domain.StageError
	if errors.As(err, &se) {
		return se
	}
	return &domain.StageError{Stage: stage, Err: err}
}
