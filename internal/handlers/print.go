package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"labelprint/internal/domain"
	u "labelprint/internal/infra/logging"
)

// Submitter runs a print job.
type Submitter interface {
	Submit(ctx context.Context, req domain.PrintRequest) error
}

// PrintHandler serves POST /print.
type PrintHandler struct {
	Service Submitter
	// ExposeDiagnostics includes external tool output in error responses.
	ExposeDiagnostics bool
}

// NewPrintHandler creates a PrintHandler.
func NewPrintHandler(svc Submitter, exposeDiagnostics bool) *PrintHandler {
	return &PrintHandler{Service: svc, ExposeDiagnostics: exposeDiagnostics}
}

// HandlePrint decodes the request, runs the pipeline and answers "queued"
// once the spooler accepted the job.
func (h *PrintHandler) HandlePrint(c *fiber.Ctx) error {
	var req domain.PrintRequest
	if err := c.App().Config().JSONDecoder(c.Body(), &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body: "+err.Error())
	}

	requestID := c.GetRespHeader(fiber.HeaderXRequestID)

	if err := h.Service.Submit(c.UserContext(), req); err != nil {
		return h.mapError(err, requestID)
	}

	u.Info("Print job queued", "request_id", requestID)
	return c.Status(fiber.StatusOK).SendString("queued")
}

func (h *PrintHandler) mapError(err error, requestID string) error {
	var se *domain.StageError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrJobBusy):
		u.Warn("Printer busy", "request_id", requestID, "error", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "Printer busy, try again later")
	case errors.As(err, &se):
		u.Error("Print job failed",
			"request_id", requestID,
			"stage", string(se.Stage),
			"tool", se.Tool,
			"exit_code", se.ExitCode,
			"timeout", se.Timeout,
			"output", se.Output,
			"error", err,
		)
		if h.ExposeDiagnostics {
			return fiber.NewError(fiber.StatusInternalServerError, se.Error())
		}
		return fiber.NewError(fiber.StatusInternalServerError, se.Summary())
	}

	u.Error("Print job failed", "request_id", requestID, "error", err)
	if h.ExposeDiagnostics {
		return fiber.NewError(fiber.StatusInternalServerError, "Print job failed: "+err.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "Print job failed")
}
