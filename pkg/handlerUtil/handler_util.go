package handlerUtil

import (
	"PlateRecognizer/internal/api/recognition"
	"PlateRecognizer/pkg/log"
	"PlateRecognizer/pkg/response"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string             `json:"error"`
	TraceID string             `json:"trace_id,omitempty"`
	Debug   *recognition.Debug `json:"debug,omitempty"`
}

type ErrorHandler struct {
	logger      *logrus.Logger
	exposeDebug bool
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// WithDebug makes Handle render recognition diagnostics. Only local
// deployments enable it.
func (h *ErrorHandler) WithDebug(expose bool) *ErrorHandler {
	h.exposeDebug = expose
	return h
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		log.RequestIDKey: requestID,
		"error":          err.Error(),
		"path":           path,
		"operation":      operation,
	}

	var respErr *response.Error
	if !errors.As(err, &respErr) {
		traceID := log.ErrorWithTraceID(h.logger, fields, "Unexpected error")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   response.Message(err),
			TraceID: traceID,
		})
	}

	fields["code"] = respErr.Code
	entry := h.logger.WithFields(fields)
	if respErr.Code >= fiber.StatusInternalServerError {
		entry.Error("Operation failed with error response")
	} else {
		entry.Warn("Operation failed with error response")
	}

	body := ErrorResponse{Error: response.Message(err)}

	var debugErr *recognition.DebugError
	if h.exposeDebug && errors.As(err, &debugErr) && debugErr.Debug != nil {
		body.Debug = debugErr.Debug
	}

	return c.Status(respErr.Code).JSON(body)
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		log.RequestIDKey: requestID,
		"error":          err.Error(),
		"path":           path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
	})
}

func (h *ErrorHandler) HandleRequestTimeout(c *fiber.Ctx) error {
	return c.Status(fiber.StatusRequestTimeout).JSON(ErrorResponse{
		Error: utils.StatusMessage(fiber.StatusRequestTimeout),
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
