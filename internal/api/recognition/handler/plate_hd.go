package recognitionHandler

import (
	"PlateRecognizer/internal/api/recognition"
	"PlateRecognizer/internal/entity"
	contextPkg "PlateRecognizer/pkg/context"
	"PlateRecognizer/pkg/handlerUtil"
	"PlateRecognizer/pkg/log"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *RecognitionHandler) ListPlates(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing list plates request")

	query := recognition.ListPlatesQuery{Limit: recognition.DefaultListLimit}
	if err := ctx.QueryParser(&query); err != nil {
		return errHandler.Handle(ctx, requestID, recognition.ErrInvalidPagination, ctx.Path(), "list_plates")
	}
	if err := h.validator.Struct(query); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	plates, err := h.recognitionService.ListPlates(c, query)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_plates")
	}

	resp := recognition.PlateListResponse{
		Plates: make([]recognition.PlateResponse, 0, len(plates)),
		Limit:  query.Limit,
		Offset: query.Offset,
	}
	for _, p := range plates {
		resp.Plates = append(resp.Plates, toPlateResponse(p))
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
	}
}

func (h *RecognitionHandler) GetPlate(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	id, err := strconv.ParseInt(ctx.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("plate ID must be a positive integer"), ctx.Path())
	}

	plate, err := h.recognitionService.GetPlate(c, id)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_plate")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, toPlateResponse(plate))
	}
}

func toPlateResponse(p entity.Plate) recognition.PlateResponse {
	return recognition.PlateResponse{
		ID:          p.ID,
		PlateNumber: p.PlateNumber,
		Timestamp:   p.Timestamp.UTC().Format(time.RFC3339),
		ImagePath:   p.ImagePath,
	}
}
