package recognitionHandler

import (
	"PlateRecognizer/internal/api/recognition"
	contextPkg "PlateRecognizer/pkg/context"
	"PlateRecognizer/pkg/handlerUtil"
	"PlateRecognizer/pkg/log"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *RecognitionHandler) UploadImage(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.uploadTimeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log).WithDebug(h.mode.IsLocal())

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing upload request")

	file, err := h.uploadedFile(ctx)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "upload_image")
	}

	result, err := h.recognitionService.Upload(c, file)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "upload_image")
	}

	resp := recognition.UploadResponse{Plate: result.Plate}
	if h.mode.IsLocal() {
		resp.Debug = result.Debug
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, resp)
}

// uploadedFile returns the multipart "file" part. A part sent without a file
// name is parsed as a plain value, which is reported as an empty file name.
func (h *RecognitionHandler) uploadedFile(ctx *fiber.Ctx) (*multipart.FileHeader, error) {
	form, err := ctx.MultipartForm()
	if err != nil {
		return nil, recognition.ErrNoFile
	}

	if files := form.File["file"]; len(files) > 0 {
		if files[0].Filename == "" {
			return nil, recognition.ErrEmptyFileName
		}
		return files[0], nil
	}

	if _, ok := form.Value["file"]; ok {
		return nil, recognition.ErrEmptyFileName
	}

	return nil, recognition.ErrNoFile
}
