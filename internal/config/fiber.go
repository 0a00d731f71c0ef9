package config

import (
	"PlateRecognizer/internal/api/recognition"
	"PlateRecognizer/pkg/response"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// bodyLimitSlack leaves room for multipart framing around the image.
const bodyLimitSlack = 1024 * 1024

func NewFiber(logger *logrus.Logger, cfg *Config) *fiber.App {
	app := fiber.New(
		fiber.Config{
			AppName:          "Plate Recognizer",
			BodyLimit:        int(cfg.Upload.MaxBytes) + bodyLimitSlack,
			DisableKeepalive: false,
			StrictRouting:    true,
			CaseSensitive:    true,
			JSONEncoder:      jsoniter.Marshal,
			JSONDecoder:      jsoniter.Unmarshal,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				// Oversized bodies never reach the upload handler.
				if errors.Is(err, fiber.ErrRequestEntityTooLarge) {
					err = recognition.ErrFileTooLarge
				}

				code := response.StatusCode(err)
				msg := response.Message(err)

				var fe *fiber.Error
				if errors.As(err, &fe) {
					code, msg = fe.Code, fe.Message
				}
				if code >= fiber.StatusInternalServerError {
					logger.WithFields(logrus.Fields{
						"path":  c.Path(),
						"error": err.Error(),
					}).Error("Unhandled error")
				}

				return c.Status(code).JSON(fiber.Map{"error": msg})
			},
		})

	app.Use(recover.New(recover.Config{EnableStackTrace: true}))

	return app
}
