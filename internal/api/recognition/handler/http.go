package recognitionHandler

import (
	recognitionService "PlateRecognizer/internal/api/recognition/service"
	"PlateRecognizer/internal/entity"
	"PlateRecognizer/internal/middleware"
	websocketPkg "PlateRecognizer/pkg/websocket"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const uploadTimeoutMargin = 10 * time.Second

type RecognitionHandler struct {
	log                *logrus.Logger
	validator          *validator.Validate
	middleware         middleware.Middleware
	recognitionService recognitionService.IRecognitionService
	hub                websocketPkg.IHub
	mode               entity.DeploymentMode
	uploadTimeout      time.Duration
}

// New builds the HTTP surface. engineTimeout is the per-run alpr timeout; the
// upload request gets a little longer so storage and persistence can finish.
func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	rs recognitionService.IRecognitionService,
	hub websocketPkg.IHub,
	mode entity.DeploymentMode,
	engineTimeout time.Duration,
) *RecognitionHandler {
	return &RecognitionHandler{
		log:                log,
		validator:          validator,
		middleware:         middleware,
		recognitionService: rs,
		hub:                hub,
		mode:               mode,
		uploadTimeout:      engineTimeout + uploadTimeoutMargin,
	}
}

func (h *RecognitionHandler) Start(srv fiber.Router) {
	srv.Post("/upload", h.middleware.NewRateLimiter, h.UploadImage)

	api := srv.Group("/api")
	api.Post("/upload", h.middleware.NewRateLimiter, h.UploadImage)
	api.Get("/plates", h.ListPlates)
	api.Get("/plates/:id", h.GetPlate)

	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	ws := srv.Group("/ws")
	ws.Use("/plates", wsMiddleware)
	ws.Get("/plates", websocket.New(h.handlePlateFeed))
}
