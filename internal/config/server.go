package config

import (
	"PlateRecognizer/database"
	recognitionHandler "PlateRecognizer/internal/api/recognition/handler"
	recognitionRepository "PlateRecognizer/internal/api/recognition/repository"
	recognitionService "PlateRecognizer/internal/api/recognition/service"
	"PlateRecognizer/internal/middleware"
	"PlateRecognizer/pkg/alpr"
	"PlateRecognizer/pkg/metrics"
	"PlateRecognizer/pkg/minio"
	"PlateRecognizer/pkg/mqtt"
	"PlateRecognizer/pkg/redis"
	"PlateRecognizer/pkg/s3"
	"PlateRecognizer/pkg/utils"
	websocketPkg "PlateRecognizer/pkg/websocket"
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	cfg        *Config
	db         *sqlx.DB
	log        *logrus.Logger
	middleware middleware.Middleware
	validator  *validator.Validate
	utils      utils.IUtils
	handlers   []handler
	recognizer alpr.Recognizer
	blobStore  recognitionService.BlobStore
	redis      redis.IRedis
	publisher  mqtt.IPublisher
	hub        websocketPkg.IHub
	metrics    metrics.IMetrics
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if server.recognizer == nil {
		return nil, fmt.Errorf("recognizer is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithConfig(cfg *Config) ServerOption {
	return func(s *Server) error {
		s.cfg = cfg
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

// WithDatabase opens SQLite in local mode and the configured networked
// database otherwise.
func WithDatabase() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil {
			return fmt.Errorf("config must be set before database")
		}

		opts := database.Options{
			Driver:   s.cfg.Database.Driver,
			Host:     s.cfg.Database.Host,
			Port:     s.cfg.Database.Port,
			User:     s.cfg.Database.User,
			Password: s.cfg.Database.Password,
			Name:     s.cfg.Database.Name,
		}
		if s.cfg.Mode.IsLocal() {
			opts = database.Options{Driver: database.DriverSQLite, SQLitePath: s.cfg.Database.SQLitePath}
		}

		db, err := database.New(context.Background(), opts)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}

		if s.log != nil {
			s.log.WithField("driver", opts.Driver).Info("Database ready")
		}
		s.db = db
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		var opts middleware.Options
		if s.cfg != nil {
			opts = middleware.Options{RPS: s.cfg.Limit.RPS, Burst: s.cfg.Limit.Burst}
		}
		s.middleware = middleware.New(s.log, opts)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		var maxBytes int64
		if s.cfg != nil {
			maxBytes = s.cfg.Upload.MaxBytes
		}
		s.utils = utils.New(maxBytes)
		return nil
	}
}

func WithRecognizer(recognizer alpr.Recognizer) ServerOption {
	return func(s *Server) error {
		s.recognizer = recognizer
		return nil
	}
}

// WithBlobStore connects the image store used in cloud mode. It is a no-op in
// local mode.
func WithBlobStore() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil {
			return fmt.Errorf("config must be set before blob store")
		}
		if s.cfg.Mode.IsLocal() {
			return nil
		}

		blob := s.cfg.Blob
		switch blob.Provider {
		case "minio":
			store, err := minio.New(minio.Options{
				Endpoint:  blob.MinioEndpoint,
				AccessKey: blob.AccessKeyID,
				SecretKey: blob.SecretAccessKey,
				Bucket:    blob.Bucket,
				Region:    blob.Region,
				UseSSL:    blob.MinioUseSSL,
			}, s.log)
			if err != nil {
				return fmt.Errorf("failed to create MinIO client: %w", err)
			}
			s.blobStore = store
		default:
			client, err := s3.New(s3.Options{
				Region:          blob.Region,
				Bucket:          blob.Bucket,
				AccessKeyID:     blob.AccessKeyID,
				SecretAccessKey: blob.SecretAccessKey,
			}, s.log)
			if err != nil {
				return fmt.Errorf("failed to create S3 client: %w", err)
			}
			s.blobStore = client
		}

		return nil
	}
}

// WithRedisServer enables the recognition cache when an address is set.
// Connection failures disable the cache instead of aborting startup.
func WithRedisServer() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil || s.cfg.Redis.Address == "" {
			return nil
		}

		client, err := redis.New(redis.Options{
			Address:  s.cfg.Redis.Address,
			Password: s.cfg.Redis.Password,
			DB:       s.cfg.Redis.DB,
		}, s.log)
		if err != nil {
			s.log.Warnf("Recognition cache disabled: %v", err)
			return nil
		}
		s.redis = client
		return nil
	}
}

// WithMQTTPublisher enables plate events when a broker host is set.
// Connection failures disable publishing instead of aborting startup.
func WithMQTTPublisher() ServerOption {
	return func(s *Server) error {
		if s.cfg == nil || s.cfg.MQTT.Host == "" {
			return nil
		}

		publisher, err := mqtt.New(mqtt.Options{
			Host:     s.cfg.MQTT.Host,
			Port:     s.cfg.MQTT.Port,
			Username: s.cfg.MQTT.Username,
			Password: s.cfg.MQTT.Password,
			ClientID: s.cfg.MQTT.ClientID,
		}, s.log)
		if err != nil {
			s.log.Warnf("Plate event publishing disabled: %v", err)
			return nil
		}
		s.publisher = publisher
		return nil
	}
}

func WithWebSocketHub(hub websocketPkg.IHub) ServerOption {
	return func(s *Server) error {
		s.hub = hub
		return nil
	}
}

func WithMetrics(m metrics.IMetrics) ServerOption {
	return func(s *Server) error {
		s.metrics = m
		return nil
	}
}

func (s *Server) RegisterHandler() {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware)

	if s.hub == nil {
		s.hub = websocketPkg.NewHub(s.log)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	options := []recognitionService.Option{
		recognitionService.WithHub(s.hub),
		recognitionService.WithMetrics(s.metrics),
	}
	if s.blobStore != nil {
		options = append(options, recognitionService.WithBlobStore(s.blobStore))
	}
	if s.redis != nil {
		options = append(options, recognitionService.WithCache(s.redis))
	}
	if s.publisher != nil {
		options = append(options, recognitionService.WithPublisher(s.publisher))
	}

	// Recognition Domain
	recognitionRepo := recognitionRepository.New(s.db, s.log)
	recognitionServices := recognitionService.NewRecognitionService(s.log, recognitionService.Options{
		Mode:       s.cfg.Mode,
		UploadDir:  s.cfg.Upload.Dir,
		CacheTTL:   s.cfg.Redis.TTL,
		EventTopic: s.cfg.MQTT.Topic,
	}, recognitionRepo, s.recognizer, s.utils, options...)
	recognitionHandlers := recognitionHandler.New(s.log, s.validator, s.middleware, recognitionServices, s.hub, s.cfg.Mode, s.cfg.ALPR.Timeout)

	s.setupHealthCheck()
	s.engine.Get("/metrics", adaptor.HTTPHandler(s.metrics.Handler()))
	s.handlers = append(s.handlers, recognitionHandlers)
}

func (s *Server) Run() error {
	for _, h := range s.handlers {
		h.Start(s.engine)
	}

	port := s.cfg.AppPort
	if port == "" {
		port = "5000"
	}

	s.log.WithFields(logrus.Fields{
		"port": port,
		"mode": s.cfg.Mode,
	}).Info("Starting HTTP server")

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting requests and releases every collaborator.
func (s *Server) Shutdown(timeout time.Duration) error {
	err := s.engine.ShutdownWithTimeout(timeout)

	if s.hub != nil {
		s.hub.CloseConnections()
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.redis != nil {
		if cerr := s.redis.Close(); cerr != nil {
			s.log.Warnf("Failed to close redis: %v", cerr)
		}
	}
	if s.db != nil {
		if cerr := s.db.Close(); cerr != nil {
			s.log.Warnf("Failed to close database: %v", cerr)
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
