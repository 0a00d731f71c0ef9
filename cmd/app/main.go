package main

import (
	"PlateRecognizer/internal/config"
	"PlateRecognizer/pkg/alpr"
	"PlateRecognizer/pkg/log"
	"PlateRecognizer/pkg/metrics"
	websocketPkg "PlateRecognizer/pkg/websocket"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Error loading configuration: %v", err)
	}

	logger := log.NewLogger(log.Options{
		Level: cfg.Log.Level,
		File:  cfg.Log.File,
	})

	recognizer, err := alpr.NewService(alpr.Options{
		BundledDir:     cfg.ALPR.BundledDir,
		ConfigOverride: cfg.ALPR.ConfigFile,
		Country:        cfg.ALPR.Country,
		Timeout:        cfg.ALPR.Timeout,
		TopN:           cfg.ALPR.TopN,
		ExtraArgs:      cfg.ALPR.ExtraArgs,
		MaxConcurrent:  cfg.ALPR.MaxConcurrent,
	}, logger)
	if err != nil {
		logger.Fatal(err)
	}

	fiberApp := config.NewFiber(logger, cfg)
	validator := config.NewValidator()
	hub := websocketPkg.NewHub(logger)

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithConfig(cfg),
		config.WithValidator(validator),
		config.WithDatabase(),
		config.WithMiddleware(),
		config.WithUtils(),
		config.WithRecognizer(recognizer),
		config.WithBlobStore(),
		config.WithRedisServer(),
		config.WithMQTTPublisher(),
		config.WithWebSocketHub(hub),
		config.WithMetrics(metrics.New()),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(shutdownTimeout); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
