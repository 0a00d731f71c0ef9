package alpr

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-shellwords"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Recognizer is the contract the HTTP layer depends on. Service is the CLI
// backed implementation.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (*Result, error)
	RecognizeWithTimeout(ctx context.Context, imagePath string, timeout time.Duration) (*Result, error)
	Resolution() Resolution
	Country() string
}

type Options struct {
	BundledDir     string
	ConfigOverride string
	Country        string
	Timeout        time.Duration
	TopN           int
	ExtraArgs      string
	MaxConcurrent  int
}

// Config is the immutable recognition setup computed by NewService.
type Config struct {
	Resolution
	Country       string
	Timeout       time.Duration
	MaxConcurrent int
}

type Service struct {
	cfg     Config
	invoker *Invoker
	sem     *semaphore.Weighted
	log     *logrus.Logger
}

func NewService(opts Options, log *logrus.Logger) (*Service, error) {
	return newService(opts, NewResolver(opts.BundledDir, opts.ConfigOverride), log)
}

func newService(opts Options, resolver *Resolver, log *logrus.Logger) (*Service, error) {
	extra, err := shellwords.Parse(opts.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("parse alpr extra args: %w", err)
	}

	cfg := Config{
		Resolution:    resolver.Resolve(),
		Country:       opts.Country,
		Timeout:       opts.Timeout,
		MaxConcurrent: opts.MaxConcurrent,
	}
	if cfg.Country == "" {
		cfg.Country = DefaultCountry
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &Service{
		cfg:     cfg,
		invoker: &Invoker{TopN: opts.TopN, ExtraArgs: extra},
		log:     log,
	}
	if cfg.MaxConcurrent > 0 {
		s.sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}

	log.WithFields(logrus.Fields{
		"alpr_path":          cfg.BinaryPath,
		"config_file":        cfg.ConfigPath,
		"bundled_dir":        resolver.BundledDir,
		"bundled_dir_exists": cfg.BundledDirExists,
		"country":            cfg.Country,
		"timeout":            cfg.Timeout.String(),
		"max_concurrent":     cfg.MaxConcurrent,
	}).Info("ALPR resolved paths")

	if cfg.BinaryPath == "" {
		log.Warn("ALPR binary not found, recognition requests will fail until restart")
	}

	return s, nil
}

func (s *Service) Resolution() Resolution {
	return s.cfg.Resolution
}

func (s *Service) Country() string {
	return s.cfg.Country
}

func (s *Service) Recognize(ctx context.Context, imagePath string) (*Result, error) {
	return s.RecognizeWithTimeout(ctx, imagePath, s.cfg.Timeout)
}

// RecognizeWithTimeout runs the engine on imagePath. The returned Result is
// never nil, even alongside an error.
func (s *Service) RecognizeWithTimeout(ctx context.Context, imagePath string, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		timeout = s.cfg.Timeout
	}

	if s.cfg.BinaryPath == "" {
		return s.emptyResult(), ErrConfiguration
	}

	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return s.emptyResult(), fmt.Errorf("%w: waiting for slot: %v", ErrInvocation, err)
		}
		defer s.sem.Release(1)
	}

	s.log.WithFields(logrus.Fields{
		"alpr_path": s.cfg.BinaryPath,
		"args":      s.invoker.Args(imagePath, s.cfg.Country),
	}).Info("Invoking ALPR")

	result, err := s.invoker.Invoke(ctx, imagePath, s.cfg.Resolution, s.cfg.Country, timeout)
	if err != nil {
		entry := s.log.WithFields(logrus.Fields{
			"error":       err.Error(),
			"duration_ms": result.DurationMs,
		})
		if errors.Is(err, ErrTimeout) {
			entry.Error("ALPR timed out")
		} else {
			entry.Error("ALPR invocation failed")
		}
		return result, err
	}

	s.log.WithFields(logrus.Fields{
		"duration_ms": result.DurationMs,
		"rc":          result.ReturnCode,
	}).Info("ALPR finished")

	if !result.Succeeded {
		s.log.WithFields(logrus.Fields{
			"rc":     result.ReturnCode,
			"stderr": result.Stderr,
			"stdout": result.Stdout,
		}).Error("ALPR error")
		return result, nil
	}

	s.log.WithField("raw_output", result.Stdout).Debug("ALPR raw output")
	result.Plate, result.Candidates = Parse(result.Stdout)
	if result.Candidates == nil {
		result.Candidates = []Candidate{}
	}
	s.log.WithField("plate", result.Plate).Info("ALPR parsed plate")

	return result, nil
}

func (s *Service) emptyResult() *Result {
	return &Result{
		ReturnCode: -1,
		Plate:      UnknownPlate,
		Candidates: []Candidate{},
		BinaryPath: s.cfg.BinaryPath,
		ConfigPath: s.cfg.ConfigPath,
		Country:    s.cfg.Country,
	}
}
