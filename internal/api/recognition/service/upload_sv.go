package recognitionService

import (
	"PlateRecognizer/internal/api/recognition"
	"PlateRecognizer/internal/entity"
	"PlateRecognizer/pkg/alpr"
	contextPkg "PlateRecognizer/pkg/context"
	"PlateRecognizer/pkg/metrics"
	"PlateRecognizer/pkg/redis"
	"PlateRecognizer/pkg/utils"
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const blobCleanupTimeout = 10 * time.Second

func (s *recognitionService) Upload(ctx context.Context, file *multipart.FileHeader) (*recognition.UploadResult, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if file == nil {
		return nil, recognition.ErrNoFile
	}
	if file.Filename == "" {
		return nil, recognition.ErrEmptyFileName
	}
	if err := s.utils.ValidateImageFile(file); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"size":       file.Size,
			"error":      err.Error(),
		}).Warn("Rejected upload")
		if errors.Is(err, utils.ErrFileTooLarge) {
			return nil, recognition.ErrFileTooLarge
		}
		return nil, recognition.ErrNoFile
	}

	name := s.utils.UniqueImageName(file.Filename)
	local := s.opts.Mode.IsLocal()

	dir := s.opts.TempDir
	if local {
		dir = s.opts.UploadDir
	}
	imagePath := filepath.Join(dir, name)

	digest, size, err := s.utils.SaveUploadedFile(file, imagePath)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"path":       imagePath,
			"error":      err.Error(),
		}).Error("Failed to store uploaded image")
		return nil, recognition.ErrStoreImage
	}
	if !local {
		defer func() {
			if err := os.Remove(imagePath); err != nil && !os.IsNotExist(err) {
				s.log.WithFields(logrus.Fields{
					"request_id": requestID,
					"path":       imagePath,
					"error":      err.Error(),
				}).Warn("Failed to remove temp image")
			}
		}()
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"path":       imagePath,
		"size":       size,
		"local_mode": local,
	}).Info("Image stored")

	var blobKey string
	if !local && s.blob != nil {
		location, err := s.blob.UploadFile(ctx, imagePath, name)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"key":        name,
				"error":      err.Error(),
			}).Error("Failed to upload image to blob storage")
			return nil, recognition.ErrStoreImage
		}
		blobKey = name
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"location":   location,
		}).Info("Image uploaded to blob storage")
	}

	saved := false
	if blobKey != "" {
		defer func() {
			if !saved {
				s.discardBlob(requestID, blobKey)
			}
		}()
	}

	plate, debug, err := s.recognize(ctx, requestID, imagePath, digest)
	if err != nil {
		return nil, err
	}

	var storedPath *string
	if local {
		storedPath = &imagePath
	}

	record := entity.Plate{
		PlateNumber: plate,
		Timestamp:   time.Now().UTC(),
		ImagePath:   storedPath,
	}

	id, err := s.savePlate(ctx, record)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"plate":      plate,
			"error":      err.Error(),
		}).Error("Failed to save plate record")
		return nil, recognition.ErrSavePlate
	}
	saved = true
	s.metrics.ObservePlateSaved()

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"id":         id,
		"plate":      plate,
	}).Info("Plate record saved")

	s.publish(requestID, entity.PlateEvent{
		ID:        id,
		Plate:     plate,
		Timestamp: record.Timestamp,
		ImagePath: storedPath,
		BlobKey:   blobKey,
		Cached:    debug.Cached,
	})

	return &recognition.UploadResult{
		ID:        id,
		Plate:     plate,
		ImagePath: storedPath,
		BlobKey:   blobKey,
		Cached:    debug.Cached,
		Debug:     debug,
	}, nil
}

// recognize consults the result cache before running the engine. The
// returned debug payload is never nil.
func (s *recognitionService) recognize(ctx context.Context, requestID, imagePath, digest string) (string, *recognition.Debug, error) {
	cacheKey := fmt.Sprintf("alpr:%s:%s", s.recognizer.Country(), digest)

	if cached, ok := s.cached(ctx, requestID, cacheKey); ok {
		s.metrics.ObserveRecognition(metrics.OutcomeCached, 0)
		debug := s.baseDebug()
		debug.Cached = true
		debug.Results = cached.Candidates
		if debug.Results == nil {
			debug.Results = []alpr.Candidate{}
		}
		return cached.Plate, debug, nil
	}

	start := time.Now()
	result, err := s.recognizer.Recognize(ctx, imagePath)
	elapsed := time.Since(start)
	if result == nil {
		result = &alpr.Result{ReturnCode: -1, Plate: alpr.UnknownPlate}
	}
	debug := debugFromResult(result)
	if debug.AlprPath == "" && debug.Country == "" {
		base := s.baseDebug()
		debug.AlprPath, debug.ConfigFile, debug.Country = base.AlprPath, base.ConfigFile, base.Country
	}

	if err != nil {
		debug.Cause = err.Error()
		switch {
		case errors.Is(err, alpr.ErrConfiguration):
			s.metrics.ObserveRecognition(metrics.OutcomeNotFound, 0)
			return "", debug, recognition.WithDebug(fmt.Errorf("%w: %w", recognition.ErrEngineNotFound, err), debug)
		case errors.Is(err, alpr.ErrTimeout):
			s.metrics.ObserveRecognition(metrics.OutcomeTimeout, elapsed)
			return "", debug, recognition.WithDebug(fmt.Errorf("%w: %w", recognition.ErrEngineTimeout, err), debug)
		default:
			s.metrics.ObserveRecognition(metrics.OutcomeInvocation, elapsed)
			return "", debug, recognition.WithDebug(fmt.Errorf("%w: %w", recognition.ErrInvocationFailed, err), debug)
		}
	}

	if err := result.Err(); err != nil {
		s.metrics.ObserveRecognition(metrics.OutcomeEngineFailed, elapsed)
		rc := result.ReturnCode
		debug.ReturnCode = &rc
		debug.Stdout = result.Stdout
		debug.Stderr = result.Stderr
		return "", debug, recognition.WithDebug(fmt.Errorf("%w: %w", recognition.ErrEngineFailed, err), debug)
	}

	s.metrics.ObserveRecognition(metrics.OutcomeSuccess, elapsed)
	s.store(ctx, requestID, cacheKey, recognition.CachedRecognition{
		Plate:      result.Plate,
		Candidates: result.Candidates,
	})

	return result.Plate, debug, nil
}

func (s *recognitionService) cached(ctx context.Context, requestID, key string) (recognition.CachedRecognition, bool) {
	var out recognition.CachedRecognition
	if s.cache == nil {
		return out, false
	}

	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.ErrCacheMiss) {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"key":        key,
				"error":      err.Error(),
			}).Warn("Recognition cache lookup failed")
		}
		return out, false
	}

	if err := json.Unmarshal([]byte(raw), &out); err != nil || out.Plate == "" {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"key":        key,
		}).Warn("Ignoring malformed cache entry")
		return recognition.CachedRecognition{}, false
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"plate":      out.Plate,
	}).Info("Recognition cache hit")

	return out, true
}

func (s *recognitionService) store(ctx context.Context, requestID, key string, value recognition.CachedRecognition) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, key, string(payload), s.opts.CacheTTL); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"key":        key,
			"error":      err.Error(),
		}).Warn("Recognition cache store failed")
	}
}

func (s *recognitionService) savePlate(ctx context.Context, plate entity.Plate) (int64, error) {
	repo, err := s.repo.NewClient(true)
	if err != nil {
		return 0, err
	}
	defer repo.Rollback()

	id, err := repo.Plates.CreatePlate(ctx, plate)
	if err != nil {
		return 0, err
	}

	if err := repo.Commit(); err != nil {
		return 0, err
	}

	return id, nil
}

func (s *recognitionService) discardBlob(requestID, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), blobCleanupTimeout)
	defer cancel()

	if err := s.blob.DeleteFile(ctx, key); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"key":        key,
			"error":      err.Error(),
		}).Warn("Failed to remove orphaned blob")
	}
}

func (s *recognitionService) publish(requestID string, event entity.PlateEvent) {
	if s.hub != nil {
		s.hub.Broadcast(event)
	}

	if s.publisher == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	if err := s.publisher.Publish(s.opts.EventTopic, payload); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"topic":      s.opts.EventTopic,
			"error":      err.Error(),
		}).Warn("Failed to publish plate event")
	}
}

func (s *recognitionService) baseDebug() *recognition.Debug {
	res := s.recognizer.Resolution()
	return &recognition.Debug{
		Country:    s.recognizer.Country(),
		AlprPath:   res.BinaryPath,
		ConfigFile: res.ConfigPath,
		Results:    []alpr.Candidate{},
	}
}

func debugFromResult(result *alpr.Result) *recognition.Debug {
	debug := &recognition.Debug{
		AlprPath:   result.BinaryPath,
		ConfigFile: result.ConfigPath,
		Country:    result.Country,
		DurationMs: result.DurationMs,
		Results:    result.Candidates,
	}
	if debug.Results == nil {
		debug.Results = []alpr.Candidate{}
	}
	return debug
}
