package recognitionService

import (
	"PlateRecognizer/internal/api/recognition"
	"PlateRecognizer/internal/entity"
	contextPkg "PlateRecognizer/pkg/context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *recognitionService) ListPlates(ctx context.Context, query recognition.ListPlatesQuery) ([]entity.Plate, error) {
	requestID := contextPkg.GetRequestID(ctx)

	filter, err := plateFilter(query)
	if err != nil {
		return nil, err
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return nil, err
	}

	plates, err := repo.Plates.ListPlates(ctx, filter)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"limit":      filter.Limit,
			"offset":     filter.Offset,
			"plates":     len(filter.Plates),
			"error":      err.Error(),
		}).Error("Failed to list plates")
		return nil, err
	}

	return plates, nil
}

// plateFilter checks pagination and turns the raw query into repository
// bounds. Space separated plate lists are split and duplicates dropped.
func plateFilter(query recognition.ListPlatesQuery) (recognition.PlateFilter, error) {
	filter := recognition.PlateFilter{Limit: query.Limit, Offset: query.Offset}
	if query.Limit < 1 || query.Limit > recognition.MaxListLimit || query.Offset < 0 {
		return filter, recognition.ErrInvalidPagination
	}

	seen := make(map[string]struct{})
	for _, raw := range query.Plates {
		for _, plate := range strings.Fields(raw) {
			if _, ok := seen[plate]; ok {
				continue
			}
			seen[plate] = struct{}{}
			filter.Plates = append(filter.Plates, plate)
		}
	}
	if len(filter.Plates) > recognition.MaxPlateFilters {
		return filter, recognition.ErrTooManyPlates
	}

	var err error
	if filter.From, err = parseBound(query.From); err != nil {
		return filter, recognition.ErrInvalidTimeRange
	}
	if filter.To, err = parseBound(query.To); err != nil {
		return filter, recognition.ErrInvalidTimeRange
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return filter, recognition.ErrInvalidTimeRange
	}

	return filter, nil
}

func parseBound(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *recognitionService) GetPlate(ctx context.Context, id int64) (entity.Plate, error) {
	requestID := contextPkg.GetRequestID(ctx)

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return entity.Plate{}, err
	}

	plate, err := repo.Plates.GetPlateByID(ctx, id)
	if err != nil {
		if errors.Is(err, recognition.ErrPlateNotFound) {
			return entity.Plate{}, err
		}
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"id":         id,
			"error":      err.Error(),
		}).Error("Failed to get plate")
		return entity.Plate{}, err
	}

	return plate, nil
}
