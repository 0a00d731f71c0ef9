package recognitionService

import (
	"PlateRecognizer/internal/api/recognition"
	recognitionRepository "PlateRecognizer/internal/api/recognition/repository"
	"PlateRecognizer/internal/entity"
	"PlateRecognizer/pkg/alpr"
	"PlateRecognizer/pkg/metrics"
	"PlateRecognizer/pkg/mqtt"
	"PlateRecognizer/pkg/redis"
	"PlateRecognizer/pkg/utils"
	websocketPkg "PlateRecognizer/pkg/websocket"
	"mime/multipart"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IRecognitionService interface {
	Upload(ctx context.Context, file *multipart.FileHeader) (*recognition.UploadResult, error)
	ListPlates(ctx context.Context, query recognition.ListPlatesQuery) ([]entity.Plate, error)
	GetPlate(ctx context.Context, id int64) (entity.Plate, error)
}

// BlobStore is satisfied by the S3 and MinIO clients.
type BlobStore interface {
	UploadFile(ctx context.Context, localPath string, key string) (string, error)
	DeleteFile(ctx context.Context, key string) error
}

type Options struct {
	Mode       entity.DeploymentMode
	UploadDir  string
	TempDir    string
	CacheTTL   time.Duration
	EventTopic string
}

type recognitionService struct {
	log        *logrus.Logger
	opts       Options
	repo       recognitionRepository.Repository
	recognizer alpr.Recognizer
	blob       BlobStore
	cache      redis.IRedis
	publisher  mqtt.IPublisher
	hub        websocketPkg.IHub
	metrics    metrics.IMetrics
	utils      utils.IUtils
}

type Option func(*recognitionService)

func WithBlobStore(blob BlobStore) Option {
	return func(s *recognitionService) { s.blob = blob }
}

func WithCache(cache redis.IRedis) Option {
	return func(s *recognitionService) { s.cache = cache }
}

func WithPublisher(publisher mqtt.IPublisher) Option {
	return func(s *recognitionService) { s.publisher = publisher }
}

func WithHub(hub websocketPkg.IHub) Option {
	return func(s *recognitionService) { s.hub = hub }
}

func WithMetrics(m metrics.IMetrics) Option {
	return func(s *recognitionService) { s.metrics = m }
}

func NewRecognitionService(
	log *logrus.Logger,
	opts Options,
	repo recognitionRepository.Repository,
	recognizer alpr.Recognizer,
	utils utils.IUtils,
	options ...Option,
) IRecognitionService {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.UploadDir == "" {
		opts.UploadDir = "uploads"
	}

	s := &recognitionService{
		log:        log,
		opts:       opts,
		repo:       repo,
		recognizer: recognizer,
		utils:      utils,
	}
	for _, o := range options {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}

	return s
}
