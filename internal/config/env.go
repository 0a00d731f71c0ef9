package config

import (
	"PlateRecognizer/internal/entity"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string `validate:"required,numeric"`
	AppEnv  string
	Mode    entity.DeploymentMode `validate:"required,oneof=local cloud"`

	Log      LogConfig
	ALPR     ALPRConfig
	Upload   UploadConfig
	Database DatabaseConfig
	Blob     BlobConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Limit    RateLimitConfig
}

type LogConfig struct {
	Level string `validate:"required,oneof=trace debug info warn warning error fatal panic"`
	File  string
}

type ALPRConfig struct {
	Country       string `validate:"required"`
	ConfigFile    string
	BundledDir    string
	Timeout       time.Duration `validate:"gt=0"`
	TopN          int           `validate:"gte=1,lte=100"`
	ExtraArgs     string
	MaxConcurrent int `validate:"gte=0"`
}

type UploadConfig struct {
	Dir      string `validate:"required"`
	MaxBytes int64  `validate:"gt=0"`
}

type DatabaseConfig struct {
	SQLitePath string
	Driver     string `validate:"required,oneof=mysql postgres"`
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
}

type BlobConfig struct {
	Provider        string `validate:"required,oneof=s3 minio"`
	Region          string
	Bucket          string `validate:"required"`
	AccessKeyID     string
	SecretAccessKey string
	MinioEndpoint   string
	MinioUseSSL     bool
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type MQTTConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string
	Topic    string
}

type RateLimitConfig struct {
	RPS   float64 `validate:"gt=0"`
	Burst int     `validate:"gt=0"`
}

// Load reads an optional .env file, then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	mode := entity.CloudMode
	if strings.EqualFold(os.Getenv("LOCAL_MODE"), "true") {
		mode = entity.LocalMode
	}

	defaultLevel := "info"
	if mode.IsLocal() {
		defaultLevel = "debug"
	}

	cfg := &Config{
		AppPort: getenv("APP_PORT", "5000"),
		AppEnv:  getenv("APP_ENV", "production"),
		Mode:    mode,
		Log: LogConfig{
			Level: strings.ToLower(getenv("LOG_LEVEL", defaultLevel)),
			File:  getenv("LOG_FILE", filepath.Join("logs", "app.log")),
		},
		ALPR: ALPRConfig{
			Country:       getenv("ALPR_COUNTRY", "eu"),
			ConfigFile:    os.Getenv("OPENALPR_CONFIG_FILE"),
			BundledDir:    os.Getenv("ALPR_BUNDLED_DIR"),
			Timeout:       time.Duration(getenvInt("ALPR_TIMEOUT_SECONDS", 20)) * time.Second,
			TopN:          getenvInt("ALPR_TOP_N", 5),
			ExtraArgs:     os.Getenv("ALPR_EXTRA_ARGS"),
			MaxConcurrent: getenvInt("ALPR_MAX_CONCURRENT", 0),
		},
		Upload: UploadConfig{
			Dir:      getenv("UPLOAD_DIR", "uploads"),
			MaxBytes: int64(getenvInt("MAX_UPLOAD_BYTES", 10*1024*1024)),
		},
		Database: DatabaseConfig{
			SQLitePath: getenv("SQLITE_PATH", "local.db"),
			Driver:     strings.ToLower(getenv("DB_DRIVER", "mysql")),
			Host:       getenv("DB_HOST", "localhost"),
			Port:       os.Getenv("DB_PORT"),
			User:       getenv("DB_USER", "root"),
			Password:   getenv("DB_PASSWORD", "root"),
			Name:       getenv("DB_NAME", "license_plates_db"),
		},
		Blob: BlobConfig{
			Provider:        strings.ToLower(getenv("BLOB_PROVIDER", "s3")),
			Region:          getenv("AWS_REGION", "eu-central-1"),
			Bucket:          getenv("S3_BUCKET", "license-plates-images-bucket"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			MinioEndpoint:   getenv("MINIO_ENDPOINT", "localhost:9000"),
			MinioUseSSL:     getenv("MINIO_USE_SSL", "false") == "true",
		},
		Redis: RedisConfig{
			Address:  os.Getenv("REDIS_ADDRESS"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getenvInt("REDIS_DB", 0),
			TTL:      getenvDuration("RECOGNITION_CACHE_TTL", 24*time.Hour),
		},
		MQTT: MQTTConfig{
			Host:     os.Getenv("MQTT_HOST"),
			Port:     getenvInt("MQTT_PORT", 1883),
			Username: os.Getenv("MQTT_USERNAME"),
			Password: os.Getenv("MQTT_PASSWORD"),
			ClientID: getenv("MQTT_CLIENT_ID", "plate-recognizer"),
			Topic:    getenv("MQTT_TOPIC", "alpr/plates"),
		},
		Limit: RateLimitConfig{
			RPS:   getenvFloat("RATE_LIMIT_RPS", 10),
			Burst: getenvInt("RATE_LIMIT_BURST", 20),
		},
	}

	if cfg.Blob.Provider == "minio" {
		cfg.Blob.AccessKeyID = getenv("MINIO_ACCESS_KEY", cfg.Blob.AccessKeyID)
		cfg.Blob.SecretAccessKey = getenv("MINIO_SECRET_KEY", cfg.Blob.SecretAccessKey)
	}

	if err := NewValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func NewValidator() *validator.Validate {
	return validator.New()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
