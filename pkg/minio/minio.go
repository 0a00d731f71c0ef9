package minio

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Store uploads images to an S3 compatible server.
type Store struct {
	client *minio.Client
	bucket string
	useSSL bool
	log    *logrus.Logger
}

func New(opts Options, log *logrus.Logger) (*Store, error) {
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, fmt.Errorf("minio access key / secret key not configured")
	}

	cli, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := cli.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", opts.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{Region: opts.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", opts.Bucket, err)
		}
	}

	log.WithFields(logrus.Fields{
		"endpoint": opts.Endpoint,
		"bucket":   opts.Bucket,
	}).Info("Connected to MinIO")

	return &Store{client: cli, bucket: opts.Bucket, useSSL: opts.UseSSL, log: log}, nil
}

func (s *Store) UploadFile(ctx context.Context, localPath string, key string) (string, error) {
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "image/jpeg"
	}

	if _, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return "", fmt.Errorf("upload %s to minio bucket %s: %w", key, s.bucket, err)
	}

	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	location := fmt.Sprintf("%s://%s/%s/%s", scheme, s.client.EndpointURL().Host, s.bucket, key)

	s.log.WithFields(logrus.Fields{
		"bucket":   s.bucket,
		"key":      key,
		"location": location,
	}).Info("Uploaded image to MinIO")

	return location, nil
}

func (s *Store) DeleteFile(ctx context.Context, key string) error {
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}
