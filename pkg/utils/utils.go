package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var ErrFileTooLarge = errors.New("file size exceeds limit")

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
	".gif":  true,
	".webp": true,
}

type IUtils interface {
	NewULIDFromTimestamp(t time.Time) (string, error)
	ValidateImageFile(file *multipart.FileHeader) error
	UniqueImageName(originalName string) string
	SaveUploadedFile(file *multipart.FileHeader, dst string) (string, int64, error)
}

type utils struct {
	maxFileSize int64
}

func New(maxFileSize int64) IUtils {
	if maxFileSize <= 0 {
		maxFileSize = 10 * 1024 * 1024
	}
	return &utils{
		maxFileSize: maxFileSize,
	}
}

func (u *utils) NewULIDFromTimestamp(t time.Time) (string, error) {
	ms := ulid.Timestamp(t)
	entropy := ulid.Monotonic(rand.Reader, 0)

	id, err := ulid.New(ms, entropy)
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func (u *utils) ValidateImageFile(file *multipart.FileHeader) error {
	if file == nil {
		return errors.New("no file uploaded")
	}

	if file.Size > u.maxFileSize {
		return ErrFileTooLarge
	}

	return nil
}

// UniqueImageName keeps a known image extension and falls back to .jpg.
func (u *utils) UniqueImageName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	if !imageExtensions[ext] {
		ext = ".jpg"
	}
	return uuid.NewString() + ext
}

// SaveUploadedFile copies the upload to dst and returns its SHA-256 hex digest
// and size. A partially written dst is removed on failure.
func (u *utils) SaveUploadedFile(file *multipart.FileHeader, dst string) (string, int64, error) {
	src, err := file.Open()
	if err != nil {
		return "", 0, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if dir := filepath.Dir(dst); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", 0, fmt.Errorf("create upload dir: %w", err)
		}
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create %s: %w", dst, err)
	}

	hasher := sha256.New()
	size, copyErr := io.Copy(io.MultiWriter(out, hasher), src)
	closeErr := out.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dst)
		if copyErr != nil {
			return "", 0, fmt.Errorf("write %s: %w", dst, copyErr)
		}
		return "", 0, fmt.Errorf("close %s: %w", dst, closeErr)
	}

	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}
