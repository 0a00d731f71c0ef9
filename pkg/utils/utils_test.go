package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write(content)
	_ = w.Close()

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func TestUniqueImageName(t *testing.T) {
	u := New(0)

	tests := map[string]string{
		"car.JPG":      ".jpg",
		"scan.png":     ".png",
		"no-extension": ".jpg",
		"payload.exe":  ".jpg",
		"../../x.tiff": ".tiff",
	}
	for in, wantExt := range tests {
		got := u.UniqueImageName(in)
		if filepath.Ext(got) != wantExt {
			t.Fatalf("%q: expected extension %s, got %q", in, wantExt, got)
		}
		if strings.ContainsAny(got, `/\`) {
			t.Fatalf("%q: generated name must not contain separators, got %q", in, got)
		}
	}

	if u.UniqueImageName("a.jpg") == u.UniqueImageName("a.jpg") {
		t.Fatal("expected distinct names for repeated uploads")
	}
}

func TestSaveUploadedFile(t *testing.T) {
	u := New(0)
	content := []byte("not really a jpeg")
	dst := filepath.Join(t.TempDir(), "nested", "img.jpg")

	digest, size, err := u.SaveUploadedFile(fileHeader(t, "img.jpg", content), dst)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	sum := sha256.Sum256(content)
	if digest != hex.EncodeToString(sum[:]) {
		t.Fatalf("unexpected digest %s", digest)
	}
	if size != int64(len(content)) {
		t.Fatalf("unexpected size %d", size)
	}
	if got, _ := os.ReadFile(dst); !bytes.Equal(got, content) {
		t.Fatalf("unexpected file content %q", got)
	}

	if _, _, err := u.SaveUploadedFile(fileHeader(t, "img.jpg", content), dst); err == nil {
		t.Fatal("expected an existing destination to be refused")
	}
}

func TestValidateImageFile(t *testing.T) {
	u := New(4)

	if err := u.ValidateImageFile(nil); err == nil {
		t.Fatal("expected error for nil file")
	}
	if err := u.ValidateImageFile(fileHeader(t, "a.jpg", []byte("ok"))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := u.ValidateImageFile(fileHeader(t, "a.jpg", []byte("too big"))); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

func TestNewULIDFromTimestamp(t *testing.T) {
	id, err := New(0).NewULIDFromTimestamp(time.Now())
	if err != nil {
		t.Fatalf("ulid: %v", err)
	}
	if len(id) != 26 {
		t.Fatalf("expected 26 char ulid, got %q", id)
	}
}
