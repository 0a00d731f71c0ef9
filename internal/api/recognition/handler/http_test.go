package recognitionHandler

import (
	"PlateRecognizer/internal/api/recognition"
	"PlateRecognizer/internal/entity"
	"PlateRecognizer/internal/middleware"
	"PlateRecognizer/pkg/alpr"
	websocketPkg "PlateRecognizer/pkg/websocket"
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type fakeService struct {
	uploadResult *recognition.UploadResult
	uploadErr    error
	uploaded     *multipart.FileHeader
	plates       []entity.Plate
	lastQuery    recognition.ListPlatesQuery
}

func (f *fakeService) Upload(_ context.Context, file *multipart.FileHeader) (*recognition.UploadResult, error) {
	f.uploaded = file
	return f.uploadResult, f.uploadErr
}

func (f *fakeService) ListPlates(_ context.Context, query recognition.ListPlatesQuery) ([]entity.Plate, error) {
	f.lastQuery = query
	return f.plates, nil
}

func (f *fakeService) GetPlate(_ context.Context, id int64) (entity.Plate, error) {
	for _, p := range f.plates {
		if p.ID == id {
			return p, nil
		}
	}
	return entity.Plate{}, recognition.ErrPlateNotFound
}

func newTestApp(t *testing.T, svc *fakeService, mode entity.DeploymentMode) *fiber.App {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	mw := middleware.New(logger, middleware.Options{RPS: 1000, Burst: 1000})
	app := fiber.New()
	app.Use(mw.NewRequestIDMiddleware())

	h := New(logger, validator.New(), mw, svc, websocketPkg.NewHub(logger), mode, 5*time.Second)
	h.Start(app)
	return app
}

func multipartRequest(t *testing.T, path, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename != "" {
		part, err := w.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		_, _ = part.Write(content)
	} else {
		part, err := w.CreatePart(map[string][]string{
			"Content-Disposition": {fmt.Sprintf(`form-data; name=%q; filename=""`, field)},
		})
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		_, _ = part.Write(content)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func debugPayload() *recognition.Debug {
	rc := 1
	return &recognition.Debug{
		Country:    "eu",
		AlprPath:   "/usr/bin/alpr",
		ReturnCode: &rc,
		Stderr:     "boom",
		Results:    []alpr.Candidate{},
	}
}

func TestUploadReturnsPlate(t *testing.T) {
	for _, path := range []string{"/upload", "/api/upload"} {
		svc := &fakeService{uploadResult: &recognition.UploadResult{ID: 1, Plate: "AB123CD", Debug: debugPayload()}}
		app := newTestApp(t, svc, entity.CloudMode)

		resp, err := app.Test(multipartRequest(t, path, "file", "car.jpg", []byte("img")))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.StatusCode)
		}
		if resp.Header.Get(middleware.RequestIDKey) == "" {
			t.Fatalf("%s: expected request id header", path)
		}

		body := decode(t, resp)
		if body["plate"] != "AB123CD" {
			t.Fatalf("%s: unexpected plate %v", path, body["plate"])
		}
		for _, k := range []string{"make", "model", "color"} {
			v, ok := body[k]
			if !ok || v != nil {
				t.Fatalf("%s: expected %s to be null, got %v", path, k, v)
			}
		}
		if _, ok := body["debug"]; ok {
			t.Fatalf("%s: debug must be hidden outside local mode", path)
		}
		if svc.uploaded == nil || svc.uploaded.Filename != "car.jpg" {
			t.Fatalf("%s: service did not receive the file", path)
		}
	}
}

func TestUploadLocalModeIncludesDebug(t *testing.T) {
	svc := &fakeService{uploadResult: &recognition.UploadResult{ID: 1, Plate: "AB123CD", Debug: debugPayload()}}
	app := newTestApp(t, svc, entity.LocalMode)

	resp, err := app.Test(multipartRequest(t, "/upload", "file", "car.jpg", []byte("img")))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	body := decode(t, resp)
	debug, ok := body["debug"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected debug object, got %v", body["debug"])
	}
	if debug["alpr_path"] != "/usr/bin/alpr" || debug["country"] != "eu" {
		t.Fatalf("unexpected debug %v", debug)
	}
}

func TestUploadMissingFile(t *testing.T) {
	app := newTestApp(t, &fakeService{}, entity.CloudMode)

	resp, err := app.Test(multipartRequest(t, "/upload", "other", "car.jpg", []byte("img")))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["error"] != "No file uploaded" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestUploadEmptyFileName(t *testing.T) {
	app := newTestApp(t, &fakeService{}, entity.CloudMode)

	resp, err := app.Test(multipartRequest(t, "/upload", "file", "", []byte("img")))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["error"] != "Empty file name" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestUploadErrorsRenderDebugOnlyLocally(t *testing.T) {
	failure := recognition.WithDebug(fmt.Errorf("%w: %w", recognition.ErrEngineFailed, alpr.ErrEngineFailure), debugPayload())

	tests := []struct {
		mode      entity.DeploymentMode
		wantDebug bool
	}{
		{entity.CloudMode, false},
		{entity.LocalMode, true},
	}

	for _, tt := range tests {
		app := newTestApp(t, &fakeService{uploadErr: failure}, tt.mode)
		resp, err := app.Test(multipartRequest(t, "/upload", "file", "car.jpg", []byte("img")))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", resp.StatusCode)
		}
		body := decode(t, resp)
		if body["error"] != "OpenALPR failed" {
			t.Fatalf("unexpected error message %v", body["error"])
		}
		debug, ok := body["debug"].(map[string]interface{})
		if ok != tt.wantDebug {
			t.Fatalf("mode %s: debug present=%v, want %v", tt.mode, ok, tt.wantDebug)
		}
		if ok && (debug["return_code"] != float64(1) || debug["stderr"] != "boom") {
			t.Fatalf("unexpected debug %v", debug)
		}
	}
}

func TestUploadTimeoutStatus(t *testing.T) {
	failure := recognition.WithDebug(fmt.Errorf("%w: %w", recognition.ErrEngineTimeout, alpr.ErrTimeout), debugPayload())
	app := newTestApp(t, &fakeService{uploadErr: failure}, entity.CloudMode)

	resp, err := app.Test(multipartRequest(t, "/api/upload", "file", "car.jpg", []byte("img")))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["error"] != "OpenALPR timed out" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestListPlates(t *testing.T) {
	path := "uploads/a.jpg"
	svc := &fakeService{plates: []entity.Plate{
		{ID: 2, PlateNumber: "B", Timestamp: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{ID: 1, PlateNumber: "A", Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), ImagePath: &path},
	}}
	app := newTestApp(t, svc, entity.LocalMode)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/plates", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if svc.lastQuery.Limit != recognition.DefaultListLimit || svc.lastQuery.Offset != 0 {
		t.Fatalf("expected default pagination, got %+v", svc.lastQuery)
	}

	body := decode(t, resp)
	plates, ok := body["plates"].([]interface{})
	if !ok || len(plates) != 2 {
		t.Fatalf("unexpected plates %v", body["plates"])
	}
	first := plates[0].(map[string]interface{})
	if first["plate_number"] != "B" || first["timestamp"] != "2024-01-02T03:04:05Z" || first["image_path"] != nil {
		t.Fatalf("unexpected first plate %v", first)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/plates?limit=10&offset=5", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK || svc.lastQuery.Limit != 10 || svc.lastQuery.Offset != 5 {
		t.Fatalf("expected explicit pagination, got %d %+v", resp.StatusCode, svc.lastQuery)
	}
}

func TestListPlatesRejectsBadPagination(t *testing.T) {
	app := newTestApp(t, &fakeService{}, entity.LocalMode)

	for _, q := range []string{"limit=0", "limit=501", "offset=-1", "limit=abc"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/plates?"+q, nil))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, resp.StatusCode)
		}
	}
}

func TestListPlatesFilters(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(t, svc, entity.LocalMode)

	target := "/api/plates?plate=AB123CD&plate=XY999+KL55&from=2024-01-01T00:00:00Z&to=2024-01-02T00:00:00%2B02:00"
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	q := svc.lastQuery
	if len(q.Plates) != 2 || q.Plates[0] != "AB123CD" || q.Plates[1] != "XY999 KL55" {
		t.Fatalf("unexpected plates %q", q.Plates)
	}
	if q.From != "2024-01-01T00:00:00Z" || q.To != "2024-01-02T00:00:00+02:00" {
		t.Fatalf("unexpected window %q..%q", q.From, q.To)
	}

	for _, bad := range []string{"from=yesterday", "to=2024-01-01", "from=2024-01-01+10:00:00"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/plates?"+bad, nil))
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", bad, resp.StatusCode)
		}
	}
}

func TestGetPlate(t *testing.T) {
	svc := &fakeService{plates: []entity.Plate{{ID: 7, PlateNumber: "AB123CD", Timestamp: time.Now()}}}
	app := newTestApp(t, svc, entity.LocalMode)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/plates/7", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["plate_number"] != "AB123CD" || body["id"] != float64(7) {
		t.Fatalf("unexpected body %v", body)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/plates/8", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	if body := decode(t, resp); body["error"] != "plate record not found" {
		t.Fatalf("unexpected body %v", body)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/plates/abc", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlateFeedRequiresUpgrade(t *testing.T) {
	app := newTestApp(t, &fakeService{}, entity.LocalMode)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws/plates", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}
