package recognitionRepository

import (
	"PlateRecognizer/database"
	"PlateRecognizer/internal/api/recognition"
	"PlateRecognizer/internal/entity"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

func newTestRepository(t *testing.T) Repository {
	t.Helper()
	repo, _ := newTestRepositoryWithDB(t)
	return repo
}

func newTestRepositoryWithDB(t *testing.T) (Repository, *sqlx.DB) {
	t.Helper()
	db, err := database.New(context.Background(), database.Options{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "plates.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(db, logger), db
}

func TestCreateAndGetPlate(t *testing.T) {
	repo := newTestRepository(t)
	client, err := repo.NewClient(false)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	path := "uploads/abc.jpg"
	id, err := client.Plates.CreatePlate(context.Background(), entity.Plate{PlateNumber: "AB123CD", ImagePath: &path})
	if err != nil {
		t.Fatalf("create plate: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	got, err := client.Plates.GetPlateByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get plate: %v", err)
	}
	if got.PlateNumber != "AB123CD" {
		t.Fatalf("unexpected plate %q", got.PlateNumber)
	}
	if got.ImagePath == nil || *got.ImagePath != path {
		t.Fatalf("unexpected image path %v", got.ImagePath)
	}
	if got.Timestamp.IsZero() {
		t.Fatal("expected server assigned timestamp")
	}
}

func TestCreatePlateWithoutImage(t *testing.T) {
	repo := newTestRepository(t)
	client, _ := repo.NewClient(false)

	id, err := client.Plates.CreatePlate(context.Background(), entity.Plate{PlateNumber: "UNKNOWN"})
	if err != nil {
		t.Fatalf("create plate: %v", err)
	}
	got, err := client.Plates.GetPlateByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get plate: %v", err)
	}
	if got.ImagePath != nil {
		t.Fatalf("expected NULL image path, got %q", *got.ImagePath)
	}
}

func TestGetPlateNotFound(t *testing.T) {
	repo := newTestRepository(t)
	client, _ := repo.NewClient(false)

	_, err := client.Plates.GetPlateByID(context.Background(), 999)
	if !errors.Is(err, recognition.ErrPlateNotFound) {
		t.Fatalf("expected ErrPlateNotFound, got %v", err)
	}
}

func TestListPlatesNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	client, _ := repo.NewClient(false)

	for _, p := range []string{"AAA111", "BBB222", "CCC333"} {
		if _, err := client.Plates.CreatePlate(context.Background(), entity.Plate{PlateNumber: p}); err != nil {
			t.Fatalf("create %s: %v", p, err)
		}
	}

	plates, err := client.Plates.ListPlates(context.Background(), recognition.PlateFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list plates: %v", err)
	}
	if len(plates) != 2 {
		t.Fatalf("expected 2 plates, got %d", len(plates))
	}
	if plates[0].PlateNumber != "CCC333" || plates[1].PlateNumber != "BBB222" {
		t.Fatalf("unexpected order: %q, %q", plates[0].PlateNumber, plates[1].PlateNumber)
	}

	rest, err := client.Plates.ListPlates(context.Background(), recognition.PlateFilter{Limit: 10, Offset: 2})
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(rest) != 1 || rest[0].PlateNumber != "AAA111" {
		t.Fatalf("unexpected offset page: %+v", rest)
	}
}

func TestListPlatesFilters(t *testing.T) {
	repo, db := newTestRepositoryWithDB(t)
	seed := []struct {
		plate string
		at    string
	}{
		{"AAA111", "2024-01-01 08:00:00"},
		{"BBB222", "2024-01-01 10:00:00"},
		{"AAA111", "2024-01-01 12:00:00"},
		{"CCC333", "2024-01-02 09:30:00"},
	}
	for _, row := range seed {
		if _, err := db.Exec(`INSERT INTO plates (plate_number, timestamp) VALUES (?, ?)`, row.plate, row.at); err != nil {
			t.Fatalf("seed %s: %v", row.plate, err)
		}
	}

	at := func(s string) *time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		return &ts
	}

	tests := []struct {
		name   string
		filter recognition.PlateFilter
		want   string
	}{
		{"no filter", recognition.PlateFilter{}, "CCC333,AAA111,BBB222,AAA111"},
		{"single plate", recognition.PlateFilter{Plates: []string{"AAA111"}}, "AAA111,AAA111"},
		{"plate list", recognition.PlateFilter{Plates: []string{"BBB222", "CCC333", "ZZZ000"}}, "CCC333,BBB222"},
		{"from inclusive", recognition.PlateFilter{From: at("2024-01-01T10:00:00Z")}, "CCC333,AAA111,BBB222"},
		{"to inclusive", recognition.PlateFilter{To: at("2024-01-01T10:00:00Z")}, "BBB222,AAA111"},
		{"window in other zone", recognition.PlateFilter{
			From: at("2024-01-01T10:30:00+02:00"),
			To:   at("2024-01-01T14:00:00+02:00"),
		}, "AAA111,BBB222"},
		{"plates and window", recognition.PlateFilter{
			Plates: []string{"AAA111"},
			From:   at("2024-01-01T09:00:00Z"),
		}, "AAA111"},
		{"no match", recognition.PlateFilter{Plates: []string{"ZZZ000"}}, ""},
	}

	client, _ := repo.NewClient(false)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.filter.Limit = 10
			plates, err := client.Plates.ListPlates(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("list plates: %v", err)
			}
			got := make([]string, 0, len(plates))
			for _, p := range plates {
				got = append(got, p.PlateNumber)
			}
			if strings.Join(got, ",") != tt.want {
				t.Fatalf("got %v, want %s", got, tt.want)
			}
		})
	}
}

func TestTransactionRollback(t *testing.T) {
	repo := newTestRepository(t)
	client, err := repo.NewClient(true)
	if err != nil {
		t.Fatalf("new tx client: %v", err)
	}
	id, err := client.Plates.CreatePlate(context.Background(), entity.Plate{PlateNumber: "ROLLED"})
	if err != nil {
		t.Fatalf("create plate: %v", err)
	}
	if err := client.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	reader, _ := repo.NewClient(false)
	if _, err := reader.Plates.GetPlateByID(context.Background(), id); !errors.Is(err, recognition.ErrPlateNotFound) {
		t.Fatalf("expected rolled back insert to be gone, got %v", err)
	}
}
