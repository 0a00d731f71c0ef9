package recognition

import (
	"PlateRecognizer/pkg/alpr"
	"time"
)

type UploadResponse struct {
	Plate string  `json:"plate"`
	Make  *string `json:"make"`
	Model *string `json:"model"`
	Color *string `json:"color"`
	Debug *Debug  `json:"debug,omitempty"`
}

// Debug is only rendered in local mode.
type Debug struct {
	Country    string           `json:"country"`
	AlprPath   string           `json:"alpr_path"`
	ConfigFile string           `json:"config_file"`
	ReturnCode *int             `json:"return_code,omitempty"`
	Stdout     string           `json:"stdout,omitempty"`
	Stderr     string           `json:"stderr,omitempty"`
	DurationMs int64            `json:"duration_ms"`
	Cause      string           `json:"cause,omitempty"`
	Cached     bool             `json:"cached"`
	Results    []alpr.Candidate `json:"results"`
}

type UploadResult struct {
	ID        int64
	Plate     string
	ImagePath *string
	BlobKey   string
	Cached    bool
	Debug     *Debug
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
	MaxPlateFilters  = 100
)

// ListPlatesQuery filters the stored records. Plates may be repeated or space
// separated; From and To are inclusive RFC3339 bounds.
type ListPlatesQuery struct {
	Limit  int      `query:"limit" validate:"gte=1,lte=500"`
	Offset int      `query:"offset" validate:"gte=0"`
	Plates []string `query:"plate" validate:"max=100,dive,max=1024"`
	From   string   `query:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To     string   `query:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// PlateFilter is the repository side of ListPlatesQuery.
type PlateFilter struct {
	Plates []string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

type PlateResponse struct {
	ID          int64   `json:"id"`
	PlateNumber string  `json:"plate_number"`
	Timestamp   string  `json:"timestamp"`
	ImagePath   *string `json:"image_path"`
}

type PlateListResponse struct {
	Plates []PlateResponse `json:"plates"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// CachedRecognition is what the result cache stores per image digest.
type CachedRecognition struct {
	Plate      string           `json:"plate"`
	Candidates []alpr.Candidate `json:"candidates"`
}
