package entity

import "time"

type Plate struct {
	ID          int64     `json:"id"`
	PlateNumber string    `json:"plate_number"`
	Timestamp   time.Time `json:"timestamp"`
	ImagePath   *string   `json:"image_path"`
}

type PlateEvent struct {
	ID        int64     `json:"id"`
	Plate     string    `json:"plate"`
	Timestamp time.Time `json:"timestamp"`
	ImagePath *string   `json:"image_path,omitempty"`
	BlobKey   string    `json:"blob_key,omitempty"`
	Cached    bool      `json:"cached"`
}
