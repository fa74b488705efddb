package library

import (
	"time"
)

// PathType says what a library path is used for
type PathType string

const (
	PathBase   PathType = "base"
	PathImport PathType = "import"
)

// Backend codes stored for a library, matching the onboarding answers
const (
	BackendLocal = "Lo"
	BackendS3    = "S3"
)

// Tag types
const (
	TagColor    = "C"
	TagLocation = "L"
)

type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type Library struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	StorageBackend   string    `json:"storage_backend" db:"storage_backend"`
	BasePath         string    `json:"base_path" db:"base_path"`
	S3Server         string    `json:"s3_server" db:"s3_server"`
	S3Bucket         string    `json:"s3_bucket" db:"s3_bucket"`
	S3Path           string    `json:"s3_path" db:"s3_path"`
	S3AccessKey      string    `json:"-" db:"s3_access_key"`
	S3SecretKey      string    `json:"-" db:"s3_secret_key"`
	S3UseSSL         bool      `json:"s3_use_ssl" db:"s3_use_ssl"`
	ClassifyColor    bool      `json:"classify_color" db:"classify_color"`
	ClassifyLocation bool      `json:"classify_location" db:"classify_location"`
	ClassifyObject   bool      `json:"classify_object" db:"classify_object"`
	ClassifyStyle    bool      `json:"classify_style" db:"classify_style"`
	ClassifyFace     bool      `json:"classify_face" db:"classify_face"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// Path is a folder the library reads photos from
type Path struct {
	ID                string   `json:"id" db:"id"`
	LibraryID         string   `json:"library_id" db:"library_id"`
	Type              PathType `json:"type" db:"type"`
	Path              string   `json:"path" db:"path"`
	WatchForChanges   bool     `json:"watch_for_changes" db:"watch_for_changes"`
	DeleteAfterImport bool     `json:"delete_after_import" db:"delete_after_import"`
}

type Photo struct {
	ID          string    `json:"id" db:"id"`
	LibraryID   string    `json:"library_id" db:"library_id"`
	Key         string    `json:"key" db:"storage_key"`
	FileName    string    `json:"file_name" db:"file_name"`
	FileSize    int64     `json:"file_size" db:"file_size"`
	TakenAt     time.Time `json:"taken_at" db:"taken_at"`
	Latitude    *float64  `json:"latitude,omitempty" db:"latitude"`
	Longitude   *float64  `json:"longitude,omitempty" db:"longitude"`
	CameraMake  string    `json:"camera_make" db:"camera_make"`
	CameraModel string    `json:"camera_model" db:"camera_model"`
	ImportedAt  time.Time `json:"imported_at" db:"imported_at"`
}

// HasLocation reports whether GPS coordinates were recorded
func (p *Photo) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil
}

type Tag struct {
	ID        string `json:"id" db:"id"`
	LibraryID string `json:"library_id" db:"library_id"`
	Name      string `json:"name" db:"name"`
	Type      string `json:"type" db:"type"`
	Ordering  int    `json:"ordering" db:"ordering"`
}

type PhotoTag struct {
	PhotoID    string  `db:"photo_id"`
	TagID      string  `db:"tag_id"`
	Confidence float64 `db:"confidence"`
}

// PhotoFilter narrows ListPhotos
type PhotoFilter struct {
	LibraryID string
	Text      string
	Tags      []string
}

// Segment is a run of photos taken on the same day
type Segment struct {
	Title  string
	Date   time.Time
	Photos []Photo
}

// Section groups the segments of one month
type Section struct {
	Title    string
	Month    time.Time
	Segments []Segment
}
