package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

// ErrNotFound is returned when an object does not exist in a backend
var ErrNotFound = errors.New("storage: object not found")

// PhotoExtensions are the file extensions treated as importable media
var PhotoExtensions = []string{"jpg", "jpeg", "mov", "mp4", "m4v", "3gp", "cr2"}

// Object describes a single file held by a backend
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Backend is a place photos are stored or imported from
type Backend interface {
	List(ctx context.Context, prefix string) ([]Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, r io.Reader) error
	Delete(ctx context.Context, key string) error
}

// IsPhoto reports whether the key has one of the importable extensions
func IsPhoto(key string) bool {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
	if ext == "" {
		return false
	}
	for _, e := range PhotoExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ContainsPhotos reports whether anything under prefix looks like a photo
func ContainsPhotos(ctx context.Context, b Backend, prefix string) (bool, error) {
	objects, err := b.List(ctx, prefix)
	if err != nil {
		return false, err
	}
	for _, obj := range objects {
		if IsPhoto(obj.Key) {
			return true, nil
		}
	}
	return false, nil
}
