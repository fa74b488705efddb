package onboarding

import (
	"context"
	"fmt"

	"photonix/photo-portal/pkg/storage"
)

// StorageProber opens the chosen backend and looks for existing photos
type StorageProber struct {
	newS3 func(ctx context.Context, cfg storage.S3Config) (storage.Backend, error)
}

// NewStorageProber creates a prober using real local and S3 backends
func NewStorageProber() *StorageProber {
	return &StorageProber{
		newS3: func(ctx context.Context, cfg storage.S3Config) (storage.Backend, error) {
			return storage.NewS3Client(ctx, cfg)
		},
	}
}

// ContainsPhotos implements Prober
func (p *StorageProber) ContainsPhotos(ctx context.Context, backend StorageBackend, basePath string, s3 S3Settings) (bool, error) {
	switch backend {
	case StorageLocal:
		return storage.ContainsPhotos(ctx, storage.NewLocalBackend(basePath), "")
	case StorageS3:
		b, err := p.newS3(ctx, S3Config(s3))
		if err != nil {
			return false, err
		}
		return storage.ContainsPhotos(ctx, b, "")
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownBackend, string(backend))
	}
}

// S3Config converts onboarding answers into storage connection settings
func S3Config(s S3Settings) storage.S3Config {
	return storage.S3Config{
		Server:    s.Server,
		Bucket:    s.Bucket,
		Path:      s.Path,
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		UseSSL:    s.UseSSL,
	}
}
