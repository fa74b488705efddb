package library

import (
	"context"
	"fmt"

	"photonix/photo-portal/pkg/storage"
)

// BackendOpener returns the storage a library keeps its photos in
type BackendOpener func(ctx context.Context, lib *Library) (storage.Backend, error)

// OpenBackend connects to the library's local directory or S3 bucket
func OpenBackend(ctx context.Context, lib *Library) (storage.Backend, error) {
	switch lib.StorageBackend {
	case BackendLocal:
		return storage.NewLocalBackend(lib.BasePath), nil
	case BackendS3:
		return storage.NewS3Client(ctx, storage.S3Config{
			Server:    lib.S3Server,
			Bucket:    lib.S3Bucket,
			Path:      lib.S3Path,
			AccessKey: lib.S3AccessKey,
			SecretKey: lib.S3SecretKey,
			UseSSL:    lib.S3UseSSL,
		})
	default:
		return nil, fmt.Errorf("library %s has unknown storage backend %q", lib.ID, lib.StorageBackend)
	}
}
