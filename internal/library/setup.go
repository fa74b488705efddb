package library

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"photonix/photo-portal/internal/onboarding"
)

// ErrAlreadySetUp is returned when onboarding is finished a second time
var ErrAlreadySetUp = errors.New("photonix is already set up")

// Setup turns completed onboarding answers into the admin user and the
// first library, then starts importing into it.
type Setup struct {
	repo     Repository
	importer *Importer
	logger   *zap.Logger
	now      func() time.Time
}

// NewSetup creates the onboarding finisher. importer may be nil, in which
// case no initial import runs.
func NewSetup(repo Repository, importer *Importer, logger *zap.Logger) *Setup {
	return &Setup{
		repo:     repo,
		importer: importer,
		logger:   logger,
		now:      time.Now,
	}
}

// Finish implements onboarding.Finisher
func (s *Setup) Finish(ctx context.Context, state *onboarding.State) error {
	lib, err := s.create(ctx, state)
	if err != nil {
		return err
	}

	s.logger.Info("Library created",
		zap.String("library_id", lib.ID),
		zap.String("name", lib.Name),
		zap.String("backend", lib.StorageBackend))

	if s.importer != nil {
		go func() {
			if _, err := s.importer.ImportLibrary(context.Background(), lib.ID); err != nil {
				s.logger.Error("Initial import failed", zap.String("library_id", lib.ID), zap.Error(err))
			}
		}()
	}
	return nil
}

func (s *Setup) create(ctx context.Context, state *onboarding.State) (*Library, error) {
	now := s.now().UTC()

	user := &User{
		ID:           uuid.NewString(),
		Username:     state.Username,
		PasswordHash: state.PasswordHash,
		CreatedAt:    now,
	}

	lib := &Library{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(state.LibraryName),
		ClassifyColor:    state.Classifiers.Color,
		ClassifyLocation: state.Classifiers.Location,
		ClassifyObject:   state.Classifiers.Object,
		ClassifyStyle:    state.Classifiers.Style,
		ClassifyFace:     state.Classifiers.Face,
		CreatedAt:        now,
	}

	base := Path{
		ID:              uuid.NewString(),
		LibraryID:       lib.ID,
		Type:            PathBase,
		WatchForChanges: state.WatchForChanges,
	}

	switch state.StorageBackend {
	case onboarding.StorageLocal:
		lib.StorageBackend = BackendLocal
		lib.BasePath = state.BasePath
		base.Path = state.BasePath
	case onboarding.StorageS3:
		lib.StorageBackend = BackendS3
		lib.S3Server = state.S3.Server
		lib.S3Bucket = state.S3.Bucket
		lib.S3Path = state.S3.Path
		lib.S3AccessKey = state.S3.AccessKey
		lib.S3SecretKey = state.S3.SecretKey
		lib.S3UseSSL = state.S3.UseSSL
		base.Path = "s3://" + strings.TrimSuffix(state.S3.Bucket+"/"+strings.Trim(state.S3.Path, "/"), "/")
	default:
		return nil, fmt.Errorf("%w: %q", onboarding.ErrUnknownBackend, string(state.StorageBackend))
	}

	err := s.repo.InTx(ctx, func(tx Repository) error {
		n, err := tx.CountUsers(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrAlreadySetUp
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		if err := tx.CreateLibrary(ctx, lib, user.ID); err != nil {
			return err
		}
		if err := tx.CreatePath(ctx, &base); err != nil {
			return err
		}
		if state.ImportFromAnotherPath && state.ImportPath != "" {
			return tx.CreatePath(ctx, &Path{
				ID:                uuid.NewString(),
				LibraryID:         lib.ID,
				Type:              PathImport,
				Path:              state.ImportPath,
				WatchForChanges:   state.WatchForChanges,
				DeleteAfterImport: state.DeleteAfterImport,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up library: %w", err)
	}
	return lib, nil
}
