package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"photonix/photo-portal/internal/auth"
)

const (
	sectionTitleLayout = "January 2006"
	segmentTitleLayout = "Monday 2 January"
)

// Service answers the read side of the portal: users, libraries and the
// photo timeline.
type Service struct {
	repo        Repository
	openBackend BackendOpener
	logger      *zap.Logger
}

// NewService creates a library service
func NewService(repo Repository, openBackend BackendOpener, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		openBackend: openBackend,
		logger:      logger,
	}
}

// NeedsOnboarding reports whether no user has been created yet
func (s *Service) NeedsOnboarding(ctx context.Context) (bool, error) {
	n, err := s.repo.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return n == 0, nil
}

// Credentials implements auth.CredentialStore
func (s *Service) Credentials(ctx context.Context, username string) (string, string, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return "", "", auth.ErrUserNotFound
	}
	if err != nil {
		return "", "", err
	}
	return user.ID, user.PasswordHash, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// Libraries returns the libraries the user belongs to
func (s *Service) Libraries(ctx context.Context, userID string) ([]Library, error) {
	libs, err := s.repo.ListLibraries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list libraries: %w", err)
	}
	return libs, nil
}

// Library returns one of the user's libraries. An empty id selects the
// first one.
func (s *Service) Library(ctx context.Context, userID, id string) (*Library, error) {
	libs, err := s.Libraries(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range libs {
		if id == "" || libs[i].ID == id {
			return &libs[i], nil
		}
	}
	return nil, ErrNotFound
}

// Paths returns the folders attached to a library
func (s *Service) Paths(ctx context.Context, libraryID string) ([]Path, error) {
	return s.repo.ListPaths(ctx, libraryID)
}

// Tags returns every tag used in a library
func (s *Service) Tags(ctx context.Context, libraryID string) ([]Tag, error) {
	return s.repo.ListTags(ctx, libraryID)
}

// Sections returns the matching photos grouped by month, then by day
func (s *Service) Sections(ctx context.Context, filter PhotoFilter) ([]Section, error) {
	photos, err := s.repo.ListPhotos(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	return GroupSections(photos), nil
}

// GroupSections groups photos already sorted newest first. Dates are
// compared in UTC.
func GroupSections(photos []Photo) []Section {
	var sections []Section
	for _, p := range photos {
		taken := p.TakenAt.UTC()
		month := time.Date(taken.Year(), taken.Month(), 1, 0, 0, 0, 0, time.UTC)
		day := time.Date(taken.Year(), taken.Month(), taken.Day(), 0, 0, 0, 0, time.UTC)

		if n := len(sections); n == 0 || !sections[n-1].Month.Equal(month) {
			sections = append(sections, Section{
				Title: month.Format(sectionTitleLayout),
				Month: month,
			})
		}
		sec := &sections[len(sections)-1]
		if n := len(sec.Segments); n == 0 || !sec.Segments[n-1].Date.Equal(day) {
			sec.Segments = append(sec.Segments, Segment{
				Title: day.Format(segmentTitleLayout),
				Date:  day,
			})
		}
		seg := &sec.Segments[len(sec.Segments)-1]
		seg.Photos = append(seg.Photos, p)
	}
	return sections
}

// OpenPhoto returns the photo record and its file contents, checking the
// photo belongs to one of the user's libraries.
func (s *Service) OpenPhoto(ctx context.Context, userID, photoID string) (*Photo, io.ReadCloser, error) {
	photo, err := s.repo.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, nil, err
	}
	lib, err := s.Library(ctx, userID, photo.LibraryID)
	if err != nil {
		return nil, nil, err
	}
	backend, err := s.openBackend(ctx, lib)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	rc, err := backend.Open(ctx, photo.Key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open photo %s: %w", photo.ID, err)
	}
	return photo, rc, nil
}
