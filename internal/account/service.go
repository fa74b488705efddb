package account

import (
	"context"
	"fmt"

	"photonix/photo-portal/internal/library"
)

// Directory is the part of the library service the account pages read
type Directory interface {
	GetUser(ctx context.Context, id string) (*library.User, error)
	Libraries(ctx context.Context, userID string) ([]library.Library, error)
	Paths(ctx context.Context, libraryID string) ([]library.Path, error)
}

type Service struct {
	dir Directory
}

func NewService(dir Directory) *Service {
	return &Service{dir: dir}
}

// Profile returns the user's profile
func (s *Service) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.dir.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &Profile{Username: user.Username, Email: user.Email}, nil
}

// Menu builds the user menu, libraries in the order the store returns them
func (s *Service) Menu(ctx context.Context, userID string) (Menu, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return Menu{}, err
	}
	libs, err := s.dir.Libraries(ctx, userID)
	if err != nil {
		return Menu{}, fmt.Errorf("failed to load libraries: %w", err)
	}

	var entries []Library
	for _, lib := range libs {
		entries = append(entries, Library{ID: lib.ID, Name: lib.Name})
	}
	return NewMenu(profile, entries), nil
}

// Settings returns every library of the user with its paths
func (s *Service) Settings(ctx context.Context, userID string) ([]LibrarySettings, error) {
	libs, err := s.dir.Libraries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load libraries: %w", err)
	}
	settings := make([]LibrarySettings, 0, len(libs))
	for _, lib := range libs {
		paths, err := s.dir.Paths(ctx, lib.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load paths of library %s: %w", lib.ID, err)
		}
		settings = append(settings, LibrarySettings{Library: lib, Paths: paths})
	}
	return settings, nil
}
