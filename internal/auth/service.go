package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for an unknown user or a wrong password
var ErrInvalidCredentials = errors.New("invalid username or password")

// ErrUserNotFound is returned by a CredentialStore for unknown usernames
var ErrUserNotFound = errors.New("user not found")

// CredentialStore looks up the stored password hash of a user
type CredentialStore interface {
	Credentials(ctx context.Context, username string) (userID, passwordHash string, err error)
}

// Service checks user credentials
type Service struct {
	store CredentialStore
}

func NewService(store CredentialStore) *Service {
	return &Service{store: store}
}

// Authenticate returns the user ID when the password matches
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, error) {
	userID, hash, err := s.store.Credentials(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", fmt.Errorf("failed to load credentials: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	return userID, nil
}
