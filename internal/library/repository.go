package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("not found")

type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CountUsers(ctx context.Context) (int, error)

	CreateLibrary(ctx context.Context, lib *Library, ownerID string) error
	GetLibrary(ctx context.Context, id string) (*Library, error)
	ListLibraries(ctx context.Context, userID string) ([]Library, error)
	ListAllLibraries(ctx context.Context) ([]Library, error)

	CreatePath(ctx context.Context, path *Path) error
	ListPaths(ctx context.Context, libraryID string) ([]Path, error)
	ListWatchedPaths(ctx context.Context) ([]Path, error)

	CreatePhoto(ctx context.Context, photo *Photo) error
	GetPhoto(ctx context.Context, id string) (*Photo, error)
	PhotoExists(ctx context.Context, libraryID, key string) (bool, error)
	ListPhotos(ctx context.Context, filter PhotoFilter) ([]Photo, error)

	GetOrCreateTag(ctx context.Context, tag *Tag) (*Tag, error)
	AddPhotoTag(ctx context.Context, pt *PhotoTag) error
	ListTags(ctx context.Context, libraryID string) ([]Tag, error)

	// InTx runs fn against a repository bound to a single transaction
	InTx(ctx context.Context, fn func(Repository) error) error
}

type sqlRepository struct {
	db sqlx.ExtContext
	// conn is nil inside a transaction
	conn *sqlx.DB
}

// NewRepository creates a repository over an open database
func NewRepository(db *sqlx.DB) Repository {
	return &sqlRepository{db: db, conn: db}
}

func (r *sqlRepository) get(ctx context.Context, dest any, query string, args ...any) error {
	err := sqlx.GetContext(ctx, r.db, dest, r.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *sqlRepository) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, r.db, dest, r.db.Rebind(query), args...)
}

func (r *sqlRepository) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES (:id, :username, :email, :password_hash, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *sqlRepository) GetUser(ctx context.Context, id string) (*User, error) {
	var user User
	if err := r.get(ctx, &user, "SELECT * FROM users WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *sqlRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	if err := r.get(ctx, &user, "SELECT * FROM users WHERE username = ?", username); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *sqlRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.get(ctx, &n, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *sqlRepository) CreateLibrary(ctx context.Context, lib *Library, ownerID string) error {
	query := `
		INSERT INTO libraries (
			id, name, storage_backend, base_path, s3_server, s3_bucket, s3_path,
			s3_access_key, s3_secret_key, s3_use_ssl, classify_color, classify_location,
			classify_object, classify_style, classify_face, created_at
		) VALUES (
			:id, :name, :storage_backend, :base_path, :s3_server, :s3_bucket, :s3_path,
			:s3_access_key, :s3_secret_key, :s3_use_ssl, :classify_color, :classify_location,
			:classify_object, :classify_style, :classify_face, :created_at
		)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, lib); err != nil {
		return fmt.Errorf("failed to create library: %w", err)
	}
	_, err := r.db.ExecContext(ctx,
		r.db.Rebind("INSERT INTO library_users (library_id, user_id, owner) VALUES (?, ?, ?)"),
		lib.ID, ownerID, true)
	if err != nil {
		return fmt.Errorf("failed to add library owner: %w", err)
	}
	return nil
}

func (r *sqlRepository) GetLibrary(ctx context.Context, id string) (*Library, error) {
	var lib Library
	if err := r.get(ctx, &lib, "SELECT * FROM libraries WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &lib, nil
}

// ListLibraries returns the user's libraries in creation order
func (r *sqlRepository) ListLibraries(ctx context.Context, userID string) ([]Library, error) {
	var libs []Library
	err := r.selectAll(ctx, &libs, `
		SELECT l.* FROM libraries l
		JOIN library_users lu ON lu.library_id = l.id
		WHERE lu.user_id = ?
		ORDER BY l.created_at, l.name`, userID)
	return libs, err
}

func (r *sqlRepository) ListAllLibraries(ctx context.Context) ([]Library, error) {
	var libs []Library
	err := r.selectAll(ctx, &libs, "SELECT * FROM libraries ORDER BY created_at, name")
	return libs, err
}

func (r *sqlRepository) CreatePath(ctx context.Context, path *Path) error {
	query := `
		INSERT INTO library_paths (id, library_id, type, path, watch_for_changes, delete_after_import)
		VALUES (:id, :library_id, :type, :path, :watch_for_changes, :delete_after_import)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, path); err != nil {
		return fmt.Errorf("failed to create library path: %w", err)
	}
	return nil
}

func (r *sqlRepository) ListPaths(ctx context.Context, libraryID string) ([]Path, error) {
	var paths []Path
	err := r.selectAll(ctx, &paths, "SELECT * FROM library_paths WHERE library_id = ? ORDER BY type, path", libraryID)
	return paths, err
}

func (r *sqlRepository) ListWatchedPaths(ctx context.Context) ([]Path, error) {
	var paths []Path
	err := r.selectAll(ctx, &paths, "SELECT * FROM library_paths WHERE watch_for_changes = ? ORDER BY library_id, type, path", true)
	return paths, err
}

func (r *sqlRepository) CreatePhoto(ctx context.Context, photo *Photo) error {
	query := `
		INSERT INTO photos (
			id, library_id, storage_key, file_name, file_size, taken_at,
			latitude, longitude, camera_make, camera_model, imported_at
		) VALUES (
			:id, :library_id, :storage_key, :file_name, :file_size, :taken_at,
			:latitude, :longitude, :camera_make, :camera_model, :imported_at
		)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, photo); err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}
	return nil
}

func (r *sqlRepository) GetPhoto(ctx context.Context, id string) (*Photo, error) {
	var photo Photo
	if err := r.get(ctx, &photo, "SELECT * FROM photos WHERE id = ?", id); err != nil {
		return nil, err
	}
	return &photo, nil
}

func (r *sqlRepository) PhotoExists(ctx context.Context, libraryID, key string) (bool, error) {
	var n int
	err := r.get(ctx, &n, "SELECT COUNT(*) FROM photos WHERE library_id = ? AND storage_key = ?", libraryID, key)
	return n > 0, err
}

// ListPhotos returns photos newest first. Every tag in the filter must be
// present on a photo for it to match.
func (r *sqlRepository) ListPhotos(ctx context.Context, filter PhotoFilter) ([]Photo, error) {
	query := "SELECT p.* FROM photos p WHERE p.library_id = ?"
	args := []any{filter.LibraryID}

	if text := strings.TrimSpace(filter.Text); text != "" {
		like := "%" + strings.ToLower(text) + "%"
		query += ` AND (LOWER(p.file_name) LIKE ? OR EXISTS (
			SELECT 1 FROM photo_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.photo_id = p.id AND LOWER(t.name) LIKE ?))`
		args = append(args, like, like)
	}
	for _, tag := range filter.Tags {
		query += ` AND EXISTS (
			SELECT 1 FROM photo_tags pt JOIN tags t ON t.id = pt.tag_id
			WHERE pt.photo_id = p.id AND t.name = ?)`
		args = append(args, tag)
	}
	query += " ORDER BY p.taken_at DESC, p.file_name"

	var photos []Photo
	err := r.selectAll(ctx, &photos, query, args...)
	return photos, err
}

// GetOrCreateTag returns the existing tag with the same library, name and
// type, creating it otherwise.
func (r *sqlRepository) GetOrCreateTag(ctx context.Context, tag *Tag) (*Tag, error) {
	var existing Tag
	err := r.get(ctx, &existing, "SELECT * FROM tags WHERE library_id = ? AND name = ? AND type = ?",
		tag.LibraryID, tag.Name, tag.Type)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	query := `
		INSERT INTO tags (id, library_id, name, type, ordering)
		VALUES (:id, :library_id, :name, :type, :ordering)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, tag); err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}
	return tag, nil
}

func (r *sqlRepository) AddPhotoTag(ctx context.Context, pt *PhotoTag) error {
	query := `
		INSERT INTO photo_tags (photo_id, tag_id, confidence)
		VALUES (:photo_id, :tag_id, :confidence)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, pt); err != nil {
		return fmt.Errorf("failed to tag photo: %w", err)
	}
	return nil
}

func (r *sqlRepository) ListTags(ctx context.Context, libraryID string) ([]Tag, error) {
	var tags []Tag
	err := r.selectAll(ctx, &tags, "SELECT * FROM tags WHERE library_id = ? ORDER BY type, ordering, name", libraryID)
	return tags, err
}

func (r *sqlRepository) InTx(ctx context.Context, fn func(Repository) error) error {
	if r.conn == nil {
		return fn(r)
	}
	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(&sqlRepository{db: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
