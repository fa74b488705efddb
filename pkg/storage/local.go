package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalBackend serves files from a directory on this server
type LocalBackend struct {
	root string
}

// NewLocalBackend creates a backend rooted at dir
func NewLocalBackend(dir string) *LocalBackend {
	return &LocalBackend{root: filepath.Clean(dir)}
}

// Root returns the directory the backend reads from
func (b *LocalBackend) Root() string {
	return b.root
}

// List walks the directory below prefix and returns regular files, keyed by
// their slash-separated path relative to the root.
func (b *LocalBackend) List(ctx context.Context, prefix string) ([]Object, error) {
	start, err := b.resolve(prefix)
	if err != nil {
		return nil, err
	}

	var objects []Object
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(b.root, p)
		if err != nil {
			return err
		}
		objects = append(objects, Object{
			Key:     filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("list %s: %w", start, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", start, err)
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Open opens the file stored under key
func (b *LocalBackend) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := b.resolve(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return f, err
}

// Put writes r to key, creating parent directories as needed
func (b *LocalBackend) Put(ctx context.Context, key string, r io.Reader) error {
	p, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(p), err)
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)
		return fmt.Errorf("write %s: %w", p, err)
	}
	return f.Close()
}

// Delete removes the file stored under key
func (b *LocalBackend) Delete(ctx context.Context, key string) error {
	p, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (b *LocalBackend) resolve(key string) (string, error) {
	p := filepath.Join(b.root, filepath.FromSlash(key))
	base := b.root
	if !strings.HasSuffix(base, string(filepath.Separator)) {
		base += string(filepath.Separator)
	}
	if p != b.root && !strings.HasPrefix(p, base) {
		return "", fmt.Errorf("key %q escapes storage root", key)
	}
	return p, nil
}
