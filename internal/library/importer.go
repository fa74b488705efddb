package library

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"photonix/photo-portal/internal/classifiers/color"
	"photonix/photo-portal/pkg/storage"
)

// Summary counts what one import run did
type Summary struct {
	Imported int
	Skipped  int
	Failed   int
}

func (s *Summary) add(o Summary) {
	s.Imported += o.Imported
	s.Skipped += o.Skipped
	s.Failed += o.Failed
}

// Listener is told when imports into a library start and finish
type Listener interface {
	ImportStarted(libraryID string)
	ImportFinished(libraryID string, sum Summary)
}

// Importer records new photos found in a library's paths
type Importer struct {
	repo        Repository
	openBackend BackendOpener
	colors      *color.Model
	workers     int
	logger      *zap.Logger
	now         func() time.Time

	mu        sync.Mutex
	running   map[string]int
	listeners []Listener
	// tagMu serialises get-or-create of tags shared by concurrent workers
	tagMu sync.Mutex
}

// NewImporter creates an importer running up to workers files at once
func NewImporter(repo Repository, openBackend BackendOpener, workers int, logger *zap.Logger) *Importer {
	if workers <= 0 {
		workers = 1
	}
	return &Importer{
		repo:        repo,
		openBackend: openBackend,
		colors:      color.NewModel(),
		workers:     workers,
		logger:      logger,
		now:         time.Now,
		running:     make(map[string]int),
	}
}

// Importing reports whether an import into the library is in progress
func (im *Importer) Importing(libraryID string) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.running[libraryID] > 0
}

// Subscribe registers l for import start and finish notifications
func (im *Importer) Subscribe(l Listener) {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.listeners = append(im.listeners, l)
}

func (im *Importer) notify(fn func(Listener)) {
	im.mu.Lock()
	listeners := append([]Listener(nil), im.listeners...)
	im.mu.Unlock()
	for _, l := range listeners {
		fn(l)
	}
}

func (im *Importer) begin(libraryID string) func() {
	im.mu.Lock()
	im.running[libraryID]++
	im.mu.Unlock()
	return func() {
		im.mu.Lock()
		defer im.mu.Unlock()
		if im.running[libraryID]--; im.running[libraryID] <= 0 {
			delete(im.running, libraryID)
		}
	}
}

// track marks the library as importing and notifies listeners. The
// returned func reports the final summary once the run ends.
func (im *Importer) track(libraryID string) func(Summary) {
	done := im.begin(libraryID)
	im.notify(func(l Listener) { l.ImportStarted(libraryID) })
	return func(sum Summary) {
		done()
		im.notify(func(l Listener) { l.ImportFinished(libraryID, sum) })
	}
}

// ImportLibrary scans every path attached to the library. Listeners see a
// single start and finish for the whole run.
func (im *Importer) ImportLibrary(ctx context.Context, libraryID string) (Summary, error) {
	var total Summary

	lib, err := im.repo.GetLibrary(ctx, libraryID)
	if err != nil {
		return total, fmt.Errorf("failed to load library %s: %w", libraryID, err)
	}
	paths, err := im.repo.ListPaths(ctx, libraryID)
	if err != nil {
		return total, fmt.Errorf("failed to list paths of library %s: %w", libraryID, err)
	}

	finish := im.track(lib.ID)
	defer func() { finish(total) }()

	for _, p := range paths {
		sum, err := im.importPath(ctx, lib, p)
		total.add(sum)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ImportPath records photos from one library path. Base paths are indexed
// where they are. Import paths are copied into the library storage under
// a YYYY/MM/DD folder and removed afterwards when the path asks for it.
func (im *Importer) ImportPath(ctx context.Context, lib *Library, p Path) (Summary, error) {
	finish := im.track(lib.ID)
	sum, err := im.importPath(ctx, lib, p)
	finish(sum)
	return sum, err
}

func (im *Importer) importPath(ctx context.Context, lib *Library, p Path) (Summary, error) {
	var sum Summary

	dest, err := im.openBackend(ctx, lib)
	if err != nil {
		return sum, fmt.Errorf("failed to open storage of library %s: %w", lib.ID, err)
	}

	var source storage.Backend
	switch p.Type {
	case PathBase:
		source = dest
	case PathImport:
		source = storage.NewLocalBackend(p.Path)
	default:
		return sum, fmt.Errorf("unknown path type %q", p.Type)
	}

	objects, err := source.List(ctx, "")
	if errors.Is(err, storage.ErrNotFound) {
		im.logger.Warn("Library path does not exist", zap.String("library_id", lib.ID), zap.String("path", p.Path))
		return sum, nil
	}
	if err != nil {
		return sum, err
	}

	var imported, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)

	for _, obj := range objects {
		if !storage.IsPhoto(obj.Key) {
			continue
		}
		obj := obj
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ok, err := im.importObject(gctx, lib, p, source, dest, obj)
			switch {
			case err != nil:
				failed.Add(1)
				im.logger.Error("Failed to import photo",
					zap.String("library_id", lib.ID),
					zap.String("key", obj.Key),
					zap.Error(err))
			case ok:
				imported.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	sum = Summary{Imported: int(imported.Load()), Skipped: int(skipped.Load()), Failed: int(failed.Load())}
	im.logger.Info("Import finished",
		zap.String("library_id", lib.ID),
		zap.String("path", p.Path),
		zap.Int("imported", sum.Imported),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed))
	return sum, err
}

func (im *Importer) importObject(ctx context.Context, lib *Library, p Path, source, dest storage.Backend, obj storage.Object) (bool, error) {
	if p.Type == PathBase {
		exists, err := im.repo.PhotoExists(ctx, lib.ID, obj.Key)
		if err != nil || exists {
			return false, err
		}
	}

	data, err := readAll(ctx, source, obj.Key)
	if err != nil {
		return false, err
	}

	md, err := ReadMetadata(data)
	if err != nil {
		im.logger.Debug("No usable metadata", zap.String("key", obj.Key), zap.Error(err))
	}
	if md.TakenAt.IsZero() {
		md.TakenAt = obj.ModTime
	}
	if md.TakenAt.IsZero() {
		md.TakenAt = im.now()
	}

	key := obj.Key
	if p.Type == PathImport {
		key = path.Join(md.TakenAt.Format("2006/01/02"), path.Base(obj.Key))
		exists, err := im.repo.PhotoExists(ctx, lib.ID, key)
		if err != nil || exists {
			return false, err
		}
		if err := dest.Put(ctx, key, bytes.NewReader(data)); err != nil {
			return false, err
		}
	}

	photo := &Photo{
		ID:          uuid.NewString(),
		LibraryID:   lib.ID,
		Key:         key,
		FileName:    path.Base(obj.Key),
		FileSize:    int64(len(data)),
		TakenAt:     md.TakenAt.UTC(),
		Latitude:    md.Latitude,
		Longitude:   md.Longitude,
		CameraMake:  md.CameraMake,
		CameraModel: md.CameraModel,
		ImportedAt:  im.now().UTC(),
	}
	if err := im.repo.CreatePhoto(ctx, photo); err != nil {
		return false, err
	}

	if lib.ClassifyColor && isJPEG(obj.Key) {
		if err := im.classify(ctx, photo, data); err != nil {
			im.logger.Warn("Color classification failed", zap.String("photo_id", photo.ID), zap.Error(err))
		}
	}

	if p.Type == PathImport && p.DeleteAfterImport {
		if err := source.Delete(ctx, obj.Key); err != nil {
			im.logger.Warn("Failed to delete imported file", zap.String("key", obj.Key), zap.Error(err))
		}
	}
	return true, nil
}

func (im *Importer) classify(ctx context.Context, photo *Photo, data []byte) error {
	results, err := im.colors.PredictReader(bytes.NewReader(data))
	if err != nil {
		return err
	}

	im.tagMu.Lock()
	defer im.tagMu.Unlock()
	for _, r := range results {
		tag, err := im.repo.GetOrCreateTag(ctx, &Tag{
			ID:        uuid.NewString(),
			LibraryID: photo.LibraryID,
			Name:      r.Name,
			Type:      TagColor,
			Ordering:  r.Ordering,
		})
		if err != nil {
			return err
		}
		if err := im.repo.AddPhotoTag(ctx, &PhotoTag{PhotoID: photo.ID, TagID: tag.ID, Confidence: r.Score}); err != nil {
			return err
		}
	}
	return nil
}

func readAll(ctx context.Context, b storage.Backend, key string) ([]byte, error) {
	rc, err := b.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func isJPEG(key string) bool {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}
