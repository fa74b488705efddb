package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"photonix/photo-portal/internal/library"
)

func newImportCmd() *cobra.Command {
	var (
		libraryID string
		remove    bool
	)
	cmd := &cobra.Command{
		Use:   "import [dirs...]",
		Short: "Import photos from folders into a library",
		Long: `Copies the photos found in each folder into the library storage,
filed by the date they were taken. Without arguments the folders from
import.input_dirs in the config are used.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return importDirs(cmd, args, libraryID, remove)
		},
	}
	cmd.Flags().StringVar(&libraryID, "library", "", "library ID (defaults to the only library)")
	cmd.Flags().BoolVar(&remove, "delete", false, "delete files once they are imported")
	return cmd
}

func importDirs(cmd *cobra.Command, dirs []string, libraryID string, remove bool) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(dirs) == 0 {
		dirs = cfg.Import.InputDirs
	}
	if len(dirs) == 0 {
		return errors.New("no folders to import, pass them as arguments or set import.input_dirs")
	}

	ctx := cmd.Context()
	db, err := library.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := library.NewRepository(db)
	lib, err := resolveLibrary(ctx, repo, libraryID)
	if err != nil {
		return err
	}

	importer := library.NewImporter(repo, library.OpenBackend, cfg.Import.Workers, logger)
	var total library.Summary
	for _, dir := range dirs {
		sum, err := importer.ImportPath(ctx, lib, library.Path{
			ID:                uuid.NewString(),
			LibraryID:         lib.ID,
			Type:              library.PathImport,
			Path:              dir,
			DeleteAfterImport: remove,
		})
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", dir, err)
		}
		logger.Info("Imported folder", zap.String("path", dir),
			zap.Int("imported", sum.Imported), zap.Int("skipped", sum.Skipped), zap.Int("failed", sum.Failed))
		total.Imported += sum.Imported
		total.Skipped += sum.Skipped
		total.Failed += sum.Failed
	}

	fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d, failed %d\n", total.Imported, total.Skipped, total.Failed)
	return nil
}

func resolveLibrary(ctx context.Context, repo library.Repository, id string) (*library.Library, error) {
	if id != "" {
		lib, err := repo.GetLibrary(ctx, id)
		if errors.Is(err, library.ErrNotFound) {
			return nil, fmt.Errorf("library %q does not exist", id)
		}
		return lib, err
	}

	libs, err := repo.ListAllLibraries(ctx)
	if err != nil {
		return nil, err
	}
	switch len(libs) {
	case 0:
		return nil, errors.New("there is no library yet, finish onboarding first")
	case 1:
		return &libs[0], nil
	default:
		return nil, errors.New("there are several libraries, choose one with --library")
	}
}
