package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"photonix/photo-portal/internal/account"
	"photonix/photo-portal/internal/auth"
	"photonix/photo-portal/internal/browse"
	"photonix/photo-portal/internal/events"
	"photonix/photo-portal/internal/library"
	"photonix/photo-portal/internal/onboarding"
	"photonix/photo-portal/internal/web"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server and the folder watcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := library.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	repo := library.NewRepository(db)
	libraries := library.NewService(repo, library.OpenBackend, logger)
	importer := library.NewImporter(repo, library.OpenBackend, cfg.Import.Workers, logger)

	hub := events.NewHub(libraries, logger)
	defer hub.Stop()
	importer.Subscribe(hub)

	watcher := library.NewWatcher(importer, repo, cfg.Import.WatchSchedule, logger)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	store := onboarding.NewStateStore(cfg.Session.TTL)
	defer store.Stop()
	wizard := onboarding.NewWizard(onboarding.NewStorageProber(), library.NewSetup(repo, importer, logger), logger)

	sessions := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.CookieName, cfg.Session.TTL, cfg.Session.Secure, logger)

	accounts := account.NewService(libraries)

	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	router, err := web.NewRouter(web.Handlers{
		Auth:       auth.NewHandler(auth.NewService(libraries), sessions, logger),
		Onboarding: onboarding.NewHandler(wizard, store, logger),
		Browse:     browse.NewHandler(browse.NewService(libraries, accounts, importer, logger), libraries, logger),
		Account:    account.NewHandler(accounts, logger),
		Events:     hub,
	}, sessions, libraries, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Info("Server started", zap.String("addr", srv.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server exiting")
	return nil
}
