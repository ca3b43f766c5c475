package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brainshare/internal/config"
	"brainshare/internal/db"
	"brainshare/internal/router"
	"brainshare/internal/services"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	gdb, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}
	if err := db.Seed(gdb, db.AdminSeed{Email: cfg.AdminEmail, Password: cfg.AdminPassword}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog, err := services.LoadCatalog(ctx, gdb, services.DefaultRules())
	if err != nil {
		return err
	}
	eng, err := services.New(gdb, catalog, services.Options{
		DailyLikeLimit:    cfg.DailyLikeLimit,
		DailyCommentLimit: cfg.DailyCommentLimit,
		Location:          loc,
		LeaderboardSize:   cfg.LeaderboardSize,
		LeaderboardTTL:    time.Minute,
		Logger:            logger,
	})
	if err != nil {
		return err
	}

	if cfg.SessionSecret == config.DefaultSessionSecret {
		logger.Warn("SESSION_SECRET is not set, using the development default")
	}
	gin.SetMode(gin.ReleaseMode)
	handler := router.New(eng, router.Settings{
		SessionSecret: cfg.SessionSecret,
		SiteURL:       cfg.SiteURL,
		Logger:        logger,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveDone := make(chan error, 1)
	go func() {
		logger.Info("BrainShare server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
		}
		close(serveDone)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveDone:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
