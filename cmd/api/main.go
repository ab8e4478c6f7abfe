package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"brickvault-api/internal/cache"
	"brickvault-api/internal/config"
	"brickvault-api/internal/gate"
	"brickvault-api/internal/handler"
	"brickvault-api/internal/idp"
	"brickvault-api/internal/middleware"
	"brickvault-api/internal/rebrickable"
	"brickvault-api/internal/repository"
	"brickvault-api/internal/router"
	"brickvault-api/internal/service"
	"brickvault-api/internal/session"
	"brickvault-api/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "brickvault-api: %v\n", err)
		os.Exit(1)
	}
}

func openProfileRepository(cfg config.ProfileDBConfig, l *zap.SugaredLogger) (repository.ProfileRepository, error) {
	switch strings.ToLower(cfg.Type) {
	case "postgres", "postgresql":
		return repository.NewPostgresProfileRepository(cfg.PostgresDSN(), l)
	case "mysql":
		return repository.OpenMySQLProfileRepository(cfg.MySQLDSN(), l)
	default: // sqlite
		return repository.NewSQLiteProfileRepository(cfg.Path, l)
	}
}

// sessionProvider picks where identity snapshots live. The returned cache
// is nil for the cookie backend.
func sessionProvider(cfg *config.Config, l *zap.SugaredLogger) (session.Provider, cache.Cache, error) {
	switch strings.ToLower(cfg.Session.Backend) {
	case "redis":
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:      cfg.Cache.RedisAddress(),
			Password:  cfg.Cache.RedisPassword,
			DB:        cfg.Cache.RedisDB,
			KeyPrefix: cfg.Cache.RedisKeyPrefix,
		}, l)
		if err != nil {
			return nil, nil, err
		}
		return keyedProvider(cfg, rc), rc, nil
	case "memory":
		mc := cache.NewMemoryCache(cfg.Cache.SweepInterval)
		return keyedProvider(cfg, mc), mc, nil
	default: // cookie
		return session.CookieProvider{Name: cfg.Session.Cookie, Secure: cfg.Session.Secure}, nil, nil
	}
}

func keyedProvider(cfg *config.Config, c cache.Cache) session.Provider {
	return session.KeyedProvider{
		Cache:     c,
		SIDCookie: cfg.Session.SIDCookie,
		TTL:       cfg.Session.TTL,
		Secure:    cfg.Session.Secure,
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zl, err := logger.New(logger.Config{Level: cfg.Log.Level, Dev: cfg.Log.Dev})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer zl.Sync() //nolint:errcheck
	log := zl.Sugar()

	log.Infow("starting", "app", cfg.App.Name, "version", cfg.App.Version, "env", cfg.App.Environment)

	// Profile store
	profileRepo, err := openProfileRepository(cfg.ProfileDB, log)
	if err != nil {
		return fmt.Errorf("failed to initialize profile store: %w", err)
	}
	defer profileRepo.Close()

	// Session persistence
	provider, sessionCache, err := sessionProvider(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize session backend: %w", err)
	}
	if sessionCache != nil {
		defer sessionCache.Close()
	}

	// Remote services. Inventory calls run detached from the request and
	// carry no client timeout.
	remote := rebrickable.NewClient(cfg.Rebrickable.BaseURL, log, rebrickable.WithSiteURL(cfg.Rebrickable.SiteURL))
	google := idp.NewGoogle(idp.GoogleConfig{
		ClientID:    cfg.Google.ClientID,
		Scopes:      cfg.Google.Scopes,
		UserInfoURL: cfg.Google.UserInfoURL,
		RevokeURL:   cfg.Google.RevokeURL,
	}, &http.Client{Timeout: 10 * time.Second}, log)

	// Services
	profileService := service.NewProfileService(profileRepo, log)
	signInService := service.NewSignInService(google, profileService, log)

	// Handlers
	checks := []handler.NamedPinger{{Name: "profile_db", Pinger: profileRepo}}
	if sessionCache != nil {
		checks = append(checks, handler.NamedPinger{Name: "session_cache", Pinger: sessionCache})
	}
	healthHandler := handler.New(cfg.App.Name, cfg.App.Version, checks...)
	inventoryHandler := handler.NewInventoryHandler(remote, service.InventorySyncConfig{
		CompensateMoves: cfg.Rebrickable.CompensateMoves,
	}, log)

	r := router.New(router.Config{
		Handler:          healthHandler,
		ViewHandler:      handler.NewViewHandler(inventoryHandler, google),
		InventoryHandler: inventoryHandler,
		ProfileHandler:   handler.NewProfileHandler(profileService, log),
		AuthHandler:      handler.NewAuthHandler(signInService, google, log),
		AdminHandler:     handler.NewAdminHandler(profileService, cfg.ProfileDB.Type, cfg.Session.Backend, log),
		Gate:             gate.New(gate.DefaultTable, log),
		SessionMiddleware: middleware.NewSessionMiddleware(middleware.SessionConfig{
			Provider: provider,
			TTL:      cfg.Session.TTL,
			Logger:   log,
		}),
		AdminMiddleware: middleware.NewAdminKeyMiddleware(cfg.App.LoginKey),
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		Logger:          log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server listening", "addr", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Infow("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server shutdown error", "err", err)
	}

	log.Infow("server stopped")
	return nil
}
