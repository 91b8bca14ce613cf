package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crucial707/hci-account/internal/account"
	"github.com/crucial707/hci-account/internal/config"
	"github.com/crucial707/hci-account/internal/db"
	"github.com/crucial707/hci-account/internal/handlers"
	"github.com/crucial707/hci-account/internal/middleware"
	"github.com/crucial707/hci-account/internal/password"
	"github.com/crucial707/hci-account/internal/repo"
	"github.com/crucial707/hci-account/internal/resettoken"
	"github.com/crucial707/hci-account/internal/storage"
	"github.com/crucial707/hci-account/internal/sweeper"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()
	logger := newLogger(cfg.LogFormat)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Connect to database FIRST
	database, err := db.Connect(
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBName,
		cfg.DBUser,
		cfg.DBPass,
		cfg.DBMaxOpenConns,
		cfg.DBMaxIdleConns,
	)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	logger.Info("connected to database", "host", cfg.DBHost, "name", cfg.DBName)

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL()); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	photos, err := newPhotoStore(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to open photo storage", "backend", cfg.StorageBackend, "error", err)
		os.Exit(1)
	}

	if cfg.PhotoSweepCron != "" && cfg.PhotoSweepCron != "off" {
		sw := &sweeper.Sweeper{
			Refs:   repo.NewUserRepo(database),
			Store:  photos,
			MinAge: cfg.PhotoSweepMinAge,
			Logger: logger,
		}
		c, err := sweeper.Start(cfg.PhotoSweepCron, sw)
		if err != nil {
			logger.Error("failed to schedule photo sweeper", "error", err)
			os.Exit(1)
		}
		defer c.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(database, cfg, photos, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server LAST
	errCh := make(chan error, 1)
	go func() {
		if cfg.TLSCertFile != "" {
			logger.Info("starting server", "addr", srv.Addr, "tls", true)
			errCh <- srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
			return
		}
		logger.Info("starting server", "addr", srv.Addr, "tls", false)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}
}

func newLogger(format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func newPhotoStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	if cfg.StorageBackend == config.StorageS3 {
		s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Prefix:    cfg.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		return s3Store, nil
	}
	return storage.NewLocalStore(cfg.StorageRoot)
}

// newRouter wires handlers and middleware. database backs users, audit and readiness.
func newRouter(database *sql.DB, cfg config.Config, photos storage.Store, logger *slog.Logger) http.Handler {
	users := repo.NewUserRepo(database)
	accounts := account.NewService(account.Config{
		Users:          users,
		Hasher:         password.Bcrypt{Cost: cfg.BcryptCost},
		Photos:         photos,
		Tokens:         resettoken.NewIssuer([]byte(cfg.ResetTokenSecret), cfg.ResetTokenTTL),
		Audit:          repo.NewAuditRepo(database),
		Logger:         logger,
		PhotoURLPrefix: cfg.PhotoURLPrefix,
	})

	authHandler := &handlers.AuthHandler{Accounts: accounts, Logger: logger}
	userHandler := &handlers.UserHandler{Accounts: accounts, Logger: logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLog(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Prometheus)
	r.Use(middleware.SecurityHeaders(cfg.TLSCertFile != ""))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := database.PingContext(ctx); err != nil {
			logger.WarnContext(r.Context(), "readiness check failed", "error", err)
			handlers.JSONError(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// JSON endpoints get a small body limit; the photo upload gets its own.
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.MaxBytes(middleware.DefaultMaxBodyBytes))
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot-password", authHandler.ForgotPassword)
	})
	r.Route("/user", func(r chi.Router) {
		r.With(middleware.MaxBytes(int64(cfg.MaxUploadBytes))).Post("/profile-photo", userHandler.UploadProfilePhoto)
		r.Get("/profile", userHandler.GetProfile)
	})

	r.Get(cfg.PhotoURLPrefix+"{name}", userHandler.ServeProfilePhoto)

	return r
}
