// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"inkpost/internal/apperr"
	"inkpost/internal/auth"
	"inkpost/internal/blog"
	"inkpost/internal/config"
	"inkpost/internal/database"
	"inkpost/internal/docstore"
	"inkpost/internal/handlers"
	"inkpost/internal/middleware"
	"inkpost/internal/router"
	"inkpost/internal/storage"
	"inkpost/internal/store"
	"inkpost/internal/store/memstore"
	"inkpost/internal/store/mongostore"
	"inkpost/internal/upload"
	"inkpost/internal/valkey"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogger(cfg)
			slog.Info("configuration loaded",
				"env", cfg.Env,
				"addr", cfg.Addr(),
				"store", cfg.StoreDriver,
				"uploads", cfg.UploadBackend,
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

// repositories bundles one backend's implementations of the blog
// repositories together with its health check and cleanup.
type repositories struct {
	posts      blog.PostRepository
	categories blog.CategoryRepository
	users      blog.UserRepository
	ping       handlers.Check
	close      func()
}

func serve(ctx context.Context, cfg *config.Config) error {
	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	blobs, err := openStorage(cfg)
	if err != nil {
		return err
	}
	forms := upload.NewHandler(blobs, cfg.UploadMaxBytes)
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)

	checks := map[string]handlers.Check{"store": repos.ping}

	var (
		revoker auth.Revoker
		limiter middleware.Limiter
	)
	if cfg.ValkeyAddr != "" {
		rdb, err := valkey.Connect(ctx, cfg.ValkeyAddr, cfg.ValkeyPassword)
		if err != nil {
			return err
		}
		defer rdb.Close()
		revoker = auth.NewDenylist(rdb)
		limiter = middleware.NewRedisLimiter(rdb, cfg.AuthRateLimit, time.Minute)
		checks["valkey"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		slog.Warn("valkey not configured, token revocation and rate limits are per process")
		revoker = auth.NewMemoryDenylist()
		rl := middleware.NewRateLimiter(cfg.AuthRateLimit, time.Minute)
		defer rl.Stop()
		limiter = rl
	}

	categories := blog.NewCategories(repos.categories)
	if cfg.StoreDriver != config.DriverPostgres && cfg.IsDev() {
		if err := seedCategories(ctx, categories); err != nil {
			return err
		}
	}

	deps := router.Deps{
		Posts:       handlers.NewPosts(blog.NewPosts(repos.posts, repos.categories, forms), forms),
		Categories:  handlers.NewCategories(categories, forms),
		Auth:        handlers.NewAuth(blog.NewAccounts(repos.users, tokens), revoker, forms),
		Health:      handlers.NewHealth(checks),
		Tokens:      tokens,
		Revoker:     revoker,
		AuthLimiter: limiter,
	}
	if cfg.UploadBackend == config.UploadDisk {
		deps.UploadsDir = cfg.UploadDir
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped gracefully")
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		slog.Warn("using in-memory store, data is lost on exit")
		db := memstore.New()
		return &repositories{
			posts:      db.Posts(),
			categories: db.Categories(),
			users:      db.Users(),
			ping:       func(context.Context) error { return nil },
			close:      func() {},
		}, nil

	case config.DriverMongo:
		var db *mongo.Database
		err := withRetry(ctx, "mongo", func(ctx context.Context) error {
			var err error
			db, err = docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
			return err
		})
		if err != nil {
			return nil, err
		}
		if err := docstore.EnsureIndexes(ctx, db); err != nil {
			docstore.Close(context.Background(), db)
			return nil, err
		}
		return &repositories{
			posts:      mongostore.NewPostStore(db),
			categories: mongostore.NewCategoryStore(db),
			users:      mongostore.NewUserStore(db),
			ping:       func(ctx context.Context) error { return db.Client().Ping(ctx, nil) },
			close: func() {
				if err := docstore.Close(context.Background(), db); err != nil {
					slog.Warn("mongo disconnect", "error", err)
				}
			},
		}, nil

	default:
		db, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		if cfg.IsDev() {
			if err := database.Seed(db); err != nil {
				db.Close()
				return nil, err
			}
		}
		return &repositories{
			posts:      store.NewPostStore(db),
			categories: store.NewCategoryStore(db),
			users:      store.NewUserStore(db),
			ping:       db.PingContext,
			close:      func() { db.Close() },
		}, nil
	}
}

func openPostgres(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	var db *sql.DB
	err := withRetry(ctx, "postgres", func(context.Context) error {
		var err error
		db, err = database.Connect(cfg.DSN())
		return err
	})
	return db, err
}

// withRetry runs connect with exponential backoff so the server survives
// a database that comes up after it.
func withRetry(ctx context.Context, name string, connect func(context.Context) error) error {
	backoff := retry.WithMaxRetries(5, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := connect(ctx); err != nil {
			slog.Warn("connect failed, retrying", "backend", name, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

func openStorage(cfg *config.Config) (storage.Backend, error) {
	if cfg.UploadBackend == config.UploadS3 {
		s3, err := storage.NewS3(storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			PublicURL: cfg.S3PublicURL,
		})
		if err != nil {
			return nil, err
		}
		slog.Info("s3 storage configured", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		return s3, nil
	}
	return storage.NewDisk(cfg.UploadDir), nil
}

// seedCategories creates database.DefaultCategories through the category
// service for stores without SQL seeding.
func seedCategories(ctx context.Context, categories *blog.Categories) error {
	for _, name := range database.DefaultCategories {
		_, err := categories.Create(ctx, name)
		if err != nil && !apperr.IsConflictOn(err, "name") {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return nil
}
