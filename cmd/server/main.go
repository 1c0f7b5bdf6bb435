package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"imagetrans/configs"
	"imagetrans/internal/blob"
	"imagetrans/internal/dispatch"
	"imagetrans/internal/handler"
	"imagetrans/internal/logger"
	"imagetrans/internal/middleware"
	"imagetrans/internal/repository/postgres"
	"imagetrans/internal/scrape"
	"imagetrans/internal/server"
)

func main() {
	if err := logger.InitFromEnv(); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.Named("main")
	log.Info("starting image translation gateway")

	cfg, err := configs.LoadConfig("")
	if err != nil {
		log.Fatal("load configuration", zap.Error(err))
	}
	middleware.SetAllowedOrigins(cfg.CORS.Origins)

	ctx := context.Background()

	pool, err := postgres.NewConnection(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool, "migrations"); err != nil {
		log.Fatal("run migrations", zap.Error(err))
	}

	taskRepo := postgres.NewTaskRepository(pool)
	imageRepo := postgres.NewSourceImageRepository(pool)
	twitterRepo := postgres.NewTwitterSourceRepository(pool)
	pixivRepo := postgres.NewPixivSourceRepository(pool)

	store, err := newBlobStore(cfg)
	if err != nil {
		log.Fatal("configure blob store", zap.Error(err))
	}

	dispatcher := dispatch.NewDispatcher(taskRepo, store, logger.Named("dispatch"))

	log.Info("resuming unfinished tasks")
	if err := dispatcher.Resume(ctx); err != nil {
		log.Fatal("resume tasks", zap.Error(err))
	}

	scrapeClient := scrape.NewClient(
		&http.Client{Timeout: 60 * time.Second},
		scrape.NewBreaker(5, 60*time.Second),
	)
	twitter := scrape.NewTwitter(scrapeClient, store, imageRepo, twitterRepo, logger.Named("twitter"))
	pixiv := scrape.NewPixiv(scrapeClient, store, imageRepo, pixivRepo, logger.Named("pixiv"))

	h := handler.New(
		dispatcher, taskRepo, imageRepo, store,
		twitter, pixiv,
		cfg.Worker.Secret,
		logger.Named("handler"),
	)

	srv := server.NewServer(cfg.Server, h)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}

// newBlobStore builds the configured blob store driver.
func newBlobStore(cfg *configs.Config) (blob.Store, error) {
	switch cfg.Blob.Driver {
	case "s3":
		return blob.NewS3Store(context.Background(), blob.S3Config{
			Endpoint:        cfg.Blob.S3.Endpoint,
			Region:          cfg.Blob.S3.Region,
			Bucket:          cfg.Blob.S3.Bucket,
			AccessKeyID:     cfg.Blob.S3.AccessKeyID,
			SecretAccessKey: cfg.Blob.S3.SecretAccessKey,
			PublicBase:      cfg.Blob.PublicBase,
		})
	default:
		return blob.NewHTTPStore(nil, cfg.Blob.Base, cfg.Blob.Secret, cfg.Blob.PublicBase), nil
	}
}
