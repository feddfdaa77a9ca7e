package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/config"
	"github.com/iliyamo/theatre-box-office/internal/database"
	"github.com/iliyamo/theatre-box-office/internal/handler"
	"github.com/iliyamo/theatre-box-office/internal/logger"
	"github.com/iliyamo/theatre-box-office/internal/queue"
	"github.com/iliyamo/theatre-box-office/internal/repository"
	"github.com/iliyamo/theatre-box-office/internal/router"
	"github.com/iliyamo/theatre-box-office/internal/service"
	"github.com/iliyamo/theatre-box-office/internal/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New("theatre-api", cfg.Env, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBDriver, database.DSN(cfg))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := database.NewMigrator(db, cfg.DBDriver, log).Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		// the API works without Redis, only caching and rate limiting are lost
		log.Warn("redis unavailable, cache and rate limit disabled", zap.Error(err))
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	media, mediaRoot, err := newStorage(ctx, cfg, log)
	if err != nil {
		return err
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	genres := repository.NewGenreRepo(db)
	actors := repository.NewActorRepo(db)
	halls := repository.NewHallRepo(db)
	plays := repository.NewPlayRepo(db)
	performances := repository.NewPerformanceRepo(db)
	reservations := repository.NewReservationRepo(db)

	bookings := service.NewReservationService(db, reservations, performances, publisher, log)

	e := router.New(router.Deps{
		Cfg:           cfg,
		Log:           log,
		DB:            db,
		Redis:         rdb,
		Cache:         config.LoadCacheConfig(),
		RateLimit:     config.LoadRateLimitConfig(),
		AuthRateLimit: config.LoadAuthRateLimitConfig(),
		MediaRoot:     mediaRoot,

		Auth:         handler.NewAuthHandler(cfg, users, tokens, log),
		Genres:       handler.NewGenreHandler(genres),
		Actors:       handler.NewActorHandler(actors),
		Halls:        handler.NewHallHandler(halls),
		Plays:        handler.NewPlayHandler(plays, genres, actors, media, cfg.UploadMaxBytes, log),
		Performances: handler.NewPerformanceHandler(performances, plays, halls, media),
		Reservations: handler.NewReservationHandler(bookings, media),
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
			zap.String("db", cfg.DBDriver), zap.String("events", cfg.EventsBackend))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newPublisher(cfg config.Config, log *zap.Logger) (queue.Publisher, error) {
	switch cfg.EventsBackend {
	case "rabbitmq":
		return queue.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitQueue, log), nil
	case "nats":
		nc, err := queue.ConnectNATS(cfg.NATSURL, "theatre-api", log)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		return queue.NewNATSPublisher(nc, cfg.NATSSubject, log), nil
	default:
		return queue.NopPublisher{}, nil
	}
}

// newStorage returns the image store and, for local storage, the directory
// to serve under MEDIA_URL.
func newStorage(ctx context.Context, cfg config.Config, log *zap.Logger) (storage.Storage, string, error) {
	if cfg.StorageBackend == "s3" {
		s3, err := storage.NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, log)
		if err != nil {
			return nil, "", fmt.Errorf("s3 storage: %w", err)
		}
		return s3, "", nil
	}
	local, err := storage.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL, log)
	if err != nil {
		return nil, "", fmt.Errorf("local storage: %w", err)
	}
	return local, local.Root(), nil
}
