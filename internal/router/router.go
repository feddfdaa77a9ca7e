// Package router wires handlers and middleware into an echo instance.
package router

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/config"
	"github.com/iliyamo/theatre-box-office/internal/handler"
	"github.com/iliyamo/theatre-box-office/internal/middleware"
)

// Deps is everything New needs. Redis may be nil; caching and rate
// limiting are then disabled. MediaRoot is served under Cfg.MediaURL when
// images are stored on local disk.
type Deps struct {
	Cfg           config.Config
	Log           *zap.Logger
	DB            handler.Pinger
	Redis         *redis.Client
	Cache         config.CacheConfig
	RateLimit     config.RateLimitConfig
	AuthRateLimit config.RateLimitConfig
	MediaRoot     string

	Auth         *handler.AuthHandler
	Genres       *handler.GenreHandler
	Actors       *handler.ActorHandler
	Halls        *handler.HallHandler
	Plays        *handler.PlayHandler
	Performances *handler.PerformanceHandler
	Reservations *handler.ReservationHandler
}

// New builds the echo instance with the global middleware chain and every
// route registered.
func New(d Deps) *echo.Echo {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(d.Log)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit(bodyLimit(d.Cfg.UploadMaxBytes)))

	RegisterRoutes(e, d.DB)
	RegisterAuth(e, d)
	RegisterTheatre(e, d)

	if d.MediaRoot != "" && d.Cfg.MediaURL != "" {
		e.Static(d.Cfg.MediaURL, d.MediaRoot)
	}
	return e
}

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// bodyLimit leaves 1 MiB on top of the largest accepted upload for the
// multipart framing.
func bodyLimit(uploadMax int64) string {
	if uploadMax <= 0 {
		uploadMax = 5 << 20
	}
	return fmt.Sprintf("%dK", (uploadMax+(1<<20)+1023)/1024)
}
