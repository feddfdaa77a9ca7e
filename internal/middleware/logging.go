package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iliyamo/theatre-box-office/internal/logger"
)

// RequestLogger logs one line per request and puts a request scoped logger
// (request id attached) into the request context for deeper layers.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
	attach := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)
			scoped := logger.WithRequest(log, reqID, 0)
			c.SetRequest(c.Request().WithContext(logger.NewContext(c.Request().Context(), scoped)))
			return next(c)
		}
	}

	logValues := echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			lvl := zapcore.InfoLevel
			switch {
			case v.Status >= 500:
				lvl = zapcore.ErrorLevel
			case v.Status >= 400:
				lvl = zapcore.WarnLevel
			}
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency.Round(time.Microsecond)),
				zap.String("request_id", v.RequestID),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("user", identity(c)),
			}
			if v.Error != nil && v.Status >= 500 {
				fields = append(fields, zap.Error(v.Error))
			}
			log.Check(lvl, "request").Write(fields...)
			return nil
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return logValues(attach(next))
	}
}
