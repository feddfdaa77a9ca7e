package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/apperror"
	"github.com/iliyamo/theatre-box-office/internal/logger"
)

// ErrorHandler renders every error returned by handlers and middleware as
// {"error": "..."} (plus "fields" for validation failures). Unexpected
// errors are logged and reported as a plain 500.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := renderError(err)
		if status >= http.StatusInternalServerError {
			logger.FromContext(c.Request().Context(), log).Error("request failed",
				zap.Int("status", status), zap.Error(err))
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Warn("write error response", zap.Error(werr))
		}
	}
}

func renderError(err error) (int, echo.Map) {
	if appErr, ok := apperror.From(err); ok {
		status := appErr.Status()
		msg := appErr.Message
		if status >= http.StatusInternalServerError {
			msg = "internal server error"
		}
		body := echo.Map{"error": msg}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
		return status, body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := he.Message
		if m, ok := msg.(string); ok {
			return he.Code, echo.Map{"error": m}
		}
		return he.Code, echo.Map{"error": fmt.Sprint(msg)}
	}

	return http.StatusInternalServerError, echo.Map{"error": "internal server error"}
}
