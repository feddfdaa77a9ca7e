package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-box-office/internal/apperror"
	"github.com/iliyamo/theatre-box-office/internal/utils"
)

// JWTAuth validates a Bearer access token and stores the user id (uint64)
// and role in the echo context. Missing or invalid tokens end the request
// with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, found := strings.CutPrefix(auth, "Bearer ")
			if !found || strings.TrimSpace(raw) == "" {
				return apperror.Unauthorized("authentication credentials were not provided")
			}

			userID, role, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
			if err != nil {
				return apperror.Wrap(apperror.TypeUnauthorized, "invalid or expired token", err)
			}

			c.Set(ContextUserID, userID)
			c.Set(ContextRole, role)
			return next(c)
		}
	}
}
