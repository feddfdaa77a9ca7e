package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-box-office/internal/apperror"
	"github.com/iliyamo/theatre-box-office/internal/model"
)

// RequireRole lets the request through only when the role set by JWTAuth is
// one of roles. Anything else gets 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Role(c)] {
				return apperror.Forbidden("you do not have permission to perform this action")
			}
			return next(c)
		}
	}
}

// StaffForWrites allows safe methods for every authenticated user and
// requires STAFF or ADMIN for everything else.
func StaffForWrites() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if isSafeMethod(c.Request().Method) || model.IsStaffRole(Role(c)) {
				return next(c)
			}
			return apperror.Forbidden("you do not have permission to perform this action")
		}
	}
}

func isSafeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}
