package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-box-office/internal/middleware"
)

// RegisterAuth registers the account endpoints under /v1/user. Register and
// token use the stricter auth rate limit; /me needs an access token.
func RegisterAuth(e *echo.Echo, d Deps) {
	a := d.Auth
	limit := middleware.NewTokenBucket(d.AuthRateLimit, d.Redis, d.Log)
	auth := middleware.JWTAuth(d.Cfg.JWTSecret)

	g := e.Group("/v1/user")
	g.POST("/register", a.Register, limit)
	g.POST("/token", a.Login, limit)
	g.POST("/token/refresh", a.Refresh, limit)
	g.POST("/logout", a.Logout)

	g.GET("/me", a.Me, auth)
	g.PUT("/me", a.UpdateMe, auth)
	g.PATCH("/me", a.UpdateMe, auth)
}
