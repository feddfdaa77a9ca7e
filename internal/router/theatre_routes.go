package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-box-office/internal/middleware"
	"github.com/iliyamo/theatre-box-office/internal/model"
)

// resource is implemented by every catalog handler.
type resource interface {
	List(c echo.Context) error
	Get(c echo.Context) error
	Create(c echo.Context) error
	Update(c echo.Context) error
	Delete(c echo.Context) error
}

// RegisterTheatre registers the catalog and reservation endpoints under
// /v1/theatre. Every route needs an access token; catalog writes need a
// staff role while reservations are open to any authenticated user. Catalog responses go through the Redis cache, and any
// successful write, reservations included, invalidates it.
func RegisterTheatre(e *echo.Echo, d Deps) {
	g := e.Group("/v1/theatre",
		middleware.JWTAuth(d.Cfg.JWTSecret),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log),
	)
	staff := middleware.StaffForWrites()
	cached := middleware.NewRedisCache(d.Cache, d.Redis, d.Log)

	registerResource(g, "/genres", d.Genres, staff, cached)
	registerResource(g, "/actors", d.Actors, staff, cached)
	registerResource(g, "/theatre-halls", d.Halls, staff, cached)
	registerResource(g, "/plays", d.Plays, staff, cached)
	registerResource(g, "/performances", d.Performances, staff, cached)

	g.POST("/plays/:id/upload-image", d.Plays.UploadImage,
		middleware.RequireRole(model.RoleStaff, model.RoleAdmin), cached)

	r := d.Reservations
	invalidate := middleware.NewCacheInvalidator(d.Cache, d.Redis, d.Log)
	g.GET("/reservations", r.List)
	g.POST("/reservations", r.Create, invalidate)
	g.GET("/reservations/:id", r.Get)
}

func registerResource(g *echo.Group, path string, h resource, mw ...echo.MiddlewareFunc) {
	g.GET(path, h.List, mw...)
	g.POST(path, h.Create, mw...)
	g.GET(path+"/:id", h.Get, mw...)
	g.PUT(path+"/:id", h.Update, mw...)
	g.PATCH(path+"/:id", h.Update, mw...)
	g.DELETE(path+"/:id", h.Delete, mw...)
}
