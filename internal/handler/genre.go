package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/repository"
)

type GenreHandler struct {
	Genres *repository.GenreRepo
}

func NewGenreHandler(genres *repository.GenreRepo) *GenreHandler {
	return &GenreHandler{Genres: genres}
}

type genreRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

func (r genreRequest) model(id uint64) model.Genre { return model.Genre{ID: id, Name: r.Name} }

func (h *GenreHandler) List(c echo.Context) error {
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	genres, total, err := h.Genres.List(ctx, p.repo())
	if err != nil {
		return repoErr(err, "genre", "name")
	}
	out := make([]GenreResponse, 0, len(genres))
	for _, g := range genres {
		out = append(out, newGenreResponse(g))
	}
	return c.JSON(http.StatusOK, newPage(p, total, out))
}

func (h *GenreHandler) Get(c echo.Context) error {
	id, err := parseID(c, "genre")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	g, err := h.Genres.GetByID(ctx, id)
	if err != nil {
		return repoErr(err, "genre", "name")
	}
	return c.JSON(http.StatusOK, newGenreResponse(*g))
}

func (h *GenreHandler) Create(c echo.Context) error {
	var req genreRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	g := req.model(0)
	if err := h.Genres.Create(ctx, &g); err != nil {
		return repoErr(err, "genre", "name")
	}
	return c.JSON(http.StatusCreated, newGenreResponse(g))
}

// Update serves PUT and PATCH. PATCH starts from the stored genre so
// fields missing from the body keep their value.
func (h *GenreHandler) Update(c echo.Context) error {
	id, err := parseID(c, "genre")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cur, err := h.Genres.GetByID(ctx, id)
	if err != nil {
		return repoErr(err, "genre", "name")
	}
	var req genreRequest
	if c.Request().Method == http.MethodPatch {
		req.Name = cur.Name
	}
	if err := bind(c, &req); err != nil {
		return err
	}

	g := req.model(id)
	if err := h.Genres.Update(ctx, &g); err != nil {
		return repoErr(err, "genre", "name")
	}
	return c.JSON(http.StatusOK, newGenreResponse(g))
}

func (h *GenreHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "genre")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Genres.Delete(ctx, id); err != nil {
		return repoErr(err, "genre", "name")
	}
	return noContent(c)
}
