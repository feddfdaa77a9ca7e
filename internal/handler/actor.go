package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/repository"
)

type ActorHandler struct {
	Actors *repository.ActorRepo
}

func NewActorHandler(actors *repository.ActorRepo) *ActorHandler {
	return &ActorHandler{Actors: actors}
}

type actorRequest struct {
	FirstName string `json:"first_name" validate:"required,max=64"`
	LastName  string `json:"last_name" validate:"required,max=64"`
}

func (r actorRequest) model(id uint64) model.Actor {
	return model.Actor{ID: id, FirstName: r.FirstName, LastName: r.LastName}
}

func (h *ActorHandler) List(c echo.Context) error {
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	actors, total, err := h.Actors.List(ctx, p.repo())
	if err != nil {
		return repoErr(err, "actor", "name")
	}
	out := make([]ActorResponse, 0, len(actors))
	for _, a := range actors {
		out = append(out, newActorResponse(a))
	}
	return c.JSON(http.StatusOK, newPage(p, total, out))
}

func (h *ActorHandler) Get(c echo.Context) error {
	id, err := parseID(c, "actor")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := h.Actors.GetByID(ctx, id)
	if err != nil {
		return repoErr(err, "actor", "name")
	}
	return c.JSON(http.StatusOK, newActorResponse(*a))
}

func (h *ActorHandler) Create(c echo.Context) error {
	var req actorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	a := req.model(0)
	if err := h.Actors.Create(ctx, &a); err != nil {
		return repoErr(err, "actor", "name")
	}
	return c.JSON(http.StatusCreated, newActorResponse(a))
}

func (h *ActorHandler) Update(c echo.Context) error {
	id, err := parseID(c, "actor")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cur, err := h.Actors.GetByID(ctx, id)
	if err != nil {
		return repoErr(err, "actor", "name")
	}
	var req actorRequest
	if c.Request().Method == http.MethodPatch {
		req = actorRequest{FirstName: cur.FirstName, LastName: cur.LastName}
	}
	if err := bind(c, &req); err != nil {
		return err
	}

	a := req.model(id)
	if err := h.Actors.Update(ctx, &a); err != nil {
		return repoErr(err, "actor", "name")
	}
	return c.JSON(http.StatusOK, newActorResponse(a))
}

func (h *ActorHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "actor")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Actors.Delete(ctx, id); err != nil {
		return repoErr(err, "actor", "name")
	}
	return noContent(c)
}
