package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/repository"
)

// HallHandler manages theatre halls. Rows and seats bound every ticket
// sold for performances in the hall.
type HallHandler struct {
	Halls *repository.HallRepo
}

func NewHallHandler(halls *repository.HallRepo) *HallHandler {
	return &HallHandler{Halls: halls}
}

type hallRequest struct {
	Name       string `json:"name" validate:"required,max=64"`
	Rows       int    `json:"rows" validate:"required,gt=0"`
	SeatsInRow int    `json:"seats_in_row" validate:"required,gt=0"`
}

func (r hallRequest) model(id uint64) model.TheatreHall {
	return model.TheatreHall{ID: id, Name: r.Name, Rows: r.Rows, SeatsInRow: r.SeatsInRow}
}

func (h *HallHandler) List(c echo.Context) error {
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	halls, total, err := h.Halls.List(ctx, p.repo())
	if err != nil {
		return repoErr(err, "theatre hall", "name")
	}
	out := make([]HallResponse, 0, len(halls))
	for _, hall := range halls {
		out = append(out, newHallResponse(hall))
	}
	return c.JSON(http.StatusOK, newPage(p, total, out))
}

func (h *HallHandler) Get(c echo.Context) error {
	id, err := parseID(c, "theatre hall")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	hall, err := h.Halls.GetByID(ctx, id)
	if err != nil {
		return repoErr(err, "theatre hall", "name")
	}
	return c.JSON(http.StatusOK, newHallResponse(*hall))
}

func (h *HallHandler) Create(c echo.Context) error {
	var req hallRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	hall := req.model(0)
	if err := h.Halls.Create(ctx, &hall); err != nil {
		return repoErr(err, "theatre hall", "name")
	}
	return c.JSON(http.StatusCreated, newHallResponse(hall))
}

// Update serves PUT and PATCH. Shrinking a hall does not touch tickets
// already sold outside the new bounds.
func (h *HallHandler) Update(c echo.Context) error {
	id, err := parseID(c, "theatre hall")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cur, err := h.Halls.GetByID(ctx, id)
	if err != nil {
		return repoErr(err, "theatre hall", "name")
	}
	var req hallRequest
	if c.Request().Method == http.MethodPatch {
		req = hallRequest{Name: cur.Name, Rows: cur.Rows, SeatsInRow: cur.SeatsInRow}
	}
	if err := bind(c, &req); err != nil {
		return err
	}

	hall := req.model(id)
	if err := h.Halls.Update(ctx, &hall); err != nil {
		return repoErr(err, "theatre hall", "name")
	}
	return c.JSON(http.StatusOK, newHallResponse(hall))
}

func (h *HallHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "theatre hall")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Halls.Delete(ctx, id); err != nil {
		return repoErr(err, "theatre hall", "name")
	}
	return noContent(c)
}
