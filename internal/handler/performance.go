package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-box-office/internal/apperror"
	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/repository"
	"github.com/iliyamo/theatre-box-office/internal/storage"
)

type PerformanceHandler struct {
	Performances *repository.PerformanceRepo
	Plays        *repository.PlayRepo
	Halls        *repository.HallRepo
	Media        storage.Storage
}

func NewPerformanceHandler(performances *repository.PerformanceRepo, plays *repository.PlayRepo,
	halls *repository.HallRepo, media storage.Storage) *PerformanceHandler {
	return &PerformanceHandler{Performances: performances, Plays: plays, Halls: halls, Media: media}
}

type performanceRequest struct {
	ShowTime    time.Time `json:"show_time" validate:"required"`
	Play        uint64    `json:"play" validate:"required"`
	TheatreHall uint64    `json:"theatre_hall" validate:"required"`
}

// List supports ?date=YYYY-MM-DD (UTC calendar day of the show time) and
// ?play=<id>. Newest performances come first.
func (h *PerformanceHandler) List(c echo.Context) error {
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	var f repository.PerformanceFilter
	if raw := c.QueryParam("date"); raw != "" {
		d, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return apperror.Field("date", "Enter a valid date.")
		}
		f.Date = &d
	}
	if raw := c.QueryParam("play"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return apperror.Field("play", "Enter a whole number.")
		}
		f.PlayID = id
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	list, total, err := h.Performances.List(ctx, f, p.repo())
	if err != nil {
		return repoErr(err, "performance", "id")
	}
	out := make([]PerformanceListItem, 0, len(list))
	for _, ps := range list {
		out = append(out, newPerformanceListItem(ps, h.Media))
	}
	return c.JSON(http.StatusOK, newPage(p, total, out))
}

// Get returns the performance with its play, hall and the seats already
// taken.
func (h *PerformanceHandler) Get(c echo.Context) error {
	id, err := parseID(c, "performance")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	return h.respondDetail(ctx, c, id, http.StatusOK)
}

func (h *PerformanceHandler) Create(c echo.Context) error {
	var req performanceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.checkRefs(ctx, req); err != nil {
		return err
	}
	pf := model.Performance{ShowTime: req.ShowTime, PlayID: req.Play, TheatreHallID: req.TheatreHall}
	if err := h.Performances.Create(ctx, &pf); err != nil {
		return repoErr(err, "performance", "id")
	}
	return h.respondDetail(ctx, c, pf.ID, http.StatusCreated)
}

func (h *PerformanceHandler) Update(c echo.Context) error {
	id, err := parseID(c, "performance")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	cur, err := h.Performances.GetByID(ctx, id)
	if err != nil {
		return repoErr(err, "performance", "id")
	}
	var req performanceRequest
	if c.Request().Method == http.MethodPatch {
		req = performanceRequest{ShowTime: cur.ShowTime, Play: cur.PlayID, TheatreHall: cur.TheatreHallID}
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.checkRefs(ctx, req); err != nil {
		return err
	}

	pf := model.Performance{ID: id, ShowTime: req.ShowTime, PlayID: req.Play, TheatreHallID: req.TheatreHall}
	if err := h.Performances.Update(ctx, &pf); err != nil {
		return repoErr(err, "performance", "id")
	}
	return h.respondDetail(ctx, c, id, http.StatusOK)
}

func (h *PerformanceHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "performance")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Performances.Delete(ctx, id); err != nil {
		return repoErr(err, "performance", "id")
	}
	return noContent(c)
}

func (h *PerformanceHandler) respondDetail(ctx context.Context, c echo.Context, id uint64, status int) error {
	ps, err := h.Performances.GetSummary(ctx, id)
	if err != nil {
		return repoErr(err, "performance", "id")
	}
	play, err := h.Plays.GetByID(ctx, ps.PlayID)
	if err != nil {
		return repoErr(err, "play", "title")
	}
	taken, err := h.Performances.TakenPlaces(ctx, id)
	if err != nil {
		return repoErr(err, "performance", "id")
	}
	return c.JSON(status, newPerformanceDetail(*ps, *play, taken, h.Media))
}

func (h *PerformanceHandler) checkRefs(ctx context.Context, req performanceRequest) error {
	fields := map[string]string{}
	if _, err := h.Plays.GetByID(ctx, req.Play); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return apperror.Internal("check play", err)
		}
		fields["play"] = invalidPK(req.Play)
	}
	if _, err := h.Halls.GetByID(ctx, req.TheatreHall); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return apperror.Internal("check theatre hall", err)
		}
		fields["theatre_hall"] = invalidPK(req.TheatreHall)
	}
	if len(fields) > 0 {
		return apperror.Validation(fields)
	}
	return nil
}
