package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/theatre-box-office/internal/apperror"
	"github.com/iliyamo/theatre-box-office/internal/middleware"
	"github.com/iliyamo/theatre-box-office/internal/service"
	"github.com/iliyamo/theatre-box-office/internal/storage"
)

// ReservationHandler lets authenticated users book tickets and see their
// own reservations. The owner always comes from the access token.
type ReservationHandler struct {
	Reservations *service.ReservationService
	Media        storage.Storage
}

func NewReservationHandler(reservations *service.ReservationService, media storage.Storage) *ReservationHandler {
	return &ReservationHandler{Reservations: reservations, Media: media}
}

type ticketRequest struct {
	Performance uint64 `json:"performance" validate:"required"`
	Row         int    `json:"row"`
	Seat        int    `json:"seat"`
}

type reservationRequest struct {
	Tickets []ticketRequest `json:"tickets" validate:"required,min=1,dive"`
}

func (h *ReservationHandler) List(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	p, err := pageParams(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	list, total, err := h.Reservations.List(ctx, userID, p.repo())
	if err != nil {
		return apperror.Internal("list reservations", err)
	}
	out := make([]ReservationResponse, 0, len(list))
	for _, r := range list {
		out = append(out, newReservationResponse(r, h.Media))
	}
	return c.JSON(http.StatusOK, newPage(p, total, out))
}

// Create books every requested seat or none. Seat bounds and taken seats
// are checked by the reservation service.
func (h *ReservationHandler) Create(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req reservationRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	tickets := make([]service.TicketRequest, 0, len(req.Tickets))
	for _, t := range req.Tickets {
		tickets = append(tickets, service.TicketRequest{PerformanceID: t.Performance, Row: t.Row, Seat: t.Seat})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Reservations.Create(ctx, userID, tickets)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newReservationResponse(*res, h.Media))
}

func (h *ReservationHandler) Get(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "reservation")
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Reservations.Get(ctx, id, userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newReservationResponse(*res, h.Media))
}

func currentUser(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, apperror.Unauthorized("authentication credentials were not provided")
	}
	return id, nil
}
