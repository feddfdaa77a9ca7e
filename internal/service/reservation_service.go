// Package service holds workflows that span several repositories.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/apperror"
	"github.com/iliyamo/theatre-box-office/internal/logger"
	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/queue"
	"github.com/iliyamo/theatre-box-office/internal/repository"
)

// TicketRequest is one requested seat.
type TicketRequest struct {
	PerformanceID uint64
	Row           int
	Seat          int
}

// ReservationService creates reservations. Every ticket is checked against
// its performance's hall and against already sold seats, and the
// reservation with all its tickets is written in a single transaction.
type ReservationService struct {
	db           *sql.DB
	reservations *repository.ReservationRepo
	performances *repository.PerformanceRepo
	publisher    queue.Publisher
	log          *zap.Logger
	now          func() time.Time
}

func NewReservationService(db *sql.DB, reservations *repository.ReservationRepo, performances *repository.PerformanceRepo,
	publisher queue.Publisher, log *zap.Logger) *ReservationService {
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReservationService{
		db:           db,
		reservations: reservations,
		performances: performances,
		publisher:    publisher,
		log:          log,
		now:          time.Now,
	}
}

type seatKey struct {
	performanceID uint64
	row, seat     int
}

// Create books all tickets for userID or none of them.
//
// Errors: a validation error keyed "tickets", "tickets[i].performance",
// "tickets[i].row" or "tickets[i].seat"; a conflict when a seat is
// requested twice or already sold.
func (s *ReservationService) Create(ctx context.Context, userID uint64, tickets []TicketRequest) (*model.Reservation, error) {
	if len(tickets) == 0 {
		return nil, apperror.Field("tickets", "at least one ticket is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperror.Internal("begin transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res := model.Reservation{UserID: userID, CreatedAt: s.now().UTC()}
	if err := s.reservations.CreateTx(ctx, tx, &res); err != nil {
		return nil, apperror.Internal("create reservation", err)
	}

	perfs := map[uint64]*model.PerformanceSummary{}
	seen := map[seatKey]bool{}
	for i, req := range tickets {
		perf, ok := perfs[req.PerformanceID]
		if !ok {
			perf, err = s.performances.GetSummaryTx(ctx, tx, req.PerformanceID)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperror.Field(fmt.Sprintf("tickets[%d].performance", i),
					fmt.Sprintf("invalid pk \"%d\" - object does not exist", req.PerformanceID))
			}
			if err != nil {
				return nil, apperror.Internal("load performance", err)
			}
			perfs[req.PerformanceID] = perf
		}

		if err := model.ValidateTicket(req.Row, req.Seat, perf.Hall); err != nil {
			var rangeErr *model.RangeError
			if errors.As(err, &rangeErr) {
				return nil, apperror.Field(fmt.Sprintf("tickets[%d].%s", i, rangeErr.Field), rangeErr.Error())
			}
			return nil, err
		}

		key := seatKey{req.PerformanceID, req.Row, req.Seat}
		if seen[key] {
			return nil, apperror.Conflict(fmt.Sprintf(
				"seat row %d, seat %d for performance %d is requested more than once", req.Row, req.Seat, req.PerformanceID))
		}
		seen[key] = true

		taken, err := s.reservations.SeatTakenTx(ctx, tx, req.PerformanceID, req.Row, req.Seat)
		if err != nil {
			return nil, apperror.Internal("check seat", err)
		}
		if taken {
			return nil, seatTaken(req)
		}

		t := model.Ticket{Row: req.Row, Seat: req.Seat, PerformanceID: req.PerformanceID, ReservationID: res.ID}
		if err := s.reservations.CreateTicketTx(ctx, tx, &t); err != nil {
			// a concurrent request took the seat between the check and the insert
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, seatTaken(req)
			}
			return nil, apperror.Internal("create ticket", err)
		}
	}

	if err := tx.Commit(); err != nil {
		// some drivers report constraint failures only at commit
		if repository.IsDuplicate(err) {
			return nil, apperror.Conflict("one of the requested seats is already taken")
		}
		return nil, apperror.Internal("commit reservation", err)
	}
	committed = true

	created, err := s.reservations.GetForUser(ctx, res.ID, userID)
	if err != nil {
		return nil, apperror.Internal("reload reservation", err)
	}
	s.publish(ctx, *created)
	return created, nil
}

// List returns the caller's reservations, newest first.
func (s *ReservationService) List(ctx context.Context, userID uint64, pg repository.Page) ([]model.Reservation, int64, error) {
	return s.reservations.ListByUser(ctx, userID, pg)
}

// Get returns one of the caller's reservations.
func (s *ReservationService) Get(ctx context.Context, id, userID uint64) (*model.Reservation, error) {
	res, err := s.reservations.GetForUser(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NotFound("reservation not found")
	}
	return res, err
}

// publish is best effort: the reservation is already committed, so a broker
// failure is logged and otherwise ignored.
func (s *ReservationService) publish(ctx context.Context, r model.Reservation) {
	ev := queue.NewReservationCreatedEvent(uuid.NewString(), r)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := s.publisher.PublishReservationCreated(ctx, ev); err != nil {
		logger.FromContext(ctx, s.log).Warn("publish reservation.created failed",
			zap.Error(err), zap.Uint64("reservation_id", r.ID), zap.String("event_id", ev.EventID))
	}
}

func seatTaken(req TicketRequest) error {
	return apperror.Conflict(fmt.Sprintf("seat row %d, seat %d for performance %d is already taken",
		req.Row, req.Seat, req.PerformanceID))
}
