// Package queue carries reservation events between the API and the worker.
// The API publishes after a reservation commits; the worker consumes and
// appends one line per reservation to a log file.
package queue

import (
	"context"
	"time"

	"github.com/iliyamo/theatre-box-office/internal/model"
)

// ReservationCreatedEvent is published once a reservation has been committed.
// It carries enough data for consumers to log or notify without reading the
// primary database.
type ReservationCreatedEvent struct {
	EventID       string        `json:"event_id"`
	ReservationID uint64        `json:"reservation_id"`
	UserID        uint64        `json:"user_id"`
	CreatedAt     string        `json:"created_at"`
	Tickets       []TicketEvent `json:"tickets"`
}

type TicketEvent struct {
	TicketID      uint64 `json:"ticket_id"`
	PerformanceID uint64 `json:"performance_id"`
	PlayTitle     string `json:"play_title"`
	HallName      string `json:"hall_name"`
	ShowTime      string `json:"show_time"`
	Row           int    `json:"row"`
	Seat          int    `json:"seat"`
}

// Publisher delivers reservation events to a broker.
type Publisher interface {
	PublishReservationCreated(ctx context.Context, ev ReservationCreatedEvent) error
	Close() error
}

// NewReservationCreatedEvent builds the event from a reservation whose
// tickets have their Performance loaded.
func NewReservationCreatedEvent(eventID string, r model.Reservation) ReservationCreatedEvent {
	ev := ReservationCreatedEvent{
		EventID:       eventID,
		ReservationID: r.ID,
		UserID:        r.UserID,
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
		Tickets:       make([]TicketEvent, 0, len(r.Tickets)),
	}
	for _, t := range r.Tickets {
		te := TicketEvent{
			TicketID:      t.ID,
			PerformanceID: t.PerformanceID,
			Row:           t.Row,
			Seat:          t.Seat,
		}
		if t.Performance != nil {
			te.PlayTitle = t.Performance.PlayTitle
			te.HallName = t.Performance.Hall.Name
			te.ShowTime = t.Performance.ShowTime.UTC().Format(time.RFC3339)
		}
		ev.Tickets = append(ev.Tickets, te)
	}
	return ev
}

// NopPublisher drops events. It is used when EVENTS_BACKEND=none.
type NopPublisher struct{}

func (NopPublisher) PublishReservationCreated(context.Context, ReservationCreatedEvent) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
