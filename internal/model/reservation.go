package model

import "time"

// Reservation groups the tickets a user bought in one request. It is created
// together with its tickets and never modified afterwards.
type Reservation struct {
	ID        uint64    // reservations.id
	UserID    uint64    // reservations.user_id
	CreatedAt time.Time // reservations.created_at
	Tickets   []Ticket
}
