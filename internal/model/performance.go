package model

import "time"

// Performance is one showing of a Play in a TheatreHall.
type Performance struct {
	ID            uint64    // performances.id
	ShowTime      time.Time // performances.show_time (UTC)
	PlayID        uint64    // performances.play_id
	TheatreHallID uint64    // performances.theatre_hall_id
}

// PerformanceSummary is the denormalised read model used by performance
// lists and ticket views: the performance joined with its play and hall and
// the number of tickets sold so far.
type PerformanceSummary struct {
	ID          uint64
	ShowTime    time.Time
	PlayID      uint64
	PlayTitle   string
	PlayImage   *string
	Hall        TheatreHall
	TicketsSold int
}

// TicketsAvailable is hall capacity minus tickets sold. It is computed at
// read time and never stored.
func (p PerformanceSummary) TicketsAvailable() int {
	return p.Hall.Capacity() - p.TicketsSold
}

// Place is an occupied (row, seat) pair of a performance.
type Place struct {
	Row  int
	Seat int
}
