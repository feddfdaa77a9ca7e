package model

import "fmt"

// Ticket assigns one seat of a performance to a reservation.
// (PerformanceID, Row, Seat) is unique.
type Ticket struct {
	ID            uint64 // tickets.id
	Row           int    // tickets.row_num
	Seat          int    // tickets.seat
	PerformanceID uint64 // tickets.performance_id
	ReservationID uint64 // tickets.reservation_id

	// Performance is filled by read paths that join the performance.
	Performance *PerformanceSummary
}

// RangeError is returned by ValidateTicket when a row or seat falls outside
// the hall layout. Field is "row" or "seat".
type RangeError struct {
	Field    string
	HallAttr string
	Max      int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s number must be in available range: (1, %s): (1, %d)", e.Field, e.HallAttr, e.Max)
}

// ValidateTicket checks that row and seat lie inside the hall layout.
// Rows are checked first, so a ticket that is wrong on both axes reports
// the row.
func ValidateTicket(row, seat int, hall TheatreHall) error {
	if row < 1 || row > hall.Rows {
		return &RangeError{Field: "row", HallAttr: "rows", Max: hall.Rows}
	}
	if seat < 1 || seat > hall.SeatsInRow {
		return &RangeError{Field: "seat", HallAttr: "seats_in_row", Max: hall.SeatsInRow}
	}
	return nil
}
