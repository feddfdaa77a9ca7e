package model

// TheatreHall is a room with a rectangular seating layout of Rows rows and
// SeatsInRow seats per row. Rows and seats are numbered from 1.
//
// Fields:
//
//	ID         – primary key identifier.
//	Name       – unique hall name.
//	Rows       – number of seating rows (> 0).
//	SeatsInRow – number of seats in each row (> 0).
type TheatreHall struct {
	ID         uint64 // theatre_halls.id
	Name       string // theatre_halls.name
	Rows       int    // theatre_halls.num_rows
	SeatsInRow int    // theatre_halls.seats_in_row
}

// Capacity is the number of seats in the hall. It is derived, never stored.
func (h TheatreHall) Capacity() int {
	return h.Rows * h.SeatsInRow
}
