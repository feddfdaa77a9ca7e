package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/theatre-box-office/internal/model"
)

// ReservationRepo stores reservations and their tickets. Writes only happen
// inside a transaction owned by the reservation service; reads load the
// tickets together with the performance they belong to.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// CreateTx inserts the reservation row and sets its ID. The caller must
// commit or rollback the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	res.CreatedAt = res.CreatedAt.UTC()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, created_at) VALUES (?, ?)`, res.UserID, res.CreatedAt)
	if err != nil {
		return classify(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return nil
}

// CreateTicketTx inserts one ticket. An occupied seat returns ErrDuplicate;
// the UNIQUE(performance_id, row_num, seat) key decides concurrent races.
func (r *ReservationRepo) CreateTicketTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO tickets (row_num, seat, performance_id, reservation_id) VALUES (?, ?, ?, ?)`,
		t.Row, t.Seat, t.PerformanceID, t.ReservationID)
	if err != nil {
		return classify(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// SeatTakenTx reports whether a ticket already occupies the seat.
func (r *ReservationRepo) SeatTakenTx(ctx context.Context, tx *sql.Tx, performanceID uint64, row, seat int) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tickets WHERE performance_id = ? AND row_num = ? AND seat = ?`,
		performanceID, row, seat).Scan(&n)
	return n > 0, err
}

// ListByUser returns the user's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64, pg Page) ([]model.Reservation, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE user_id = ?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, created_at FROM reservations
		 WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`, userID, pg.Limit, pg.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Reservation, 0, pg.Limit)
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.CreatedAt); err != nil {
			return nil, 0, err
		}
		res.CreatedAt = res.CreatedAt.UTC()
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	if err := r.loadTickets(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetForUser returns one reservation if it belongs to userID. Reservations
// of other users are reported as ErrNotFound.
func (r *ReservationRepo) GetForUser(ctx context.Context, id, userID uint64) (*model.Reservation, error) {
	var res model.Reservation
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at FROM reservations WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&res.ID, &res.UserID, &res.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	res.CreatedAt = res.CreatedAt.UTC()
	list := []model.Reservation{res}
	if err := r.loadTickets(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (r *ReservationRepo) loadTickets(ctx context.Context, list []model.Reservation) error {
	if len(list) == 0 {
		return nil
	}
	index := make(map[uint64]int, len(list))
	ids := make([]uint64, len(list))
	for i := range list {
		index[list[i].ID] = i
		ids[i] = list[i].ID
		list[i].Tickets = []model.Ticket{}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.row_num, t.seat, t.performance_id, t.reservation_id,
			pf.id, pf.show_time, p.id, p.title, p.image,
			h.id, h.name, h.num_rows, h.seats_in_row,
			(SELECT COUNT(*) FROM tickets s WHERE s.performance_id = pf.id)
		 FROM tickets t
		 JOIN performances pf ON pf.id = t.performance_id
		 JOIN plays p ON p.id = pf.play_id
		 JOIN theatre_halls h ON h.id = pf.theatre_hall_id
		 WHERE t.reservation_id IN (`+placeholders(len(ids))+`)
		 ORDER BY t.row_num, t.seat, t.id`, uintArgs(ids)...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			t  model.Ticket
			ps model.PerformanceSummary
		)
		if err := rows.Scan(&t.ID, &t.Row, &t.Seat, &t.PerformanceID, &t.ReservationID,
			&ps.ID, &ps.ShowTime, &ps.PlayID, &ps.PlayTitle, &ps.PlayImage,
			&ps.Hall.ID, &ps.Hall.Name, &ps.Hall.Rows, &ps.Hall.SeatsInRow, &ps.TicketsSold); err != nil {
			return err
		}
		ps.ShowTime = ps.ShowTime.UTC()
		t.Performance = &ps
		i := index[t.ReservationID]
		list[i].Tickets = append(list[i].Tickets, t)
	}
	return rows.Err()
}
