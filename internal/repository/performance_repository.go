package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/theatre-box-office/internal/model"
)

// PerformanceFilter narrows List.
type PerformanceFilter struct {
	Date   *time.Time // calendar day in UTC; only the date part is used
	PlayID uint64
}

type PerformanceRepo struct {
	db *sql.DB
}

func NewPerformanceRepo(db *sql.DB) *PerformanceRepo { return &PerformanceRepo{db: db} }

// summarySelect joins a performance with its play and hall and counts the
// tickets sold for it.
const summarySelect = `SELECT pf.id, pf.show_time, p.id, p.title, p.image,
	h.id, h.name, h.num_rows, h.seats_in_row,
	(SELECT COUNT(*) FROM tickets t WHERE t.performance_id = pf.id) AS tickets_sold
	FROM performances pf
	JOIN plays p ON p.id = pf.play_id
	JOIN theatre_halls h ON h.id = pf.theatre_hall_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(s rowScanner) (model.PerformanceSummary, error) {
	var ps model.PerformanceSummary
	err := s.Scan(&ps.ID, &ps.ShowTime, &ps.PlayID, &ps.PlayTitle, &ps.PlayImage,
		&ps.Hall.ID, &ps.Hall.Name, &ps.Hall.Rows, &ps.Hall.SeatsInRow, &ps.TicketsSold)
	ps.ShowTime = ps.ShowTime.UTC()
	return ps, err
}

// Create inserts the performance. Unknown play or hall ids return
// ErrInvalidReference.
func (r *PerformanceRepo) Create(ctx context.Context, p *model.Performance) error {
	p.ShowTime = p.ShowTime.UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO performances (show_time, play_id, theatre_hall_id) VALUES (?, ?, ?)`,
		p.ShowTime, p.PlayID, p.TheatreHallID)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *PerformanceRepo) Update(ctx context.Context, p *model.Performance) error {
	p.ShowTime = p.ShowTime.UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE performances SET show_time = ?, play_id = ?, theatre_hall_id = ? WHERE id = ?`,
		p.ShowTime, p.PlayID, p.TheatreHallID, p.ID)
	return classify(err)
}

// GetByID returns the bare performance row.
func (r *PerformanceRepo) GetByID(ctx context.Context, id uint64) (*model.Performance, error) {
	var p model.Performance
	err := r.db.QueryRowContext(ctx,
		`SELECT id, show_time, play_id, theatre_hall_id FROM performances WHERE id = ?`, id).
		Scan(&p.ID, &p.ShowTime, &p.PlayID, &p.TheatreHallID)
	if err != nil {
		return nil, classify(err)
	}
	p.ShowTime = p.ShowTime.UTC()
	return &p, nil
}

// GetSummary returns the joined read model of one performance.
func (r *PerformanceRepo) GetSummary(ctx context.Context, id uint64) (*model.PerformanceSummary, error) {
	return getSummary(ctx, r.db, id)
}

// GetSummaryTx is GetSummary inside the caller's transaction.
func (r *PerformanceRepo) GetSummaryTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.PerformanceSummary, error) {
	return getSummary(ctx, tx, id)
}

func getSummary(ctx context.Context, db DBTX, id uint64) (*model.PerformanceSummary, error) {
	ps, err := scanSummary(db.QueryRowContext(ctx, summarySelect+` WHERE pf.id = ?`, id))
	if err != nil {
		return nil, classify(err)
	}
	return &ps, nil
}

// List returns performances, latest show first.
func (r *PerformanceRepo) List(ctx context.Context, f PerformanceFilter, pg Page) ([]model.PerformanceSummary, int64, error) {
	var (
		conds []string
		args  []any
	)
	if f.Date != nil {
		d := f.Date.UTC()
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		conds = append(conds, "pf.show_time >= ? AND pf.show_time < ?")
		args = append(args, start, start.AddDate(0, 0, 1))
	}
	if f.PlayID != 0 {
		conds = append(conds, "pf.play_id = ?")
		args = append(args, f.PlayID)
	}
	where := whereClause(conds)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM performances pf`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(append([]any{}, args...), pg.Limit, pg.Offset)
	rows, err := r.db.QueryContext(ctx,
		summarySelect+where+` ORDER BY pf.show_time DESC, pf.id DESC LIMIT ? OFFSET ?`, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.PerformanceSummary, 0, pg.Limit)
	for rows.Next() {
		ps, err := scanSummary(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, ps)
	}
	return out, total, rows.Err()
}

// TakenPlaces lists the occupied seats ordered by row, then seat.
func (r *PerformanceRepo) TakenPlaces(ctx context.Context, id uint64) ([]model.Place, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT row_num, seat FROM tickets WHERE performance_id = ? ORDER BY row_num, seat`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Place{}
	for rows.Next() {
		var p model.Place
		if err := rows.Scan(&p.Row, &p.Seat); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Delete removes the performance and its tickets.
func (r *PerformanceRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "performances", id)
}
