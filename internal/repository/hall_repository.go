package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/theatre-box-office/internal/model"
)

// HallRepo stores theatre halls. The layout columns are num_rows and
// seats_in_row; capacity is always derived.
type HallRepo struct {
	db *sql.DB
}

func NewHallRepo(db *sql.DB) *HallRepo {
	return &HallRepo{db: db}
}

// Create inserts a hall and sets its ID. A taken name returns ErrDuplicate.
func (r *HallRepo) Create(ctx context.Context, h *model.TheatreHall) error {
	const q = `INSERT INTO theatre_halls (name, num_rows, seats_in_row) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, h.Name, h.Rows, h.SeatsInRow)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	h.ID = uint64(id)
	return nil
}

// GetByID returns ErrNotFound when no hall has the id.
func (r *HallRepo) GetByID(ctx context.Context, id uint64) (*model.TheatreHall, error) {
	const q = `SELECT id, name, num_rows, seats_in_row FROM theatre_halls WHERE id = ?`
	var h model.TheatreHall
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&h.ID, &h.Name, &h.Rows, &h.SeatsInRow); err != nil {
		return nil, classify(err)
	}
	return &h, nil
}

// List returns halls ordered by id.
func (r *HallRepo) List(ctx context.Context, p Page) ([]model.TheatreHall, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM theatre_halls`).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `SELECT id, name, num_rows, seats_in_row
               FROM theatre_halls
               ORDER BY id
               LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.TheatreHall, 0, p.Limit)
	for rows.Next() {
		var h model.TheatreHall
		if err := rows.Scan(&h.ID, &h.Name, &h.Rows, &h.SeatsInRow); err != nil {
			return nil, 0, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update writes every column of h. Shrinking a hall does not touch tickets
// already sold outside the new layout.
func (r *HallRepo) Update(ctx context.Context, h *model.TheatreHall) error {
	const q = `UPDATE theatre_halls SET name = ?, num_rows = ?, seats_in_row = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q, h.Name, h.Rows, h.SeatsInRow, h.ID)
	return classify(err)
}

// Delete removes the hall together with its performances and their tickets.
func (r *HallRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "theatre_halls", id)
}
