package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/theatre-box-office/internal/model"
)

type GenreRepo struct {
	db *sql.DB
}

func NewGenreRepo(db *sql.DB) *GenreRepo { return &GenreRepo{db: db} }

// Create inserts g and sets its ID. A taken name returns ErrDuplicate.
func (r *GenreRepo) Create(ctx context.Context, g *model.Genre) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO genres (name) VALUES (?)`, g.Name)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	return nil
}

func (r *GenreRepo) GetByID(ctx context.Context, id uint64) (*model.Genre, error) {
	var g model.Genre
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM genres WHERE id = ?`, id).Scan(&g.ID, &g.Name)
	if err != nil {
		return nil, classify(err)
	}
	return &g, nil
}

// List returns one page of genres ordered by name and the total count.
func (r *GenreRepo) List(ctx context.Context, p Page) ([]model.Genre, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM genres`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name FROM genres ORDER BY name, id LIMIT ? OFFSET ?`, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Genre, 0, p.Limit)
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, 0, err
		}
		out = append(out, g)
	}
	return out, total, rows.Err()
}

func (r *GenreRepo) Update(ctx context.Context, g *model.Genre) error {
	_, err := r.db.ExecContext(ctx, `UPDATE genres SET name = ? WHERE id = ?`, g.Name, g.ID)
	return classify(err)
}

// Delete removes the genre; play links go with it.
func (r *GenreRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "genres", id)
}

// Missing returns the ids that do not exist.
func (r *GenreRepo) Missing(ctx context.Context, ids []uint64) ([]uint64, error) {
	return missingIDs(ctx, r.db, "genres", ids)
}
