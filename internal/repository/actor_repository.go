package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/theatre-box-office/internal/model"
)

type ActorRepo struct {
	db *sql.DB
}

func NewActorRepo(db *sql.DB) *ActorRepo { return &ActorRepo{db: db} }

func (r *ActorRepo) Create(ctx context.Context, a *model.Actor) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO actors (first_name, last_name) VALUES (?, ?)`, a.FirstName, a.LastName)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

func (r *ActorRepo) GetByID(ctx context.Context, id uint64) (*model.Actor, error) {
	var a model.Actor
	err := r.db.QueryRowContext(ctx,
		`SELECT id, first_name, last_name FROM actors WHERE id = ?`, id).Scan(&a.ID, &a.FirstName, &a.LastName)
	if err != nil {
		return nil, classify(err)
	}
	return &a, nil
}

// List orders by last name, then first name.
func (r *ActorRepo) List(ctx context.Context, p Page) ([]model.Actor, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM actors`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, first_name, last_name FROM actors
		 ORDER BY last_name, first_name, id LIMIT ? OFFSET ?`, p.Limit, p.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Actor, 0, p.Limit)
	for rows.Next() {
		var a model.Actor
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName); err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *ActorRepo) Update(ctx context.Context, a *model.Actor) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE actors SET first_name = ?, last_name = ? WHERE id = ?`, a.FirstName, a.LastName, a.ID)
	return classify(err)
}

func (r *ActorRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "actors", id)
}

func (r *ActorRepo) Missing(ctx context.Context, ids []uint64) ([]uint64, error) {
	return missingIDs(ctx, r.db, "actors", ids)
}
