package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/theatre-box-office/internal/model"
)

// PlayFilter narrows List. All non-empty fields must match.
type PlayFilter struct {
	Title    string   // case-insensitive substring of the title
	GenreIDs []uint64 // play linked to at least one of these genres
	ActorIDs []uint64 // play linked to at least one of these actors
}

type PlayRepo struct {
	db *sql.DB
}

func NewPlayRepo(db *sql.DB) *PlayRepo { return &PlayRepo{db: db} }

// Create inserts the play and its genre/actor links in one transaction.
// Unknown genre or actor ids return ErrInvalidReference.
func (r *PlayRepo) Create(ctx context.Context, p *model.Play, genreIDs, actorIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO plays (title, title_lower, description, image) VALUES (?, ?, ?, ?)`,
		p.Title, strings.ToLower(p.Title), p.Description, p.Image)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)

	if err := replaceLinks(ctx, tx, "play_genres", "genre_id", p.ID, genreIDs); err != nil {
		return err
	}
	if err := replaceLinks(ctx, tx, "play_actors", "actor_id", p.ID, actorIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// Update writes title and description. A nil id slice leaves that link set
// untouched, a non-nil one (even empty) replaces it.
func (r *PlayRepo) Update(ctx context.Context, p *model.Play, genreIDs, actorIDs []uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE plays SET title = ?, title_lower = ?, description = ? WHERE id = ?`,
		p.Title, strings.ToLower(p.Title), p.Description, p.ID); err != nil {
		return classify(err)
	}
	if genreIDs != nil {
		if err := replaceLinks(ctx, tx, "play_genres", "genre_id", p.ID, genreIDs); err != nil {
			return err
		}
	}
	if actorIDs != nil {
		if err := replaceLinks(ctx, tx, "play_actors", "actor_id", p.ID, actorIDs); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func replaceLinks(ctx context.Context, tx *sql.Tx, table, column string, playID uint64, ids []uint64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE play_id = ?", playID); err != nil {
		return err
	}
	for _, id := range dedupe(ids) {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO "+table+" (play_id, "+column+") VALUES (?, ?)", playID, id); err != nil {
			return classify(err)
		}
	}
	return nil
}

// SetImage stores the storage key of the play's poster.
func (r *PlayRepo) SetImage(ctx context.Context, id uint64, key string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE plays SET image = ? WHERE id = ?`, key, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID loads the play with its genres and actors.
func (r *PlayRepo) GetByID(ctx context.Context, id uint64) (*model.Play, error) {
	var p model.Play
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, image FROM plays WHERE id = ?`, id).
		Scan(&p.ID, &p.Title, &p.Description, &p.Image)
	if err != nil {
		return nil, classify(err)
	}
	plays := []model.Play{p}
	if err := r.loadLinks(ctx, plays); err != nil {
		return nil, err
	}
	return &plays[0], nil
}

// List returns plays ordered by title with their links loaded.
func (r *PlayRepo) List(ctx context.Context, f PlayFilter, pg Page) ([]model.Play, int64, error) {
	var (
		conds []string
		args  []any
	)
	if f.Title != "" {
		conds = append(conds, "p.title_lower LIKE ? ESCAPE '!'")
		args = append(args, likeContains(f.Title))
	}
	if len(f.GenreIDs) > 0 {
		conds = append(conds, "p.id IN (SELECT play_id FROM play_genres WHERE genre_id IN ("+placeholders(len(f.GenreIDs))+"))")
		args = append(args, uintArgs(f.GenreIDs)...)
	}
	if len(f.ActorIDs) > 0 {
		conds = append(conds, "p.id IN (SELECT play_id FROM play_actors WHERE actor_id IN ("+placeholders(len(f.ActorIDs))+"))")
		args = append(args, uintArgs(f.ActorIDs)...)
	}
	where := whereClause(conds)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plays p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataArgs := append(append([]any{}, args...), pg.Limit, pg.Offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.description, p.image FROM plays p`+where+`
		 ORDER BY p.title, p.id LIMIT ? OFFSET ?`, dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]model.Play, 0, pg.Limit)
	for rows.Next() {
		var p model.Play
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Image); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	// release the connection before the link queries
	rows.Close()

	if err := r.loadLinks(ctx, out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *PlayRepo) Delete(ctx context.Context, id uint64) error {
	return deleteByID(ctx, r.db, "plays", id)
}

// loadLinks fills Genres and Actors of every play with two IN queries.
func (r *PlayRepo) loadLinks(ctx context.Context, plays []model.Play) error {
	if len(plays) == 0 {
		return nil
	}
	index := make(map[uint64]int, len(plays))
	ids := make([]uint64, len(plays))
	for i := range plays {
		index[plays[i].ID] = i
		ids[i] = plays[i].ID
		plays[i].Genres = []model.Genre{}
		plays[i].Actors = []model.Actor{}
	}
	in := placeholders(len(ids))

	gRows, err := r.db.QueryContext(ctx,
		`SELECT pg.play_id, g.id, g.name
		 FROM play_genres pg JOIN genres g ON g.id = pg.genre_id
		 WHERE pg.play_id IN (`+in+`) ORDER BY g.name, g.id`, uintArgs(ids)...)
	if err != nil {
		return err
	}
	for gRows.Next() {
		var playID uint64
		var g model.Genre
		if err := gRows.Scan(&playID, &g.ID, &g.Name); err != nil {
			gRows.Close()
			return err
		}
		i := index[playID]
		plays[i].Genres = append(plays[i].Genres, g)
	}
	if err := gRows.Err(); err != nil {
		gRows.Close()
		return err
	}
	gRows.Close()

	aRows, err := r.db.QueryContext(ctx,
		`SELECT pa.play_id, a.id, a.first_name, a.last_name
		 FROM play_actors pa JOIN actors a ON a.id = pa.actor_id
		 WHERE pa.play_id IN (`+in+`) ORDER BY a.last_name, a.first_name, a.id`, uintArgs(ids)...)
	if err != nil {
		return err
	}
	defer aRows.Close()
	for aRows.Next() {
		var playID uint64
		var a model.Actor
		if err := aRows.Scan(&playID, &a.ID, &a.FirstName, &a.LastName); err != nil {
			return err
		}
		i := index[playID]
		plays[i].Actors = append(plays[i].Actors, a)
	}
	return aRows.Err()
}
