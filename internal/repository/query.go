package repository

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Page is a LIMIT/OFFSET window. Handlers build it from ?page and ?page_size.
type Page struct {
	Limit  int
	Offset int
}

// NewPage converts a 1-based page number and size into a Page.
func NewPage(page, size int) Page {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	return Page{Limit: size, Offset: (page - 1) * size}
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func uintArgs(ids []uint64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// likeContains builds a "contains" pattern for `col LIKE ? ESCAPE '!'`,
// where col holds text already lower-cased with strings.ToLower.
func likeContains(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// missingIDs returns the ids from want that have no row in table.
func missingIDs(ctx context.Context, db DBTX, table string, want []uint64) ([]uint64, error) {
	if len(want) == 0 {
		return nil, nil
	}
	rows, err := db.QueryContext(ctx,
		"SELECT id FROM "+table+" WHERE id IN ("+placeholders(len(want))+")", uintArgs(want)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[uint64]bool, len(want))
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []uint64
	for _, id := range want {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func deleteByID(ctx context.Context, db DBTX, table string, id uint64) error {
	res, err := db.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
