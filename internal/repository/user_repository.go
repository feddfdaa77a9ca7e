package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// NormalizeEmail trims and lower-cases an email before it is stored or
// looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const userColumns = `id, email, password_hash, first_name, last_name, is_staff, is_superuser, is_active, created_at, updated_at`

func scanUser(s rowScanner) (*model.User, error) {
	var u model.User
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.IsStaff, &u.IsSuperuser, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, classify(err)
	}
	return &u, nil
}

// Create hashes password, inserts u and fills ID and timestamps. A taken
// email returns ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u.Email = NormalizeEmail(u.Email)
	u.PasswordHash = hash
	u.IsActive = true
	u.CreatedAt, u.UpdatedAt = now, now

	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, first_name, last_name, is_staff, is_superuser, is_active, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		u.Email, u.PasswordHash, u.FirstName, u.LastName, u.IsStaff, u.IsSuperuser, u.IsActive, now, now)
	if err != nil {
		return classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", NormalizeEmail(email)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id))
}

// UpdateProfile writes email and names.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *model.User) error {
	u.Email = NormalizeEmail(u.Email)
	u.UpdatedAt = time.Now().UTC()
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET email = ?, first_name = ?, last_name = ?, updated_at = ? WHERE id = ?`,
		u.Email, u.FirstName, u.LastName, u.UpdatedAt, u.ID)
	return classify(err)
}

// SetPasswordHash replaces the stored hash, used both for password changes
// and for rehashing after a BCRYPT_COST change.
func (r *UserRepo) SetPasswordHash(ctx context.Context, id uint64, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, time.Now().UTC(), id)
	return err
}

// SetFlags grants or removes staff and superuser rights.
func (r *UserRepo) SetFlags(ctx context.Context, id uint64, staff, superuser bool) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_staff = ?, is_superuser = ?, updated_at = ? WHERE id = ?`,
		staff, superuser, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
