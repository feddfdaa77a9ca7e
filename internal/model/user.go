package model

import "time"

// Roles carried in access tokens. ADMIN implies every STAFF permission.
const (
	RoleUser  = "USER"
	RoleStaff = "STAFF"
	RoleAdmin = "ADMIN"
)

// User represents an account as stored in the `users` table. Email is the
// login and is stored lower-cased.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	FirstName    – optional given name.
//	LastName     – optional family name.
//	IsStaff      – may manage the catalog.
//	IsSuperuser  – full access, implies staff.
//	IsActive     – inactive accounts cannot log in.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	IsStaff      bool      // users.is_staff
	IsSuperuser  bool      // users.is_superuser
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Role derives the token role from the account flags.
func (u User) Role() string {
	switch {
	case u.IsSuperuser:
		return RoleAdmin
	case u.IsStaff:
		return RoleStaff
	default:
		return RoleUser
	}
}

// IsStaffRole reports whether role may write to the catalog.
func IsStaffRole(role string) bool {
	return role == RoleStaff || role == RoleAdmin
}

// RefreshToken models an entry in the `refresh_tokens` table. The plain
// token is never stored, only its SHA-256 hex digest.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
