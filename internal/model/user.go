package model

import "time"

// Role names as stored in the users.role column and carried in the JWT
// "role" claim.  CLIENT books services, BUSINESS owns listings, STAFF
// moderates listings and mediates disputes.
const (
	RoleClient   = "CLIENT"
	RoleBusiness = "BUSINESS"
	RoleStaff    = "STAFF"
)

// ValidRole reports whether the given string is one of the three
// platform roles.
func ValidRole(role string) bool {
	switch role {
	case RoleClient, RoleBusiness, RoleStaff:
		return true
	}
	return false
}

// User represents an application user record as stored in the
// `users` table.  Role changes are an admin operation performed
// outside this service; from the API's perspective a user's role is
// immutable.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – one of CLIENT, BUSINESS, STAFF.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA-256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA-256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
