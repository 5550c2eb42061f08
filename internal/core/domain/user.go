package domain

import "time"

const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// User models an account that can log in and own orders.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is the caller identity resolved from a validated token. A nil
// *Principal means the caller is anonymous.
type Principal struct {
	UserID   string
	Username string
	Email    string
	Role     string
}

// IsAdmin is safe to call on a nil receiver.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Owns reports whether the principal is the owner identified by ownerID.
func (p *Principal) Owns(ownerID string) bool {
	return p != nil && p.UserID != "" && p.UserID == ownerID
}
