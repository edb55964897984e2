package entity

import (
	"strings"
	"time"
)

// User is the registered identity. Password holds the bcrypt digest and must
// never leave the service; use Safe for anything serialized outward.
type User struct {
	ID        int64
	Email     string
	Password  string
	CreatedAt time.Time
}

// SafeUser is the externally visible view of a User.
type SafeUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Safe() SafeUser {
	return SafeUser{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
