package domain

import "time"

// User represents an authenticated account. Guides are owned by users and
// shared between them by email address.
type User struct {
	Entity
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	IsRoot       bool      `json:"is_root"`                 // First registered account
	DisplayName  string    `json:"display_name,omitempty"`
	LastLoginAt  time.Time `json:"last_login_at"`
}

// Name returns the best available name to display for the user.
// Prefers DisplayName, falls back to the email address.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
