package models

import "time"

// User is a registered account
type User struct {
	ID        int64      `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"fullname"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// Session is an authenticated session token for a user
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullname"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
