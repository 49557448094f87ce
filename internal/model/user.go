// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account.
//
// A user holds at most one bearer token at a time. The token and its expiry
// never leave the server in JSON; clients only see the token string in the
// register/login response body.
type User struct {
	ID             int64     `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PasswordHash   string    `json:"-"`
	Token          string    `json:"-"`
	TokenExpiresAt time.Time `json:"-"` // zero when no token is held
	IsAdmin        bool      `json:"isAdmin"`
	IsVerified     bool      `json:"isVerified"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasLiveToken reports whether the user holds a token that has not expired
// at now. An expired token is treated exactly like no token.
func (u *User) HasLiveToken(now time.Time) bool {
	return u.Token != "" && u.TokenExpiresAt.After(now)
}
