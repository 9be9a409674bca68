package entity

import "time"

// Session is a persisted refresh session. Only the SHA-256 of the opaque
// refresh token is stored.
type Session struct {
	ID        string    `db:"id"`
	AccountID string    `db:"account_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}
