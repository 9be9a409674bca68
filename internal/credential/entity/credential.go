package entity

import "time"

// Credential is a row of the `credentials` table. Its ID is the id of the
// account it authenticates; Login is the derived identity `M@<domain>`.
type Credential struct {
	ID                string     `db:"id"`
	Login             string     `db:"login"`
	PasswordHash      string     `db:"password_hash"`
	PasswordAlgo      string     `db:"password_algo"`
	PasswordUpdatedAt *time.Time `db:"password_updated_at"`
	Version           int64      `db:"version"`
	CreatedAt         time.Time  `db:"created_at"`
}
