package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
)

type Status string

const (
	StatusActive   Status = "actif"
	StatusInactive Status = "inactif"
)

func (s Status) Valid() bool { return s == StatusActive || s == StatusInactive }

// Account represents a row in the `accounts` table.
type Account struct {
	ID         string      `db:"id" json:"id"`
	Matricule  string      `db:"matricule" json:"matricule"`
	Role       access.Role `db:"role" json:"role"`
	Province   string      `db:"province" json:"province"`
	FirstLogin bool        `db:"first_login" json:"firstLogin"`
	Status     Status      `db:"status" json:"status"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
}

// Identity is the acting identity of a session opened by this account.
func (a Account) Identity() access.Identity {
	return access.Identity{AccountID: a.ID, Matricule: a.Matricule, Role: a.Role, Province: a.Province}
}

// Changes are the attributes an administrator may edit.
type Changes struct {
	Role     access.Role `json:"role"`
	Province string      `json:"province"`
	Status   Status      `json:"status"`
}
