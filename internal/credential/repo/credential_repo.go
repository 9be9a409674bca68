package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/credential/entity"
)

// CredentialRepo provides data access for the credentials table using sqlx.
type CredentialRepo struct {
	db *sqlx.DB
}

func NewCredentialRepo(db *sqlx.DB) *CredentialRepo { return &CredentialRepo{db: db} }

// Insert writes c through ext so account provisioning can share its transaction.
func Insert(ctx context.Context, ext sqlx.ExtContext, c *entity.Credential) error {
	const q = `INSERT INTO credentials (id, login, password_hash, password_algo, password_updated_at, version)
	  VALUES ($1, $2, $3, $4, NOW(), 1)`
	_, err := ext.ExecContext(ctx, q, c.ID, c.Login, c.PasswordHash, c.PasswordAlgo)
	return apperr.Store("insert credential", err)
}

// GetByLogin fetches a credential by its identity login.
func (r *CredentialRepo) GetByLogin(ctx context.Context, login string) (*entity.Credential, error) {
	const q = `SELECT id, login, password_hash, password_algo, password_updated_at, version, created_at
	  FROM credentials WHERE login=$1`
	var c entity.Credential
	if err := r.db.GetContext(ctx, &c, q, login); err != nil {
		return nil, apperr.Store("get credential", err)
	}
	return &c, nil
}

// UpdatePassword replaces the hash, bumps the version and clears the
// account's first-login flag in one transaction.
func (r *CredentialRepo) UpdatePassword(ctx context.Context, id, hash, algo string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Store("begin rotate", err)
	}
	defer tx.Rollback()

	const q = `UPDATE credentials SET password_hash=$2, password_algo=$3, password_updated_at=NOW(), version=version+1 WHERE id=$1`
	res, err := tx.ExecContext(ctx, q, id, hash, algo)
	if err != nil {
		return apperr.Store("rotate credential", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return apperr.Store("rotate credential", err)
	} else if n == 0 {
		return fmt.Errorf("rotate credential %s: %w", id, apperr.ErrNotFound)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET first_login=false, updated_at=NOW() WHERE id=$1`, id); err != nil {
		return apperr.Store("clear first login", err)
	}
	return apperr.Store("commit rotate", tx.Commit())
}
