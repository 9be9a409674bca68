package repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	credentialentity "github.com/ovaphlow/pitchfork/service-plaques-go/internal/credential/entity"
	credentialrepo "github.com/ovaphlow/pitchfork/service-plaques-go/internal/credential/repo"
)

const columns = `id, matricule, role, province, first_login, status, created_at, updated_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// AccountRepo provides data access for the accounts table using sqlx.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

// Provision inserts the account row and its credential identity in one
// transaction. A duplicate matricule reports apperr.ErrConflict.
func (r *AccountRepo) Provision(ctx context.Context, a *entity.Account, c *credentialentity.Credential) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Store("begin provision", err)
	}
	defer tx.Rollback()

	const q = `INSERT INTO accounts (id, matricule, role, province, first_login, status)
	  VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`
	if err := tx.QueryRowxContext(ctx, q, a.ID, a.Matricule, a.Role, a.Province, a.FirstLogin, a.Status).
		Scan(&a.CreatedAt, &a.UpdatedAt); err != nil {
		return apperr.Store("insert account", err)
	}
	if err := credentialrepo.Insert(ctx, tx, c); err != nil {
		return err
	}
	return apperr.Store("commit provision", tx.Commit())
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, `SELECT `+columns+` FROM accounts WHERE id=$1`, id); err != nil {
		return nil, apperr.Store("get account", err)
	}
	return &a, nil
}

func (r *AccountRepo) GetByMatricule(ctx context.Context, matricule string) (*entity.Account, error) {
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, `SELECT `+columns+` FROM accounts WHERE matricule=$1`, matricule); err != nil {
		return nil, apperr.Store("get account", err)
	}
	return &a, nil
}

// List returns accounts ordered by matricule. An empty province lists all.
func (r *AccountRepo) List(ctx context.Context, province string) ([]entity.Account, error) {
	b := psql.Select(columns).From("accounts").OrderBy("matricule ASC")
	if province != "" {
		b = b.Where(sq.Eq{"province": province})
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, apperr.Store("build account list", err)
	}
	out := []entity.Account{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, apperr.Store("list accounts", err)
	}
	return out, nil
}

// Update changes the administrative attributes of an account.
func (r *AccountRepo) Update(ctx context.Context, id string, ch entity.Changes) (*entity.Account, error) {
	q, args, err := psql.Update("accounts").SetMap(map[string]any{
		"role":       string(ch.Role),
		"province":   ch.Province,
		"status":     string(ch.Status),
		"updated_at": sq.Expr("NOW()"),
	}).Where(sq.Eq{"id": id}).Suffix("RETURNING " + columns).ToSql()
	if err != nil {
		return nil, apperr.Store("build account update", err)
	}
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, args...); err != nil {
		return nil, apperr.Store("update account", err)
	}
	return &a, nil
}

// Delete removes the account. Its credential and sessions go with it through
// ON DELETE CASCADE.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		return apperr.Store("delete account", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Store("delete account", err)
	}
	if n == 0 {
		return fmt.Errorf("delete account %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
