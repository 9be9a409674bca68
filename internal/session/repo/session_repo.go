package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/session/entity"
)

type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

func (r *SessionRepo) Save(ctx context.Context, s *entity.Session) error {
	query := `INSERT INTO sessions (id, account_id, token_hash, expires_at) VALUES ($1, $2, $3, $4) RETURNING created_at`
	row := r.db.QueryRowxContext(ctx, query, s.ID, s.AccountID, s.TokenHash, s.ExpiresAt)
	return apperr.Store("save session", row.Scan(&s.CreatedAt))
}

func (r *SessionRepo) GetByID(ctx context.Context, id string) (*entity.Session, error) {
	var s entity.Session
	query := `SELECT id, account_id, token_hash, expires_at, created_at FROM sessions WHERE id = $1`
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, apperr.Store("get session", err)
	}
	return &s, nil
}

func (r *SessionRepo) GetByTokenHash(ctx context.Context, hash string) (*entity.Session, error) {
	var s entity.Session
	query := `SELECT id, account_id, token_hash, expires_at, created_at FROM sessions WHERE token_hash = $1`
	if err := r.db.GetContext(ctx, &s, query, hash); err != nil {
		return nil, apperr.Store("get session", err)
	}
	return &s, nil
}

// Delete removes session id when it belongs to accountID. A missing row is
// not an error.
func (r *SessionRepo) Delete(ctx context.Context, id, accountID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1 AND account_id = $2`, id, accountID)
	return apperr.Store("delete session", err)
}

// PurgeExpired removes sessions past their expiry and returns how many went.
func (r *SessionRepo) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		return 0, apperr.Store("purge sessions", err)
	}
	n, err := res.RowsAffected()
	return n, apperr.Store("purge sessions", err)
}
