// Package session authenticates accounts, issues tokens, and broadcasts
// session state changes to subscribed listeners.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
	accountentity "github.com/ovaphlow/pitchfork/service-plaques-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	credentialentity "github.com/ovaphlow/pitchfork/service-plaques-go/internal/credential/entity"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/session/entity"
	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/utilities"
)

type Config struct {
	Issuer      string        `env:"JWT_ISSUER" envDefault:"plaques-api"`
	KeyFile     string        `env:"JWT_KEY_FILE"`
	AccessTTL   time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`
	RotationTTL time.Duration `env:"ROTATION_TOKEN_TTL" envDefault:"10m"`
}

func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse session config: %w", err)
	}
	return cfg, nil
}

type Credentials interface {
	Verify(ctx context.Context, matricule, secret string) (*credentialentity.Credential, error)
	Rotate(ctx context.Context, accountID, secret string) error
}

type Accounts interface {
	GetByID(ctx context.Context, id string) (*accountentity.Account, error)
}

type Repository interface {
	Save(ctx context.Context, s *entity.Session) error
	GetByID(ctx context.Context, id string) (*entity.Session, error)
	GetByTokenHash(ctx context.Context, hash string) (*entity.Session, error)
	Delete(ctx context.Context, id, accountID string) error
}

// Result is returned by every operation that opens or advances a session.
type Result struct {
	State        State               `json:"state"`
	Code         string              `json:"code,omitempty"`
	Identity     access.Identity     `json:"identity"`
	Capabilities access.Capabilities `json:"capabilities"`
	AccessToken  string              `json:"accessToken"`
	RefreshToken string              `json:"refreshToken,omitempty"`
	TokenType    string              `json:"tokenType"`
	ExpiresIn    int                 `json:"expiresIn"`
}

type Service struct {
	cfg      Config
	issuer   *Issuer
	creds    Credentials
	accounts Accounts
	repo     Repository
	hub      *Hub
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewService(cfg Config, issuer *Issuer, creds Credentials, accounts Accounts, r Repository, hub *Hub, logger *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, issuer: issuer, creds: creds, accounts: accounts, repo: r, hub: hub, logger: logger, now: time.Now}
}

func (s *Service) Issuer() *Issuer { return s.issuer }

// Login verifies matricule and secret. An account still holding its initial
// secret gets state FirstLoginPending and a rotation token only.
func (s *Service) Login(ctx context.Context, matricule, secret string) (*Result, error) {
	state, _ := Next(Anonymous, EventSubmit)
	acc, err := s.authenticate(ctx, matricule, secret)
	if err != nil {
		if errors.Is(err, apperr.ErrAuthentication) {
			failed, _ := Next(state, EventFailure)
			back, _ := Next(failed, EventErrorShown)
			s.logger.Infow("login rejected", "matricule", matricule, "state", failed, "next", back, "err", err)
		}
		return nil, err
	}

	if acc.FirstLogin {
		state, _ = Next(state, EventFirstLogin)
		res, err := s.rotationResult(ctx, acc)
		if err != nil {
			return nil, err
		}
		s.logger.Infow("login pending secret rotation", "matricule", acc.Matricule, "state", state)
		return res, nil
	}

	state, _ = Next(state, EventSuccess)
	res, err := s.issue(ctx, acc, state, utilities.NewSnowflakeID())
	if err != nil {
		return nil, err
	}
	s.logger.Infow("login", "matricule", acc.Matricule, "role", acc.Role)
	return res, nil
}

func (s *Service) authenticate(ctx context.Context, matricule, secret string) (*accountentity.Account, error) {
	cred, err := s.creds.Verify(ctx, matricule, secret)
	if err != nil {
		return nil, err
	}
	return s.activeAccount(ctx, cred.ID)
}

// activeAccount loads an account that may hold a session. A missing row or
// an inactive account is an authentication failure.
func (s *Service) activeAccount(ctx context.Context, id string) (*accountentity.Account, error) {
	acc, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("account %s missing: %w", id, apperr.ErrAuthentication)
		}
		return nil, err
	}
	if acc.Status != accountentity.StatusActive {
		return nil, fmt.Errorf("account %s %s: %w", acc.Matricule, acc.Status, apperr.ErrAuthentication)
	}
	return acc, nil
}

// ChangePassword rotates the secret of the acting account, clears its
// first-login flag and turns the caller's session into a full one. The
// session id is kept so open event streams follow the change.
func (s *Service) ChangePassword(ctx context.Context, c *Claims, secret string) (*Result, error) {
	acc, err := s.activeAccount(ctx, c.Subject)
	if err != nil {
		return nil, err
	}
	state := Authenticated
	if acc.FirstLogin {
		if state, err = Next(FirstLoginPending, EventRotated); err != nil {
			return nil, err
		}
	}
	if err := s.creds.Rotate(ctx, acc.ID, secret); err != nil {
		return nil, err
	}
	acc.FirstLogin = false
	sid := c.SessionID
	if sid == "" {
		sid = utilities.NewSnowflakeID()
	} else if err := s.repo.Delete(ctx, sid, acc.ID); err != nil {
		return nil, err
	}
	res, err := s.issue(ctx, acc, state, sid)
	if err != nil {
		return nil, err
	}
	s.publish(sid, state, acc)
	s.logger.Infow("secret rotated", "matricule", acc.Matricule)
	return res, nil
}

// Refresh exchanges a refresh token for a new token pair under the same
// session id. The old refresh token is revoked. Role and province are
// reloaded from the account.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("empty refresh token: %w", apperr.ErrAuthentication)
	}
	hash := hashToken(refreshToken)
	sess, err := s.repo.GetByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("unknown refresh token: %w", apperr.ErrAuthentication)
		}
		return nil, err
	}
	if err := s.repo.Delete(ctx, sess.ID, sess.AccountID); err != nil {
		return nil, err
	}
	if sess.ExpiresAt.Before(s.now()) {
		return nil, fmt.Errorf("refresh token expired: %w", apperr.ErrAuthentication)
	}
	acc, err := s.activeAccount(ctx, sess.AccountID)
	if err != nil {
		return nil, err
	}
	if acc.FirstLogin {
		return nil, apperr.ErrFirstLoginRequired
	}
	return s.issue(ctx, acc, Authenticated, sess.ID)
}

// Logout revokes the caller's session, and the session of refreshToken when
// it belongs to the same account, then publishes anonymous to the session.
func (s *Service) Logout(ctx context.Context, c *Claims, refreshToken string) error {
	from := Authenticated
	if c.FirstLoginPending {
		from = FirstLoginPending
	}
	state, err := Next(from, EventSignOut)
	if err != nil {
		return err
	}
	if c.SessionID != "" {
		if err := s.repo.Delete(ctx, c.SessionID, c.Subject); err != nil {
			return err
		}
	}
	if refreshToken != "" {
		sess, err := s.repo.GetByTokenHash(ctx, hashToken(refreshToken))
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			return err
		case sess.AccountID != c.Subject:
			s.logger.Warnw("logout with a foreign refresh token", "matricule", c.Matricule)
		case sess.ID != c.SessionID:
			if err := s.repo.Delete(ctx, sess.ID, c.Subject); err != nil {
				return err
			}
		}
	}
	if c.SessionID != "" {
		s.hub.Publish(c.SessionID, Snapshot{State: state})
	}
	s.logger.Infow("logout", "matricule", c.Matricule)
	return nil
}

// Authenticate verifies a bearer token and checks that its session is still
// open. Matricule, role and province are replaced by the account's current
// values, so administrative edits apply to the next request.
func (s *Service) Authenticate(ctx context.Context, token string) (*Claims, error) {
	c, err := s.issuer.Parse(token)
	if err != nil {
		return nil, err
	}
	if c.SessionID == "" {
		return nil, fmt.Errorf("token without session: %w", apperr.ErrAuthentication)
	}
	sess, err := s.repo.GetByID(ctx, c.SessionID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("session %s revoked: %w", c.SessionID, apperr.ErrAuthentication)
		}
		return nil, err
	}
	if sess.AccountID != c.Subject || sess.ExpiresAt.Before(s.now()) {
		return nil, fmt.Errorf("session %s no longer valid: %w", c.SessionID, apperr.ErrAuthentication)
	}
	acc, err := s.activeAccount(ctx, c.Subject)
	if err != nil {
		return nil, err
	}
	if c.FirstLoginPending && !acc.FirstLogin {
		return nil, fmt.Errorf("rotation token already used: %w", apperr.ErrAuthentication)
	}
	c.Matricule, c.Role, c.Province = acc.Matricule, acc.Role, acc.Province
	return c, nil
}

// Subscribe streams snapshots of the session sessionID.
func (s *Service) Subscribe(sessionID string) (<-chan Snapshot, func()) {
	return s.hub.Subscribe(sessionID)
}

func (s *Service) State(c *Claims) State {
	if c.FirstLoginPending {
		return FirstLoginPending
	}
	return Authenticated
}

func (s *Service) publish(key string, state State, acc *accountentity.Account) {
	id := acc.Identity()
	s.hub.Publish(key, Snapshot{State: state, Identity: &id})
}

func (s *Service) claims(acc *accountentity.Account) Claims {
	c := Claims{Matricule: acc.Matricule, Role: acc.Role, Province: acc.Province}
	c.Subject = acc.ID
	return c
}

// rotationResult opens a session that only a rotation token refers to. Its
// token hash is never handed out, so it cannot be refreshed.
func (s *Service) rotationResult(ctx context.Context, acc *accountentity.Account) (*Result, error) {
	_, hash, err := newRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("session token: %w", err)
	}
	now := s.now()
	sess := &entity.Session{
		ID:        utilities.NewSnowflakeID(),
		AccountID: acc.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.cfg.RotationTTL),
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	c := s.claims(acc)
	c.FirstLoginPending = true
	c.SessionID = sess.ID
	tok, err := s.issuer.Sign(c, now, s.cfg.RotationTTL)
	if err != nil {
		return nil, err
	}
	return &Result{
		State:        FirstLoginPending,
		Code:         apperr.CodeFirstLoginRequired,
		Identity:     acc.Identity(),
		Capabilities: access.Capabilities{},
		AccessToken:  tok,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.RotationTTL.Seconds()),
	}, nil
}

func (s *Service) issue(ctx context.Context, acc *accountentity.Account, state State, sid string) (*Result, error) {
	refresh, hash, err := newRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	now := s.now()
	sess := &entity.Session{
		ID:        sid,
		AccountID: acc.ID,
		TokenHash: hash,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	c := s.claims(acc)
	c.SessionID = sess.ID
	tok, err := s.issuer.Sign(c, now, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	id := acc.Identity()
	return &Result{
		State:        state,
		Identity:     id,
		Capabilities: access.CapabilitiesOf(id),
		AccessToken:  tok,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTTL.Seconds()),
	}, nil
}
