// Package credential maps matricules to login identities and owns secret
// hashing, verification and rotation.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/caarlos0/env/v11"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/credential/entity"
)

// MinSecretLength is the shortest secret accepted on rotation.
const MinSecretLength = 6

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (hash string, algo string, err error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", "", err
	}
	return string(h), fmt.Sprintf("bcrypt:%d", cost), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

type Config struct {
	IdentityDomain string `env:"IDENTITY_DOMAIN" envDefault:"rdc-plaques.med"`
	DefaultSecret  string `env:"DEFAULT_SECRET" envDefault:"changeme123"`
	BcryptCost     int    `env:"BCRYPT_COST" envDefault:"12"`
}

func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse credential config: %w", err)
	}
	return cfg, nil
}

type Repository interface {
	GetByLogin(ctx context.Context, login string) (*entity.Credential, error)
	UpdatePassword(ctx context.Context, id, hash, algo string) error
}

type Service struct {
	repo   Repository
	hasher PasswordHasher
	cfg    Config
}

func NewService(r Repository, cfg Config) *Service {
	return &Service{repo: r, hasher: BcryptHasher{Cost: cfg.BcryptCost}, cfg: cfg}
}

// IdentityFor derives the login identity of a matricule.
func (s *Service) IdentityFor(matricule string) string {
	return strings.TrimSpace(matricule) + "@" + s.cfg.IdentityDomain
}

// New builds the credential of a freshly provisioned account, holding the
// default secret.
func (s *Service) New(accountID, matricule string) (*entity.Credential, error) {
	return s.NewWithSecret(accountID, matricule, s.cfg.DefaultSecret)
}

// NewWithSecret is New with an explicit initial secret, used by seeding.
func (s *Service) NewWithSecret(accountID, matricule, secret string) (*entity.Credential, error) {
	hash, algo, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, fmt.Errorf("hash secret: %w", err)
	}
	return &entity.Credential{ID: accountID, Login: s.IdentityFor(matricule), PasswordHash: hash, PasswordAlgo: algo, Version: 1}, nil
}

// Verify checks secret against the credential of matricule. Unknown
// identities and wrong secrets are indistinguishable to the caller.
func (s *Service) Verify(ctx context.Context, matricule, secret string) (*entity.Credential, error) {
	if strings.TrimSpace(matricule) == "" || secret == "" {
		return nil, apperr.ErrAuthentication
	}
	c, err := s.repo.GetByLogin(ctx, s.IdentityFor(matricule))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", matricule, apperr.ErrAuthentication)
		}
		return nil, err
	}
	if !s.hasher.Verify(c.PasswordHash, secret) {
		return nil, fmt.Errorf("%s: %w", matricule, apperr.ErrAuthentication)
	}
	return c, nil
}

// ValidateSecret applies the rotation rules to a new secret.
func (s *Service) ValidateSecret(secret string) error {
	if utf8.RuneCountInString(secret) < MinSecretLength {
		return apperr.Invalid("Le mot de passe doit contenir au moins %d caractères", MinSecretLength)
	}
	if secret == s.cfg.DefaultSecret {
		return apperr.Invalid("Le nouveau mot de passe doit être différent du mot de passe par défaut")
	}
	return nil
}

// Rotate replaces the secret of accountID and clears its first-login flag.
func (s *Service) Rotate(ctx context.Context, accountID, secret string) error {
	if err := s.ValidateSecret(secret); err != nil {
		return err
	}
	hash, algo, err := s.hasher.Hash(secret)
	if err != nil {
		return fmt.Errorf("hash secret: %w", err)
	}
	return s.repo.UpdatePassword(ctx, accountID, hash, algo)
}
