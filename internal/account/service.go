package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	credentialentity "github.com/ovaphlow/pitchfork/service-plaques-go/internal/credential/entity"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/province"
	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/utilities"
)

type Repository interface {
	Provision(ctx context.Context, a *entity.Account, c *credentialentity.Credential) error
	GetByID(ctx context.Context, id string) (*entity.Account, error)
	GetByMatricule(ctx context.Context, matricule string) (*entity.Account, error)
	List(ctx context.Context, province string) ([]entity.Account, error)
	Update(ctx context.Context, id string, ch entity.Changes) (*entity.Account, error)
	Delete(ctx context.Context, id string) error
}

// Credentials builds the credential identity of a new account.
type Credentials interface {
	New(accountID, matricule string) (*credentialentity.Credential, error)
	NewWithSecret(accountID, matricule, secret string) (*credentialentity.Credential, error)
}

// FieldErrors holds one optional message per account form field.
type FieldErrors struct {
	Matricule string `json:"matricule,omitempty"`
	Role      string `json:"role,omitempty"`
	Province  string `json:"province,omitempty"`
	Status    string `json:"status,omitempty"`
}

func (e FieldErrors) err() error {
	if e == (FieldErrors{}) {
		return nil
	}
	return &apperr.ValidationError{Message: "formulaire incomplet ou invalide", Fields: e}
}

// CreateInput is the administrator's account form.
type CreateInput struct {
	Matricule string      `json:"matricule"`
	Role      access.Role `json:"role"`
	Province  string      `json:"province"`
}

func validateProvince(p string) string {
	switch {
	case p == "":
		return "La province est requise"
	case !province.IsKnown(p):
		return "Province inconnue"
	}
	return ""
}

func (in CreateInput) validate() error {
	var e FieldErrors
	if in.Matricule == "" {
		e.Matricule = "Le matricule est requis"
	} else if strings.ContainsAny(in.Matricule, " @") {
		e.Matricule = "Le matricule ne doit contenir ni espace ni @"
	}
	if !in.Role.Valid() {
		e.Role = "Rôle invalide"
	}
	e.Province = validateProvince(in.Province)
	return e.err()
}

func validateChanges(ch entity.Changes) error {
	var e FieldErrors
	if !ch.Role.Valid() {
		e.Role = "Rôle invalide"
	}
	e.Province = validateProvince(ch.Province)
	if !ch.Status.Valid() {
		e.Status = "Statut invalide"
	}
	return e.err()
}

type Service struct {
	repo   Repository
	creds  Credentials
	logger *zap.SugaredLogger
	newID  func() string
}

func NewService(r Repository, creds Credentials, logger *zap.SugaredLogger) *Service {
	return &Service{repo: r, creds: creds, logger: logger, newID: utilities.NewSnowflakeID}
}

func (s *Service) provision(ctx context.Context, in CreateInput, newCred func(id string) (*credentialentity.Credential, error)) (*entity.Account, error) {
	a := &entity.Account{
		ID:         s.newID(),
		Matricule:  in.Matricule,
		Role:       in.Role,
		Province:   in.Province,
		FirstLogin: true,
		Status:     entity.StatusActive,
	}
	c, err := newCred(a.ID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Provision(ctx, a, c); err != nil {
		return nil, err
	}
	return a, nil
}

// Create provisions an account holding the default secret with its
// first-login flag set. Administrators only.
func (s *Service) Create(ctx context.Context, id access.Identity, in CreateInput) (*entity.Account, error) {
	if err := access.RequireAdmin(id); err != nil {
		return nil, err
	}
	in.Matricule = strings.TrimSpace(in.Matricule)
	in.Province = strings.TrimSpace(in.Province)
	if err := in.validate(); err != nil {
		return nil, err
	}
	a, err := s.provision(ctx, in, func(accountID string) (*credentialentity.Credential, error) {
		return s.creds.New(accountID, in.Matricule)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Infow("account created", "id", a.ID, "matricule", a.Matricule, "role", a.Role, "by", id.Matricule)
	return a, nil
}

// Seed provisions an account with an explicit secret unless its matricule
// already exists. It reports whether a row was written.
func (s *Service) Seed(ctx context.Context, in CreateInput, secret string) (bool, error) {
	if err := in.validate(); err != nil {
		return false, err
	}
	if _, err := s.repo.GetByMatricule(ctx, in.Matricule); err == nil {
		return false, nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return false, err
	}
	_, err := s.provision(ctx, in, func(accountID string) (*credentialentity.Credential, error) {
		return s.creds.NewWithSecret(accountID, in.Matricule, secret)
	})
	if errors.Is(err, apperr.ErrConflict) {
		return false, nil
	}
	return err == nil, err
}

// List returns accounts ordered by matricule, scoped like plate records.
func (s *Service) List(ctx context.Context, id access.Identity, province string) ([]entity.Account, error) {
	return s.repo.List(ctx, access.EffectiveProvince(id, province))
}

func (s *Service) Get(ctx context.Context, id access.Identity, accountID string) (*entity.Account, error) {
	a, err := s.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !access.Visible(id, a.Province) {
		return nil, fmt.Errorf("account %s: %w", accountID, apperr.ErrAuthorization)
	}
	return a, nil
}

func (s *Service) Update(ctx context.Context, id access.Identity, accountID string, ch entity.Changes) (*entity.Account, error) {
	if err := access.RequireAdmin(id); err != nil {
		return nil, err
	}
	ch.Province = strings.TrimSpace(ch.Province)
	if err := validateChanges(ch); err != nil {
		return nil, err
	}
	a, err := s.repo.Update(ctx, accountID, ch)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("account updated", "id", accountID, "role", a.Role, "status", a.Status, "by", id.Matricule)
	return a, nil
}

// Delete removes an account together with its credential and sessions.
// Administrators cannot delete their own account.
func (s *Service) Delete(ctx context.Context, id access.Identity, accountID string) error {
	if err := access.RequireAdmin(id); err != nil {
		return err
	}
	if accountID == id.AccountID {
		return apperr.Invalid("Vous ne pouvez pas supprimer votre propre compte")
	}
	if err := s.repo.Delete(ctx, accountID); err != nil {
		return err
	}
	s.logger.Infow("account deleted", "id", accountID, "by", id.Matricule)
	return nil
}
