// Package department manages the administrative sub-units of each province.
package department

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/department/entity"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/province"
	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/utilities"
)

type Repository interface {
	Create(ctx context.Context, d *entity.Department) error
	List(ctx context.Context, province string) ([]entity.Department, error)
	Delete(ctx context.Context, id string) error
}

type Input struct {
	Name        string `json:"name"`
	Province    string `json:"province"`
	Description string `json:"description"`
}

type FieldErrors struct {
	Name     string `json:"name,omitempty"`
	Province string `json:"province,omitempty"`
}

func (in Input) validate() error {
	var e FieldErrors
	if in.Name == "" {
		e.Name = "Le nom est requis"
	}
	switch {
	case in.Province == "":
		e.Province = "La province est requise"
	case !province.IsKnown(in.Province):
		e.Province = "Province inconnue"
	}
	if e == (FieldErrors{}) {
		return nil
	}
	return &apperr.ValidationError{Message: "formulaire incomplet ou invalide", Fields: e}
}

type Service struct {
	repo   Repository
	logger *zap.SugaredLogger
}

func NewService(r Repository, logger *zap.SugaredLogger) *Service {
	return &Service{repo: r, logger: logger}
}

func (s *Service) List(ctx context.Context, id access.Identity, province string) ([]entity.Department, error) {
	return s.repo.List(ctx, access.EffectiveProvince(id, province))
}

// Create adds a department. Administrators only.
func (s *Service) Create(ctx context.Context, id access.Identity, in Input) (*entity.Department, error) {
	if err := access.RequireAdmin(id); err != nil {
		return nil, err
	}
	return s.create(ctx, in)
}

func (s *Service) create(ctx context.Context, in Input) (*entity.Department, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Province = strings.TrimSpace(in.Province)
	in.Description = strings.TrimSpace(in.Description)
	if err := in.validate(); err != nil {
		return nil, err
	}
	d := &entity.Department{ID: utilities.NewKSUID(), Name: in.Name, Province: in.Province, Description: in.Description}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Infow("department created", "id", d.ID, "name", d.Name, "province", d.Province)
	return d, nil
}

// Seed creates in unless a department of the same name exists in its province.
func (s *Service) Seed(ctx context.Context, in Input) (bool, error) {
	_, err := s.create(ctx, in)
	if errors.Is(err, apperr.ErrConflict) {
		return false, nil
	}
	return err == nil, err
}

func (s *Service) Delete(ctx context.Context, id access.Identity, departmentID string) error {
	if err := access.RequireAdmin(id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, departmentID); err != nil {
		return err
	}
	s.logger.Infow("department deleted", "id", departmentID, "by", id.Matricule)
	return nil
}
