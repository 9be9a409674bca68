package plate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/plate/entity"
	"github.com/ovaphlow/pitchfork/service-plaques-go/pkg/utilities"
)

// Repository is the record store used by Service.
type Repository interface {
	Create(ctx context.Context, p *entity.Plate) error
	List(ctx context.Context, province string) ([]entity.Plate, error)
	GetByID(ctx context.Context, id string) (*entity.Plate, error)
	Update(ctx context.Context, id string, f entity.Fields) (*entity.Plate, error)
	Delete(ctx context.Context, id string) error
}

type Encoder interface {
	Encode(ctx context.Context, plaqueNumber string, f entity.Fields) (string, error)
}

// Service validates forms, derives plate numbers and QR images, and applies
// province scoping to every record operation.
type Service struct {
	repo   Repository
	qr     Encoder
	logger *zap.SugaredLogger
	now    func() time.Time
	newID  func() string
}

func NewService(r Repository, qr Encoder, logger *zap.SugaredLogger) *Service {
	return &Service{repo: r, qr: qr, logger: logger, now: time.Now, newID: utilities.NewSnowflakeID}
}

// Preview is the derived part of a record shown before saving.
type Preview struct {
	PlaqueNumber string `json:"plaqueNumber"`
	QRCode       string `json:"qrCode"`
}

// FormDefaults tells the form which province to preselect and whether the
// caller may change it.
type FormDefaults struct {
	Province         string `json:"province"`
	ProvinceEditable bool   `json:"provinceEditable"`
}

func (s *Service) Form(id access.Identity) FormDefaults {
	p, editable := access.FormProvince(id)
	return FormDefaults{Province: p, ProvinceEditable: editable}
}

// prepare normalizes and validates f for id. A standard account's empty
// province defaults to its own; any other province is refused.
func (s *Service) prepare(id access.Identity, f entity.Fields) (entity.Fields, error) {
	f = Normalize(f)
	if f.Province == "" {
		f.Province, _ = access.FormProvince(id)
	}
	if err := validationError(Validate(f)); err != nil {
		return f, err
	}
	if err := access.AuthorizeProvince(id, f.Province); err != nil {
		return f, err
	}
	return f, nil
}

func (s *Service) derive(ctx context.Context, f entity.Fields) (Preview, error) {
	number := GenerateNumber(f.Province, f.District, s.now())
	qr, err := s.qr.Encode(ctx, number, f)
	if err != nil {
		return Preview{}, err
	}
	return Preview{PlaqueNumber: number, QRCode: qr}, nil
}

// Preview computes the plate number and QR image without persisting anything.
func (s *Service) Preview(ctx context.Context, id access.Identity, f entity.Fields) (Preview, error) {
	f, err := s.prepare(id, f)
	if err != nil {
		return Preview{}, err
	}
	return s.derive(ctx, f)
}

// Create stores a new record. Nothing is written when encoding fails.
func (s *Service) Create(ctx context.Context, id access.Identity, f entity.Fields) (*entity.Plate, error) {
	f, err := s.prepare(id, f)
	if err != nil {
		return nil, err
	}
	pv, err := s.derive(ctx, f)
	if err != nil {
		return nil, err
	}
	p := &entity.Plate{
		ID:           s.newID(),
		Fields:       f,
		PlaqueNumber: pv.PlaqueNumber,
		QRCode:       pv.QRCode,
		CreatedBy:    id.AccountID,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Infow("plate created", "id", p.ID, "plaqueNumber", p.PlaqueNumber, "province", p.Province, "by", id.Matricule)
	return p, nil
}

// List returns records newest first, restricted to the caller's province
// unless the caller is an administrator.
func (s *Service) List(ctx context.Context, id access.Identity, province string) ([]entity.Plate, error) {
	return s.repo.List(ctx, access.EffectiveProvince(id, province))
}

func (s *Service) Get(ctx context.Context, id access.Identity, plateID string) (*entity.Plate, error) {
	p, err := s.repo.GetByID(ctx, plateID)
	if err != nil {
		return nil, err
	}
	if !access.Visible(id, p.Province) {
		return nil, fmt.Errorf("plate %s: %w", plateID, apperr.ErrAuthorization)
	}
	return p, nil
}

// Update replaces the form fields of a record. The plate number and QR image
// keep their creation-time values.
func (s *Service) Update(ctx context.Context, id access.Identity, plateID string, f entity.Fields) (*entity.Plate, error) {
	if _, err := s.Get(ctx, id, plateID); err != nil {
		return nil, err
	}
	f, err := s.prepare(id, f)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.Update(ctx, plateID, f)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("plate updated", "id", plateID, "by", id.Matricule)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id access.Identity, plateID string) error {
	if _, err := s.Get(ctx, id, plateID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, plateID); err != nil {
		return err
	}
	s.logger.Infow("plate deleted", "id", plateID, "by", id.Matricule)
	return nil
}
