package plate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/plate/entity"
)

// memRepo is an in-memory Repository with a monotonic clock.
type memRepo struct {
	mu    sync.Mutex
	rows  map[string]entity.Plate
	clock time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]entity.Plate{}, clock: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (m *memRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *memRepo) Create(_ context.Context, p *entity.Plate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.CreatedAt = m.tick()
	m.rows[p.ID] = *p
	return nil
}

func (m *memRepo) List(_ context.Context, province string) ([]entity.Plate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []entity.Plate{}
	for _, p := range m.rows {
		if province == "" || p.Province == province {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*entity.Plate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("get plate: %w", apperr.ErrNotFound)
	}
	return &p, nil
}

func (m *memRepo) Update(_ context.Context, id string, f entity.Fields) (*entity.Plate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("update plate: %w", apperr.ErrNotFound)
	}
	p.Fields = f
	now := m.tick()
	p.UpdatedAt = &now
	m.rows[id] = p
	return &p, nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("delete plate: %w", apperr.ErrNotFound)
	}
	delete(m.rows, id)
	return nil
}

type failingEncoder struct{}

func (failingEncoder) Encode(context.Context, string, entity.Fields) (string, error) {
	return "", fmt.Errorf("qr: %w", apperr.ErrEncoding)
}

var (
	admin = access.Identity{AccountID: "1", Matricule: "ADMIN001", Role: access.RoleAdmin, Province: "Kinshasa"}
	agent = access.Identity{AccountID: "2", Matricule: "USER001", Role: access.RoleUser, Province: "Kongo-Central"}
)

func newTestService(enc Encoder) (*Service, *memRepo) {
	repo := newMemRepo()
	svc := NewService(repo, enc, zap.NewNop().Sugar())
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	var n int
	svc.newID = func() string { n++; return strconv.Itoa(n) }
	return svc, repo
}

func TestService_CreateKinshasaScenario(t *testing.T) {
	svc, _ := newTestService(NewQREncoder(0))
	ctx := context.Background()

	p, err := svc.Create(ctx, admin, validFields())
	require.NoError(t, err)
	assert.Equal(t, "2503/01/L", p.PlaqueNumber)
	assert.Equal(t, "1", p.CreatedBy)

	payload, err := DecodeDataURI(p.QRCode)
	require.NoError(t, err)
	assert.Equal(t, "2503/01/L", payload.PlaqueNumber)
	assert.Equal(t, "Kabila", payload.Nom)

	list, err := svc.List(ctx, admin, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestService_CreateValidation(t *testing.T) {
	svc, repo := newTestService(NewQREncoder(0))
	f := validFields()
	f.Nom = "   "
	f.Email = "nope"

	_, err := svc.Create(context.Background(), admin, f)
	require.ErrorIs(t, err, apperr.ErrValidation)
	var ve *apperr.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, FieldErrors{Nom: "Le nom est requis", Email: "Format d'email invalide"}, ve.Fields)
	assert.Empty(t, repo.rows)
}

func TestService_CreateEncodingFailurePersistsNothing(t *testing.T) {
	svc, repo := newTestService(failingEncoder{})
	_, err := svc.Create(context.Background(), admin, validFields())
	assert.ErrorIs(t, err, apperr.ErrEncoding)
	assert.Empty(t, repo.rows)
}

func TestService_StandardAccountProvince(t *testing.T) {
	svc, repo := newTestService(NewQREncoder(0))
	ctx := context.Background()

	_, err := svc.Create(ctx, agent, validFields())
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	assert.Empty(t, repo.rows)

	f := validFields()
	f.Province = ""
	p, err := svc.Create(ctx, agent, f)
	require.NoError(t, err)
	assert.Equal(t, "Kongo-Central", p.Province)
	assert.Equal(t, "2503/02/L", p.PlaqueNumber)
}

func TestService_ListScoping(t *testing.T) {
	svc, _ := newTestService(NewQREncoder(0))
	ctx := context.Background()

	kin, err := svc.Create(ctx, admin, validFields())
	require.NoError(t, err)
	f := validFields()
	f.Province = "Kongo-Central"
	kc, err := svc.Create(ctx, admin, f)
	require.NoError(t, err)

	all, err := svc.List(ctx, admin, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, kc.ID, all[0].ID)
	assert.Equal(t, kin.ID, all[1].ID)

	filtered, err := svc.List(ctx, admin, "Kinshasa")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, kin.ID, filtered[0].ID)

	scoped, err := svc.List(ctx, agent, "Kinshasa")
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, kc.ID, scoped[0].ID)

	_, err = svc.Get(ctx, agent, kin.ID)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
	assert.ErrorIs(t, svc.Delete(ctx, agent, kin.ID), apperr.ErrAuthorization)
}

func TestService_UpdateKeepsDerivedValues(t *testing.T) {
	svc, _ := newTestService(NewQREncoder(0))
	ctx := context.Background()

	p, err := svc.Create(ctx, admin, validFields())
	require.NoError(t, err)

	f := p.Fields
	f.District = "Tshangu"
	f.Telephone = "+243 899 000 111"
	updated, err := svc.Update(ctx, admin, p.ID, f)
	require.NoError(t, err)

	got, err := svc.Get(ctx, admin, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tshangu", got.District)
	assert.Equal(t, "+243 899 000 111", got.Telephone)
	require.NotNil(t, got.UpdatedAt)
	assert.Equal(t, p.PlaqueNumber, updated.PlaqueNumber)
	assert.Equal(t, p.QRCode, updated.QRCode)
}

func TestService_UpdateCannotMoveRecordAcrossProvinces(t *testing.T) {
	svc, _ := newTestService(NewQREncoder(0))
	ctx := context.Background()

	f := validFields()
	f.Province = ""
	p, err := svc.Create(ctx, agent, f)
	require.NoError(t, err)

	moved := p.Fields
	moved.Province = "Kinshasa"
	_, err = svc.Update(ctx, agent, p.ID, moved)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestService_DeleteThenList(t *testing.T) {
	svc, _ := newTestService(NewQREncoder(0))
	ctx := context.Background()

	p, err := svc.Create(ctx, admin, validFields())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, admin, p.ID))

	list, err := svc.List(ctx, admin, "")
	require.NoError(t, err)
	for _, row := range list {
		assert.NotEqual(t, p.ID, row.ID)
	}
	assert.ErrorIs(t, svc.Delete(ctx, admin, p.ID), apperr.ErrNotFound)
}

func TestService_PreviewPersistsNothing(t *testing.T) {
	svc, repo := newTestService(NewQREncoder(0))
	pv, err := svc.Preview(context.Background(), admin, validFields())
	require.NoError(t, err)
	assert.Equal(t, "2503/01/L", pv.PlaqueNumber)
	assert.NotEmpty(t, pv.QRCode)
	assert.Empty(t, repo.rows)
}

func TestService_Form(t *testing.T) {
	svc, _ := newTestService(NewQREncoder(0))
	assert.Equal(t, FormDefaults{Province: "", ProvinceEditable: true}, svc.Form(admin))
	assert.Equal(t, FormDefaults{Province: "Kongo-Central", ProvinceEditable: false}, svc.Form(agent))
}
