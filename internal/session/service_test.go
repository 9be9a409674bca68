package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/access"
	accountentity "github.com/ovaphlow/pitchfork/service-plaques-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	credentialentity "github.com/ovaphlow/pitchfork/service-plaques-go/internal/credential/entity"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/session/entity"
)

// directory is an in-memory account and credential backend. Credentials
// are keyed by matricule so one can outlive its account row.
type directory struct {
	mu       sync.Mutex
	accounts map[string]*accountentity.Account
	creds    map[string]*credentialentity.Credential
}

func newDirectory() *directory {
	d := &directory{accounts: map[string]*accountentity.Account{}, creds: map[string]*credentialentity.Credential{}}
	d.add("1", "ADMIN001", "admin123", access.RoleAdmin, "Kinshasa", false)
	d.add("2", "USER001", "user123", access.RoleUser, "Kongo-Central", true)
	return d
}

func (d *directory) add(id, matricule, secret string, role access.Role, province string, firstLogin bool) {
	d.accounts[id] = &accountentity.Account{ID: id, Matricule: matricule, Role: role, Province: province, FirstLogin: firstLogin, Status: accountentity.StatusActive}
	d.creds[matricule] = &credentialentity.Credential{ID: id, Login: matricule + "@rdc-plaques.med", PasswordHash: secret}
}

func (d *directory) Verify(_ context.Context, matricule, secret string) (*credentialentity.Credential, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.creds[matricule]
	if !ok || c.PasswordHash != secret {
		return nil, fmt.Errorf("%s: %w", matricule, apperr.ErrAuthentication)
	}
	return c, nil
}

func (d *directory) Rotate(_ context.Context, accountID, secret string) error {
	if len(secret) < 6 {
		return apperr.Invalid("too short")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	a := d.accounts[accountID]
	d.creds[a.Matricule].PasswordHash = secret
	a.FirstLogin = false
	return nil
}

func (d *directory) GetByID(_ context.Context, id string) (*accountentity.Account, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.accounts[id]
	if !ok {
		return nil, fmt.Errorf("get account: %w", apperr.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

// memSessions keys rows by session id.
type memSessions struct {
	mu   sync.Mutex
	rows map[string]entity.Session
}

func (m *memSessions) Save(_ context.Context, s *entity.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[s.ID]; ok {
		return fmt.Errorf("save session: %w", apperr.ErrConflict)
	}
	m.rows[s.ID] = *s
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id string) (*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("get session: %w", apperr.ErrNotFound)
	}
	return &s, nil
}

func (m *memSessions) GetByTokenHash(_ context.Context, hash string) (*entity.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.rows {
		if s.TokenHash == hash {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("get session: %w", apperr.ErrNotFound)
}

func (m *memSessions) Delete(_ context.Context, id, accountID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.rows[id]; ok && s.AccountID == accountID {
		delete(m.rows, id)
	}
	return nil
}

var testIssuer = func() *Issuer {
	i, err := NewIssuer("plaques-test", "")
	if err != nil {
		panic(err)
	}
	return i
}()

func testConfig() Config {
	return Config{Issuer: "plaques-test", AccessTTL: 15 * time.Minute, RefreshTTL: 720 * time.Hour, RotationTTL: 10 * time.Minute}
}

func newTestService() (*Service, *directory, *memSessions) {
	dir := newDirectory()
	sessions := &memSessions{rows: map[string]entity.Session{}}
	svc := NewService(testConfig(), testIssuer, dir, dir, sessions, NewHub(), zap.NewNop().Sugar())
	return svc, dir, sessions
}

func TestLogin_Admin(t *testing.T) {
	svc, _, sessions := newTestService()
	ctx := context.Background()

	res, err := svc.Login(ctx, "ADMIN001", "admin123")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, res.State)
	assert.Empty(t, res.Code)
	assert.True(t, res.Capabilities.CreateAccount)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Len(t, sessions.rows, 1)

	c, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, access.Identity{AccountID: "1", Matricule: "ADMIN001", Role: access.RoleAdmin, Province: "Kinshasa"}, c.Identity())
	assert.False(t, c.FirstLoginPending)
	require.Contains(t, sessions.rows, c.SessionID)
	assert.Equal(t, "1", sessions.rows[c.SessionID].AccountID)
}

func TestLogin_FirstLoginScenario(t *testing.T) {
	svc, _, sessions := newTestService()
	ctx := context.Background()

	res, err := svc.Login(ctx, "USER001", "user123")
	require.NoError(t, err)
	assert.Equal(t, FirstLoginPending, res.State)
	assert.Equal(t, apperr.CodeFirstLoginRequired, res.Code)
	assert.Empty(t, res.RefreshToken)
	assert.Equal(t, access.Capabilities{}, res.Capabilities)
	assert.Len(t, sessions.rows, 1)

	c, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.True(t, c.FirstLoginPending)
	assert.Equal(t, FirstLoginPending, svc.State(c))

	ch, cancel := svc.Subscribe(c.SessionID)
	defer cancel()
	<-ch

	rotated, err := svc.ChangePassword(ctx, c, "kongo-2025")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, rotated.State)
	assert.NotEmpty(t, rotated.RefreshToken)
	snap := <-ch
	assert.Equal(t, Authenticated, snap.State)
	require.NotNil(t, snap.Identity)
	assert.Equal(t, "USER001", snap.Identity.Matricule)

	full, err := svc.Authenticate(ctx, rotated.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, c.SessionID, full.SessionID)
	assert.Len(t, sessions.rows, 1)

	_, err = svc.Authenticate(ctx, res.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrAuthentication, "rotation token is spent once the secret changed")

	again, err := svc.Login(ctx, "USER001", "kongo-2025")
	require.NoError(t, err)
	assert.Equal(t, Authenticated, again.State)
	assert.False(t, again.Capabilities.ChooseProvince)
}

func TestLogin_Failures(t *testing.T) {
	svc, dir, sessions := newTestService()
	ctx := context.Background()

	_, err := svc.Login(ctx, "ADMIN001", "wrong")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	_, err = svc.Login(ctx, "GHOST", "admin123")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	dir.accounts["1"].Status = accountentity.StatusInactive
	_, err = svc.Login(ctx, "ADMIN001", "admin123")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	dir.add("3", "ORPHAN", "orphan123", access.RoleUser, "Kwilu", false)
	delete(dir.accounts, "3")
	_, err = svc.Login(ctx, "ORPHAN", "orphan123")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	assert.Empty(t, sessions.rows)
}

func TestChangePassword_RejectsWeakSecret(t *testing.T) {
	svc, dir, _ := newTestService()
	c := &Claims{Matricule: "USER001"}
	c.Subject = "2"
	_, err := svc.ChangePassword(context.Background(), c, "abc")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.True(t, dir.accounts["2"].FirstLogin)
}

func TestRefresh(t *testing.T) {
	svc, dir, sessions := newTestService()
	ctx := context.Background()

	res, err := svc.Login(ctx, "ADMIN001", "admin123")
	require.NoError(t, err)

	dir.accounts["1"].Province = "Kwilu"
	next, err := svc.Refresh(ctx, res.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, res.RefreshToken, next.RefreshToken)
	assert.Equal(t, "Kwilu", next.Identity.Province)
	assert.Len(t, sessions.rows, 1)

	before, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	after, err := svc.Authenticate(ctx, next.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, before.SessionID, after.SessionID)

	_, err = svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
	_, err = svc.Refresh(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
}

func TestRefresh_Expired(t *testing.T) {
	svc, _, sessions := newTestService()
	ctx := context.Background()
	res, err := svc.Login(ctx, "ADMIN001", "admin123")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	_, err = svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
	assert.Empty(t, sessions.rows)
}

func TestLogout(t *testing.T) {
	svc, _, sessions := newTestService()
	ctx := context.Background()
	res, err := svc.Login(ctx, "ADMIN001", "admin123")
	require.NoError(t, err)
	c, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	ch, cancel := svc.Subscribe(c.SessionID)
	defer cancel()
	<-ch

	require.NoError(t, svc.Logout(ctx, c, ""))
	assert.Empty(t, sessions.rows)
	snap := <-ch
	assert.Equal(t, Anonymous, snap.State)
	assert.Nil(t, snap.Identity)

	_, err = svc.Authenticate(ctx, res.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
	_, err = svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
}

func TestLogout_OtherDevicesStayOpen(t *testing.T) {
	svc, _, sessions := newTestService()
	ctx := context.Background()
	phone, err := svc.Login(ctx, "ADMIN001", "admin123")
	require.NoError(t, err)
	laptop, err := svc.Login(ctx, "ADMIN001", "admin123")
	require.NoError(t, err)

	pc, err := svc.Authenticate(ctx, phone.AccessToken)
	require.NoError(t, err)
	lc, err := svc.Authenticate(ctx, laptop.AccessToken)
	require.NoError(t, err)
	ch, cancel := svc.Subscribe(lc.SessionID)
	defer cancel()
	<-ch

	require.NoError(t, svc.Logout(ctx, pc, phone.RefreshToken))
	select {
	case s := <-ch:
		t.Fatalf("laptop stream received %v", s)
	default:
	}
	_, err = svc.Authenticate(ctx, laptop.AccessToken)
	assert.NoError(t, err)
	assert.Len(t, sessions.rows, 1)
}

func TestLogout_IgnoresForeignRefreshToken(t *testing.T) {
	svc, dir, sessions := newTestService()
	ctx := context.Background()
	admin, err := svc.Login(ctx, "ADMIN001", "admin123")
	require.NoError(t, err)
	dir.add("3", "USER002", "user123", access.RoleUser, "Kinshasa", false)
	user, err := svc.Login(ctx, "USER002", "user123")
	require.NoError(t, err)

	c, err := svc.Authenticate(ctx, admin.AccessToken)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, c, user.RefreshToken))

	assert.Len(t, sessions.rows, 1)
	_, err = svc.Refresh(ctx, user.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthenticate_FollowsAccountChanges(t *testing.T) {
	svc, dir, _ := newTestService()
	ctx := context.Background()
	res, err := svc.Login(ctx, "ADMIN001", "admin123")
	require.NoError(t, err)

	dir.accounts["1"].Role = access.RoleUser
	dir.accounts["1"].Province = "Kwilu"
	c, err := svc.Authenticate(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, access.RoleUser, c.Role)
	assert.Equal(t, "Kwilu", c.Province)

	dir.accounts["1"].Status = accountentity.StatusInactive
	_, err = svc.Authenticate(ctx, res.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	dir.accounts["1"].Status = accountentity.StatusActive
	delete(dir.accounts, "1")
	_, err = svc.Authenticate(ctx, res.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
}

func TestAuthenticate_RequiresSession(t *testing.T) {
	svc, _, _ := newTestService()
	c := Claims{Matricule: "ADMIN001", Role: access.RoleAdmin, Province: "Kinshasa"}
	c.Subject = "1"
	tok, err := testIssuer.Sign(c, time.Now(), time.Minute)
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), tok)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	c.SessionID = "404"
	tok, err = testIssuer.Sign(c, time.Now(), time.Minute)
	require.NoError(t, err)
	_, err = svc.Authenticate(context.Background(), tok)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)
}

func TestIssuer_RejectsForeignTokens(t *testing.T) {
	other, err := NewIssuer("plaques-test", "")
	require.NoError(t, err)
	tok, err := other.Sign(Claims{Matricule: "X"}, time.Now(), time.Minute)
	require.NoError(t, err)
	_, err = testIssuer.Parse(tok)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	expired, err := testIssuer.Sign(Claims{Matricule: "X"}, time.Now().Add(-time.Hour), time.Minute)
	require.NoError(t, err)
	_, err = testIssuer.Parse(expired)
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	jwks := testIssuer.JWKS()
	keys := jwks["keys"].([]any)
	require.Len(t, keys, 1)
	assert.Equal(t, "RS256", keys[0].(map[string]any)["alg"])
}
