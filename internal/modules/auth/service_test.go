package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/georgemunganga/marketplace-api/internal/apperr"
	"github.com/georgemunganga/marketplace-api/internal/modules/access"
)

type fakeAccounts struct {
	mu   sync.Mutex
	rows map[string]*Account
}

func (f *fakeAccounts) GetActiveAccountByEmail(_ context.Context, email string) (*Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) UpdatePasswordHash(_ context.Context, userID int64, hash string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if a.ID == userID {
			a.PasswordHash = hash
		}
	}
	return nil
}

func (f *fakeAccounts) byID(id int64) *Account {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if a.ID == id {
			return a
		}
	}
	return nil
}

type fakeTokens struct {
	accounts *fakeAccounts
	rows     map[string]*RecoveryToken
}

func (f *fakeTokens) Create(_ context.Context, t *RecoveryToken) error {
	f.rows[t.TokenHash] = t
	return nil
}

func (f *fakeTokens) GetByHash(_ context.Context, h string) (*RecoveryToken, error) {
	t, ok := f.rows[h]
	if !ok {
		return nil, ErrNotFound
	}
	return t, nil
}

func (f *fakeTokens) Consume(ctx context.Context, h, passwordHash string, at time.Time) (int64, error) {
	t, ok := f.rows[h]
	if !ok || !t.Usable(at) {
		return 0, ErrNotFound
	}
	t.ConsumedAt = &at
	return t.UserID, f.accounts.UpdatePasswordHash(ctx, t.UserID, passwordHash, at)
}

type sentMail struct{ to, subject, html, text string }

type fakeMailer struct{ sent []sentMail }

func (m *fakeMailer) Send(to, subject, html, text string) error {
	m.sent = append(m.sent, sentMail{to, subject, html, text})
	return nil
}

type fixture struct {
	svc      *service
	accounts *fakeAccounts
	tokens   *fakeTokens
	mail     *fakeMailer
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hasher := &Hasher{Cost: bcrypt.MinCost}
	hash, err := hasher.Hash("pw")
	require.NoError(t, err)

	accounts := &fakeAccounts{rows: map[string]*Account{
		"a@b": {ID: 7, Email: "a@b", PasswordHash: hash, Role: access.RoleCustomer},
	}}
	f := &fixture{
		accounts: accounts,
		tokens:   &fakeTokens{accounts: accounts, rows: map[string]*RecoveryToken{}},
		mail:     &fakeMailer{},
		now:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	svc := NewService(accounts, f.tokens, hasher, NewTokenIssuer("secret", "test", time.Hour), f.mail,
		RecoveryConfig{TTL: time.Hour, BaseURLFront: "https://shop.example/"}).(*service)
	svc.now = func() time.Time { return f.now }
	svc.dispatch = func(fn func()) { fn() }
	f.svc = svc
	return f
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tok, err := f.svc.Authenticate(ctx, " A@B ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", tok.Type)

	p, err := f.svc.issuer.Parse(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, access.Principal{UserID: 7, Email: "a@b", Role: access.RoleCustomer}, p)

	_, err = f.svc.Authenticate(ctx, "a@b", "PW")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = f.svc.Authenticate(ctx, "nobody@b", "pw")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAuthenticateUpgradesLegacyDigest(t *testing.T) {
	f := newFixture(t)
	sum := sha256.Sum256([]byte("old-secret"))
	f.accounts.rows["legacy@b"] = &Account{ID: 9, Email: "legacy@b", PasswordHash: hex.EncodeToString(sum[:]), Role: access.RoleStoreAdmin}

	_, err := f.svc.Authenticate(context.Background(), "legacy@b", "old-secret")
	require.NoError(t, err)

	upgraded := f.accounts.byID(9).PasswordHash
	assert.True(t, strings.HasPrefix(upgraded, "$2"))
	ok, legacy := f.svc.hasher.Verify(upgraded, "old-secret")
	assert.True(t, ok)
	assert.False(t, legacy)
}

func TestSendRecoveryEmailUnknownAddress(t *testing.T) {
	f := newFixture(t)
	sent, err := f.svc.SendRecoveryEmail(context.Background(), "ghost@b")
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Empty(t, f.mail.sent)
}

func recoveryTokenFromMail(t *testing.T, m sentMail) string {
	t.Helper()
	const marker = "token="
	i := strings.Index(m.text, marker)
	require.GreaterOrEqual(t, i, 0)
	return strings.Fields(m.text[i+len(marker):])[0]
}

func TestRecoveryFlowIsOneShot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sent, err := f.svc.SendRecoveryEmail(ctx, "a@b")
	require.NoError(t, err)
	require.True(t, sent)
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "a@b", f.mail.sent[0].to)
	assert.Contains(t, f.mail.sent[0].text, "https://shop.example/recover/password?token=")

	token := recoveryTokenFromMail(t, f.mail.sent[0])
	for h := range f.tokens.rows {
		assert.NotEqual(t, token, h, "raw token must not be stored")
	}

	ok, err := f.svc.CheckRecoveryToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.svc.ConsumeRecoveryToken(ctx, token, "new-pw"))
	_, err = f.svc.Authenticate(ctx, "a@b", "new-pw")
	assert.NoError(t, err)

	ok, err = f.svc.CheckRecoveryToken(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	err = f.svc.ConsumeRecoveryToken(ctx, token, "again")
	assert.True(t, apperr.Is(err, apperr.KindInvalidToken))
}

func TestRecoveryTokenExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SendRecoveryEmail(ctx, "a@b")
	require.NoError(t, err)
	token := recoveryTokenFromMail(t, f.mail.sent[0])

	f.now = f.now.Add(2 * time.Hour)
	ok, err := f.svc.CheckRecoveryToken(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, apperr.Is(f.svc.ConsumeRecoveryToken(ctx, token, "x"), apperr.KindInvalidToken))
}

func TestConsumeRejectsUnknownAndEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ok, err := f.svc.CheckRecoveryToken(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, apperr.Is(f.svc.ConsumeRecoveryToken(ctx, "deadbeef", "pw"), apperr.KindInvalidToken))
	assert.True(t, apperr.Is(f.svc.ConsumeRecoveryToken(ctx, "deadbeef", "  "), apperr.KindInvalidOperation))
}
