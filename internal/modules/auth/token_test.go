package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/georgemunganga/marketplace-api/internal/modules/access"
)

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", "marketplace-api", time.Hour)
	tok, err := issuer.Issue(&Account{ID: 3, Email: "x@y", Role: access.RoleStoreEmployee})
	require.NoError(t, err)

	p, err := issuer.Parse(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.UserID)
	assert.Equal(t, access.RoleStoreEmployee, p.Role)
	assert.Equal(t, "x@y", p.Email)
}

func TestTokenRejectsForeignSecretAndExpiry(t *testing.T) {
	issuer := NewTokenIssuer("s3cret", "marketplace-api", time.Hour)
	tok, err := issuer.Issue(&Account{ID: 3, Email: "x@y", Role: access.RoleCustomer})
	require.NoError(t, err)

	_, err = NewTokenIssuer("other", "marketplace-api", time.Hour).Parse(tok.Token)
	assert.Error(t, err)

	_, err = NewTokenIssuer("s3cret", "someone-else", time.Hour).Parse(tok.Token)
	assert.Error(t, err)

	expired := NewTokenIssuer("s3cret", "marketplace-api", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(&Account{ID: 3, Email: "x@y", Role: access.RoleCustomer})
	require.NoError(t, err)
	_, err = issuer.Parse(old.Token)
	assert.Error(t, err)
}

func TestHasherLegacyDetection(t *testing.T) {
	h := NewHasher()
	ok, legacy := h.Verify("5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8", "password")
	assert.True(t, ok)
	assert.True(t, legacy)

	ok, _ = h.Verify("5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8", "Password")
	assert.False(t, ok)
}
