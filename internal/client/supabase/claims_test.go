package supabase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gophchat/internal/common"
)

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := mintToken(t, "user-1", "a@b.c", "Ada Lovelace", exp)

	c, err := ParseClaims(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", c.Subject)
	assert.True(t, exp.Equal(c.Expiry()))

	u := c.User()
	assert.Equal(t, "user-1", u.ID)
	assert.Equal(t, "a@b.c", u.Email)
	assert.Equal(t, "Ada Lovelace", u.DisplayName)
}

func TestParseClaims_ExpiredTokenStillDecodes(t *testing.T) {
	tok := mintToken(t, "user-1", "", "", time.Now().Add(-time.Hour))

	c, err := ParseClaims(tok)
	require.NoError(t, err)
	assert.True(t, c.Expiry().Before(time.Now()))
}

func TestParseClaims_Garbage(t *testing.T) {
	_, err := ParseClaims("not.a.jwt")
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestSession_FallsBackToClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s := &Session{AccessToken: mintToken(t, "user-9", "z@z.z", "Zed", exp)}

	assert.True(t, exp.Equal(s.Expiry()))
	u := s.UserModel()
	require.NotNil(t, u)
	assert.Equal(t, "user-9", u.ID)
	assert.Equal(t, "Zed", u.DisplayName)

	empty := &Session{AccessToken: "opaque"}
	assert.Nil(t, empty.UserModel())
	assert.True(t, empty.Expiry().IsZero())
}
