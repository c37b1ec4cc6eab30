package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParseRefresh(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour)

	pair, err := m.IssuePair("1234")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Equal(t, 60, pair.ExpiresIn)

	id, err := m.ParseRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "1234", id)
}

func TestParseRefreshRejectsAccessToken(t *testing.T) {
	m := NewManager("secret", time.Minute, time.Hour)
	pair, err := m.IssuePair("1234")
	require.NoError(t, err)

	_, err = m.ParseRefresh(pair.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestParseRefreshRejectsOtherSecretAndExpiry(t *testing.T) {
	issuer := NewManager("secret", time.Minute, time.Hour)
	pair, err := issuer.IssuePair("1234")
	require.NoError(t, err)

	_, err = NewManager("other", time.Minute, time.Hour).ParseRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := NewManager("secret", time.Minute, time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.ParseRefresh(pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
