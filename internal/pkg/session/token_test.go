package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront/internal/config"
)

func testManager() *Manager {
	return NewManager(config.SessionConfig{
		Secret:   "0123456789abcdef0123456789abcdef",
		TokenTTL: time.Hour,
	}, "storefront-test")
}

func TestNewSessionRoundTrip(t *testing.T) {
	m := testManager()

	sid, token, err := m.NewSession()
	require.NoError(t, err)
	_, err = uuid.Parse(sid)
	require.NoError(t, err)

	got, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, sid, got)
}

func TestValidateRejectsExpired(t *testing.T) {
	m := testManager()
	issued := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	sid := uuid.NewString()
	token, err := m.Issue(sid)
	require.NoError(t, err)

	m.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = m.Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	other := NewManager(config.SessionConfig{
		Secret:   "ffffffffffffffffffffffffffffffff",
		TokenTTL: time.Hour,
	}, "storefront-test")

	_, token, err := other.NewSession()
	require.NoError(t, err)

	_, err = testManager().Validate(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := testManager().Validate("not-a-token")
	assert.Error(t, err)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader(""))
}
