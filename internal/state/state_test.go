package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := LoadAt(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

const testConv = "conv-test-001"

// --- LoadAt / Close ---

func TestLoadAt_CreatesDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "state.db")
	s, err := LoadAt(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestLoadAt_ReopensExistingDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	s1, err := LoadAt(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.SetToken("persist-me"))
	require.NoError(t, s1.Close())

	s2, err := LoadAt(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	assert.Equal(t, "persist-me", s2.Token())
}

// --- Token ---

func TestToken_EmptyByDefault(t *testing.T) {
	s := testDB(t)
	assert.Equal(t, "", s.Token())
}

func TestSetToken_RoundTrip(t *testing.T) {
	s := testDB(t)
	require.NoError(t, s.SetToken("tok_abc123"))
	assert.Equal(t, "tok_abc123", s.Token())
}

func TestClearToken(t *testing.T) {
	s := testDB(t)
	require.NoError(t, s.SetToken("tok"))
	require.NoError(t, s.ClearToken())
	assert.Equal(t, "", s.Token())
}

// --- Cursor ---

func TestGetCursor_DefaultsToZero(t *testing.T) {
	s := testDB(t)
	c, err := s.GetCursor("never-seen")
	require.NoError(t, err)
	assert.Equal(t, 0, c.LastCount)
	assert.Equal(t, int64(0), c.LastAlertID)
}

func TestSetGetCursor_RoundTrip(t *testing.T) {
	s := testDB(t)
	require.NoError(t, s.SetCursor(testConv, Cursor{LastCount: 7, LastAlertID: 42}))

	c, err := s.GetCursor(testConv)
	require.NoError(t, err)
	assert.Equal(t, 7, c.LastCount)
	assert.Equal(t, int64(42), c.LastAlertID)
}

func TestSetCursor_Overwrite(t *testing.T) {
	s := testDB(t)
	require.NoError(t, s.SetCursor(testConv, Cursor{LastCount: 1, LastAlertID: 1}))
	require.NoError(t, s.SetCursor(testConv, Cursor{LastCount: 9, LastAlertID: 15}))

	c, err := s.GetCursor(testConv)
	require.NoError(t, err)
	assert.Equal(t, 9, c.LastCount)
	assert.Equal(t, int64(15), c.LastAlertID)
}

func TestCursor_IsolatedBetweenConversations(t *testing.T) {
	s := testDB(t)
	require.NoError(t, s.SetCursor("c1", Cursor{LastCount: 10}))
	require.NoError(t, s.SetCursor("c2", Cursor{LastCount: 20}))

	c1, _ := s.GetCursor("c1")
	c2, _ := s.GetCursor("c2")
	assert.Equal(t, 10, c1.LastCount)
	assert.Equal(t, 20, c2.LastCount)
}

func TestDeleteCursor(t *testing.T) {
	s := testDB(t)
	require.NoError(t, s.SetCursor(testConv, Cursor{LastCount: 3}))
	require.NoError(t, s.DeleteCursor(testConv))

	c, err := s.GetCursor(testConv)
	require.NoError(t, err)
	assert.Equal(t, 0, c.LastCount)
}

func TestDeleteCursor_UnknownConversation(t *testing.T) {
	s := testDB(t)
	assert.NoError(t, s.DeleteCursor("never-seen"))
}

func TestCursor_SurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	s1, err := LoadAt(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.SetCursor(testConv, Cursor{LastCount: 5, LastAlertID: 99}))
	require.NoError(t, s1.Close())

	s2, err := LoadAt(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	c, err := s2.GetCursor(testConv)
	require.NoError(t, err)
	assert.Equal(t, int64(99), c.LastAlertID)
}
