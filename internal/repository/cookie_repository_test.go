package repository

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/abelzeko/reservoir-dashboard/internal/cookies"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, clock clockwork.Clock) *SQLiteCookieStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test-preferences.db")

	store, err := NewSQLiteCookieStore(dbPath, 24*time.Hour, clock)
	require.NoError(t, err, "Failed to initialize cookie store")
	t.Cleanup(func() { store.Close() })
	return store
}

// TestCookieStoreRoundTrip tests saving and reading preferences
func TestCookieStoreRoundTrip(t *testing.T) {
	store := newTestStore(t, clockwork.NewFakeClock())

	_, ok := store.Get("reservoir")
	assert.False(t, ok)

	require.NoError(t, store.Set("reservoir", "bratskoe"))
	v, ok := store.Get("reservoir")
	assert.True(t, ok)
	assert.Equal(t, "bratskoe", v)

	require.NoError(t, store.Set("reservoir", "irkutskoe"))
	v, _ = store.Get("reservoir")
	assert.Equal(t, "irkutskoe", v)

	require.NoError(t, store.Delete("reservoir"))
	_, ok = store.Get("reservoir")
	assert.False(t, ok)
}

// TestCookieStoreExpiry tests that expired cookies are hidden and purged
func TestCookieStoreExpiry(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	store := newTestStore(t, clock)

	require.NoError(t, store.Set("dont_show_cookie_alert", "true"))
	require.NoError(t, store.Set("reservoir", "bratskoe"))

	clock.Advance(23 * time.Hour)
	require.NoError(t, store.Set("reservoir", "bratskoe"))

	clock.Advance(time.Hour)
	_, ok := store.Get("dont_show_cookie_alert")
	assert.False(t, ok, "cookie should expire after the ttl")
	_, ok = store.Get("reservoir")
	assert.True(t, ok, "rewriting a cookie restarts its ttl")

	n, err := store.Purge()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// TestCookieStorePersists tests that preferences survive reopening the database
func TestCookieStorePersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "preferences.db")
	clock := clockwork.NewFakeClock()

	store, err := NewSQLiteCookieStore(dbPath, 0, clock)
	require.NoError(t, err)
	require.NoError(t, cookies.RememberReservoir(store, "sayano-shushenskoe"))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteCookieStore(dbPath, 0, clock)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, "sayano-shushenskoe", cookies.SelectedReservoir(reopened))
}

func TestCookieStoreRejectsInvalidName(t *testing.T) {
	store := newTestStore(t, clockwork.NewFakeClock())
	assert.Error(t, store.Set("a; b", "x"))
}
