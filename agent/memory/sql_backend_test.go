package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T, agent string) *SQLBackend {
	t.Helper()
	b, err := OpenSQLiteBackend(filepath.Join(t.TempDir(), "memory.db"), agent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSQLBackend_EmptyIsAbsent(t *testing.T) {
	b := openTestSQLite(t, "metabase")
	_, err := b.Load(context.Background())
	assert.ErrorIs(t, err, ErrNotExist)
	assert.Contains(t, b.Location(), "agent=metabase")
}

func TestSQLBackend_SaveLoad(t *testing.T) {
	ctx := context.Background()
	b := openTestSQLite(t, "metabase")

	snap := Snapshot{
		"login_page": {
			"submit":   {Selector: "#submit", SuccessRate: 0.7, LastUpdated: 100.5, LastAccessed: 200.25, Uses: 2},
			"username": {Selector: "input[name='username']", SuccessRate: 1, LastUpdated: 1, LastAccessed: 1, Uses: 1},
		},
		"editor": {
			"run": {Selector: "role=button[name='Run']", SuccessRate: 0.49, LastUpdated: 3, LastAccessed: 4, Uses: 3},
		},
	}
	require.NoError(t, b.Save(ctx, snap))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, got)

	// Save replaces the previous rows entirely.
	delete(snap, "editor")
	require.NoError(t, b.Save(ctx, snap))
	got, err = b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestSQLBackend_MissingRateSurvives(t *testing.T) {
	ctx := context.Background()
	b := openTestSQLite(t, "metabase")

	legacy, err := decodeSnapshot([]byte(`{"dash": {"menu": {"selector": "#menu", "uses": 2}}}`))
	require.NoError(t, err)
	require.NoError(t, b.Save(ctx, legacy))

	got, err := b.Load(ctx)
	require.NoError(t, err)
	assert.False(t, got["dash"]["menu"].HasSuccessRate())
	assert.Equal(t, legacy, got)
}

func TestSQLBackend_AgentsShareDatabase(t *testing.T) {
	ctx := context.Background()
	a := openTestSQLite(t, "metabase")
	other, err := NewSQLBackend(a.db, "hubspot")
	require.NoError(t, err)

	require.NoError(t, a.Save(ctx, Snapshot{"p": {"e": {Selector: "#a", SuccessRate: 1, Uses: 1}}}))
	require.NoError(t, other.Save(ctx, Snapshot{"p": {"e": {Selector: "#b", SuccessRate: 1, Uses: 1}}}))

	got, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "#a", got["p"]["e"].Selector)

	// Clearing one agent leaves the other intact.
	require.NoError(t, other.Save(ctx, Snapshot{}))
	_, err = other.Load(ctx)
	assert.ErrorIs(t, err, ErrNotExist)
	_, err = a.Load(ctx)
	assert.NoError(t, err)

	// borrowed handle
	assert.NoError(t, other.Close())
}

func TestSQLBackend_WithStore(t *testing.T) {
	ctx := context.Background()
	b := openTestSQLite(t, "metabase")

	store, err := Open(ctx, Config{AgentName: "metabase"}, WithBackend(b))
	require.NoError(t, err)
	require.NoError(t, store.UpdateSelector(ctx, "p", "e", "#x", true))
	require.NoError(t, store.UpdateSelector(ctx, "p", "e", "#x", false))

	reopened, err := Open(ctx, Config{AgentName: "metabase"}, WithBackend(b))
	require.NoError(t, err)
	e, ok := reopened.Entry("p", "e")
	require.True(t, ok)
	assert.InDelta(t, 0.7, e.SuccessRate, 1e-12)
	assert.Equal(t, 2, e.Uses)
}
