package memory

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 需要真实 MongoDB：UIPILOT_TEST_MONGO_URI=mongodb://localhost:27017
func dialTestMongo(t *testing.T, agent string) *MongoBackend {
	t.Helper()
	uri := os.Getenv("UIPILOT_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("UIPILOT_TEST_MONGO_URI not set")
	}
	b, err := DialMongoBackend(context.Background(), MongoBackendConfig{
		URI:        uri,
		Database:   "uipilot_test",
		Collection: "selector_memory_" + uuid.NewString()[:8],
	}, agent)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = b.coll.Drop(context.Background())
		_ = b.Close()
	})
	return b
}

func TestDialMongoBackend_Validation(t *testing.T) {
	ctx := context.Background()
	_, err := DialMongoBackend(ctx, MongoBackendConfig{URI: "mongodb://localhost:27017"}, "")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = DialMongoBackend(ctx, MongoBackendConfig{}, "metabase")
	assert.ErrorContains(t, err, "requires uri")

	_, err = NewMongoBackend(nil, "metabase")
	assert.Error(t, err)
}

func TestMongoBackendConfig_Defaults(t *testing.T) {
	cfg := MongoBackendConfig{URI: "mongodb://x"}.withDefaults()
	assert.Equal(t, DefaultMongoDatabase, cfg.Database)
	assert.Equal(t, DefaultMongoCollection, cfg.Collection)

	cfg = MongoBackendConfig{Database: "d", Collection: "c"}.withDefaults()
	assert.Equal(t, "d", cfg.Database)
	assert.Equal(t, "c", cfg.Collection)
}

func TestMongoBackend_StoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := dialTestMongo(t, "metabase")

	_, err := b.Load(ctx)
	assert.ErrorIs(t, err, ErrNotExist)
	assert.Contains(t, b.Location(), "agent=metabase")

	store, err := Open(ctx, Config{AgentName: "metabase"}, WithBackend(b))
	require.NoError(t, err)
	require.NoError(t, store.UpdateSelector(ctx, "login_page", "submit", "#submit", true))
	require.NoError(t, store.UpdateSelector(ctx, "login_page", "submit", "#submit", false))

	reopened, err := Open(ctx, Config{AgentName: "metabase"}, WithBackend(b))
	require.NoError(t, err)
	assert.Equal(t, LoadLoaded, reopened.LoadResult())
	e, ok := reopened.Entry("login_page", "submit")
	require.True(t, ok)
	assert.InDelta(t, 0.7, e.SuccessRate, 1e-12)
	assert.Equal(t, 2, e.Uses)
}

func TestMongoBackend_AgentsShareCollection(t *testing.T) {
	ctx := context.Background()
	a := dialTestMongo(t, "metabase")
	other, err := NewMongoBackend(a.coll, "hubspot")
	require.NoError(t, err)

	require.NoError(t, a.Save(ctx, Snapshot{"p": {"e": {Selector: "#a", SuccessRate: 1, Uses: 1}}}))
	require.NoError(t, other.Save(ctx, Snapshot{"p": {"e": {Selector: "#b", SuccessRate: 1, Uses: 1}}}))

	got, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "#a", got["p"]["e"].Selector)
	require.NoError(t, other.Close(), "borrowed client stays connected")
	_, err = a.Load(ctx)
	assert.NoError(t, err)
}
