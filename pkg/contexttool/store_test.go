package contexttool

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newTestStore starts a disposable Postgres container and returns a Store
// backed by it. Skips the test when Docker isn't available, the way the
// rest of this codebase's integration tests do.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("capfabric_test"),
		tcpostgres.WithUsername("capfabric_test"),
		tcpostgres.WithPassword("capfabric_test"),
		testcontainers.WithWaitStrategyAndDeadline(2*time.Minute,
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%d user=capfabric_test password=capfabric_test dbname=capfabric_test sslmode=disable",
		host, port.Int())

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	store, err := NewStoreFromDB(db)
	require.NoError(t, err)
	return store
}

func TestStore_GetMissingEntryReturnsNotOK(t *testing.T) {
	s := newTestStore(t)

	entry, ok, err := s.Get(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, entry)
}

func TestStore_PutThenGetRoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &ContextEntry{
		ContextKey:      "inventory:prod_12345:stock_count",
		SerializedValue: []byte("42"),
		MetadataJSON:    `{"unit":"count"}`,
	}))

	entry, ok, err := s.Get(ctx, "inventory:prod_12345:stock_count")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("42"), entry.SerializedValue)
	require.Equal(t, `{"unit":"count"}`, entry.MetadataJSON)
}

func TestStore_PutOverwritesExistingKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &ContextEntry{ContextKey: "k", SerializedValue: []byte("v1")}))
	require.NoError(t, s.Put(ctx, &ContextEntry{ContextKey: "k", SerializedValue: []byte("v2")}))

	entry, ok, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), entry.SerializedValue)
}
