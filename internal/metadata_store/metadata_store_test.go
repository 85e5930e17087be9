package metadata_store

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lewisedginton/wa_gateway/internal/storage_manager"
	"github.com/lewisedginton/wa_gateway/pkg/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	provider := storage_manager.NewLocalFileProvider(t.TempDir())
	log := logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	return New(provider, log)
}

func TestStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.Save(ctx, Record{SessionID: "wa-abc", Name: "support line"})
	require.NoError(t, err)

	rec, err := store.Load(ctx, "wa-abc")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "wa-abc", rec.SessionID)
	assert.Equal(t, "support line", rec.Name)
	assert.Empty(t, rec.PhoneIdentifier)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.False(t, rec.UpdatedAt.IsZero())
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	rec, err := store.Load(context.Background(), "wa-nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestStore_SavePreservesExistingFields(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, Record{SessionID: "wa-abc", Name: "support line"}))
	first, err := store.Load(ctx, "wa-abc")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	// Partial update: phone only, no name.
	require.NoError(t, store.Save(ctx, Record{SessionID: "wa-abc", PhoneIdentifier: "447700900123"}))

	rec, err := store.Load(ctx, "wa-abc")
	require.NoError(t, err)
	assert.Equal(t, "support line", rec.Name)
	assert.Equal(t, "447700900123", rec.PhoneIdentifier)
	assert.Equal(t, first.CreatedAt, rec.CreatedAt)
	assert.True(t, rec.UpdatedAt.After(first.UpdatedAt))
}

func TestStore_SaveRequiresSessionID(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Save(context.Background(), Record{Name: "nameless"}))
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Save(ctx, Record{SessionID: "wa-abc", Name: "x"}))
	require.NoError(t, store.Delete(ctx, "wa-abc"))

	rec, err := store.Load(ctx, "wa-abc")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, store.Delete(ctx, "wa-abc"))
}
