package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/stockpilot/internal/domain"
)

func newTestBlobStore(t *testing.T) *BlobStore {
	t.Helper()
	s := NewBlobStore(filepath.Join(t.TempDir(), "images.db"))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testBlob(code, supplier string) domain.ImageBlob {
	return domain.ImageBlob{
		Code:      code,
		Supplier:  supplier,
		Format:    "jpeg",
		Payload:   []byte{0xff, 0xd8, 0xff},
		Timestamp: time.Now(),
	}
}

func TestBlobStorePutGet(t *testing.T) {
	s := newTestBlobStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testBlob("A1", "S1")))

	got, err := s.Get(ctx, domain.ItemKey{Code: "A1", Supplier: "S1"})
	require.NoError(t, err)
	assert.Equal(t, "A1", got.Code)
	assert.Equal(t, "S1", got.Supplier)
	assert.Equal(t, []byte{0xff, 0xd8, 0xff}, got.Payload)
}

func TestBlobStoreGetMissing(t *testing.T) {
	s := newTestBlobStore(t)
	_, err := s.Get(context.Background(), domain.ItemKey{Code: "nope", Supplier: "S1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBlobStorePutUpsert(t *testing.T) {
	s := newTestBlobStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testBlob("A1", "S1")))
	updated := testBlob("A1", "S1")
	updated.Payload = []byte("v2")
	require.NoError(t, s.Put(ctx, updated))

	got, err := s.Get(ctx, domain.ItemKey{Code: "A1", Supplier: "S1"})
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got.Payload)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestBlobStoreDelete(t *testing.T) {
	s := newTestBlobStore(t)
	ctx := context.Background()
	key := domain.ItemKey{Code: "A1", Supplier: "S1"}

	require.NoError(t, s.Put(ctx, testBlob("A1", "S1")))
	require.NoError(t, s.Delete(ctx, key))

	_, err := s.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// deleting again is a no-op
	assert.NoError(t, s.Delete(ctx, key))
}

func TestBlobStoreDeleteAll(t *testing.T) {
	s := newTestBlobStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testBlob("A1", "S1")))
	require.NoError(t, s.Put(ctx, testBlob("A2", "S2")))
	require.NoError(t, s.DeleteAll(ctx))

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	// store stays usable after the reset
	require.NoError(t, s.Put(ctx, testBlob("A3", "S3")))
}

func TestBlobStoreListByCode(t *testing.T) {
	s := newTestBlobStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testBlob("A1", "S1")))
	require.NoError(t, s.Put(ctx, testBlob("A1", "S2")))
	require.NoError(t, s.Put(ctx, testBlob("A2", "S1")))

	blobs, err := s.ListByCode(ctx, "A1")
	require.NoError(t, err)
	assert.Len(t, blobs, 2)
	for _, b := range blobs {
		assert.Equal(t, "A1", b.Code)
	}
}

func TestBlobStoreReopensAfterClose(t *testing.T) {
	s := newTestBlobStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, testBlob("A1", "S1")))
	require.NoError(t, s.Close())
	assert.Equal(t, StateClosed, s.State())

	// next operation reconnects transparently
	got, err := s.Get(ctx, domain.ItemKey{Code: "A1", Supplier: "S1"})
	require.NoError(t, err)
	assert.Equal(t, "A1", got.Code)
	assert.Equal(t, StateOpen, s.State())
}

func TestBlobStoreContextCancelled(t *testing.T) {
	s := newTestBlobStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Put(ctx, testBlob("A1", "S1")))
}
