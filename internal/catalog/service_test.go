package catalog

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/asaskevich/EventBus"
	img "github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkincode/stockpilot/internal/domain"
	"github.com/talkincode/stockpilot/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	records := store.NewRecordStore(filepath.Join(dir, "records.db"))
	blobs := store.NewBlobStore(filepath.Join(dir, "images.db"))
	svc, err := NewService(records, blobs, EventBus.New())
	require.NoError(t, err)
	t.Cleanup(func() {
		svc.Close()
		_ = records.Close()
		_ = blobs.Close()
	})
	return svc
}

func sampleJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, img.Encode(&buf,
		img.New(64, 64, color.NRGBA{R: 0x80, A: 0xff}), img.JPEG))
	return buf.Bytes()
}

func sampleRows() []Row {
	return []Row{
		{ColCode: "A1", ColName: "shirt", ColSupplier: "S1", ColCost: "80", ColPrice: "100", ColSize: "M", ColRemark: ""},
		{ColCode: "A1", ColName: "shirt", ColSupplier: "S2", ColCost: "85", ColPrice: "110", ColSize: "M", ColRemark: ""},
		{ColCode: "B2", ColName: "pants", ColSupplier: "S1", ColCost: "60", ColPrice: "90", ColSize: "L", ColRemark: "new"},
	}
}

func TestImportTable(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result, err := svc.ImportTable(ctx, sampleRows())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 0, result.Skipped)

	products, err := svc.Products()
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "shirt", products["A1_S1"].Name)

	// every imported row gets at least a placeholder image
	blob, err := svc.Image(ctx, domain.ItemKey{Code: "A1", Supplier: "S1"})
	require.NoError(t, err)
	assert.NotEmpty(t, blob.Payload)
}

func TestImportTableHeaderMismatch(t *testing.T) {
	svc := newTestService(t)

	rows := []Row{{ColCode: "A1", ColName: "shirt"}}
	_, err := svc.ImportTable(context.Background(), rows)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSchemaMismatch)
}

func TestImportTableSkipsBlankCodes(t *testing.T) {
	svc := newTestService(t)

	rows := sampleRows()
	rows = append(rows, Row{ColCode: "", ColName: "ghost", ColSupplier: "S1", ColCost: "1", ColPrice: "2", ColSize: "S"})
	result, err := svc.ImportTable(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 1, result.Skipped)
}

func TestImportTableReimportUpdates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportTable(ctx, sampleRows())
	require.NoError(t, err)

	updated := sampleRows()
	updated[0][ColPrice] = "120"
	result, err := svc.ImportTable(ctx, updated)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported)

	products, err := svc.Products()
	require.NoError(t, err)
	assert.Len(t, products, 3)
	assert.Equal(t, "120", products["A1_S1"].Price)
}

func TestUploadImages(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	files := []File{
		{Name: "A1.jpg", Data: sampleJPEG(t)},
		{Name: "B2.photo.jpg", Data: sampleJPEG(t)},
		{Name: "bad.jpg", Data: []byte("junk")},
	}
	result := svc.UploadImages(ctx, files, "S1")
	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "bad.jpg", result.Errors[0].Name)

	// code is everything before the first dot
	_, err := svc.Image(ctx, domain.ItemKey{Code: "B2", Supplier: "S1"})
	assert.NoError(t, err)
}

func TestMatchFolder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportTable(ctx, sampleRows())
	require.NoError(t, err)

	files := []File{
		{Name: "A1.jpg", Data: sampleJPEG(t)},
		{Name: "Z9.jpg", Data: sampleJPEG(t)},
	}
	result, err := svc.MatchFolder(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Matched)
	assert.Equal(t, []string{"Z9.jpg"}, result.Unmatched)

	// one matched file fans out to every supplier variant of the code
	for _, supplier := range []string{"S1", "S2"} {
		blob, err := svc.Image(ctx, domain.ItemKey{Code: "A1", Supplier: supplier})
		require.NoError(t, err)
		assert.NotEmpty(t, blob.Payload)
	}
}

func TestListBySupplier(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportTable(ctx, sampleRows())
	require.NoError(t, err)

	groups, err := svc.ListBySupplier(ctx)
	require.NoError(t, err)
	assert.Len(t, groups["S1"], 2)
	assert.Len(t, groups["S2"], 1)
}

func TestListBySupplierUnclassified(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// image without a product record lands in the unclassified group
	result := svc.UploadImages(ctx, []File{{Name: "X1.jpg", Data: sampleJPEG(t)}}, "")
	require.Equal(t, 1, result.Succeeded)

	groups, err := svc.ListBySupplier(ctx)
	require.NoError(t, err)
	require.Len(t, groups[domain.UnclassifiedSupplier], 1)
	item := groups[domain.UnclassifiedSupplier][0]
	assert.True(t, item.HasImage)
	assert.False(t, item.HasProduct)
}

func TestProductsByCodeSortedByPrice(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.ImportTable(context.Background(), sampleRows())
	require.NoError(t, err)

	variants, err := svc.ProductsByCode("A1")
	require.NoError(t, err)
	require.Len(t, variants, 2)
	assert.Equal(t, "100", variants[0].Price)
	assert.Equal(t, "110", variants[1].Price)
}

func TestSelectionDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportTable(ctx, sampleRows())
	require.NoError(t, err)

	svc.Select(domain.ItemKey{Code: "A1", Supplier: "S1"})
	svc.Select(domain.ItemKey{Code: "B2", Supplier: "S1"})
	require.Len(t, svc.Selected(), 2)

	require.NoError(t, svc.DeleteSelection(ctx))

	products, err := svc.Products()
	require.NoError(t, err)
	assert.Len(t, products, 1)
	_, ok := products["A1_S2"]
	assert.True(t, ok)

	_, err = svc.Image(ctx, domain.ItemKey{Code: "A1", Supplier: "S1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// settled batches always clear the selection
	assert.Empty(t, svc.Selected())
}

// faultyBlobStore fails deletes for one key and defers everything else
// to the real store.
type faultyBlobStore struct {
	*store.BlobStore
	failKey domain.ItemKey
}

func (f *faultyBlobStore) Delete(ctx context.Context, key domain.ItemKey) error {
	if key == f.failKey {
		return errors.New("simulated disk failure")
	}
	return f.BlobStore.Delete(ctx, key)
}

func TestSelectionDeletePartialFailure(t *testing.T) {
	dir := t.TempDir()
	records := store.NewRecordStore(filepath.Join(dir, "records.db"))
	blobs := store.NewBlobStore(filepath.Join(dir, "images.db"))
	failKey := domain.ItemKey{Code: "A1", Supplier: "S1"}
	svc, err := NewService(records, &faultyBlobStore{BlobStore: blobs, failKey: failKey}, EventBus.New())
	require.NoError(t, err)
	t.Cleanup(func() {
		svc.Close()
		_ = records.Close()
		_ = blobs.Close()
	})

	ctx := context.Background()
	_, err = svc.ImportTable(ctx, sampleRows())
	require.NoError(t, err)

	svc.Select(failKey)
	svc.Select(domain.ItemKey{Code: "A1", Supplier: "S2"})
	svc.Select(domain.ItemKey{Code: "B2", Supplier: "S1"})

	require.NoError(t, svc.DeleteSelection(ctx))

	// every selected record is gone even though one image delete failed
	products, err := svc.Products()
	require.NoError(t, err)
	assert.Empty(t, products)

	// the two healthy keys lost their images
	_, err = blobs.Get(ctx, domain.ItemKey{Code: "A1", Supplier: "S2"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = blobs.Get(ctx, domain.ItemKey{Code: "B2", Supplier: "S1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// the failing key's image survives, logged and skipped
	_, err = blobs.Get(ctx, failKey)
	assert.NoError(t, err)

	// the selection clears after the batch settles regardless
	assert.Empty(t, svc.Selected())
}

func TestEditSelection(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportTable(ctx, sampleRows())
	require.NoError(t, err)

	svc.Select(domain.ItemKey{Code: "A1", Supplier: "S1"})
	svc.Select(domain.ItemKey{Code: "A1", Supplier: "S2"})

	price := "150"
	result, err := svc.EditSelection(ctx, Patch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)

	products, err := svc.Products()
	require.NoError(t, err)
	assert.Equal(t, "150", products["A1_S1"].Price)
	assert.Equal(t, "150", products["A1_S2"].Price)
	// unset patch fields stay untouched
	assert.Equal(t, "shirt", products["A1_S1"].Name)
}

func TestEditSelectionSupplierRekeys(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportTable(ctx, sampleRows())
	require.NoError(t, err)

	svc.Select(domain.ItemKey{Code: "B2", Supplier: "S1"})

	supplier := "S3"
	result, err := svc.EditSelection(ctx, Patch{Supplier: &supplier})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	products, err := svc.Products()
	require.NoError(t, err)
	_, oldExists := products["B2_S1"]
	assert.False(t, oldExists)
	assert.Equal(t, "S3", products["B2_S3"].Supplier)

	// the staged image follows the record to the new key
	_, err = svc.Image(ctx, domain.ItemKey{Code: "B2", Supplier: "S3"})
	assert.NoError(t, err)
	_, err = svc.Image(ctx, domain.ItemKey{Code: "B2", Supplier: "S1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEditSelectionMissingKeyReported(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportTable(ctx, sampleRows())
	require.NoError(t, err)

	svc.Select(domain.ItemKey{Code: "A1", Supplier: "S1"})
	svc.Select(domain.ItemKey{Code: "NOPE", Supplier: "S1"})

	name := "renamed"
	result, err := svc.EditSelection(ctx, Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0].Err, domain.ErrNotFound)
}

func TestClearCatalogKeepsOrders(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.ImportTable(ctx, sampleRows())
	require.NoError(t, err)
	_, err = svc.SaveOrder(ctx, domain.Order{Code: "A1", Quantity: 1})
	require.NoError(t, err)

	require.NoError(t, svc.ClearCatalog(ctx))

	products, err := svc.Products()
	require.NoError(t, err)
	assert.Empty(t, products)

	orders, err := svc.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
