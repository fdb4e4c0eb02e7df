package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/talkincode/stockpilot/internal/domain"
	"github.com/talkincode/stockpilot/internal/store"
)

// Select marks an item for a pending batch operation.
func (s *Service) Select(key domain.ItemKey) {
	s.selMu.Lock()
	defer s.selMu.Unlock()
	s.selected[key] = struct{}{}
}

// Deselect removes an item from the pending selection.
func (s *Service) Deselect(key domain.ItemKey) {
	s.selMu.Lock()
	defer s.selMu.Unlock()
	delete(s.selected, key)
}

// ClearSelection empties the selection without touching any data.
func (s *Service) ClearSelection() {
	s.selMu.Lock()
	defer s.selMu.Unlock()
	s.selected = make(map[domain.ItemKey]struct{})
}

// Selected returns the current selection in deterministic order.
func (s *Service) Selected() []domain.ItemKey {
	s.selMu.Lock()
	defer s.selMu.Unlock()
	keys := make([]domain.ItemKey, 0, len(s.selected))
	for key := range s.selected {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// DeleteSelection removes every selected item: product records in one
// save, image blobs concurrently. A blob delete failure is logged and
// skipped so the rest of the batch still settles; the selection is
// cleared afterwards either way.
func (s *Service) DeleteSelection(ctx context.Context) error {
	keys := s.Selected()
	if len(keys) == 0 {
		return nil
	}

	products, err := s.records.LoadProducts()
	if err != nil {
		return err
	}
	for _, key := range keys {
		delete(products, key.String())
	}
	if err := s.records.SaveProducts(products); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultWorkers)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			if err := s.blobs.Delete(gctx, key); err != nil {
				zap.L().Warn("selection image delete failed",
					zap.String("key", key.String()), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	s.ClearSelection()
	s.publishChanged(store.CollectionProducts)
	return nil
}

// Patch carries the batch-editable fields. Nil means leave unchanged;
// a pointer to the empty string clears the field. A supplier change
// re-keys the record and its image.
type Patch struct {
	Name     *string `json:"name,omitempty"`
	Supplier *string `json:"supplier,omitempty"`
	Cost     *string `json:"cost,omitempty"`
	Price    *string `json:"price,omitempty"`
	Size     *string `json:"size,omitempty"`
	Remark   *string `json:"remark,omitempty"`
}

func (p Patch) apply(product *domain.Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Supplier != nil {
		product.Supplier = *p.Supplier
	}
	if p.Cost != nil {
		product.Cost = *p.Cost
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Size != nil {
		product.Size = *p.Size
	}
	if p.Remark != nil {
		product.Remark = *p.Remark
	}
}

// EditSelection applies the patch to every selected product in one
// read-modify-write pass. Selected keys without a product record are
// reported, not silently skipped.
func (s *Service) EditSelection(ctx context.Context, patch Patch) (BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}
	keys := s.Selected()
	if len(keys) == 0 {
		return BatchResult{}, nil
	}

	products, err := s.records.LoadProducts()
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	now := time.Now()
	for _, key := range keys {
		product, ok := products[key.String()]
		if !ok {
			result.Errors = append(result.Errors, ItemError{
				Name: key.String(),
				Err:  errors.Wrap(domain.ErrNotFound, key.String()),
			})
			continue
		}
		patch.apply(&product)
		product.Timestamp = now
		newKey := product.Key()
		if newKey != key {
			delete(products, key.String())
			s.moveBlob(ctx, key, newKey)
		}
		products[newKey.String()] = product
		result.Succeeded++
	}

	if err := s.records.SaveProducts(products); err != nil {
		return result, err
	}
	s.publishChanged(store.CollectionProducts)
	return result, nil
}

// moveBlob carries a stored image along with a re-keyed record. A miss
// means only the placeholder existed; other failures are logged, the
// record move stands either way.
func (s *Service) moveBlob(ctx context.Context, from, to domain.ItemKey) {
	blob, err := s.blobs.Get(ctx, from)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			zap.L().Warn("image move read failed",
				zap.String("from", from.String()), zap.Error(err))
		}
		return
	}
	blob.Code = to.Code
	blob.Supplier = to.Supplier
	if err := s.blobs.Put(ctx, blob); err != nil {
		zap.L().Warn("image move write failed",
			zap.String("to", to.String()), zap.Error(err))
		return
	}
	if err := s.blobs.Delete(ctx, from); err != nil {
		zap.L().Warn("image move cleanup failed",
			zap.String("from", from.String()), zap.Error(err))
	}
}
