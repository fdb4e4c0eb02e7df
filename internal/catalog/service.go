// Package catalog orchestrates the blob and record stores into the
// operator-facing inventory operations: image uploads, table imports,
// folder matching, batch edit/delete and the joined supplier view.
package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/talkincode/stockpilot/internal/domain"
	"github.com/talkincode/stockpilot/internal/imaging"
	"github.com/talkincode/stockpilot/internal/store"
)

// TopicCatalogChanged carries the name of the collection that changed.
// The sync bridge subscribes to it to schedule a push.
const TopicCatalogChanged = "catalog:changed"

// defaultWorkers bounds the fan-out of batch image work.
const defaultWorkers = 4

// BlobRepository is the image-store surface the catalog depends on.
type BlobRepository interface {
	Put(ctx context.Context, blob domain.ImageBlob) error
	Get(ctx context.Context, key domain.ItemKey) (domain.ImageBlob, error)
	Delete(ctx context.Context, key domain.ItemKey) error
	DeleteAll(ctx context.Context) error
	List(ctx context.Context) ([]domain.ImageBlob, error)
}

// RecordRepository is the collection-store surface the catalog depends on.
type RecordRepository interface {
	LoadProducts() (map[string]domain.Product, error)
	SaveProducts(products map[string]domain.Product) error
	LoadOrders() (map[string]domain.Order, error)
	SaveOrders(orders map[string]domain.Order) error
	LoadAux(name string, v interface{}) error
	SaveAux(name string, v interface{}) error
}

var (
	_ BlobRepository   = (*store.BlobStore)(nil)
	_ RecordRepository = (*store.RecordStore)(nil)
)

// Service is the single long-lived owner of catalog state. It replaces
// what used to be ambient globals (store handles, the selection set)
// with explicit fields and lifecycle.
type Service struct {
	records    RecordRepository
	blobs      BlobRepository
	compressor *imaging.Compressor
	node       *snowflake.Node
	pool       *ants.Pool
	bus        EventBus.Bus

	selMu    sync.Mutex
	selected map[domain.ItemKey]struct{}
}

func NewService(records RecordRepository, blobs BlobRepository, bus EventBus.Bus) (*Service, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, errors.Wrap(err, "snowflake node")
	}
	pool, err := ants.NewPool(defaultWorkers)
	if err != nil {
		return nil, errors.Wrap(err, "worker pool")
	}
	return &Service{
		records:    records,
		blobs:      blobs,
		compressor: imaging.NewCompressor(),
		node:       node,
		pool:       pool,
		bus:        bus,
		selected:   make(map[domain.ItemKey]struct{}),
	}, nil
}

// Close releases the worker pool; the stores are owned and closed by the
// application.
func (s *Service) Close() {
	if s.pool != nil {
		s.pool.Release()
	}
}

func (s *Service) publishChanged(collection string) {
	if s.bus != nil {
		s.bus.Publish(TopicCatalogChanged, collection)
	}
}

// JoinedItem is one entry of the supplier view: image and product merged
// on the composite key, either side optional.
type JoinedItem struct {
	Key        domain.ItemKey   `json:"key"`
	Product    domain.Product   `json:"product"`
	Image      domain.ImageBlob `json:"image"`
	HasProduct bool             `json:"has_product"`
	HasImage   bool             `json:"has_image"`
}

// ListBySupplier joins the image and product collections on the
// composite key and groups the result by the product's supplier,
// falling back to the unclassified group. Groups are not sorted here;
// the display layer decides presentation order.
func (s *Service) ListBySupplier(ctx context.Context) (map[string][]JoinedItem, error) {
	products, err := s.records.LoadProducts()
	if err != nil {
		return nil, err
	}
	blobs, err := s.blobs.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make(map[string]JoinedItem, len(blobs)+len(products))
	for _, blob := range blobs {
		key := blob.Key()
		items[key.String()] = JoinedItem{Key: key, Image: blob, HasImage: true}
	}
	for raw, product := range products {
		item, ok := items[raw]
		if !ok {
			item = JoinedItem{Key: product.Key()}
		}
		item.Product = product
		item.HasProduct = true
		items[raw] = item
	}

	keys := make([]string, 0, len(items))
	for raw := range items {
		keys = append(keys, raw)
	}
	sort.Strings(keys)

	groups := make(map[string][]JoinedItem)
	for _, raw := range keys {
		item := items[raw]
		group := domain.UnclassifiedSupplier
		if item.HasProduct {
			group = item.Product.SupplierGroup()
		}
		groups[group] = append(groups[group], item)
	}
	return groups, nil
}

// ProductsByCode returns every product variant sharing the given code,
// cheapest first. Used by the price-compare view.
func (s *Service) ProductsByCode(code string) ([]domain.Product, error) {
	products, err := s.records.LoadProducts()
	if err != nil {
		return nil, err
	}
	var matches []domain.Product
	for _, p := range products {
		if p.Code == code {
			matches = append(matches, p)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return priceValue(matches[i].Price) < priceValue(matches[j].Price)
	})
	return matches, nil
}

// Products returns the raw product collection keyed by canonical key.
func (s *Service) Products() (map[string]domain.Product, error) {
	return s.records.LoadProducts()
}

// Image fetches one stored blob by key.
func (s *Service) Image(ctx context.Context, key domain.ItemKey) (domain.ImageBlob, error) {
	return s.blobs.Get(ctx, key)
}

// ClearCatalog removes all products and images. Orders are deliberately
// kept; clearing them is a separate per-day operation.
func (s *Service) ClearCatalog(ctx context.Context) error {
	if err := s.records.SaveProducts(map[string]domain.Product{}); err != nil {
		return err
	}
	if err := s.blobs.DeleteAll(ctx); err != nil {
		return err
	}
	zap.L().Info("catalog cleared, orders retained")
	s.publishChanged(store.CollectionProducts)
	return nil
}
