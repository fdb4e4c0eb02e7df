// Package syncbridge mirrors the local product and order collections to
// an optional remote peer. Whole snapshots travel in both directions;
// the newer snapshot simply replaces the older one.
package syncbridge

import (
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/talkincode/stockpilot/internal/catalog"
	"github.com/talkincode/stockpilot/internal/domain"
	"github.com/talkincode/stockpilot/internal/store"
)

// Snapshot is a full copy of both collections at one instant.
type Snapshot struct {
	Products  map[string]domain.Product `json:"products"`
	Orders    map[string]domain.Order   `json:"orders"`
	Timestamp time.Time                 `json:"timestamp"`
}

// Pusher delivers a snapshot to the remote peer.
type Pusher interface {
	Push(snapshot Snapshot) error
}

// debounceDelay batches a burst of catalog changes into one push.
const debounceDelay = 3 * time.Second

// Bridge listens for catalog change events and pushes debounced
// snapshots through the configured Pusher. A nil pusher turns the
// bridge into a no-op, which is how single-machine installs run.
type Bridge struct {
	records *store.RecordStore
	pusher  Pusher
	bus     EventBus.Bus

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

func NewBridge(records *store.RecordStore, pusher Pusher, bus EventBus.Bus) *Bridge {
	return &Bridge{
		records: records,
		pusher:  pusher,
		bus:     bus,
		done:    make(chan struct{}),
	}
}

// Start subscribes to catalog change events. Safe to call with a nil
// pusher; nothing is scheduled in that case.
func (b *Bridge) Start() error {
	if b.pusher == nil {
		zap.L().Info("sync bridge disabled, no remote peer configured")
		return nil
	}
	return b.bus.SubscribeAsync(catalog.TopicCatalogChanged, b.onChanged, false)
}

// Stop cancels any pending push and unsubscribes.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	select {
	case <-b.done:
	default:
		close(b.done)
	}
	b.mu.Unlock()
	if b.pusher != nil {
		_ = b.bus.Unsubscribe(catalog.TopicCatalogChanged, b.onChanged)
	}
}

func (b *Bridge) onChanged(collection string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.done:
		return
	default:
	}
	zap.L().Debug("catalog changed, scheduling sync push", zap.String("collection", collection))
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(debounceDelay, func() {
		if err := b.PushNow(); err != nil {
			zap.L().Error("sync push failed", zap.Error(err))
		}
	})
}

// PushNow builds and delivers a snapshot immediately, bypassing the
// debounce. Used by the periodic job and on shutdown.
func (b *Bridge) PushNow() error {
	if b.pusher == nil {
		return nil
	}
	snapshot, err := b.buildSnapshot()
	if err != nil {
		return err
	}
	if err := b.pusher.Push(snapshot); err != nil {
		return errors.Wrap(err, "push snapshot")
	}
	zap.L().Info("sync snapshot pushed",
		zap.Int("products", len(snapshot.Products)),
		zap.Int("orders", len(snapshot.Orders)))
	return nil
}

func (b *Bridge) buildSnapshot() (Snapshot, error) {
	products, err := b.records.LoadProducts()
	if err != nil {
		return Snapshot{}, err
	}
	orders, err := b.records.LoadOrders()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Products: products, Orders: orders, Timestamp: time.Now()}, nil
}

// ApplyRemote overwrites both local collections with the remote
// snapshot. Last write wins; there is no merge.
func (b *Bridge) ApplyRemote(snapshot Snapshot) error {
	if snapshot.Products == nil {
		snapshot.Products = map[string]domain.Product{}
	}
	if snapshot.Orders == nil {
		snapshot.Orders = map[string]domain.Order{}
	}
	if err := b.records.SaveProducts(snapshot.Products); err != nil {
		return err
	}
	if err := b.records.SaveOrders(snapshot.Orders); err != nil {
		return err
	}
	zap.L().Info("remote snapshot applied",
		zap.Int("products", len(snapshot.Products)),
		zap.Int("orders", len(snapshot.Orders)),
		zap.Time("remote_time", snapshot.Timestamp))
	return nil
}
