package store

import (
	"reflect"
	"sync"
	"time"

	"github.com/pkg/errors"
	bbolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/talkincode/stockpilot/internal/domain"
)

// Well-known document names in the kv bucket. The names mirror the
// layout of previously persisted data.
const (
	CollectionProducts = "productData"
	CollectionOrders   = "orderData"

	AuxGridColumns        = "gridColumns"
	AuxHidePriceCustomers = "hidePriceCustomers"
)

var bucketKV = []byte("kv")

// RecordStore keeps each collection as one serialized JSON document.
// Saves replace the whole document; read-modify-write sequencing is the
// caller's job and the catalog always reloads a collection right before
// saving it.
type RecordStore struct {
	path string

	mu    sync.Mutex
	db    *bbolt.DB
	state ConnState
}

func NewRecordStore(path string) *RecordStore {
	return &RecordStore{path: path, state: StateClosed}
}

func (s *RecordStore) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureOpenLocked()
}

func (s *RecordStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		s.state = StateClosed
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.state = StateClosed
	return err
}

func (s *RecordStore) ensureOpen() (*bbolt.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		err := s.db.View(func(tx *bbolt.Tx) error {
			if tx.Bucket(bucketKV) == nil {
				return errors.New("kv bucket missing")
			}
			return nil
		})
		if err == nil {
			return s.db, nil
		}
		zap.L().Warn("recordstore probe failed, reopening", zap.String("path", s.path))
		_ = s.db.Close()
		s.db = nil
		s.state = StateBroken
	}
	if err := s.ensureOpenLocked(); err != nil {
		return nil, err
	}
	return s.db, nil
}

func (s *RecordStore) ensureOpenLocked() error {
	if s.db != nil && s.state == StateOpen {
		return nil
	}
	db, err := bbolt.Open(s.path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		s.state = StateBroken
		return mapStorageErr(err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketKV)
		return err
	})
	if err != nil {
		_ = db.Close()
		s.state = StateBroken
		return mapStorageErr(err)
	}
	s.db = db
	s.state = StateOpen
	return nil
}

// LoadProducts returns the product collection keyed by canonical item
// key. An absent or unparsable document degrades to an empty map; the
// parse failure is logged, never propagated.
func (s *RecordStore) LoadProducts() (map[string]domain.Product, error) {
	out := make(map[string]domain.Product)
	if err := s.loadDocument(CollectionProducts, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RecordStore) SaveProducts(products map[string]domain.Product) error {
	return s.saveDocument(CollectionProducts, products)
}

// LoadOrders returns the order collection keyed by order id, with the
// same degrade-to-empty behavior as LoadProducts.
func (s *RecordStore) LoadOrders() (map[string]domain.Order, error) {
	out := make(map[string]domain.Order)
	if err := s.loadDocument(CollectionOrders, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RecordStore) SaveOrders(orders map[string]domain.Order) error {
	return s.saveDocument(CollectionOrders, orders)
}

// LoadAux reads one of the small auxiliary documents into v. Absent or
// corrupt auxiliaries leave v untouched.
func (s *RecordStore) LoadAux(name string, v interface{}) error {
	return s.loadDocument(name, v)
}

func (s *RecordStore) SaveAux(name string, v interface{}) error {
	return s.saveDocument(name, v)
}

func (s *RecordStore) loadDocument(name string, v interface{}) error {
	db, err := s.ensureOpen()
	if err != nil {
		return err
	}
	var raw []byte
	err = db.View(func(tx *bbolt.Tx) error {
		if stored := tx.Bucket(bucketKV).Get([]byte(name)); stored != nil {
			raw = append(raw, stored...)
		}
		return nil
	})
	if err != nil {
		return mapStorageErr(err)
	}
	if raw == nil {
		return nil
	}
	// decode into a fresh value first; a failed decode may leave a
	// partially filled map behind, and v must stay untouched then
	fresh := reflect.New(reflect.TypeOf(v).Elem())
	if err := json.Unmarshal(raw, fresh.Interface()); err != nil {
		zap.L().Error("persisted document unparsable, degrading to empty",
			zap.String("collection", name),
			zap.NamedError("cause", errors.Wrap(domain.ErrCorruptState, err.Error())))
		return nil
	}
	reflect.ValueOf(v).Elem().Set(fresh.Elem())
	return nil
}

func (s *RecordStore) saveDocument(name string, v interface{}) error {
	db, err := s.ensureOpen()
	if err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", name)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketKV).Put([]byte(name), raw)
	})
	return mapStorageErr(err)
}
