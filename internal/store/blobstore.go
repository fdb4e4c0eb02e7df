// Package store implements the two local persistent stores: a key-value
// blob store for compressed images and a whole-document JSON store for
// product and order collections. Both sit on bbolt files under the
// application workdir.
package store

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	bbolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/talkincode/stockpilot/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ConnState tracks the lifecycle of the underlying bbolt handle.
type ConnState int

const (
	StateClosed ConnState = iota
	StateOpen
	StateBroken
)

var (
	bucketImages      = []byte("images")
	bucketIdxCode     = []byte("idx_code")
	bucketIdxSupplier = []byte("idx_supplier")
	bucketIdxTime     = []byte("idx_timestamp")
)

// indexSep separates an index term from the primary key it points at.
// 0x00 cannot appear in product codes or supplier names coming from
// filenames and spreadsheet cells.
const indexSep = "\x00"

// BlobStore persists ImageBlobs keyed by the canonical (code, supplier)
// form, with secondary lookups by code, supplier and timestamp. The
// connection is lazily established and transparently reopened, so callers
// only ever see storage-quota or I/O failures.
type BlobStore struct {
	path string

	mu    sync.Mutex
	db    *bbolt.DB
	state ConnState
}

func NewBlobStore(path string) *BlobStore {
	return &BlobStore{path: path, state: StateClosed}
}

// Open eagerly establishes the connection. Optional; every operation
// goes through the same guard.
func (s *BlobStore) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureOpenLocked()
}

func (s *BlobStore) Close() error {
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

// State reports the current connection state.
func (s *BlobStore) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ensureOpen verifies the handle with a cheap probe and reinitializes it
// when closed or broken. Schema creation is idempotent: buckets are
// created only when missing, never cleared.
func (s *BlobStore) ensureOpen() (*bbolt.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		if err := s.probeLocked(); err == nil {
			return s.db, nil
		}
		zap.L().Warn("blobstore probe failed, reopening", zap.String("path", s.path))
		_ = s.db.Close()
		s.db = nil
		s.state = StateBroken
	}
	if err := s.ensureOpenLocked(); err != nil {
		return nil, err
	}
	return s.db, nil
}

func (s *BlobStore) ensureOpenLocked() error {
	if s.db != nil && s.state == StateOpen {
		return nil
	}
	db, err := bbolt.Open(s.path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		s.state = StateBroken
		return mapStorageErr(err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketImages, bucketIdxCode, bucketIdxSupplier, bucketIdxTime} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
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

// probeLocked is the lightweight liveness check run before every
// operation: a read transaction touching the primary bucket.
func (s *BlobStore) probeLocked() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketImages) == nil {
			return errors.New("images bucket missing")
		}
		return nil
	})
}

// Put upserts the blob under its composite key and refreshes the
// secondary indexes.
func (s *BlobStore) Put(ctx context.Context, blob domain.ImageBlob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := s.ensureOpen()
	if err != nil {
		return err
	}
	if blob.Timestamp.IsZero() {
		blob.Timestamp = time.Now()
	}
	key := []byte(blob.Key().String())
	value, err := json.Marshal(blob)
	if err != nil {
		return errors.Wrap(err, "encode blob")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if prev := tx.Bucket(bucketImages).Get(key); prev != nil {
			var old domain.ImageBlob
			if json.Unmarshal(prev, &old) == nil {
				if err := dropIndexes(tx, old); err != nil {
					return err
				}
			}
		}
		if err := tx.Bucket(bucketImages).Put(key, value); err != nil {
			return err
		}
		return putIndexes(tx, blob)
	})
	return mapStorageErr(err)
}

// Get returns the blob for key, or domain.ErrNotFound when absent.
func (s *BlobStore) Get(ctx context.Context, key domain.ItemKey) (domain.ImageBlob, error) {
	var blob domain.ImageBlob
	if err := ctx.Err(); err != nil {
		return blob, err
	}
	db, err := s.ensureOpen()
	if err != nil {
		return blob, err
	}
	err = db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketImages).Get([]byte(key.String()))
		if raw == nil {
			return domain.ErrNotFound
		}
		return json.Unmarshal(raw, &blob)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return blob, err
		}
		return blob, mapStorageErr(err)
	}
	return blob, nil
}

// Delete removes the blob and its index entries; deleting an absent key
// is a no-op.
func (s *BlobStore) Delete(ctx context.Context, key domain.ItemKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := s.ensureOpen()
	if err != nil {
		return err
	}
	raw := []byte(key.String())
	err = db.Update(func(tx *bbolt.Tx) error {
		prev := tx.Bucket(bucketImages).Get(raw)
		if prev == nil {
			return nil
		}
		var old domain.ImageBlob
		if json.Unmarshal(prev, &old) == nil {
			if err := dropIndexes(tx, old); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketImages).Delete(raw)
	})
	return mapStorageErr(err)
}

// DeleteAll clears every stored image. Used by the catalog reset, which
// keeps orders untouched.
func (s *BlobStore) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db, err := s.ensureOpen()
	if err != nil {
		return err
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketImages, bucketIdxCode, bucketIdxSupplier, bucketIdxTime} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	return mapStorageErr(err)
}

// List returns every stored blob.
func (s *BlobStore) List(ctx context.Context) ([]domain.ImageBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := s.ensureOpen()
	if err != nil {
		return nil, err
	}
	var blobs []domain.ImageBlob
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketImages).ForEach(func(_, v []byte) error {
			var blob domain.ImageBlob
			if err := json.Unmarshal(v, &blob); err != nil {
				zap.L().Warn("skipping undecodable image entry", zap.Error(err))
				return nil
			}
			blobs = append(blobs, blob)
			return nil
		})
	})
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return blobs, nil
}

// ListByCode returns all blobs stored under the given product code,
// across suppliers, via the code index.
func (s *BlobStore) ListByCode(ctx context.Context, code string) ([]domain.ImageBlob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db, err := s.ensureOpen()
	if err != nil {
		return nil, err
	}
	var blobs []domain.ImageBlob
	prefix := []byte(code + indexSep)
	err = db.View(func(tx *bbolt.Tx) error {
		images := tx.Bucket(bucketImages)
		c := tx.Bucket(bucketIdxCode).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			primary := k[len(prefix):]
			raw := images.Get(primary)
			if raw == nil {
				continue
			}
			var blob domain.ImageBlob
			if err := json.Unmarshal(raw, &blob); err != nil {
				continue
			}
			blobs = append(blobs, blob)
		}
		return nil
	})
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return blobs, nil
}

func putIndexes(tx *bbolt.Tx, blob domain.ImageBlob) error {
	primary := blob.Key().String()
	if err := tx.Bucket(bucketIdxCode).Put(indexKey(blob.Code, primary), nil); err != nil {
		return err
	}
	if err := tx.Bucket(bucketIdxSupplier).Put(indexKey(blob.Supplier, primary), nil); err != nil {
		return err
	}
	ts := blob.Timestamp.UTC().Format(time.RFC3339Nano)
	return tx.Bucket(bucketIdxTime).Put(indexKey(ts, primary), nil)
}

func dropIndexes(tx *bbolt.Tx, blob domain.ImageBlob) error {
	primary := blob.Key().String()
	if err := tx.Bucket(bucketIdxCode).Delete(indexKey(blob.Code, primary)); err != nil {
		return err
	}
	if err := tx.Bucket(bucketIdxSupplier).Delete(indexKey(blob.Supplier, primary)); err != nil {
		return err
	}
	ts := blob.Timestamp.UTC().Format(time.RFC3339Nano)
	return tx.Bucket(bucketIdxTime).Delete(indexKey(ts, primary))
}

func indexKey(term, primary string) []byte {
	return []byte(term + indexSep + primary)
}

// mapStorageErr folds low-level failures into the shared taxonomy,
// keeping quota exhaustion distinct from generic I/O.
func mapStorageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrStorageFull) || errors.Is(err, domain.ErrIO) {
		return err
	}
	if errors.Is(err, syscall.ENOSPC) || strings.Contains(err.Error(), "no space left") {
		return errors.Wrap(domain.ErrStorageFull, err.Error())
	}
	return errors.Wrap(domain.ErrIO, err.Error())
}
