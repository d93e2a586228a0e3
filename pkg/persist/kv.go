package persist

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/samyama/samyama/pkg/samyamaerr"
)

// KV is the minimal key-value contract the rest of this package and the
// engine need from a storage backend: point get/set/delete, prefix scan,
// and an atomic batch of writes. BadgerStore is the only implementation;
// pkg/engine holds a *BadgerStore directly rather than a KV.
type KV interface {
	Get(key []byte) ([]byte, bool, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	ScanPrefix(prefix []byte, fn func(key, value []byte) error) error
	Batch(ops []Op) error
	Close() error
}

// OpKind tags a Batch operation.
type OpKind uint8

const (
	OpSet OpKind = iota
	OpDelete
)

// Op is one write in a Batch call.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte
}

// BadgerOptions configures BadgerStore, mirroring the teacher's
// BadgerOptions (nornicdb/pkg/storage/badger.go) trimmed to the knobs this
// module actually exposes through configuration (§6).
type BadgerOptions struct {
	DataDir    string
	InMemory   bool
	SyncWrites bool
}

// BadgerStore is the durable KV backend: one BadgerDB instance shared by
// every tenant, partitioned by the tenant-prefixed key layout in keys.go
// (§4.6 — one instance avoids the file-descriptor and background-compaction
// overhead of one BadgerDB per tenant, at the cost of sharing one LSM tree;
// acceptable since tenant isolation here is a logical, not a filesystem,
// boundary).
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) a BadgerDB-backed store, applying the
// teacher's reduced-footprint tuning (nornicdb/pkg/storage/badger.go
// NewBadgerEngineWithOptions) so the default profile stays friendly to
// constrained environments.
func OpenBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	bOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		bOpts = bOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		bOpts = bOpts.WithSyncWrites(true)
	}
	bOpts = bOpts.
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(bOpts)
	if err != nil {
		return nil, samyamaerr.Wrap(samyamaerr.KindPersistence, "open badger store", err)
	}
	return &BadgerStore{db: db}, nil
}

// Get returns the value for key, or found=false if it does not exist.
func (s *BadgerStore) Get(key []byte) ([]byte, bool, error) {
	var value []byte
	var found bool
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(v []byte) error {
			value = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, false, samyamaerr.Wrap(samyamaerr.KindPersistence, "get", err)
	}
	return value, found, nil
}

// Set writes key=value.
func (s *BadgerStore) Set(key, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return samyamaerr.Wrap(samyamaerr.KindPersistence, "set", err)
	}
	return nil
}

// Delete removes key, a no-op if it does not exist.
func (s *BadgerStore) Delete(key []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return samyamaerr.Wrap(samyamaerr.KindPersistence, "delete", err)
	}
	return nil
}

// ScanPrefix iterates every key with the given prefix in key order,
// calling fn for each. Values are copied before fn is called so fn may
// retain them past the transaction's lifetime.
func (s *BadgerStore) ScanPrefix(prefix []byte, fn func(key, value []byte) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := append([]byte(nil), item.Key()...)
			var value []byte
			if err := item.Value(func(v []byte) error {
				value = append([]byte(nil), v...)
				return nil
			}); err != nil {
				return err
			}
			if err := fn(key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return samyamaerr.Wrap(samyamaerr.KindPersistence, "scan prefix", err)
	}
	return nil
}

// Batch applies every op atomically in one BadgerDB transaction, so a
// multi-key mutation is never observed half-applied.
func (s *BadgerStore) Batch(ops []Op) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, op := range ops {
			switch op.Kind {
			case OpSet:
				if err := txn.Set(op.Key, op.Value); err != nil {
					return err
				}
			case OpDelete:
				if err := txn.Delete(op.Key); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return samyamaerr.Wrap(samyamaerr.KindPersistence, "batch", err)
	}
	return nil
}

// Close releases the underlying BadgerDB handle.
func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return samyamaerr.Wrap(samyamaerr.KindPersistence, "close", err)
	}
	return nil
}

var _ KV = (*BadgerStore)(nil)
