// Package storage provides persistence implementations: a Badger-backed
// record store for the kitchen's durable data and an in-memory store for
// live cooking sessions.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/hammamikhairi/kitchenops/internal/domain"
	"github.com/hammamikhairi/kitchenops/internal/logger"
)

// Badger is a JSON key/value store over BadgerDB. Values are marshalled
// with encoding/json; keys are plain strings laid out as "<kind>:<id>".
type Badger struct {
	db  *badger.DB
	log *logger.Logger
}

// Open opens (or creates) the database in dataDir. An empty dataDir opens
// an in-memory database, which tests use.
func Open(dataDir string, log *logger.Logger) (*Badger, error) {
	var opts badger.Options
	if dataDir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		absPath, err := filepath.Abs(dataDir)
		if err != nil {
			return nil, fmt.Errorf("resolving data dir: %w", err)
		}
		opts = badger.DefaultOptions(absPath)
		dataDir = absPath
	}
	opts = opts.WithLogger(nil) // badger's own logger is far too chatty

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger: %w", err)
	}

	if dataDir == "" {
		log.Debug("badger opened in memory")
	} else {
		log.Info("badger opened at %s", dataDir)
	}
	return &Badger{db: db, log: log}, nil
}

// Close closes the database.
func (b *Badger) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Set stores value under key.
func (b *Badger) Set(key string, value any) error {
	return b.SetWithTTL(key, value, 0)
}

// SetWithTTL stores value under key. The entry expires after ttl; a zero
// ttl never expires.
func (b *Badger) SetWithTTL(key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", key, err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), data)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Get loads key into value. A missing key returns domain.ErrNotFound.
func (b *Badger) Get(key string, value any) error {
	return b.db.View(func(txn *badger.Txn) error {
		return getTxn(txn, key, value)
	})
}

// Exists reports whether key is present.
func (b *Badger) Exists(key string) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", key, err)
	}
	return true, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Badger) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Update loads key into value, calls mutate, and writes value back in a
// single transaction. If mutate fails nothing is written.
func (b *Badger) Update(key string, value any, mutate func() error) error {
	return b.db.Update(func(txn *badger.Txn) error {
		if err := getTxn(txn, key, value); err != nil {
			return err
		}
		if err := mutate(); err != nil {
			return err
		}
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshalling %s: %w", key, err)
		}
		return txn.Set([]byte(key), data)
	})
}

// Batch runs fn in one read-write transaction.
func (b *Badger) Batch(fn func(tx *Tx) error) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return fn(&Tx{txn: txn})
	})
}

// List returns every key with the given prefix, in key order.
func (b *Badger) List(prefix string) ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", prefix, err)
	}
	return keys, nil
}

// Scan calls fn with the raw JSON of every value under prefix, in key
// order. Returning an error from fn stops the scan.
func (b *Badger) Scan(prefix string, fn func(key string, raw []byte) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(string(item.Key()), raw); err != nil {
				return err
			}
		}
		return nil
	})
}

// ScanAll decodes every value under prefix into a slice of T.
func ScanAll[T any](b *Badger, prefix string) ([]T, error) {
	var out []T
	err := b.Scan(prefix, func(key string, raw []byte) error {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("decoding %s: %w", key, err)
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

// RunGC runs one value-log garbage collection pass.
func (b *Badger) RunGC() error {
	err := b.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
		return nil
	}
	return err
}

// StartGC runs garbage collection every interval until ctx is cancelled.
func (b *Badger) StartGC(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := b.RunGC(); err != nil {
					b.log.Error("badger gc: %v", err)
				}
			}
		}
	}()
	b.log.Debug("badger gc routine started (interval=%s)", interval)
}

// Tx is a read-write transaction handed to Batch callbacks.
type Tx struct {
	txn *badger.Txn
}

// Get loads key into value.
func (t *Tx) Get(key string, value any) error {
	return getTxn(t.txn, key, value)
}

// Set stores value under key.
func (t *Tx) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshalling %s: %w", key, err)
	}
	return t.txn.Set([]byte(key), data)
}

// Delete removes key.
func (t *Tx) Delete(key string) error {
	return t.txn.Delete([]byte(key))
}

// Keys returns every key under prefix.
func (t *Tx) Keys(prefix string) []string {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = []byte(prefix)
	it := t.txn.NewIterator(opts)
	defer it.Close()

	var keys []string
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Item().KeyCopy(nil)))
	}
	return keys
}

func getTxn(txn *badger.Txn, key string, value any) error {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, value)
	})
}
