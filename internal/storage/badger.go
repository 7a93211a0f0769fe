package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore keeps provider responses in a Badger key-value store,
// relying on Badger's native per-entry TTL for expiry
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens a Badger store at dir. An empty dir opens an in-memory store.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Get returns the payload stored under key
func (b *BadgerStore) Get(key string) ([]byte, bool, error) {
	var payload []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})

	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get response: %w", err)
	}
	return payload, true, nil
}

// Put stores payload under key for ttl
func (b *BadgerStore) Put(key string, payload []byte, ttl time.Duration) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), payload).WithTTL(ttl))
	})
	if err != nil {
		return fmt.Errorf("failed to put response: %w", err)
	}
	return nil
}

// Close closes the Badger database
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
