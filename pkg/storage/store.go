/*
Package storage contains the key-value backends the deployment ledger is
kept in.
*/
package storage

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is an error returned by Store implementations
// when a certain key is not found.
var ErrKeyNotFound = errors.New("key not found")

// Store is the underlying KV backend for the ledger data. All implementations
// are safe for concurrent use.
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	// Seek calls f for every key-value pair with the given prefix in ascending
	// key order until f returns false. Key and value slices are only valid
	// until the next call to f and should not be modified.
	Seek(prefix []byte, f func(k, v []byte) bool) error
	Close() error
}

// NewStore creates storage with the database type selected in configuration.
func NewStore(cfg DBConfiguration) (Store, error) {
	var store Store
	var err error
	switch cfg.Type {
	case LevelDB:
		store, err = NewLevelDBStore(cfg.LevelDBOptions)
	case InMemoryDB:
		store = NewMemoryStore()
	case BoltDB:
		store, err = NewBoltDBStore(cfg.BoltDBOptions)
	default:
		return nil, fmt.Errorf("unknown storage: %s", cfg.Type)
	}
	return store, err
}
