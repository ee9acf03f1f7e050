/*
Package ledger implements the deployment ledger, an append-only record of
contracts deployed to each network. It's keyed by network, module id and
future id, so repeated runs can reuse what is already deployed.
*/
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nspcc-dev/evmdeploy/pkg/storage"
)

var (
	// ErrNotFound is returned when there is no record for the given key.
	ErrNotFound = errors.New("deployment not found")
	// ErrExists is returned when trying to overwrite an existing record.
	ErrExists = errors.New("deployment is already recorded")
)

// recordPrefix is the storage key prefix for deployment records.
const recordPrefix byte = 0x01

// separator can't be a part of network or module names.
const separator = 0x00

// Record is a single deployed contract.
type Record struct {
	Network     string         `json:"network"`
	Module      string         `json:"module"`
	Future      string         `json:"future"`
	Contract    string         `json:"contract"`
	Address     common.Address `json:"address"`
	TxHash      common.Hash    `json:"txHash"`
	BlockNumber uint64         `json:"blockNumber"`
	ChainID     uint64         `json:"chainId"`
	RunID       string         `json:"runId"`
	DeployedAt  time.Time      `json:"deployedAt"`
}

// Ledger stores records in a storage.Store.
type Ledger struct {
	// lock makes Put check-and-set atomic.
	lock  sync.Mutex
	store storage.Store
}

// New creates a ledger on top of the given store.
func New(s storage.Store) *Ledger {
	return &Ledger{store: s}
}

func networkKey(network string) []byte {
	k := make([]byte, 0, 2+len(network))
	k = append(k, recordPrefix)
	k = append(k, network...)
	return append(k, separator)
}

func recordKey(network, module, future string) []byte {
	k := networkKey(network)
	k = append(k, module...)
	k = append(k, separator)
	return append(k, future...)
}

func checkName(kind, s string) error {
	if s == "" {
		return fmt.Errorf("empty %s", kind)
	}
	if strings.IndexByte(s, separator) >= 0 {
		return fmt.Errorf("invalid %s %q", kind, s)
	}
	return nil
}

// Get returns the record for the given future deployed by module to network.
func (l *Ledger) Get(network, module, future string) (Record, error) {
	var r Record
	data, err := l.store.Get(recordKey(network, module, future))
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return r, fmt.Errorf("%w: %s/%s/%s", ErrNotFound, network, module, future)
		}
		return r, err
	}
	if err := json.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("corrupted ledger record %s/%s/%s: %w", network, module, future, err)
	}
	return r, nil
}

// Put adds a new record. Records are never overwritten.
func (l *Ledger) Put(r Record) error {
	for _, c := range []struct{ kind, val string }{
		{"network", r.Network},
		{"module", r.Module},
		{"future", r.Future},
	} {
		if err := checkName(c.kind, c.val); err != nil {
			return err
		}
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	key := recordKey(r.Network, r.Module, r.Future)

	l.lock.Lock()
	defer l.lock.Unlock()
	_, err = l.store.Get(key)
	if err == nil {
		return fmt.Errorf("%w: %s/%s/%s", ErrExists, r.Network, r.Module, r.Future)
	}
	if !errors.Is(err, storage.ErrKeyNotFound) {
		return err
	}
	return l.store.Put(key, data)
}

// List returns all records for the network sorted by module and future.
func (l *Ledger) List(network string) ([]Record, error) {
	var (
		res    []Record
		decErr error
	)
	err := l.store.Seek(networkKey(network), func(k, v []byte) bool {
		var r Record
		if err := json.Unmarshal(v, &r); err != nil {
			decErr = fmt.Errorf("corrupted ledger record %q: %w", k, err)
			return false
		}
		res = append(res, r)
		return true
	})
	if err != nil {
		return nil, err
	}
	return res, decErr
}

// Close closes the underlying store.
func (l *Ledger) Close() error {
	return l.store.Close()
}
