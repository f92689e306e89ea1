// Package storage is the key-value layer under the persistent quad
// store: a transactional Storage interface with logical tables, and a
// badger-backed implementation.
package storage

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("key not found")
	ErrTransactionRO = errors.New("transaction is read-only")
)

// Storage is a transactional key-value store with snapshot isolation.
type Storage interface {
	Begin(writable bool) (Transaction, error)
	Close() error

	// Sync flushes writes to disk.
	Sync() error
}

// Transaction reads and writes table-scoped keys.
type Transaction interface {
	Get(table Table, key []byte) ([]byte, error)
	Set(table Table, key, value []byte) error
	Delete(table Table, key []byte) error

	// Scan iterates over [start, end) in key order. A nil start begins
	// at the table's first key; a nil end runs to its last.
	Scan(table Table, start, end []byte) (Iterator, error)

	Commit() error
	Rollback() error
}

// Iterator walks key-value pairs in key order.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Close() error
}

// Table is a logical namespace inside the store.
type Table byte

const (
	// TableID2Str maps a hashed encoded term to its canonical string.
	TableID2Str Table = iota

	// Quad indexes, named by key component order. The graph-last
	// permutations serve wildcard-graph matches; the graph-first one
	// serves graph-scoped matches.
	TableSPOG
	TablePOSG
	TableOSPG
	TableGSPO

	// TableGraphs registers named graphs, including empty ones.
	TableGraphs

	TableCount
)

func (t Table) String() string {
	switch t {
	case TableID2Str:
		return "id2str"
	case TableSPOG:
		return "spog"
	case TablePOSG:
		return "posg"
	case TableOSPG:
		return "ospg"
	case TableGSPO:
		return "gspo"
	case TableGraphs:
		return "graphs"
	}
	return "unknown"
}

// TablePrefix namespaces keys in the shared keyspace.
func TablePrefix(table Table) []byte {
	return []byte{byte(table)}
}

// PrefixKey prepends the table namespace to a key.
func PrefixKey(table Table, key []byte) []byte {
	out := make([]byte, 1+len(key))
	out[0] = byte(table)
	copy(out[1:], key)
	return out
}
