/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package memledger is an in-process key-value ledger with the transaction
// semantics of a Fabric peer: reads see committed state only, writes are
// buffered until commit, and a commit is rejected if any key it read was
// changed by another transaction in the meantime.
package memledger

import (
	"crypto/sha256"
	"encoding/binary"
	"sort"
	"sync"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/hyperledger/fabric-docsecrets/pkg/ledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
)

var logger = logging.NewLogger("docsecrets/memledger")

// Event is a chaincode event emitted by a committed transaction.
type Event struct {
	TxID    string
	Name    string
	Payload []byte
}

type versionedValue struct {
	value   []byte
	version uint64
}

// Info describes the chain of committed transactions; each commit is a block.
type Info struct {
	Height            uint64
	CurrentBlockHash  []byte
	PreviousBlockHash []byte
}

// Ledger is the committed world state.
type Ledger struct {
	mu        sync.RWMutex
	state     map[string]versionedValue
	seq       uint64
	blockHash []byte
	prevHash  []byte
	events    []Event
	listeners []func(Event)
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{state: make(map[string]versionedValue)}
}

// Begin starts a transaction on behalf of caller.
func (l *Ledger) Begin(txID string, caller identity.Identity) *Tx {
	return &Tx{
		ledger: l,
		txID:   txID,
		caller: caller,
		reads:  make(map[string]uint64),
		writes: make(map[string][]byte),
	}
}

// OnEvent registers a callback invoked for every event that is committed.
func (l *Ledger) OnEvent(f func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, f)
}

// Events returns the events committed so far, oldest first.
func (l *Ledger) Events() []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]Event(nil), l.events...)
}

// Keys returns the committed keys in sorted order.
func (l *Ledger) Keys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.state))
	for k := range l.state {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Info returns the height and the hashes of the last two blocks.
func (l *Ledger) Info() Info {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return Info{
		Height:            l.seq,
		CurrentBlockHash:  append([]byte(nil), l.blockHash...),
		PreviousBlockHash: append([]byte(nil), l.prevHash...),
	}
}

func (l *Ledger) read(key string) versionedValue {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state[key]
}

func (l *Ledger) commit(tx *Tx) error {
	l.mu.Lock()

	for key, version := range tx.reads {
		if l.state[key].version != version {
			l.mu.Unlock()
			logger.Debugf("[txID %s] read conflict on key %q", tx.txID, key)
			return status.New(status.Conflict, "MVCC read conflict", status.Key("txId", tx.txID))
		}
	}

	l.seq++
	l.prevHash, l.blockHash = l.blockHash, blockHash(l.seq, l.blockHash, tx)
	for key, value := range tx.writes {
		if value == nil {
			delete(l.state, key)
			continue
		}
		l.state[key] = versionedValue{value: value, version: l.seq}
	}

	var listeners []func(Event)
	var event *Event
	if tx.event != nil {
		event = tx.event
		l.events = append(l.events, *event)
		listeners = append(listeners, l.listeners...)
	}
	l.mu.Unlock()

	for _, f := range listeners {
		f(*event)
	}
	return nil
}

// blockHash chains the block number, the previous hash, the transaction id
// and the write set.
func blockHash(number uint64, prev []byte, tx *Tx) []byte {
	h := sha256.New()

	var num [8]byte
	binary.BigEndian.PutUint64(num[:], number)
	h.Write(num[:])
	h.Write(prev)
	h.Write([]byte(tx.txID))

	keys := make([]string, 0, len(tx.writes))
	for k := range tx.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write(tx.writes[k])
		h.Write([]byte{0})
	}
	return h.Sum(nil)
}

// Tx is a single transaction. It implements ledger.Context and must not be
// shared between goroutines.
type Tx struct {
	ledger *Ledger
	txID   string
	caller identity.Identity
	reads  map[string]uint64
	writes map[string][]byte
	event  *Event
	done   bool
}

var _ ledger.Context = (*Tx)(nil)

// GetState returns the committed value of key and records the version read.
func (tx *Tx) GetState(key string) ([]byte, error) {
	v := tx.ledger.read(key)
	if _, ok := tx.reads[key]; !ok {
		tx.reads[key] = v.version
	}
	return append([]byte(nil), v.value...), nil
}

// PutState buffers a write of key.
func (tx *Tx) PutState(key string, value []byte) error {
	if key == "" {
		return status.New(status.InvalidArgument, "key must not be an empty string")
	}
	if len(value) == 0 {
		// an empty value is indistinguishable from an absent key
		return tx.DelState(key)
	}
	tx.writes[key] = append([]byte(nil), value...)
	return nil
}

// DelState buffers a delete of key.
func (tx *Tx) DelState(key string) error {
	tx.writes[key] = nil
	return nil
}

// CreateCompositeKey uses the Fabric composite key encoding.
func (tx *Tx) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	return ledger.CreateCompositeKey(objectType, attributes)
}

// SetEvent sets the transaction event; a later call replaces an earlier one.
func (tx *Tx) SetEvent(name string, payload []byte) error {
	if name == "" {
		return status.New(status.InvalidArgument, "event name can not be empty string")
	}
	tx.event = &Event{TxID: tx.txID, Name: name, Payload: append([]byte(nil), payload...)}
	return nil
}

// CallerIdentity returns the identity the transaction was started for.
func (tx *Tx) CallerIdentity() (identity.Identity, error) {
	return tx.caller, nil
}

// Commit validates the read set and applies the write set.
func (tx *Tx) Commit() error {
	if tx.done {
		return status.New(status.InvalidArgument, "transaction already completed", status.Key("txId", tx.txID))
	}
	tx.done = true
	return tx.ledger.commit(tx)
}

// Discard drops the transaction without applying it.
func (tx *Tx) Discard() {
	tx.done = true
}
