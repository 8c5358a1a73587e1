/*
Copyright 2020 IBM All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"sort"
	"sync"
)

// InMemoryStore keeps identities in process memory.
type InMemoryStore struct {
	mutex   sync.RWMutex
	storage map[string][]byte
}

// NewInMemoryWallet creates a wallet that is not backed by a persistent store.
func NewInMemoryWallet() *Wallet {
	return New(NewInMemoryStore())
}

// NewInMemoryStore returns an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{storage: make(map[string][]byte)}
}

// Put an identity into the wallet.
func (m *InMemoryStore) Put(label string, content []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.storage[label] = append([]byte(nil), content...)
	return nil
}

// Get an identity from the wallet.
func (m *InMemoryStore) Get(label string) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	content, ok := m.storage[label]
	if !ok {
		return nil, notFound(label)
	}
	return content, nil
}

// Remove an identity from the wallet. If the identity does not exist, this method does nothing.
func (m *InMemoryStore) Remove(label string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.storage, label)
	return nil
}

// Exists returns true if the identity is in the wallet.
func (m *InMemoryStore) Exists(label string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.storage[label]
	return ok
}

// List all of the labels in the wallet.
func (m *InMemoryStore) List() ([]string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	labels := make([]string, 0, len(m.storage))
	for label := range m.storage {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels, nil
}
