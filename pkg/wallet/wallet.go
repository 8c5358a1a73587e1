/*
Copyright 2020 IBM All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package wallet stores the enrollment identities the service acts as. The
// stored format is the one used by the Fabric SDK wallets, so a wallet
// directory can be shared with other Fabric applications.
package wallet

import (
	"encoding/json"
	"encoding/pem"
	"strings"
	"sync"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/pkg/errors"
)

const x509Type = "X.509"

// Store is the persistence behind a Wallet.
type Store interface {
	Put(label string, content []byte) error
	Get(label string) ([]byte, error)
	Remove(label string) error
	Exists(label string) bool
	List() ([]string, error)
}

// Identity is an X.509 enrollment identity
type Identity struct {
	Version     int         `json:"version"`
	MSPID       string      `json:"mspId"`
	Type        string      `json:"type"`
	Credentials Credentials `json:"credentials"`
}

// Credentials are the PEM encoded enrollment certificate and private key
type Credentials struct {
	Certificate string `json:"certificate"`
	PrivateKey  string `json:"privateKey"`
}

// NewX509Identity creates an X509 identity for storage in a wallet
func NewX509Identity(mspID, certPEM, keyPEM string) *Identity {
	return &Identity{
		Version: 1,
		MSPID:   mspID,
		Type:    x509Type,
		Credentials: Credentials{
			Certificate: certPEM,
			PrivateKey:  keyPEM,
		},
	}
}

// Validate checks that the identity is complete and its certificate parses.
func (id *Identity) Validate() error {
	if id.Type != x509Type {
		return status.New(status.InvalidArgument, "unsupported identity type: "+id.Type)
	}
	if err := identity.ValidateMSPID(id.MSPID); err != nil {
		return err
	}
	if _, err := identity.ParseCertificate([]byte(id.Credentials.Certificate)); err != nil {
		return err
	}
	if block, _ := pem.Decode([]byte(id.Credentials.PrivateKey)); block == nil {
		return status.New(status.InvalidArgument, "no PEM data found in private key")
	}
	return nil
}

// A Wallet stores identity information used to connect to a Hyperledger Fabric network.
// Instances are created using the factory functions of the stores. Writes
// through one Wallet are serialized, so concurrent imports of a label have a
// single winner.
type Wallet struct {
	mutex sync.Mutex
	store Store
}

// New returns a wallet backed by store.
func New(store Store) *Wallet {
	return &Wallet{store: store}
}

// Put an identity into the wallet, replacing any identity with the same label.
func (w *Wallet) Put(label string, id *Identity) error {
	if err := validateLabel(label); err != nil {
		return err
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.put(label, id)
}

func (w *Wallet) put(label string, id *Identity) error {
	content, err := json.Marshal(id)
	if err != nil {
		return errors.Wrap(err, "failed to marshal identity")
	}
	return w.store.Put(label, content)
}

// Import adds a validated identity to the wallet. It fails with
// AlreadyExists if the label is taken.
func (w *Wallet) Import(label string, id *Identity) error {
	if err := validateLabel(label); err != nil {
		return err
	}
	if err := id.Validate(); err != nil {
		return err
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.store.Exists(label) {
		return status.New(status.AlreadyExists, "identity already exists in wallet", status.Key("label", label))
	}
	return w.put(label, id)
}

// Get an identity from the wallet. It fails with NotFound if there is none.
func (w *Wallet) Get(label string) (*Identity, error) {
	if err := validateLabel(label); err != nil {
		return nil, err
	}

	content, err := w.store.Get(label)
	if err != nil {
		return nil, err
	}
	if len(content) == 0 {
		return nil, notFound(label)
	}

	id := &Identity{}
	if err := json.Unmarshal(content, id); err != nil {
		return nil, errors.Wrap(err, "Invalid identity format")
	}
	if id.Type != x509Type {
		return nil, errors.New("Invalid identity format: unsupported identity type: " + id.Type)
	}
	return id, nil
}

// List returns the labels of all identities in the wallet.
func (w *Wallet) List() ([]string, error) {
	return w.store.List()
}

// Exists tests whether the wallet contains an identity for the given label.
func (w *Wallet) Exists(label string) bool {
	return validateLabel(label) == nil && w.store.Exists(label)
}

// Remove an identity from the wallet. If the identity does not exist, this method does nothing.
func (w *Wallet) Remove(label string) error {
	if err := validateLabel(label); err != nil {
		return err
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	return w.store.Remove(label)
}

// labels become file names and Vault paths
func validateLabel(label string) error {
	if label == "" || label == "." || label == ".." || strings.ContainsAny(label, `/\`) {
		return status.New(status.InvalidArgument, "invalid wallet label", status.Key("label", label))
	}
	return nil
}

func notFound(label string) error {
	return status.New(status.NotFound, "identity not found in wallet", status.Key("label", label))
}
