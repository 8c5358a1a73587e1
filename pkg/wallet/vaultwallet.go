/*
Copyright 2020 IBM All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package wallet

import (
	"path"
	"strings"

	"github.com/hashicorp/vault/api"
	"github.com/pkg/errors"
)

const (
	defaultVaultAddress = "http://localhost:8200"
	defaultVaultMount   = "secret"
	vaultIdentityField  = "identity"
)

// VaultConfig locates the wallet in a Vault KV version 2 secrets engine.
type VaultConfig struct {
	Address string
	Token   string
	Mount   string
	Path    string
}

// VaultStore keeps each identity in a Vault KV v2 secret at
// <mount>/data/<path>/<label>.
type VaultStore struct {
	mount  string
	path   string
	client *api.Logical
}

// NewVaultWallet creates a wallet backed by key/values in Vault.
func NewVaultWallet(cfg VaultConfig) (*Wallet, error) {
	store, err := NewVaultStore(cfg)
	if err != nil {
		return nil, err
	}
	return New(store), nil
}

// NewVaultStore returns a store in the Vault described by cfg.
func NewVaultStore(cfg VaultConfig) (*VaultStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("vault wallet path is empty")
	}
	if cfg.Token == "" {
		return nil, errors.New("vault token is empty")
	}
	if cfg.Address == "" {
		cfg.Address = defaultVaultAddress
	}
	if cfg.Mount == "" {
		cfg.Mount = defaultVaultMount
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, errors.Wrap(err, "can't create Vault client")
	}
	client.SetToken(cfg.Token)

	return &VaultStore{
		mount:  strings.Trim(cfg.Mount, "/"),
		path:   strings.Trim(cfg.Path, "/"),
		client: client.Logical(),
	}, nil
}

func (vs *VaultStore) dataPath(label string) string {
	return path.Join(vs.mount, "data", vs.path, label)
}

func (vs *VaultStore) metadataPath(label string) string {
	return path.Join(vs.mount, "metadata", vs.path, label)
}

// Put an identity into the wallet.
func (vs *VaultStore) Put(label string, content []byte) error {
	_, err := vs.client.Write(vs.dataPath(label), map[string]interface{}{
		"data": map[string]interface{}{
			vaultIdentityField: string(content),
		},
	})
	if err != nil {
		return errors.Wrapf(err, "can't write identity %s to Vault", label)
	}
	return nil
}

// Get an identity from the wallet.
func (vs *VaultStore) Get(label string) ([]byte, error) {
	secret, err := vs.client.Read(vs.dataPath(label))
	if err != nil {
		return nil, errors.Wrapf(err, "can't read identity %s from Vault", label)
	}
	if secret == nil || secret.Data == nil {
		return nil, notFound(label)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		// a deleted version has null data
		return nil, notFound(label)
	}

	content, ok := data[vaultIdentityField].(string)
	if !ok {
		return nil, errors.Errorf("invalid identity format in Vault for %s", label)
	}
	return []byte(content), nil
}

// Remove an identity from the wallet, including all its versions. If the
// identity does not exist, this method does nothing.
func (vs *VaultStore) Remove(label string) error {
	if _, err := vs.client.Delete(vs.metadataPath(label)); err != nil {
		return errors.Wrapf(err, "can't delete identity %s from Vault", label)
	}
	return nil
}

// Exists tests the existence of an identity in the wallet.
func (vs *VaultStore) Exists(label string) bool {
	_, err := vs.Get(label)
	return err == nil
}

// List all of the labels in the wallet.
func (vs *VaultStore) List() ([]string, error) {
	secret, err := vs.client.List(path.Join(vs.mount, "metadata", vs.path))
	if err != nil {
		return nil, errors.Wrap(err, "can't list identities in Vault")
	}
	if secret == nil || secret.Data == nil {
		return nil, nil
	}

	keys, ok := secret.Data["keys"].([]interface{})
	if !ok {
		return nil, errors.New("can't cast keys returned by Vault to an array")
	}

	var labels []string
	for _, key := range keys {
		label, ok := key.(string)
		if !ok {
			return nil, errors.New("can't cast key returned by Vault to string")
		}
		if !strings.HasSuffix(label, "/") {
			labels = append(labels, label)
		}
	}
	return labels, nil
}
