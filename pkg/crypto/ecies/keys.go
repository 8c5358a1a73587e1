/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecies

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/pkg/errors"
)

const (
	privateKeyLength = 32
	publicKeyLength  = 65
)

// PrivateKey is a secp256k1 encryption key. It is owned by the caller and is
// never written to the ledger.
type PrivateKey struct {
	key *btcec.PrivateKey
}

// PublicKey is a secp256k1 encryption public key.
type PublicKey struct {
	key *btcec.PublicKey
}

// GenerateKey returns a fresh encryption key pair.
func GenerateKey() (*PrivateKey, error) {
	key, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate encryption key")
	}
	return &PrivateKey{key: key}, nil
}

// PrivateKeyFromBytes restores a private key from its 32 byte scalar.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != privateKeyLength {
		return nil, errors.Errorf("invalid private key length %d", len(b))
	}
	key, _ := btcec.PrivKeyFromBytes(b)
	return &PrivateKey{key: key}, nil
}

// Bytes returns the 32 byte scalar.
func (k *PrivateKey) Bytes() []byte {
	return k.key.Serialize()
}

// Public returns the public half of the key pair.
func (k *PrivateKey) Public() *PublicKey {
	return &PublicKey{key: k.key.PubKey()}
}

// ParsePublicKey parses a compressed or uncompressed secp256k1 point.
func ParsePublicKey(b []byte) (*PublicKey, error) {
	key, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, errors.Wrap(err, "invalid encryption public key")
	}
	return &PublicKey{key: key}, nil
}

// Bytes returns the 65 byte uncompressed encoding of the point.
func (k *PublicKey) Bytes() []byte {
	return k.key.SerializeUncompressed()
}
