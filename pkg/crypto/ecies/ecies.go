/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ecies implements the hybrid encryption used to protect document
// passwords: an ephemeral secp256k1 key agreement with the recipient's key,
// SHA-512 key derivation, AES-256-CBC encryption and an HMAC-SHA256 tag over
// iv || ephemeral public key || ciphertext.
//
// The encryption curve is independent of the P-256 curve of the enrollment
// (signing) keys; SignPublicKey binds an encryption key to an enrollment key.
package ecies

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/pkg/errors"
)

const (
	ivLength  = aes.BlockSize
	blockSize = aes.BlockSize
	macLength = sha256.Size
)

// Encrypt encrypts plaintext for the holder of the private key matching pub.
// Every call uses a fresh ephemeral key, so two envelopes of the same
// plaintext never compare equal.
func Encrypt(pub *PublicKey, plaintext []byte) (*Envelope, error) {
	ephemeral, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate ephemeral key")
	}

	encKey, macKey := deriveKeys(btcec.GenerateSharedSecret(ephemeral, pub.key))

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, errors.Wrap(err, "failed to read iv")
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}

	padded := pad(plaintext)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	ephemeralPub := ephemeral.PubKey().SerializeUncompressed()

	return &Envelope{
		IV:                 iv,
		EphemeralPublicKey: ephemeralPub,
		Ciphertext:         ciphertext,
		MAC:                tag(macKey, iv, ephemeralPub, ciphertext),
	}, nil
}

// Decrypt authenticates and decrypts env with priv.
func Decrypt(priv *PrivateKey, env *Envelope) ([]byte, error) {
	if env == nil {
		return nil, status.New(status.DecryptionFailed, "nil envelope")
	}
	if err := env.check(); err != nil {
		return nil, err
	}

	ephemeral, err := btcec.ParsePubKey(env.EphemeralPublicKey)
	if err != nil {
		return nil, status.New(status.DecryptionFailed, "invalid ephemeral public key")
	}

	encKey, macKey := deriveKeys(btcec.GenerateSharedSecret(priv.key, ephemeral))

	if !hmac.Equal(env.MAC, tag(macKey, env.IV, env.EphemeralPublicKey, env.Ciphertext)) {
		return nil, status.New(status.DecryptionFailed, "bad MAC")
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}

	plaintext := make([]byte, len(env.Ciphertext))
	cipher.NewCBCDecrypter(block, env.IV).CryptBlocks(plaintext, env.Ciphertext)

	return unpad(plaintext)
}

func deriveKeys(shared []byte) (encKey, macKey []byte) {
	h := sha512.Sum512(shared)
	return h[:32], h[32:]
}

func tag(macKey []byte, parts ...[]byte) []byte {
	mac := hmac.New(sha256.New, macKey)
	for _, p := range parts {
		mac.Write(p) // nolint: errcheck
	}
	return mac.Sum(nil)
}

func pad(b []byte) []byte {
	n := blockSize - len(b)%blockSize
	return append(append(make([]byte, 0, len(b)+n), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, status.New(status.DecryptionFailed, "empty plaintext")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, status.New(status.DecryptionFailed, "bad padding")
	}
	for _, v := range b[len(b)-n:] {
		if int(v) != n {
			return nil, status.New(status.DecryptionFailed, "bad padding")
		}
	}
	return b[:len(b)-n], nil
}
