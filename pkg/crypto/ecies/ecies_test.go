/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecies

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"testing"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity/identitytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *PrivateKey {
	key, err := GenerateKey()
	require.NoError(t, err)
	return key
}

func TestRoundTrip(t *testing.T) {
	key := newKey(t)

	for _, secret := range []string{"hunter2", "", "0123456789abcdef", "a somewhat longer document password spanning blocks"} {
		env, err := Encrypt(key.Public(), []byte(secret))
		require.NoError(t, err)

		plaintext, err := Decrypt(key, env)
		require.NoError(t, err)
		assert.Equal(t, secret, string(plaintext))
	}
}

func TestEncryptIsNotDeterministic(t *testing.T) {
	key := newKey(t)

	env1, err := Encrypt(key.Public(), []byte("hunter2"))
	require.NoError(t, err)
	env2, err := Encrypt(key.Public(), []byte("hunter2"))
	require.NoError(t, err)

	assert.NotEqual(t, env1.EphemeralPublicKey, env2.EphemeralPublicKey)
	assert.NotEqual(t, env1.Ciphertext, env2.Ciphertext)
}

func TestDecryptWithOtherKey(t *testing.T) {
	env, err := Encrypt(newKey(t).Public(), []byte("hunter2"))
	require.NoError(t, err)

	_, err = Decrypt(newKey(t), env)
	require.Error(t, err)
	assert.Equal(t, status.DecryptionFailed, status.CodeOf(err))
}

func TestDecryptTampered(t *testing.T) {
	key := newKey(t)

	env, err := Encrypt(key.Public(), []byte("hunter2"))
	require.NoError(t, err)

	env.Ciphertext[0] ^= 0x01
	_, err = Decrypt(key, env)
	assert.Equal(t, status.DecryptionFailed, status.CodeOf(err))
}

func TestDecryptTruncated(t *testing.T) {
	key := newKey(t)

	env, err := Encrypt(key.Public(), []byte("hunter2"))
	require.NoError(t, err)

	truncated := *env
	truncated.MAC = env.MAC[:10]
	_, err = Decrypt(key, &truncated)
	assert.Equal(t, status.DecryptionFailed, status.CodeOf(err))

	truncated = *env
	truncated.Ciphertext = env.Ciphertext[:5]
	_, err = Decrypt(key, &truncated)
	assert.Equal(t, status.DecryptionFailed, status.CodeOf(err))

	truncated = *env
	truncated.EphemeralPublicKey = make([]byte, publicKeyLength)
	_, err = Decrypt(key, &truncated)
	assert.Equal(t, status.DecryptionFailed, status.CodeOf(err))

	_, err = Decrypt(key, nil)
	assert.Equal(t, status.DecryptionFailed, status.CodeOf(err))
}

func TestEnvelopeTextRoundTrip(t *testing.T) {
	key := newKey(t)

	env, err := Encrypt(key.Public(), []byte("hunter2"))
	require.NoError(t, err)

	raw, err := json.Marshal(env)
	require.NoError(t, err)

	var generic map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &generic))
	for _, field := range []string{"iv", "ephemPublicKey", "ciphertext", "mac"} {
		assert.Equal(t, "Buffer", generic[field]["type"], field)
		assert.IsType(t, []interface{}{}, generic[field]["data"], field)
	}

	restored, err := ParseEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, env, restored)

	plaintext, err := Decrypt(key, restored)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", string(plaintext))
}

func TestEnvelopeWithoutRestoreFails(t *testing.T) {
	key := newKey(t)

	env, err := Encrypt(key.Public(), []byte("hunter2"))
	require.NoError(t, err)
	raw, err := json.Marshal(env)
	require.NoError(t, err)

	// decoding the Buffer objects as plain strings loses every field
	var naive struct {
		IV  json.RawMessage `json:"iv"`
		MAC json.RawMessage `json:"mac"`
	}
	require.NoError(t, json.Unmarshal(raw, &naive))
	_, err = Decrypt(key, &Envelope{IV: naive.IV, MAC: naive.MAC, EphemeralPublicKey: env.EphemeralPublicKey, Ciphertext: env.Ciphertext})
	assert.Equal(t, status.DecryptionFailed, status.CodeOf(err))
}

func TestParseEnvelopeAlternateForms(t *testing.T) {
	key := newKey(t)
	env, err := Encrypt(key.Public(), []byte("hunter2"))
	require.NoError(t, err)

	asBase64, err := json.Marshal(map[string][]byte{
		"iv":             env.IV,
		"ephemPublicKey": env.EphemeralPublicKey,
		"ciphertext":     env.Ciphertext,
		"mac":            env.MAC,
	})
	require.NoError(t, err)

	restored, err := ParseEnvelope(asBase64)
	require.NoError(t, err)
	assert.Equal(t, env, restored)

	toInts := func(b []byte) []int {
		out := make([]int, len(b))
		for i, v := range b {
			out[i] = int(v)
		}
		return out
	}
	asArrays, err := json.Marshal(map[string][]int{
		"iv":             toInts(env.IV),
		"ephemPublicKey": toInts(env.EphemeralPublicKey),
		"ciphertext":     toInts(env.Ciphertext),
		"mac":            toInts(env.MAC),
	})
	require.NoError(t, err)

	restored, err = ParseEnvelope(asArrays)
	require.NoError(t, err)
	assert.Equal(t, env, restored)
}

func TestParseEnvelopeMalformed(t *testing.T) {
	for _, input := range []string{"", "{", `{"iv":{"type":"Buffer","data":[300]}}`, `{"iv":[1,2,3]}`, `"hunter2"`} {
		_, err := ParseEnvelope([]byte(input))
		assert.Equal(t, status.DecryptionFailed, status.CodeOf(err), input)
	}
}

func TestKeySerialization(t *testing.T) {
	key := newKey(t)

	restored, err := PrivateKeyFromBytes(key.Bytes())
	require.NoError(t, err)
	assert.Equal(t, key.Public().Bytes(), restored.Public().Bytes())
	assert.Len(t, key.Public().Bytes(), publicKeyLength)

	pub, err := ParsePublicKey(key.Public().Bytes())
	require.NoError(t, err)
	assert.Equal(t, key.Public().Bytes(), pub.Bytes())

	_, err = PrivateKeyFromBytes([]byte{1, 2, 3})
	assert.Error(t, err)
	_, err = ParsePublicKey([]byte{4, 1, 2})
	assert.Error(t, err)
}

func TestSignPublicKey(t *testing.T) {
	creds := identitytest.NewClient(t, "user1")
	key := newKey(t)

	sig, err := SignPublicKey(creds.KeyPEM, key.Public())
	require.NoError(t, err)
	assert.NoError(t, VerifyPublicKeySignature(creds.CertPEM, key.Public(), sig))

	other := identitytest.NewClient(t, "user2")
	err = VerifyPublicKeySignature(other.CertPEM, key.Public(), sig)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	err = VerifyPublicKeySignature(creds.CertPEM, newKey(t).Public(), sig)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, err = SignPublicKey([]byte("junk"), key.Public())
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestVerifyRawKeySignature(t *testing.T) {
	creds := identitytest.NewClient(t, "user1")
	authKey, err := parseAuthKey(creds.KeyPEM)
	require.NoError(t, err)

	key := newKey(t)

	// registration clients sign the 65 byte key itself
	sig, err := ecdsa.SignASN1(rand.Reader, authKey, key.Public().Bytes())
	require.NoError(t, err)
	assert.NoError(t, VerifyPublicKeySignature(creds.CertPEM, key.Public(), sig))

	digest := sha256.Sum256(key.Public().Bytes())
	sig, err = ecdsa.SignASN1(rand.Reader, authKey, digest[:])
	require.NoError(t, err)
	err = VerifyPublicKeySignature(creds.CertPEM, key.Public(), sig)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}
