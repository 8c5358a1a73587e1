/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package secret

import (
	"encoding/json"
	"testing"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/hyperledger/fabric-docsecrets/pkg/ledger"
	"github.com/hyperledger/fabric-docsecrets/pkg/ledger/memledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fileHash = "abc123"
	envelope = `{"iv":"x","ephemPublicKey":"y","ciphertext":"z","mac":"w"}`
)

var (
	alice = identity.Identity{MSPID: "Org1MSP", ID: "x509::/OU=client/CN=alice::/CN=ca"}
	bob   = identity.Identity{MSPID: "Org1MSP", ID: "x509::/OU=client/CN=bob::/CN=ca"}
)

func submit(l *memledger.Ledger, caller identity.Identity, f func(ctx ledger.Context) error) error {
	tx := l.Begin("tx", caller)
	if err := f(tx); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

func add(l *memledger.Ledger, caller, signer identity.Identity) error {
	return submit(l, caller, func(ctx ledger.Context) error {
		return New().Add(ctx, fileHash, signer.MSPID, signer.ID, envelope)
	})
}

func remove(l *memledger.Ledger, caller identity.Identity) error {
	return submit(l, caller, func(ctx ledger.Context) error {
		return New().Remove(ctx, fileHash)
	})
}

func exists(t *testing.T, l *memledger.Ledger, caller, signer identity.Identity) bool {
	ok, err := New().Exists(l.Begin("tx", caller), fileHash, signer.ID, signer.MSPID)
	require.NoError(t, err)
	return ok
}

func TestAddGet(t *testing.T) {
	l := memledger.New()

	require.NoError(t, add(l, bob, alice))

	value, err := New().Get(l.Begin("tx", alice), fileHash, "", "")
	require.NoError(t, err)
	assert.Equal(t, envelope, string(value))

	value, err = New().Get(l.Begin("tx", bob), fileHash, alice.ID, alice.MSPID)
	require.NoError(t, err)
	assert.Equal(t, envelope, string(value))

	value, err = New().Get(l.Begin("tx", bob), fileHash, "", "")
	require.NoError(t, err)
	assert.Nil(t, value, "absent secret is an empty result")

	events := l.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventAdded, events[0].Name)

	var payload Event
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, Event{FileHash: fileHash, SignerMSPID: alice.MSPID, SignerID: alice.ID}, payload)
}

func TestAddTwice(t *testing.T) {
	l := memledger.New()

	require.NoError(t, add(l, bob, alice))

	err := add(l, bob, alice)
	require.Error(t, err)
	assert.Equal(t, status.AlreadyExists, status.CodeOf(err))

	s, ok := status.FromError(err)
	require.True(t, ok)
	assert.Contains(t, s.Details, status.Key("fileHash", fileHash))
}

func TestExistsLifecycle(t *testing.T) {
	l := memledger.New()

	assert.False(t, exists(t, l, bob, alice))
	require.NoError(t, add(l, bob, alice))
	assert.True(t, exists(t, l, bob, alice))

	require.NoError(t, remove(l, alice))
	assert.False(t, exists(t, l, bob, alice))

	require.NoError(t, add(l, bob, alice), "add after remove succeeds")
	assert.True(t, exists(t, l, bob, alice))

	events := l.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventRemoved, events[1].Name)
}

func TestRemoveNotFound(t *testing.T) {
	l := memledger.New()

	err := remove(l, alice)
	require.Error(t, err)
	assert.Equal(t, status.NotFound, status.CodeOf(err))
}

func TestRemoveIsCallerScoped(t *testing.T) {
	l := memledger.New()

	require.NoError(t, add(l, bob, alice))

	err := remove(l, bob)
	assert.True(t, status.Is(err, status.NotFound))
	assert.True(t, exists(t, l, bob, alice))
}

func TestValidation(t *testing.T) {
	l := memledger.New()
	c := New()
	tx := l.Begin("tx", alice)

	for _, err := range []error{
		c.Add(tx, fileHash, "ORG", alice.ID, envelope),
		c.Add(tx, fileHash, alice.MSPID, "", envelope),
		c.Add(tx, "", alice.MSPID, alice.ID, envelope),
		c.Add(tx, fileHash, alice.MSPID, alice.ID, ""),
		c.Add(tx, "a\x00b", alice.MSPID, alice.ID, envelope),
		c.Remove(tx, ""),
	} {
		require.Error(t, err)
		assert.Equal(t, status.InvalidArgument, status.CodeOf(err), err.Error())
	}

	_, err := c.Get(tx, fileHash, alice.ID, "ORG")
	assert.True(t, status.Is(err, status.InvalidArgument))

	_, err = c.Exists(tx, "", "", "")
	assert.True(t, status.Is(err, status.InvalidArgument))

	require.NoError(t, tx.Commit())
	assert.Empty(t, l.Keys())
	assert.Empty(t, l.Events())
}

func TestConcurrentAdd(t *testing.T) {
	l := memledger.New()
	c := New()

	tx1 := l.Begin("tx1", bob)
	tx2 := l.Begin("tx2", bob)
	require.NoError(t, c.Add(tx1, fileHash, alice.MSPID, alice.ID, envelope))
	require.NoError(t, c.Add(tx2, fileHash, alice.MSPID, alice.ID, envelope))

	require.NoError(t, tx1.Commit())
	err := tx2.Commit()
	require.Error(t, err)
	assert.Equal(t, status.Conflict, status.CodeOf(err))

	assert.Len(t, l.Events(), 1)
}
