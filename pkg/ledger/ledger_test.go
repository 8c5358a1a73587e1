/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"testing"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateCompositeKey(t *testing.T) {
	key, err := CreateCompositeKey("org.example.type", []string{"abc123", "Org1MSP", "x509::/CN=a::/CN=b"})
	require.NoError(t, err)
	assert.Equal(t, "\x00org.example.type\x00abc123\x00Org1MSP\x00x509::/CN=a::/CN=b\x00", key)

	key, err = CreateCompositeKey("t", nil)
	require.NoError(t, err)
	assert.Equal(t, "\x00t\x00", key)
}

func TestCreateCompositeKeyUnambiguous(t *testing.T) {
	k1, err := CreateCompositeKey("t", []string{"ab", "c"})
	require.NoError(t, err)
	k2, err := CreateCompositeKey("t", []string{"a", "bc"})
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	_, err = CreateCompositeKey("t", []string{"a\x00b"})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, err = CreateCompositeKey("t", []string{"a\U0010FFFF"})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	_, err = CreateCompositeKey("t", []string{string([]byte{0xff, 0xfe})})
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestIsAbsent(t *testing.T) {
	assert.True(t, IsAbsent(nil))
	assert.True(t, IsAbsent([]byte{}))
	assert.False(t, IsAbsent([]byte{0}))
}
