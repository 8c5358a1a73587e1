/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ledger defines the transaction context the document secret
// contracts run against. Every call made through a Context belongs to one
// transaction; isolation between transactions is provided by the ledger.
package ledger

import (
	"unicode/utf8"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
)

const (
	compositeKeyNamespace = "\x00"
	minUnicodeRuneValue   = 0            // U+0000
	maxUnicodeRuneValue   = utf8.MaxRune // U+10FFFF - maximum (and unallocated) code point
)

// Context is the view of the ledger available to a single transaction.
type Context interface {
	// GetState returns the value of key, or an empty value if key is absent.
	GetState(key string) ([]byte, error)
	// PutState writes value to key.
	PutState(key string, value []byte) error
	// DelState deletes key.
	DelState(key string) error
	// CreateCompositeKey joins objectType and attributes into a single key.
	CreateCompositeKey(objectType string, attributes []string) (string, error)
	// SetEvent attaches an event to the transaction; it is emitted on commit.
	SetEvent(name string, payload []byte) error
	// CallerIdentity returns the identity that signed the transaction.
	CallerIdentity() (identity.Identity, error)
}

// CreateCompositeKey builds a key with the same encoding as the Fabric shim:
// U+0000 objectType U+0000 (attribute U+0000)*. Attributes may not contain
// U+0000 or U+10FFFF, which keeps distinct attribute lists distinct.
func CreateCompositeKey(objectType string, attributes []string) (string, error) {
	if err := validateCompositeKeyAttribute(objectType); err != nil {
		return "", err
	}
	ck := compositeKeyNamespace + objectType + string(rune(minUnicodeRuneValue))
	for _, att := range attributes {
		if err := validateCompositeKeyAttribute(att); err != nil {
			return "", err
		}
		ck += att + string(rune(minUnicodeRuneValue))
	}
	return ck, nil
}

func validateCompositeKeyAttribute(str string) error {
	if !utf8.ValidString(str) {
		return status.Errorf(status.InvalidArgument, "not a valid utf8 string: [%x]", str)
	}
	for index, runeValue := range str {
		if runeValue == minUnicodeRuneValue || runeValue == maxUnicodeRuneValue {
			return status.Errorf(status.InvalidArgument, "input contains unicode %#U starting at position [%d]. %#U and %#U are not allowed in the input attribute of a composite key",
				runeValue, index, minUnicodeRuneValue, maxUnicodeRuneValue)
		}
	}
	return nil
}

// IsAbsent reports whether a state value denotes a missing record.
func IsAbsent(value []byte) bool {
	return len(value) == 0
}
