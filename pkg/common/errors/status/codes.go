/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package status

import "strconv"

// Code represents a status code
type Code uint32

const (
	// OK is returned on success.
	OK Code = 0

	// Unknown represents status codes that are uncategorized
	Unknown Code = 1

	// InvalidArgument is returned when an msp id, actor id, file hash or payload is malformed or empty
	InvalidArgument Code = 2

	// MalformedCertificate is returned when an identity cannot be derived from a certificate
	MalformedCertificate Code = 3

	// NotFound is returned when no record exists for the requested key
	NotFound Code = 4

	// AlreadyExists is returned when a conditional write finds an existing record
	AlreadyExists Code = 5

	// DecryptionFailed is returned when an envelope fails authentication or is truncated
	DecryptionFailed Code = 6

	// LedgerUnavailable is returned for transport or consensus failures of the ledger
	LedgerUnavailable Code = 7

	// Conflict is returned when a transaction is rejected because a key it read was changed concurrently
	Conflict Code = 8

	// UnknownOutcome is returned when a submitted write timed out; it may or may not have committed
	UnknownOutcome Code = 9
)

// CodeName maps the codes in this package to human-readable strings.
// The names are also the tags used to carry a code across the chaincode boundary.
var CodeName = map[int32]string{
	0: "OK",
	1: "UNKNOWN",
	2: "INVALID_ARGUMENT",
	3: "MALFORMED_CERTIFICATE",
	4: "NOT_FOUND",
	5: "ALREADY_EXISTS",
	6: "DECRYPTION_FAILED",
	7: "LEDGER_UNAVAILABLE",
	8: "CONFLICT",
	9: "UNKNOWN_OUTCOME",
}

// ToInt32 cast to int32
func (c Code) ToInt32() int32 {
	return int32(c)
}

// String representation of the code
func (c Code) String() string {
	if s, ok := CodeName[c.ToInt32()]; ok {
		return s
	}
	return strconv.Itoa(int(c))
}

func codeFromName(name string) (Code, bool) {
	for code, n := range CodeName {
		if n == name {
			return Code(code), true
		}
	}
	return Unknown, false
}
