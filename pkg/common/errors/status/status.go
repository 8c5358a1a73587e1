/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package status defines the error kinds returned by the document secret
// contracts and clients. A Status carries the kind, a message and the key
// parts the failed operation was addressing.
//
// Statuses raised inside chaincode cross the peer as plain strings; Parse
// recovers the kind on the client side so callers can keep using FromError.
package status

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Status provides additional information about an unsuccessful operation.
type Status struct {
	// Code status code
	Code Code
	// Message status message
	Message string
	// Details the key parts of the record the operation addressed, as name/value pairs
	Details []KeyPart
}

// KeyPart is a single named component of a ledger key.
type KeyPart struct {
	Name  string
	Value string
}

func (k KeyPart) String() string {
	return k.Name + "=" + k.Value
}

// Key is shorthand for constructing a KeyPart.
func Key(name, value string) KeyPart {
	return KeyPart{Name: name, Value: value}
}

var codePattern = regexp.MustCompile(`\b([A-Z][A-Z_]*): `)

// New returns a Status with the given parameters
func New(code Code, msg string, details ...KeyPart) *Status {
	return &Status{Code: code, Message: msg, Details: details}
}

// Errorf returns a Status with a formatted message and no key parts.
func Errorf(code Code, format string, args ...interface{}) *Status {
	return New(code, fmt.Sprintf(format, args...))
}

func (s *Status) Error() string {
	if len(s.Details) == 0 {
		return fmt.Sprintf("%s: %s", s.Code, s.Message)
	}

	parts := make([]string, len(s.Details))
	for i, d := range s.Details {
		parts[i] = d.String()
	}
	return fmt.Sprintf("%s: %s [%s]", s.Code, s.Message, strings.Join(parts, ", "))
}

// FromError returns a Status representing err if available,
// otherwise it returns nil, false.
func FromError(err error) (s *Status, ok bool) {
	if err == nil {
		return &Status{Code: OK}, true
	}
	if s, ok := err.(*Status); ok {
		return s, true
	}
	if s, ok := errors.Cause(err).(*Status); ok {
		return s, true
	}
	return nil, false
}

// CodeOf returns the code of err, Unknown if err carries no status and OK for nil.
func CodeOf(err error) Code {
	s, ok := FromError(err)
	if !ok {
		return Unknown
	}
	return s.Code
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Parse recovers a Status from the text of a transported error, for example
// a chaincode response message wrapped by the peer and the SDK. The key parts
// are not recovered; they remain part of the message.
func Parse(msg string) (*Status, bool) {
	for _, line := range strings.Split(msg, "\n") {
		for _, m := range codePattern.FindAllStringSubmatchIndex(line, -1) {
			name := line[m[2]:m[3]]
			code, ok := codeFromName(name)
			if !ok || code == OK || code == Unknown {
				continue
			}
			return New(code, strings.TrimSpace(line[m[1]:])), true
		}
	}
	return nil, false
}
