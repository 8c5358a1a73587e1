/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecies

import (
	"bytes"
	"encoding/base64"
	"encoding/json"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
)

const bufferType = "Buffer"

// Envelope is the output of Encrypt.
type Envelope struct {
	IV                 []byte
	EphemeralPublicKey []byte
	Ciphertext         []byte
	MAC                []byte
}

// binary is a byte slice that is written as {"type":"Buffer","data":[...]},
// the form existing ledger records were written in.
type binary []byte

type bufferJSON struct {
	Type string `json:"type"`
	Data []int  `json:"data"`
}

type envelopeJSON struct {
	IV             binary `json:"iv"`
	EphemPublicKey binary `json:"ephemPublicKey"`
	Ciphertext     binary `json:"ciphertext"`
	MAC            binary `json:"mac"`
}

func (b binary) MarshalJSON() ([]byte, error) {
	data := make([]int, len(b))
	for i, v := range b {
		data[i] = int(v)
	}
	return json.Marshal(bufferJSON{Type: bufferType, Data: data})
}

// UnmarshalJSON accepts the Buffer object form, a base64 string or a bare array of bytes.
func (b *binary) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = nil
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return err
		}
		*b = raw
		return nil
	case '[':
		var arr []int
		if err := json.Unmarshal(data, &arr); err != nil {
			return err
		}
		return b.fromInts(arr)
	default:
		var buf bufferJSON
		if err := json.Unmarshal(data, &buf); err != nil {
			return err
		}
		return b.fromInts(buf.Data)
	}
}

func (b *binary) fromInts(arr []int) error {
	out := make([]byte, len(arr))
	for i, v := range arr {
		if v < 0 || v > 255 {
			return status.Errorf(status.DecryptionFailed, "byte value %d out of range", v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// MarshalJSON writes the envelope with every field in Buffer form.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(envelopeJSON{
		IV:             e.IV,
		EphemPublicKey: e.EphemeralPublicKey,
		Ciphertext:     e.Ciphertext,
		MAC:            e.MAC,
	})
}

// UnmarshalJSON restores every binary field of the envelope.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var v envelopeJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	e.IV = v.IV
	e.EphemeralPublicKey = v.EphemPublicKey
	e.Ciphertext = v.Ciphertext
	e.MAC = v.MAC
	return nil
}

// ParseEnvelope restores an envelope that was transported as text.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, status.New(status.DecryptionFailed, "malformed envelope: "+err.Error())
	}
	if err := e.check(); err != nil {
		return nil, err
	}
	return &e, nil
}

func (e *Envelope) check() error {
	switch {
	case len(e.IV) != ivLength:
		return status.Errorf(status.DecryptionFailed, "invalid iv length %d", len(e.IV))
	case len(e.EphemeralPublicKey) != publicKeyLength:
		return status.Errorf(status.DecryptionFailed, "invalid ephemeral public key length %d", len(e.EphemeralPublicKey))
	case len(e.MAC) != macLength:
		return status.Errorf(status.DecryptionFailed, "invalid mac length %d", len(e.MAC))
	case len(e.Ciphertext) == 0 || len(e.Ciphertext)%blockSize != 0:
		return status.Errorf(status.DecryptionFailed, "invalid ciphertext length %d", len(e.Ciphertext))
	}
	return nil
}
