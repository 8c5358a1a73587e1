/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ecies

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/pkg/errors"
)

// SignPublicKey signs the uncompressed encoding of pub with the enrollment
// private key in authKeyPEM and returns a DER encoded ECDSA signature. The
// encoding is signed as is, without hashing; ECDSA truncates it to the bit
// length of the curve order, as the registration clients already on the
// ledger do.
func SignPublicKey(authKeyPEM []byte, pub *PublicKey) ([]byte, error) {
	key, err := parseAuthKey(authKeyPEM)
	if err != nil {
		return nil, err
	}

	sig, err := ecdsa.SignASN1(rand.Reader, key, pub.Bytes())
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign encryption public key")
	}
	return sig, nil
}

// VerifyPublicKeySignature checks that sig was produced over pub by the key of
// the enrollment certificate certPEM.
func VerifyPublicKeySignature(certPEM []byte, pub *PublicKey, sig []byte) error {
	authPub, err := identity.PublicKey(certPEM)
	if err != nil {
		return err
	}

	if !ecdsa.VerifyASN1(authPub, pub.Bytes(), sig) {
		return status.New(status.InvalidArgument, "encryption public key signature does not match the certificate")
	}
	return nil
}

func parseAuthKey(keyPEM []byte) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, status.New(status.InvalidArgument, "no PEM data found in enrollment key")
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		ecKey, ok := key.(*ecdsa.PrivateKey)
		if !ok {
			return nil, status.New(status.InvalidArgument, "enrollment key is not an ECDSA key")
		}
		return ecKey, nil
	}

	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, status.New(status.InvalidArgument, "unable to parse enrollment key: "+err.Error())
	}
	return key, nil
}
