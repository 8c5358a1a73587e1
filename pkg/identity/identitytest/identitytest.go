/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package identitytest issues throw-away Fabric style enrollment credentials for tests.
package identitytest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"math/big"
	"testing"
	"time"
)

var (
	oidCountry            = asn1.ObjectIdentifier{2, 5, 4, 6}
	oidProvince           = asn1.ObjectIdentifier{2, 5, 4, 8}
	oidOrganization       = asn1.ObjectIdentifier{2, 5, 4, 10}
	oidOrganizationalUnit = asn1.ObjectIdentifier{2, 5, 4, 11}
	oidCommonName         = asn1.ObjectIdentifier{2, 5, 4, 3}
)

// IssuerDN is the issuer distinguished name of every certificate issued by this package.
const IssuerDN = "/C=US/ST=North Carolina/O=Hyperledger/OU=Fabric/CN=fabric-ca-server"

// Credentials is a PEM encoded enrollment certificate and its PKCS#8 private key.
type Credentials struct {
	CertPEM []byte
	KeyPEM  []byte
	Key     *ecdsa.PrivateKey
}

// ClientSubject returns the subject Fabric CA gives to a client enrolled as commonName.
func ClientSubject(commonName string) pkix.RDNSequence {
	return pkix.RDNSequence{
		{{Type: oidOrganizationalUnit, Value: "client"}},
		{{Type: oidCommonName, Value: commonName}},
	}
}

// NewClient issues credentials for a client enrolled as commonName.
func NewClient(t testing.TB, commonName string) *Credentials {
	return New(t, ClientSubject(commonName))
}

// New issues credentials with the given subject.
func New(t testing.TB, subject pkix.RDNSequence) *Credentials {
	t.Helper()

	issuer := pkix.RDNSequence{
		{{Type: oidCountry, Value: "US"}},
		{{Type: oidProvince, Value: "North Carolina"}},
		{{Type: oidOrganization, Value: "Hyperledger"}},
		{{Type: oidOrganizationalUnit, Value: "Fabric"}},
		{{Type: oidCommonName, Value: "fabric-ca-server"}},
	}

	caKey := newKey(t)
	caTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		RawSubject:            mustMarshal(t, issuer),
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
		PublicKey:             &caKey.PublicKey,
	}

	key := newKey(t)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		RawSubject:   mustMarshal(t, subject),
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, caTemplate, &key.PublicKey, caKey)
	if err != nil {
		t.Fatalf("failed to create certificate: %s", err)
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("failed to marshal private key: %s", err)
	}

	return &Credentials{
		CertPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
		KeyPEM:  pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}),
		Key:     key,
	}
}

func newKey(t testing.TB) *ecdsa.PrivateKey {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("failed to generate key: %s", err)
	}
	return key
}

func mustMarshal(t testing.TB, name pkix.RDNSequence) []byte {
	b, err := asn1.Marshal(name)
	if err != nil {
		t.Fatalf("failed to marshal name: %s", err)
	}
	return b
}
