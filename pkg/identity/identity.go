/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package identity derives the canonical actor identifier of an X.509
// certificate. The identifier has the form
//
//  x509::<subject DN>::<issuer DN>
//
// and is used verbatim as a ledger key component, so its encoding must not
// change: attributes are written in their encoded order, each one prefixed by
// "/" unless it has the same attribute type as the attribute before it, in
// which case it is prefixed by "+".
package identity

import (
	"crypto/ecdsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/pem"
	"strings"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
)

const (
	idPrefix    = "x509::"
	idSeparator = "::"

	// MSPSuffix is the suffix every membership service provider id must carry
	MSPSuffix = "MSP"
)

// Identity is the (MSP id, actor id) pair a ledger record is scoped to.
type Identity struct {
	MSPID string
	ID    string
}

var shortNames = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.4":                    "SN",
	"2.5.4.5":                    "serialNumber",
	"2.5.4.6":                    "C",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.9":                    "street",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"2.5.4.12":                   "title",
	"2.5.4.17":                   "postalCode",
	"2.5.4.42":                   "GN",
	"2.5.4.43":                   "initials",
	"2.5.4.46":                   "dnQualifier",
	"1.2.840.113549.1.9.1":       "emailAddress",
	"0.9.2342.19200300.100.1.25": "DC",
	"0.9.2342.19200300.100.1.1":  "UID",
}

// ParseCertificate decodes the first PEM block of certPEM as an X.509 certificate.
func ParseCertificate(certPEM []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, status.New(status.MalformedCertificate, "no PEM data found in certificate")
	}

	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, status.New(status.MalformedCertificate, "unable to parse certificate: "+err.Error())
	}
	return cert, nil
}

// FromPEM returns the actor id of a PEM encoded certificate.
func FromPEM(certPEM []byte) (string, error) {
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return "", err
	}
	return FromCertificate(cert), nil
}

// FromCertificate returns the actor id of cert.
func FromCertificate(cert *x509.Certificate) string {
	return idPrefix + DistinguishedName(cert.Subject) + idSeparator + DistinguishedName(cert.Issuer)
}

// DistinguishedName renders the attributes of name in encoded order.
func DistinguishedName(name pkix.Name) string {
	var sb strings.Builder
	var prev asn1.ObjectIdentifier

	for i, atv := range name.Names {
		if i > 0 && atv.Type.Equal(prev) {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('/')
		}
		sb.WriteString(shortName(atv.Type))
		sb.WriteByte('=')
		sb.WriteString(attributeValue(atv.Value))
		prev = atv.Type
	}

	return sb.String()
}

func shortName(oid asn1.ObjectIdentifier) string {
	s := oid.String()
	if n, ok := shortNames[s]; ok {
		return n
	}
	return s
}

func attributeValue(v interface{}) string {
	switch value := v.(type) {
	case string:
		return value
	case []byte:
		return string(value)
	default:
		return ""
	}
}

// PublicKey returns the ECDSA public key of a PEM encoded certificate.
func PublicKey(certPEM []byte) (*ecdsa.PublicKey, error) {
	cert, err := ParseCertificate(certPEM)
	if err != nil {
		return nil, err
	}

	pub, ok := cert.PublicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, status.New(status.MalformedCertificate, "certificate does not carry an ECDSA public key")
	}
	return pub, nil
}

// ValidateMSPID checks that mspID is non-empty and ends with "MSP".
func ValidateMSPID(mspID string) error {
	if mspID == "" || !strings.HasSuffix(mspID, MSPSuffix) {
		return status.New(status.InvalidArgument, "Invalid MSPID: "+mspID, status.Key("mspId", mspID))
	}
	return nil
}

// ValidateActorID checks that actorID is non-empty.
func ValidateActorID(actorID string) error {
	if actorID == "" {
		return status.New(status.InvalidArgument, "Invalid ACTORID: empty actor id")
	}
	return nil
}

// Validate checks both parts of id.
func (id Identity) Validate() error {
	if err := ValidateMSPID(id.MSPID); err != nil {
		return err
	}
	return ValidateActorID(id.ID)
}
