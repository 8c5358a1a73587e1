/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package pubkey implements the public-key registry contract. Each actor owns
// exactly one record, keyed by the actor's MSP id and actor id, holding the
// actor's encryption public key and the signature binding it to the actor's
// enrollment key. The registry does not verify the signature.
package pubkey

import (
	"encoding/base64"
	"encoding/json"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/hyperledger/fabric-docsecrets/pkg/ledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/pkg/errors"
)

// Name is both the contract name and the object type of its records.
const Name = "org.onlyonet.publickeystorage"

var logger = logging.NewLogger("docsecrets/pubkey")

// Record is the stored value of a registry entry. Both fields are base64.
type Record struct {
	PublicKey string `json:"publicKey"`
	Signature string `json:"signature"`
}

// Decode returns the raw public key and signature bytes.
func (r *Record) Decode() (publicKey, signature []byte, err error) {
	publicKey, err = decodeField("publicKey", r.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	signature, err = decodeField("signature", r.Signature)
	if err != nil {
		return nil, nil, err
	}
	return publicKey, signature, nil
}

// Contract is the registry. It holds no state between invocations.
type Contract struct{}

// New returns the registry contract.
func New() *Contract {
	return &Contract{}
}

// Set stores publicKey and signature under the caller's identity, replacing
// any previous record.
func (c *Contract) Set(ctx ledger.Context, publicKey, signature string) error {
	if _, err := decodeField("publicKey", publicKey); err != nil {
		return err
	}
	if _, err := decodeField("signature", signature); err != nil {
		return err
	}

	caller, err := ctx.CallerIdentity()
	if err != nil {
		return errors.WithMessage(err, "failed to get caller identity")
	}

	key, err := Key(ctx, caller.MSPID, caller.ID)
	if err != nil {
		return err
	}

	value, err := json.Marshal(&Record{PublicKey: publicKey, Signature: signature})
	if err != nil {
		return errors.Wrap(err, "failed to marshal public key record")
	}

	logger.Debugf("setting public key of [%s] [%s]", caller.MSPID, caller.ID)

	if err := ctx.PutState(key, value); err != nil {
		return errors.WithMessage(err, "failed to put public key record")
	}
	return nil
}

// Get returns the record of the given actor.
func (c *Contract) Get(ctx ledger.Context, mspID, actorID string) (*Record, error) {
	if err := identity.ValidateMSPID(mspID); err != nil {
		return nil, err
	}
	if err := identity.ValidateActorID(actorID); err != nil {
		return nil, err
	}

	key, err := Key(ctx, mspID, actorID)
	if err != nil {
		return nil, err
	}

	value, err := ctx.GetState(key)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get public key record")
	}
	if ledger.IsAbsent(value) {
		return nil, status.New(status.NotFound, "public key is not registered",
			status.Key("mspId", mspID), status.Key("actorId", actorID))
	}

	record := &Record{}
	if err := json.Unmarshal(value, record); err != nil {
		return nil, errors.Wrapf(err, "invalid public key record for [%s] [%s]", mspID, actorID)
	}
	return record, nil
}

// Key returns the ledger key of an actor's record.
func Key(ctx ledger.Context, mspID, actorID string) (string, error) {
	return ctx.CreateCompositeKey(Name, []string{mspID, actorID})
}

func decodeField(name, value string) ([]byte, error) {
	if value == "" {
		return nil, status.New(status.InvalidArgument, name+" is required")
	}
	b, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, status.New(status.InvalidArgument, name+" is not valid base64", status.Key(name, value))
	}
	return b, nil
}
