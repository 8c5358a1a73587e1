/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package secret implements the encrypted-secret store contract. A record is
// keyed by (file hash, signer MSP id, signer id) and holds an encryption
// envelope that only the signer can open. Records are created by Add and
// destroyed by Remove; there is no update.
package secret

import (
	"encoding/json"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/hyperledger/fabric-docsecrets/pkg/ledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/pkg/errors"
)

// Name is both the contract name and the object type of its records.
const Name = "org.onlyonet.filepasswordstorage"

// Event names
const (
	EventAdded   = "SecretAdded"
	EventRemoved = "SecretRemoved"
)

var logger = logging.NewLogger("docsecrets/secret")

// Event is the payload of the events emitted by Add and Remove.
type Event struct {
	FileHash    string `json:"fileHash"`
	SignerMSPID string `json:"signerMspId"`
	SignerID    string `json:"signerId"`
}

// Contract is the store. It holds no state between invocations.
type Contract struct{}

// New returns the store contract.
func New() *Contract {
	return &Contract{}
}

// Add stores envelope for the signer. It fails with AlreadyExists if the
// signer already has a secret for fileHash.
func (c *Contract) Add(ctx ledger.Context, fileHash, signerMSPID, signerID, envelope string) error {
	if err := identity.ValidateMSPID(signerMSPID); err != nil {
		return err
	}
	if err := identity.ValidateActorID(signerID); err != nil {
		return err
	}
	if err := validateFileHash(fileHash); err != nil {
		return err
	}
	if envelope == "" {
		return status.New(status.InvalidArgument, "encrypted secret is required", status.Key("fileHash", fileHash))
	}

	key, err := Key(ctx, fileHash, signerMSPID, signerID)
	if err != nil {
		return err
	}

	existing, err := ctx.GetState(key)
	if err != nil {
		return errors.WithMessage(err, "failed to get encrypted secret")
	}
	if !ledger.IsAbsent(existing) {
		return status.New(status.AlreadyExists, "encrypted secret already exists for this signer", keyParts(fileHash, signerMSPID, signerID)...)
	}

	logger.Debugf("adding secret for file [%s] signer [%s] [%s]", fileHash, signerMSPID, signerID)

	if err := ctx.PutState(key, []byte(envelope)); err != nil {
		return errors.WithMessage(err, "failed to put encrypted secret")
	}
	return setEvent(ctx, EventAdded, fileHash, signerMSPID, signerID)
}

// Get returns the envelope stored for the signer, or nil if there is none.
// An empty signerID or signerMSPID is replaced by the caller's own.
func (c *Contract) Get(ctx ledger.Context, fileHash, signerID, signerMSPID string) ([]byte, error) {
	key, err := c.resolveKey(ctx, fileHash, signerID, signerMSPID)
	if err != nil {
		return nil, err
	}

	value, err := ctx.GetState(key)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get encrypted secret")
	}
	if ledger.IsAbsent(value) {
		return nil, nil
	}
	return value, nil
}

// Exists reports whether the signer has a secret for fileHash.
func (c *Contract) Exists(ctx ledger.Context, fileHash, signerID, signerMSPID string) (bool, error) {
	value, err := c.Get(ctx, fileHash, signerID, signerMSPID)
	if err != nil {
		return false, err
	}
	return !ledger.IsAbsent(value), nil
}

// Remove deletes the caller's own secret for fileHash.
func (c *Contract) Remove(ctx ledger.Context, fileHash string) error {
	if err := validateFileHash(fileHash); err != nil {
		return err
	}

	caller, err := ctx.CallerIdentity()
	if err != nil {
		return errors.WithMessage(err, "failed to get caller identity")
	}

	key, err := Key(ctx, fileHash, caller.MSPID, caller.ID)
	if err != nil {
		return err
	}

	existing, err := ctx.GetState(key)
	if err != nil {
		return errors.WithMessage(err, "failed to get encrypted secret")
	}
	if ledger.IsAbsent(existing) {
		return status.New(status.NotFound, "encrypted secret doesn't exist", keyParts(fileHash, caller.MSPID, caller.ID)...)
	}

	logger.Debugf("removing secret for file [%s] signer [%s] [%s]", fileHash, caller.MSPID, caller.ID)

	if err := ctx.DelState(key); err != nil {
		return errors.WithMessage(err, "failed to delete encrypted secret")
	}
	return setEvent(ctx, EventRemoved, fileHash, caller.MSPID, caller.ID)
}

func (c *Contract) resolveKey(ctx ledger.Context, fileHash, signerID, signerMSPID string) (string, error) {
	if err := validateFileHash(fileHash); err != nil {
		return "", err
	}

	if signerID == "" || signerMSPID == "" {
		caller, err := ctx.CallerIdentity()
		if err != nil {
			return "", errors.WithMessage(err, "failed to get caller identity")
		}
		if signerID == "" {
			signerID = caller.ID
		}
		if signerMSPID == "" {
			signerMSPID = caller.MSPID
		}
	}

	if err := identity.ValidateMSPID(signerMSPID); err != nil {
		return "", err
	}
	if err := identity.ValidateActorID(signerID); err != nil {
		return "", err
	}
	return Key(ctx, fileHash, signerMSPID, signerID)
}

// Key returns the ledger key of a secret.
func Key(ctx ledger.Context, fileHash, signerMSPID, signerID string) (string, error) {
	return ctx.CreateCompositeKey(Name, []string{fileHash, signerMSPID, signerID})
}

func validateFileHash(fileHash string) error {
	if fileHash == "" {
		return status.New(status.InvalidArgument, "file hash is required")
	}
	return nil
}

func keyParts(fileHash, signerMSPID, signerID string) []status.KeyPart {
	return []status.KeyPart{
		status.Key("fileHash", fileHash),
		status.Key("signerMspId", signerMSPID),
		status.Key("signerId", signerID),
	}
}

func setEvent(ctx ledger.Context, name, fileHash, signerMSPID, signerID string) error {
	payload, err := json.Marshal(&Event{FileHash: fileHash, SignerMSPID: signerMSPID, SignerID: signerID})
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}
	if err := ctx.SetEvent(name, payload); err != nil {
		return errors.WithMessagef(err, "failed to set event %s", name)
	}
	return nil
}
