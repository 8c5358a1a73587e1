/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package docsecrets implements the client workflow for sharing document
// passwords: registering an encryption key, encrypting a password for a
// recipient and retrieving it with the recipient's private key.
package docsecrets

import (
	"context"
	"encoding/hex"

	"github.com/google/uuid"
	"github.com/hyperledger/fabric-docsecrets/pkg/client/ledger"
	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/crypto/ecies"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/hyperledger/fabric-docsecrets/pkg/wallet"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("docsecrets/service")

// Config controls the optional behaviour of the Service.
type Config struct {
	// DefaultRecipientSelf encrypts for the caller when no recipient
	// certificate is given. When false a recipient is required.
	DefaultRecipientSelf bool
	// VerifyKeySignatures checks that a registered encryption key was signed
	// by the recipient's enrollment key before encrypting for it.
	VerifyKeySignatures bool
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		DefaultRecipientSelf: true,
		VerifyKeySignatures:  true,
	}
}

// KeyPair is an encryption key pair. The private key is returned to the
// caller only and is never stored.
type KeyPair struct {
	PublicKey  []byte
	PrivateKey []byte
}

// ClientIdentity is the ledger identity of a wallet entry.
type ClientIdentity struct {
	MSPID    string `json:"mspId" yaml:"mspId"`
	ClientID string `json:"clientId" yaml:"clientId"`
}

// BlockchainInfo is the state of the channel as seen by a wallet identity.
// Hashes are hex encoded.
type BlockchainInfo struct {
	BlockNumber       uint64 `json:"blockNumber" yaml:"blockNumber"`
	CurrentBlockHash  string `json:"currentBlockHash" yaml:"currentBlockHash"`
	PreviousBlockHash string `json:"previousBlockHash" yaml:"previousBlockHash"`
	ChannelName       string `json:"channelName" yaml:"channelName"`
	ClientID          string `json:"clientId" yaml:"clientId"`
}

// Service runs the document password workflow on behalf of wallet identities.
type Service struct {
	cfg       Config
	wallet    *wallet.Wallet
	connector ledger.Connector
}

// New returns a Service using identities from w and ledger clients from connector.
func New(cfg Config, w *wallet.Wallet, connector ledger.Connector) *Service {
	return &Service{
		cfg:       cfg,
		wallet:    w,
		connector: connector,
	}
}

// StoreOption customizes StoreSecret.
type StoreOption func(*storeOptions)

type storeOptions struct {
	recipientMSPID string
}

// WithRecipientMSPID sets the MSP of the recipient. By default the recipient
// belongs to the caller's MSP.
func WithRecipientMSPID(mspID string) StoreOption {
	return func(o *storeOptions) {
		o.recipientMSPID = mspID
	}
}

// ImportIdentity adds an enrollment identity to the wallet. It fails with
// AlreadyExists if label is already in use.
func (s *Service) ImportIdentity(label, mspID string, certPEM, keyPEM []byte) error {
	if err := s.wallet.Import(label, wallet.NewX509Identity(mspID, string(certPEM), string(keyPEM))); err != nil {
		return errors.WithMessagef(err, "failed to import identity [%s]", label)
	}
	logger.Infof("imported identity [%s] of [%s]", label, mspID)
	return nil
}

// ClientID returns the ledger identity of the wallet entry label.
func (s *Service) ClientID(label string) (*ClientIdentity, error) {
	id, actorID, err := s.identity(label)
	if err != nil {
		return nil, err
	}
	return &ClientIdentity{MSPID: id.MSPID, ClientID: actorID}, nil
}

// BlockchainInfo returns the height and the latest block hashes of the
// channel, queried as the wallet entry label.
func (s *Service) BlockchainInfo(ctx context.Context, label string) (*BlockchainInfo, error) {
	id, client, err := s.connect(label)
	if err != nil {
		return nil, err
	}

	actorID, err := identity.FromPEM([]byte(id.Credentials.Certificate))
	if err != nil {
		return nil, err
	}

	info, err := client.ChainInfo(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to query blockchain info")
	}

	return &BlockchainInfo{
		BlockNumber:       info.Height,
		CurrentBlockHash:  hex.EncodeToString(info.CurrentBlockHash),
		PreviousBlockHash: hex.EncodeToString(info.PreviousBlockHash),
		ChannelName:       info.Channel,
		ClientID:          actorID,
	}, nil
}

// Register generates an encryption key pair for label, publishes the public
// key signed with the enrollment key and returns the pair.
func (s *Service) Register(ctx context.Context, label string) (*KeyPair, error) {
	opID := uuid.New().String()

	id, client, err := s.connect(label)
	if err != nil {
		return nil, err
	}

	priv, err := ecies.GenerateKey()
	if err != nil {
		return nil, err
	}
	pub := priv.Public()

	signature, err := ecies.SignPublicKey([]byte(id.Credentials.PrivateKey), pub)
	if err != nil {
		return nil, err
	}

	logger.Debugf("[%s] registering encryption key for [%s]", opID, label)

	if err := client.SetPublicKey(ctx, pub.Bytes(), signature); err != nil {
		return nil, errors.WithMessage(err, "failed to register encryption key")
	}

	logger.Infof("[%s] registered encryption key for [%s]", opID, label)

	return &KeyPair{PublicKey: pub.Bytes(), PrivateKey: priv.Bytes()}, nil
}

// StoreSecret encrypts secret for the owner of recipientCertPEM and stores it
// under fileHash. An empty recipientCertPEM means the caller, if allowed by
// the configuration.
func (s *Service) StoreSecret(ctx context.Context, label, fileHash string, secret, recipientCertPEM []byte, opts ...StoreOption) error {
	opID := uuid.New().String()

	if fileHash == "" {
		return status.New(status.InvalidArgument, "file hash is empty")
	}
	if len(secret) == 0 {
		return status.New(status.InvalidArgument, "secret is empty")
	}

	id, client, err := s.connect(label)
	if err != nil {
		return err
	}

	if len(recipientCertPEM) == 0 {
		if !s.cfg.DefaultRecipientSelf {
			return status.New(status.InvalidArgument, "recipient certificate is required")
		}
		recipientCertPEM = []byte(id.Credentials.Certificate)
	}

	options := storeOptions{recipientMSPID: id.MSPID}
	for _, opt := range opts {
		opt(&options)
	}

	recipientID, err := identity.FromPEM(recipientCertPEM)
	if err != nil {
		return err
	}
	recipient := identity.Identity{MSPID: options.recipientMSPID, ID: recipientID}
	if err := recipient.Validate(); err != nil {
		return err
	}

	logger.Debugf("[%s] storing secret for file [%s] recipient [%s] [%s]", opID, fileHash, recipient.MSPID, recipient.ID)

	record, err := client.GetPublicKey(ctx, recipient)
	if err != nil {
		return errors.WithMessage(err, "failed to get recipient encryption key")
	}

	rawKey, signature, err := record.Decode()
	if err != nil {
		return err
	}

	pub, err := ecies.ParsePublicKey(rawKey)
	if err != nil {
		return status.New(status.InvalidArgument, "registered encryption key is invalid: "+err.Error(),
			status.Key("mspId", recipient.MSPID), status.Key("actorId", recipient.ID))
	}

	if s.cfg.VerifyKeySignatures {
		if err := ecies.VerifyPublicKeySignature(recipientCertPEM, pub, signature); err != nil {
			return err
		}
	}

	envelope, err := ecies.Encrypt(pub, secret)
	if err != nil {
		return err
	}

	data, err := envelope.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "failed to marshal envelope")
	}

	if err := client.AddSecret(ctx, fileHash, recipient, data); err != nil {
		return errors.WithMessage(err, "failed to store secret")
	}

	logger.Infof("[%s] stored secret for file [%s]", opID, fileHash)
	return nil
}

// SecretExists reports whether the owner of requesterCertPEM has a secret for
// fileHash. The requester is taken to belong to the caller's MSP.
func (s *Service) SecretExists(ctx context.Context, label, fileHash string, requesterCertPEM []byte) (bool, error) {
	if fileHash == "" {
		return false, status.New(status.InvalidArgument, "file hash is empty")
	}

	id, client, err := s.connect(label)
	if err != nil {
		return false, err
	}

	requesterID, err := identity.FromPEM(requesterCertPEM)
	if err != nil {
		return false, err
	}

	return client.SecretExists(ctx, fileHash, identity.Identity{MSPID: id.MSPID, ID: requesterID})
}

// RetrieveSecret decrypts the caller's secret for fileHash with the
// encryption private key priv. It returns nil if there is no secret.
func (s *Service) RetrieveSecret(ctx context.Context, label, fileHash string, priv []byte) ([]byte, error) {
	if fileHash == "" {
		return nil, status.New(status.InvalidArgument, "file hash is empty")
	}

	key, err := ecies.PrivateKeyFromBytes(priv)
	if err != nil {
		return nil, status.New(status.InvalidArgument, err.Error())
	}

	_, client, err := s.connect(label)
	if err != nil {
		return nil, err
	}

	data, err := client.GetSecret(ctx, fileHash)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to get secret")
	}
	if len(data) == 0 {
		logger.Debugf("no secret for file [%s] and [%s]", fileHash, label)
		return nil, nil
	}

	envelope, err := ecies.ParseEnvelope(data)
	if err != nil {
		return nil, err
	}
	return ecies.Decrypt(key, envelope)
}

// RemoveSecret deletes the caller's secret for fileHash.
func (s *Service) RemoveSecret(ctx context.Context, label, fileHash string) error {
	if fileHash == "" {
		return status.New(status.InvalidArgument, "file hash is empty")
	}

	_, client, err := s.connect(label)
	if err != nil {
		return err
	}

	if err := client.RemoveSecret(ctx, fileHash); err != nil {
		return errors.WithMessage(err, "failed to remove secret")
	}

	logger.Infof("removed secret for file [%s] of [%s]", fileHash, label)
	return nil
}

func (s *Service) identity(label string) (*wallet.Identity, string, error) {
	id, err := s.wallet.Get(label)
	if err != nil {
		return nil, "", err
	}
	actorID, err := identity.FromPEM([]byte(id.Credentials.Certificate))
	if err != nil {
		return nil, "", err
	}
	return id, actorID, nil
}

func (s *Service) connect(label string) (*wallet.Identity, *ledger.Client, error) {
	id, err := s.wallet.Get(label)
	if err != nil {
		return nil, nil, err
	}

	client, err := s.connector.Connect(label, &ledger.Credentials{
		MSPID:   id.MSPID,
		CertPEM: []byte(id.Credentials.Certificate),
		KeyPEM:  []byte(id.Credentials.PrivateKey),
	})
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "failed to connect as [%s]", label)
	}
	return id, client, nil
}
