/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package ledger calls the document secrets chaincode on behalf of one
// identity. Writes (set, add, remove) are submitted for ordering; reads
// (get, exists) are evaluated on a peer and retried on transient failures.
//
//  Basic Flow:
//  1) Obtain a Transactor for the caller, for example a gateway.Contract
//  2) Create ledger client
//  3) Call the contract methods
package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-docsecrets/pkg/chaincode"
	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/contract/pubkey"
	"github.com/hyperledger/fabric-docsecrets/pkg/contract/secret"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/hyperledger/fabric-docsecrets/pkg/metrics"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	sdkstatus "github.com/hyperledger/fabric-sdk-go/pkg/common/errors/status"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/pkg/errors"
)

var logger = logging.NewLogger("docsecrets/ledgerclient")

//go:generate mockgen -destination mocks/mocktransactor.gen.go -package mocks . Transactor
//go:generate mockgen -destination mocks/mockinfoquerier.gen.go -package mocks . InfoQuerier

const (
	qscc             = "qscc"
	qsccGetChainInfo = "GetChainInfo"
)

// Transactor submits and evaluates chaincode functions. Function names are
// qualified by contract name. It is satisfied by *gateway.Contract and by
// *chaincode.LocalContract.
type Transactor interface {
	SubmitTransaction(name string, args ...string) ([]byte, error)
	EvaluateTransaction(name string, args ...string) ([]byte, error)
}

// InfoQuerier returns the chain information of a channel as a marshalled
// common.BlockchainInfo, the payload of qscc GetChainInfo.
type InfoQuerier interface {
	QueryChainInfo() ([]byte, error)
}

// ChainInfo describes the blockchain of a channel.
type ChainInfo struct {
	Channel           string
	Height            uint64
	CurrentBlockHash  []byte
	PreviousBlockHash []byte
}

// Client calls the registry and the secret store as a single identity.
type Client struct {
	transactor      Transactor
	channel         string
	info            InfoQuerier
	submitTimeout   time.Duration
	evaluateTimeout time.Duration
	retryOpts       retry.Opts
	metrics         *metrics.ClientMetrics
}

// New returns a ledger client instance.
func New(transactor Transactor, opts ...ClientOption) (*Client, error) {
	c := &Client{
		transactor:      transactor,
		submitTimeout:   DefaultSubmitTimeout,
		evaluateTimeout: DefaultEvaluateTimeout,
		retryOpts:       retry.DefaultOpts,
		metrics:         metrics.NewDiscardClientMetrics(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WithMessage(err, "failed to apply client option")
		}
	}
	return c, nil
}

// SetPublicKey registers the caller's encryption public key and its signature.
func (c *Client) SetPublicKey(ctx context.Context, publicKey, signature []byte) error {
	_, err := c.submit(ctx, pubkey.Name, chaincode.MethodSet,
		base64.StdEncoding.EncodeToString(publicKey),
		base64.StdEncoding.EncodeToString(signature))
	return err
}

// GetPublicKey returns the registry record of id.
func (c *Client) GetPublicKey(ctx context.Context, id identity.Identity) (*pubkey.Record, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	payload, err := c.evaluate(ctx, pubkey.Name, chaincode.MethodGet, id.MSPID, id.ID)
	if err != nil {
		return nil, err
	}

	record := &pubkey.Record{}
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, errors.Wrap(err, "invalid public key record returned by ledger")
	}
	return record, nil
}

// AddSecret stores envelope for signer under fileHash.
func (c *Client) AddSecret(ctx context.Context, fileHash string, signer identity.Identity, envelope []byte) error {
	_, err := c.submit(ctx, secret.Name, chaincode.MethodAdd, fileHash, signer.MSPID, signer.ID, string(envelope))
	return err
}

// GetSecret returns the caller's own envelope for fileHash, or nil.
func (c *Client) GetSecret(ctx context.Context, fileHash string) ([]byte, error) {
	payload, err := c.evaluate(ctx, secret.Name, chaincode.MethodGet, fileHash)
	if err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, nil
	}
	return payload, nil
}

// SecretExists reports whether signer has a secret for fileHash.
func (c *Client) SecretExists(ctx context.Context, fileHash string, signer identity.Identity) (bool, error) {
	payload, err := c.evaluate(ctx, secret.Name, chaincode.MethodExists, fileHash, signer.ID, signer.MSPID)
	if err != nil {
		return false, err
	}
	return string(payload) == "true", nil
}

// RemoveSecret deletes the caller's own secret for fileHash.
func (c *Client) RemoveSecret(ctx context.Context, fileHash string) error {
	_, err := c.submit(ctx, secret.Name, chaincode.MethodRemove, fileHash)
	return err
}

// ChainInfo returns the height and the latest block hashes of the channel.
func (c *Client) ChainInfo(ctx context.Context) (*ChainInfo, error) {
	if c.info == nil {
		return nil, status.New(status.Unknown, "chain information is not available on this connection")
	}

	payload, err := c.query(ctx, qscc, qsccGetChainInfo, c.info.QueryChainInfo)
	if err != nil {
		return nil, err
	}

	bci := &common.BlockchainInfo{}
	if err := proto.Unmarshal(payload, bci); err != nil {
		return nil, errors.Wrap(err, "invalid chain information returned by ledger")
	}

	return &ChainInfo{
		Channel:           c.channel,
		Height:            bci.Height,
		CurrentBlockHash:  bci.CurrentBlockHash,
		PreviousBlockHash: bci.PreviousBlockHash,
	}, nil
}

func (c *Client) submit(ctx context.Context, contract, method string, args ...string) ([]byte, error) {
	fcn := chaincode.Function(contract, method)
	labels := []string{"contract", contract, "fcn", method}

	c.metrics.ExecutionsReceived.With(labels...).Add(1)
	start := time.Now()
	defer func() {
		c.metrics.ExecutionDuration.With(labels...).Observe(time.Since(start).Seconds())
	}()

	payload, err := call(ctx, c.submitTimeout, func() ([]byte, error) {
		return c.transactor.SubmitTransaction(fcn, args...)
	})
	if err != nil {
		if isContextError(err) {
			c.metrics.ExecutionTimeouts.With(labels...).Add(1)
			logger.Warnf("outcome of %s is unknown: %s", fcn, err)
			return nil, status.New(status.UnknownOutcome, "transaction outcome unknown: "+err.Error(), status.Key("function", fcn))
		}

		err = translate(err)
		c.metrics.ExecutionsFailed.With(append(labels, "fail", status.CodeOf(err).String())...).Add(1)
		logger.Debugf("submit of %s failed: %s", fcn, err)
		return nil, err
	}
	return payload, nil
}

func (c *Client) evaluate(ctx context.Context, contract, method string, args ...string) ([]byte, error) {
	fcn := chaincode.Function(contract, method)
	return c.query(ctx, contract, method, func() ([]byte, error) {
		return c.transactor.EvaluateTransaction(fcn, args...)
	})
}

// query runs f with a per attempt deadline, retrying transient failures. A
// query whose last attempt timed out counts as a timeout, not a failure.
func (c *Client) query(ctx context.Context, contract, method string, f func() ([]byte, error)) ([]byte, error) {
	fcn := chaincode.Function(contract, method)
	labels := []string{"contract", contract, "fcn", method}

	c.metrics.QueriesReceived.With(labels...).Add(1)
	start := time.Now()
	defer func() {
		c.metrics.QueryDuration.With(labels...).Observe(time.Since(start).Seconds())
	}()

	invoker := retry.NewInvoker(c.retryOpts, retry.WithBeforeRetry(func(err error) {
		logger.Debugf("retrying %s after: %s", fcn, err)
	}))

	var timedOut bool
	payload, err := invoker.Invoke(ctx, func() ([]byte, error) {
		payload, err := call(ctx, c.evaluateTimeout, f)
		timedOut = err != nil && isContextError(err)
		if err != nil {
			if timedOut {
				c.metrics.QueryTimeouts.With(labels...).Add(1)
				return nil, status.New(status.LedgerUnavailable, "query timed out: "+err.Error(), status.Key("function", fcn))
			}
			return nil, translate(err)
		}
		return payload, nil
	})
	if err != nil {
		if !timedOut {
			c.metrics.QueriesFailed.With(append(labels, "fail", status.CodeOf(err).String())...).Add(1)
		}
		return nil, err
	}
	return payload, nil
}

// call runs f with a deadline. The transactor API is not context aware, so
// f keeps running in the background if the deadline passes.
func call(ctx context.Context, timeout time.Duration, f func() ([]byte, error)) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		payload []byte
		err     error
	}

	done := make(chan result, 1)
	go func() {
		payload, err := f()
		done <- result{payload: payload, err: err}
	}()

	select {
	case r := <-done:
		return r.payload, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func isContextError(err error) bool {
	return err == context.DeadlineExceeded || err == context.Canceled
}

var readConflictPattern = regexp.MustCompile(`\b(MVCC|PHANTOM)_READ_CONFLICT\b`)

// translate recovers the status of an error returned by the chaincode. A
// transaction invalidated by a read conflict is a Conflict, a chaincode error
// without a recognisable status is Unknown, and anything else is a transport
// failure.
func translate(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	if s, ok := status.Parse(err.Error()); ok {
		return s
	}
	if isReadConflict(err) {
		return status.New(status.Conflict, err.Error())
	}
	if isChaincodeError(err) {
		return status.New(status.Unknown, err.Error())
	}
	return status.New(status.LedgerUnavailable, err.Error())
}

func isReadConflict(err error) bool {
	if s, ok := sdkstatus.FromError(err); ok && s.Group == sdkstatus.EventServerStatus {
		code := pb.TxValidationCode(s.Code)
		return code == pb.TxValidationCode_MVCC_READ_CONFLICT || code == pb.TxValidationCode_PHANTOM_READ_CONFLICT
	}
	return readConflictPattern.MatchString(err.Error())
}

func isChaincodeError(err error) bool {
	if s, ok := sdkstatus.FromError(err); ok && s.Group == sdkstatus.ChaincodeStatus {
		return true
	}
	return strings.Contains(err.Error(), sdkstatus.ChaincodeStatus.String()+" Code:")
}
