/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"context"
	"encoding/base64"
	"io/ioutil"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-docsecrets/pkg/client/ledger/mocks"
	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/contract/pubkey"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/hyperledger/fabric-docsecrets/pkg/metrics"
	"github.com/hyperledger/fabric-protos-go/common"
	pb "github.com/hyperledger/fabric-protos-go/peer"
	sdkstatus "github.com/hyperledger/fabric-sdk-go/pkg/common/errors/status"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fnSetKey       = "org.onlyonet.publickeystorage:set"
	fnGetKey       = "org.onlyonet.publickeystorage:get"
	fnAddSecret    = "org.onlyonet.filepasswordstorage:add"
	fnGetSecret    = "org.onlyonet.filepasswordstorage:get"
	fnSecretExists = "org.onlyonet.filepasswordstorage:exists"
	fnRemoveSecret = "org.onlyonet.filepasswordstorage:remove"
)

var (
	alice = identity.Identity{MSPID: "Org1MSP", ID: "x509::/OU=client/CN=alice::/CN=ca"}

	fastRetry = retry.Opts{
		Attempts:       2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		BackoffFactor:  2,
	}
)

func newClient(t *testing.T, opts ...ClientOption) (*Client, *mocks.MockTransactor) {
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	transactor := mocks.NewMockTransactor(ctrl)
	c, err := New(transactor, append([]ClientOption{WithRetry(fastRetry)}, opts...)...)
	require.NoError(t, err)
	return c, transactor
}

func TestSetPublicKey(t *testing.T) {
	c, transactor := newClient(t)

	transactor.EXPECT().SubmitTransaction(fnSetKey,
		base64.StdEncoding.EncodeToString([]byte("pub")),
		base64.StdEncoding.EncodeToString([]byte("sig")),
	).Return(nil, nil)

	require.NoError(t, c.SetPublicKey(context.Background(), []byte("pub"), []byte("sig")))
}

func TestGetPublicKey(t *testing.T) {
	c, transactor := newClient(t)

	transactor.EXPECT().EvaluateTransaction(fnGetKey, alice.MSPID, alice.ID).
		Return([]byte(`{"publicKey":"cHVi","signature":"c2ln"}`), nil)

	record, err := c.GetPublicKey(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, &pubkey.Record{PublicKey: "cHVi", Signature: "c2ln"}, record)
}

func TestGetPublicKeyValidatesBeforeCall(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.GetPublicKey(context.Background(), identity.Identity{MSPID: "ORG", ID: alice.ID})
	require.Error(t, err)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))
}

func TestSecretCalls(t *testing.T) {
	c, transactor := newClient(t)
	ctx := context.Background()

	gomock.InOrder(
		transactor.EXPECT().SubmitTransaction(fnAddSecret, "abc123", alice.MSPID, alice.ID, "envelope").Return(nil, nil),
		transactor.EXPECT().EvaluateTransaction(fnSecretExists, "abc123", alice.ID, alice.MSPID).Return([]byte("true"), nil),
		transactor.EXPECT().EvaluateTransaction(fnGetSecret, "abc123").Return([]byte("envelope"), nil),
		transactor.EXPECT().SubmitTransaction(fnRemoveSecret, "abc123").Return(nil, nil),
		transactor.EXPECT().EvaluateTransaction(fnSecretExists, "abc123", alice.ID, alice.MSPID).Return([]byte("false"), nil),
		transactor.EXPECT().EvaluateTransaction(fnGetSecret, "abc123").Return([]byte{}, nil),
	)

	require.NoError(t, c.AddSecret(ctx, "abc123", alice, []byte("envelope")))

	ok, err := c.SecretExists(ctx, "abc123", alice)
	require.NoError(t, err)
	assert.True(t, ok)

	value, err := c.GetSecret(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, []byte("envelope"), value)

	require.NoError(t, c.RemoveSecret(ctx, "abc123"))

	ok, err = c.SecretExists(ctx, "abc123", alice)
	require.NoError(t, err)
	assert.False(t, ok)

	value, err = c.GetSecret(ctx, "abc123")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestSubmitErrorTranslation(t *testing.T) {
	c, transactor := newClient(t)

	gomock.InOrder(
		transactor.EXPECT().SubmitTransaction(fnAddSecret, "abc123", alice.MSPID, alice.ID, "envelope").
			Return(nil, errors.New("Failed to submit: Multiple errors occurred: - Transaction processing for endorser [peer0.org1.example.com:7051]: Chaincode status Code: (500) UNKNOWN. Description: ALREADY_EXISTS: encrypted secret already exists for this signer [fileHash=abc123]")),
		transactor.EXPECT().SubmitTransaction(fnAddSecret, "abc123", alice.MSPID, alice.ID, "envelope").
			Return(nil, errors.New("Failed to submit: connection refused")),
		transactor.EXPECT().SubmitTransaction(fnAddSecret, "abc123", alice.MSPID, alice.ID, "envelope").
			Return(nil, status.New(status.Conflict, "MVCC read conflict")),
	)

	err := c.AddSecret(context.Background(), "abc123", alice, []byte("envelope"))
	assert.Equal(t, status.AlreadyExists, status.CodeOf(err))
	assert.Contains(t, err.Error(), "fileHash=abc123")

	err = c.AddSecret(context.Background(), "abc123", alice, []byte("envelope"))
	assert.Equal(t, status.LedgerUnavailable, status.CodeOf(err), "writes are never retried")

	err = c.AddSecret(context.Background(), "abc123", alice, []byte("envelope"))
	assert.Equal(t, status.Conflict, status.CodeOf(err))
}

func TestEvaluateRetriesTransientErrors(t *testing.T) {
	c, transactor := newClient(t)

	gomock.InOrder(
		transactor.EXPECT().EvaluateTransaction(fnSecretExists, "abc123", alice.ID, alice.MSPID).
			Return(nil, errors.New("Failed to evaluate: connection refused")),
		transactor.EXPECT().EvaluateTransaction(fnSecretExists, "abc123", alice.ID, alice.MSPID).
			Return([]byte("true"), nil),
	)

	ok, err := c.SecretExists(context.Background(), "abc123", alice)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateDoesNotRetryPermanentErrors(t *testing.T) {
	c, transactor := newClient(t)

	transactor.EXPECT().EvaluateTransaction(fnGetKey, alice.MSPID, alice.ID).
		Return(nil, errors.New("Chaincode status Code: (500) UNKNOWN. Description: NOT_FOUND: public key is not registered")).
		Times(1)

	_, err := c.GetPublicKey(context.Background(), alice)
	assert.Equal(t, status.NotFound, status.CodeOf(err))
}

func TestEvaluateGivesUp(t *testing.T) {
	c, transactor := newClient(t)

	transactor.EXPECT().EvaluateTransaction(fnGetSecret, "abc123").
		Return(nil, errors.New("connection refused")).
		Times(fastRetry.Attempts + 1)

	_, err := c.GetSecret(context.Background(), "abc123")
	assert.Equal(t, status.LedgerUnavailable, status.CodeOf(err))
}

func TestSubmitTimeoutIsUnknownOutcome(t *testing.T) {
	c, transactor := newClient(t, WithSubmitTimeout(20*time.Millisecond))

	release := make(chan struct{})
	defer close(release)

	transactor.EXPECT().SubmitTransaction(fnRemoveSecret, "abc123").
		DoAndReturn(func(name string, args ...string) ([]byte, error) {
			<-release
			return nil, nil
		}).Times(1)

	err := c.RemoveSecret(context.Background(), "abc123")
	require.Error(t, err)
	assert.Equal(t, status.UnknownOutcome, status.CodeOf(err))
}

func TestEvaluateTimeout(t *testing.T) {
	c, transactor := newClient(t, WithEvaluateTimeout(10*time.Millisecond), WithRetry(retry.Opts{Attempts: 0}))

	release := make(chan struct{})
	defer close(release)

	transactor.EXPECT().EvaluateTransaction(fnGetSecret, "abc123").
		DoAndReturn(func(name string, args ...string) ([]byte, error) {
			<-release
			return nil, nil
		}).Times(1)

	_, err := c.GetSecret(context.Background(), "abc123")
	assert.Equal(t, status.LedgerUnavailable, status.CodeOf(err))
}

func TestSubmitReadConflict(t *testing.T) {
	c, transactor := newClient(t)

	invalidated := sdkstatus.New(sdkstatus.EventServerStatus, int32(pb.TxValidationCode_MVCC_READ_CONFLICT), "received invalid transaction", nil)

	gomock.InOrder(
		transactor.EXPECT().SubmitTransaction(fnAddSecret, "abc123", alice.MSPID, alice.ID, "envelope").
			Return(nil, errors.Wrap(invalidated, "Failed to submit")),
		transactor.EXPECT().SubmitTransaction(fnAddSecret, "abc123", alice.MSPID, alice.ID, "envelope").
			Return(nil, errors.New("Failed to submit: Multiple errors occurred: - Event Server Status Code: (12) PHANTOM_READ_CONFLICT. Description: received invalid transaction")),
	)

	err := c.AddSecret(context.Background(), "abc123", alice, []byte("envelope"))
	assert.Equal(t, status.Conflict, status.CodeOf(err))

	err = c.AddSecret(context.Background(), "abc123", alice, []byte("envelope"))
	assert.Equal(t, status.Conflict, status.CodeOf(err))
}

func TestChaincodeErrorWithoutStatus(t *testing.T) {
	c, transactor := newClient(t)

	transactor.EXPECT().EvaluateTransaction(fnGetSecret, "abc123").
		Return(nil, errors.New("Failed to evaluate: Chaincode status Code: (500) UNKNOWN. Description: UNKNOWN: failed to read state")).
		Times(1)

	_, err := c.GetSecret(context.Background(), "abc123")
	assert.Equal(t, status.Unknown, status.CodeOf(err))
	_, ok := status.FromError(err)
	assert.True(t, ok)
}

func TestQueryMetrics(t *testing.T) {
	p := metrics.NewProvider()
	c, transactor := newClient(t,
		WithMetrics(p.NewClientMetrics()),
		WithEvaluateTimeout(10*time.Millisecond),
		WithRetry(retry.Opts{Attempts: 0}))

	release := make(chan struct{})
	defer close(release)

	gomock.InOrder(
		transactor.EXPECT().EvaluateTransaction(fnGetSecret, "abc123").
			DoAndReturn(func(name string, args ...string) ([]byte, error) {
				<-release
				return nil, nil
			}),
		transactor.EXPECT().EvaluateTransaction(fnSecretExists, "abc123", alice.ID, alice.MSPID).
			Return(nil, errors.New("Chaincode status Code: (500) UNKNOWN. Description: INVALID_ARGUMENT: fileHash is required")),
	)

	_, err := c.GetSecret(context.Background(), "abc123")
	assert.Equal(t, status.LedgerUnavailable, status.CodeOf(err))

	_, err = c.SecretExists(context.Background(), "abc123", alice)
	assert.Equal(t, status.InvalidArgument, status.CodeOf(err))

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := ioutil.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `docsecrets_ledger_query_timeouts{contract="org.onlyonet.filepasswordstorage",fcn="get"} 1`)
	assert.NotContains(t, string(body), `fail="LEDGER_UNAVAILABLE"`, "timeouts are not failures")
	assert.Contains(t, string(body), `docsecrets_ledger_queries_failed{contract="org.onlyonet.filepasswordstorage",fail="INVALID_ARGUMENT",fcn="exists"} 1`)
}

func TestChainInfo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	info := mocks.NewMockInfoQuerier(ctrl)
	c, _ := newClient(t, WithChainInfo("mychannel", info))

	payload, err := proto.Marshal(&common.BlockchainInfo{
		Height:            7,
		CurrentBlockHash:  []byte("current"),
		PreviousBlockHash: []byte("previous"),
	})
	require.NoError(t, err)

	gomock.InOrder(
		info.EXPECT().QueryChainInfo().Return(nil, errors.New("connection refused")),
		info.EXPECT().QueryChainInfo().Return(payload, nil),
	)

	ci, err := c.ChainInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ChainInfo{
		Channel:           "mychannel",
		Height:            7,
		CurrentBlockHash:  []byte("current"),
		PreviousBlockHash: []byte("previous"),
	}, ci)
}

func TestChainInfoNotAvailable(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.ChainInfo(context.Background())
	assert.Equal(t, status.Unknown, status.CodeOf(err))
}
