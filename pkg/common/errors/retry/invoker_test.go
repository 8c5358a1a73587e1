/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"context"
	"testing"
	"time"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/stretchr/testify/assert"
)

var testOpts = Opts{
	Attempts:       3,
	BackoffFactor:  2,
	InitialBackoff: 1 * time.Millisecond,
	MaxBackoff:     1 * time.Second,
}

func TestInvokeSuccess(t *testing.T) {
	attempt := 0
	expectedResp := []byte("invoked")
	invoker := NewInvoker(testOpts)
	resp, err := invoker.Invoke(context.Background(),
		func() ([]byte, error) {
			attempt++
			if attempt == 1 {
				return nil, status.New(status.LedgerUnavailable, "")
			}
			return expectedResp, nil
		},
	)

	assert.NoError(t, err, "Not expecting error")
	assert.Equal(t, expectedResp, resp)
	assert.Equal(t, 2, attempt)
}

func TestInvokeError(t *testing.T) {
	attempt := 0
	firstErr := status.New(status.LedgerUnavailable, "")
	expectedErr := status.New(status.InvalidArgument, "Invalid MSPID: ORG")
	invoker := NewInvoker(testOpts)
	resp, err := invoker.Invoke(context.Background(),
		func() ([]byte, error) {
			attempt++
			if attempt == 1 {
				return nil, firstErr
			}
			if attempt == 2 {
				return nil, expectedErr
			}
			return []byte("invoked"), nil
		},
	)

	assert.EqualError(t, err, expectedErr.Error())
	assert.Nil(t, resp)
	assert.Equal(t, 2, attempt)
}

func TestInvokeExhaustsAttempts(t *testing.T) {
	attempt := 0
	invoker := NewInvoker(testOpts)
	_, err := invoker.Invoke(context.Background(),
		func() ([]byte, error) {
			attempt++
			return nil, status.New(status.LedgerUnavailable, "")
		},
	)

	assert.True(t, status.Is(err, status.LedgerUnavailable))
	assert.Equal(t, testOpts.Attempts+1, attempt)

	attempt = 0
	_, err = invoker.Invoke(context.Background(),
		func() ([]byte, error) {
			attempt++
			return nil, status.New(status.LedgerUnavailable, "")
		},
	)
	assert.Error(t, err)
	assert.Equal(t, testOpts.Attempts+1, attempt, "each invocation starts with a fresh handler")
}

func TestInvokeContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempt := 0
	invoker := NewInvoker(Opts{Attempts: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour, BackoffFactor: 1})
	_, err := invoker.Invoke(ctx,
		func() ([]byte, error) {
			attempt++
			return nil, status.New(status.LedgerUnavailable, "")
		},
	)

	assert.True(t, status.Is(err, status.LedgerUnavailable))
	assert.Equal(t, 1, attempt)
}

func TestInvokeWithBeforeRetry(t *testing.T) {
	beforeRetryHandlerCalled := 0
	attempt := 0
	expectedResp := []byte("invoked")
	invoker := NewInvoker(testOpts, WithBeforeRetry(
		func(err error) {
			beforeRetryHandlerCalled++
		},
	))
	resp, err := invoker.Invoke(context.Background(),
		func() ([]byte, error) {
			attempt++
			if attempt == 1 {
				return nil, status.New(status.Conflict, "")
			}
			return expectedResp, nil
		},
	)

	assert.NoError(t, err, "Not expecting error")
	assert.Equal(t, expectedResp, resp)
	assert.Equal(t, 2, attempt)
	assert.Equal(t, 1, beforeRetryHandlerCalled)
}
