/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package retry

import (
	"context"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
)

var logger = logging.NewLogger("docsecrets/retry")

// Invocation is the function to be invoked.
type Invocation func() ([]byte, error)

// BeforeRetryHandler is a function that's invoked before
// a retry attempt.
type BeforeRetryHandler func(error)

// RetryableInvoker manages invocations that could return
// errors and retries the invocation on transient errors.
type RetryableInvoker struct {
	newHandler  func() Handler
	beforeRetry BeforeRetryHandler
}

// InvokerOpt is an invoker option
type InvokerOpt func(invoker *RetryableInvoker)

// WithBeforeRetry specifies a function to call before a retry attempt
func WithBeforeRetry(beforeRetry BeforeRetryHandler) InvokerOpt {
	return func(invoker *RetryableInvoker) {
		invoker.beforeRetry = beforeRetry
	}
}

// NewInvoker creates a new RetryableInvoker. Every call to Invoke gets a
// fresh Handler built from opts.
func NewInvoker(opts Opts, invokerOpts ...InvokerOpt) *RetryableInvoker {
	invoker := &RetryableInvoker{
		newHandler: func() Handler { return New(opts) },
	}
	for _, opt := range invokerOpts {
		opt(invoker)
	}
	return invoker
}

// Invoke invokes the given function and performs retries according to the
// retry options. It gives up early, returning the last error, once ctx is done.
func (ri *RetryableInvoker) Invoke(ctx context.Context, invocation Invocation) ([]byte, error) {
	handler := ri.newHandler()

	attemptNum := 0
	var lastErr error
	for {
		attemptNum++
		if attemptNum > 1 {
			logger.Debugf("Retry attempt #%d on error [%s]", attemptNum, lastErr)
		}

		retval, err := invocation()
		if err == nil {
			if attemptNum > 1 {
				logger.Debugf("Success on attempt #%d after error [%s]", attemptNum, lastErr)
			}
			return retval, nil
		}

		if !handler.Required(err) {
			logger.Debugf("... retry for err [%s] is NOT warranted after %d attempt(s).", err, attemptNum)
			return nil, err
		}

		if ri.beforeRetry != nil {
			ri.beforeRetry(err)
		}
		lastErr = err

		timer := time.NewTimer(handler.Backoff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, lastErr
		case <-timer.C:
		}
	}
}
