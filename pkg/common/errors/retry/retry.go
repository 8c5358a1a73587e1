/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package retry re-runs idempotent ledger reads that failed with a transient
// status code. Writes are never retried: a write whose outcome is unknown may
// already have been ordered.
package retry

import (
	"time"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
)

// Opts defines the retry parameters
type Opts struct {
	// Attempts the number of retries made after the first attempt
	Attempts int
	// InitialBackoff the backoff interval for the first retry attempt
	InitialBackoff time.Duration
	// MaxBackoff the maximum backoff interval for any retry attempt
	MaxBackoff time.Duration
	// BackoffFactor the factor by which the InitialBackoff is exponentially
	// incremented for consecutive retry attempts.
	BackoffFactor float64
	// RetryableCodes the status codes that warrant a retry.
	// This will default to DefaultRetryableCodes.
	RetryableCodes []status.Code
}

// Handler decides whether a retry is required for the given error and how
// long to wait before making it. A Handler tracks the retries of a single
// invocation.
type Handler interface {
	Required(err error) bool
	Backoff() time.Duration
}

type impl struct {
	opts    Opts
	retries int
}

// New retry Handler with the given opts
func New(opts Opts) Handler {
	if len(opts.RetryableCodes) == 0 {
		opts.RetryableCodes = DefaultRetryableCodes
	}
	return &impl{opts: opts}
}

// WithDefaults new retry Handler with default opts
func WithDefaults() Handler {
	return New(DefaultOpts)
}

// WithAttempts new retry Handler with given attempts. Other opts are set to default.
func WithAttempts(attempts int) Handler {
	opts := DefaultOpts
	opts.Attempts = attempts
	return New(opts)
}

// Required determines if retry is required for the given error. Each
// positive answer consumes one attempt.
func (i *impl) Required(err error) bool {
	if i.retries >= i.opts.Attempts {
		return false
	}

	s, ok := status.FromError(err)
	if ok && i.isRetryable(s.Code) {
		i.retries++
		return true
	}
	return false
}

// Backoff returns the wait before the retry most recently granted by Required.
func (i *impl) Backoff() time.Duration {
	backoff, max := float64(i.opts.InitialBackoff), float64(i.opts.MaxBackoff)
	for j := 1; j < i.retries && backoff < max; j++ {
		backoff *= i.opts.BackoffFactor
	}
	if backoff > max {
		backoff = max
	}
	return time.Duration(backoff)
}

func (i *impl) isRetryable(c status.Code) bool {
	for _, code := range i.opts.RetryableCodes {
		if c == code {
			return true
		}
	}
	return false
}
