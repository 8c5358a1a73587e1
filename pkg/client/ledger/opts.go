/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"time"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-docsecrets/pkg/metrics"
)

const (
	// DefaultSubmitTimeout bounds a submitted transaction, including commit
	DefaultSubmitTimeout = 30 * time.Second
	// DefaultEvaluateTimeout bounds a single query attempt
	DefaultEvaluateTimeout = 10 * time.Second
)

// ClientOption describes a functional parameter for the New constructor
type ClientOption func(*Client) error

// WithSubmitTimeout sets the time after which a submitted transaction is
// reported as having an unknown outcome.
func WithSubmitTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		if timeout > 0 {
			c.submitTimeout = timeout
		}
		return nil
	}
}

// WithEvaluateTimeout sets the timeout of a single query attempt.
func WithEvaluateTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) error {
		if timeout > 0 {
			c.evaluateTimeout = timeout
		}
		return nil
	}
}

// WithRetry sets the retry options used for queries.
func WithRetry(opts retry.Opts) ClientOption {
	return func(c *Client) error {
		c.retryOpts = opts
		return nil
	}
}

// WithMetrics sets the metrics the client records.
func WithMetrics(m *metrics.ClientMetrics) ClientOption {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}

// WithChainInfo sets the source of the chain information of channel.
func WithChainInfo(channel string, q InfoQuerier) ClientOption {
	return func(c *Client) error {
		c.channel = channel
		c.info = q
		return nil
	}
}
