/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package chaincode exposes the public-key registry and the encrypted-secret
// store as a single chaincode. Functions are addressed as
// "<contract name>:<method>", the convention used by Fabric contract API
// clients such as gateway.Network.GetContractWithName.
package chaincode

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/contract/pubkey"
	"github.com/hyperledger/fabric-docsecrets/pkg/contract/secret"
	"github.com/hyperledger/fabric-docsecrets/pkg/ledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/pkg/errors"
)

const nsSeparator = ":"

// Method names
const (
	MethodInstantiate = "instantiate"
	MethodSet         = "set"
	MethodGet         = "get"
	MethodAdd         = "add"
	MethodExists      = "exists"
	MethodRemove      = "remove"
)

var logger = logging.NewLogger("docsecrets/chaincode")

type handler func(ctx ledger.Context, args []string) ([]byte, error)

type method struct {
	minArgs int
	maxArgs int
	handle  handler
}

// Router dispatches invocations to the contracts.
type Router struct {
	methods map[string]method
}

// NewRouter returns a router over the two contracts.
func NewRouter() *Router {
	keys := pubkey.New()
	secrets := secret.New()

	noop := func(ledger.Context, []string) ([]byte, error) { return nil, nil }

	return &Router{
		methods: map[string]method{
			Function(pubkey.Name, MethodInstantiate): {0, 0, noop},
			Function(pubkey.Name, MethodSet): {2, 2, func(ctx ledger.Context, args []string) ([]byte, error) {
				return nil, keys.Set(ctx, args[0], args[1])
			}},
			Function(pubkey.Name, MethodGet): {2, 2, func(ctx ledger.Context, args []string) ([]byte, error) {
				record, err := keys.Get(ctx, args[0], args[1])
				if err != nil {
					return nil, err
				}
				payload, err := json.Marshal(record)
				if err != nil {
					return nil, errors.Wrap(err, "failed to marshal public key record")
				}
				return payload, nil
			}},

			Function(secret.Name, MethodInstantiate): {0, 0, noop},
			Function(secret.Name, MethodAdd): {4, 4, func(ctx ledger.Context, args []string) ([]byte, error) {
				return nil, secrets.Add(ctx, args[0], args[1], args[2], args[3])
			}},
			Function(secret.Name, MethodGet): {1, 3, func(ctx ledger.Context, args []string) ([]byte, error) {
				args = optional(args, 3)
				return secrets.Get(ctx, args[0], args[1], args[2])
			}},
			Function(secret.Name, MethodExists): {1, 3, func(ctx ledger.Context, args []string) ([]byte, error) {
				args = optional(args, 3)
				ok, err := secrets.Exists(ctx, args[0], args[1], args[2])
				if err != nil {
					return nil, err
				}
				return []byte(strconv.FormatBool(ok)), nil
			}},
			Function(secret.Name, MethodRemove): {1, 1, func(ctx ledger.Context, args []string) ([]byte, error) {
				return nil, secrets.Remove(ctx, args[0])
			}},
		},
	}
}

// Function returns the fully qualified name of a contract method.
func Function(contract, method string) string {
	return contract + nsSeparator + method
}

// Invoke runs fcn with args in the transaction ctx.
func (r *Router) Invoke(ctx ledger.Context, fcn string, args []string) ([]byte, error) {
	if !strings.Contains(fcn, nsSeparator) {
		return nil, status.New(status.InvalidArgument, "function name must be qualified by a contract name", status.Key("function", fcn))
	}

	m, ok := r.methods[fcn]
	if !ok {
		return nil, status.New(status.InvalidArgument, "unknown function", status.Key("function", fcn))
	}

	if len(args) < m.minArgs || len(args) > m.maxArgs {
		expected := strconv.Itoa(m.minArgs)
		if m.maxArgs != m.minArgs {
			expected += "-" + strconv.Itoa(m.maxArgs)
		}
		return nil, status.Errorf(status.InvalidArgument, "invalid number of arguments to %s. Expected %s, got %d", fcn, expected, len(args))
	}

	logger.Debugf("invoking %s with %d args", fcn, len(args))

	return m.handle(ctx, args)
}

func optional(args []string, n int) []string {
	padded := make([]string, n)
	copy(padded, args)
	return padded
}
