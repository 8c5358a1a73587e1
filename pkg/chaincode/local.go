/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package chaincode

import (
	"github.com/google/uuid"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/hyperledger/fabric-docsecrets/pkg/ledger/memledger"
)

// LocalContract runs the chaincode in process against a memledger.Ledger, on
// behalf of a fixed caller. It has the same transaction methods as
// gateway.Contract; function names are qualified with the contract name.
type LocalContract struct {
	ledger *memledger.Ledger
	router *Router
	caller identity.Identity
}

// NewLocalContract returns the chaincode bound to caller.
func NewLocalContract(l *memledger.Ledger, caller identity.Identity) *LocalContract {
	return &LocalContract{
		ledger: l,
		router: NewRouter(),
		caller: caller,
	}
}

// SubmitTransaction executes the function and commits its writes.
func (c *LocalContract) SubmitTransaction(name string, args ...string) ([]byte, error) {
	tx := c.ledger.Begin(uuid.New().String(), c.caller)

	payload, err := c.router.Invoke(tx, name, args)
	if err != nil {
		tx.Discard()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return payload, nil
}

// EvaluateTransaction executes the function and discards its writes.
func (c *LocalContract) EvaluateTransaction(name string, args ...string) ([]byte, error) {
	tx := c.ledger.Begin(uuid.New().String(), c.caller)
	defer tx.Discard()

	return c.router.Invoke(tx, name, args)
}
