/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package chaincode

import (
	"github.com/hyperledger/fabric-chaincode-go/pkg/cid"
	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/status"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/hyperledger/fabric-docsecrets/pkg/ledger"
	pb "github.com/hyperledger/fabric-protos-go/peer"
)

// Chaincode adapts the router to the Fabric shim.
type Chaincode struct {
	router *Router
}

// New returns the document secrets chaincode.
func New() *Chaincode {
	return &Chaincode{router: NewRouter()}
}

// Init is called on instantiate and upgrade; there is nothing to initialize.
func (cc *Chaincode) Init(stub shim.ChaincodeStubInterface) pb.Response {
	return shim.Success(nil)
}

// Invoke dispatches the transaction to the contract method it names. Errors
// are returned as "<CODE>: <message>" so clients can recover the code.
func (cc *Chaincode) Invoke(stub shim.ChaincodeStubInterface) pb.Response {
	fcn, args := stub.GetFunctionAndParameters()

	payload, err := cc.router.Invoke(NewStubContext(stub), fcn, args)
	if err != nil {
		logger.Debugf("[txID %s] %s failed: %s", stub.GetTxID(), fcn, err)
		if _, ok := status.FromError(err); !ok {
			err = status.New(status.Unknown, err.Error())
		}
		return shim.Error(err.Error())
	}
	return shim.Success(payload)
}

type stubContext struct {
	shim.ChaincodeStubInterface
}

// NewStubContext returns a ledger.Context backed by a chaincode stub.
func NewStubContext(stub shim.ChaincodeStubInterface) ledger.Context {
	return &stubContext{ChaincodeStubInterface: stub}
}

func (s *stubContext) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	return ledger.CreateCompositeKey(objectType, attributes)
}

// CallerIdentity derives the actor id from the creator certificate with the
// same codec the clients use, rather than cid.GetID.
func (s *stubContext) CallerIdentity() (identity.Identity, error) {
	mspID, err := cid.GetMSPID(s.ChaincodeStubInterface)
	if err != nil {
		return identity.Identity{}, status.New(status.MalformedCertificate, "unable to get caller MSP id: "+err.Error())
	}

	cert, err := cid.GetX509Certificate(s.ChaincodeStubInterface)
	if err != nil {
		return identity.Identity{}, status.New(status.MalformedCertificate, "unable to get caller certificate: "+err.Error())
	}
	if cert == nil {
		return identity.Identity{}, status.New(status.MalformedCertificate, "caller has no X.509 certificate")
	}

	return identity.Identity{MSPID: mspID, ID: identity.FromCertificate(cert)}, nil
}
