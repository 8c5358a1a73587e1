/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Command docsecrets-cc runs the document secrets chaincode.
package main

import (
	"os"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-docsecrets/pkg/chaincode"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
)

var logger = logging.NewLogger("docsecrets/cc")

func main() {
	if level := os.Getenv("CORE_CHAINCODE_LOGGING_LEVEL"); level != "" {
		if lvl, err := logging.LogLevel(level); err == nil {
			logging.SetLevel("", lvl)
		}
	}

	if err := shim.Start(chaincode.New()); err != nil {
		logger.Fatalf("error starting chaincode: %s", err)
	}
}
