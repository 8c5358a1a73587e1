/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Command docsecretsd serves the document password API and manages the
// identities it acts as.
package main

import (
	"fmt"
	"os"

	"github.com/hyperledger/fabric-docsecrets/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/spf13/cobra"
)

var logger = logging.NewLogger("docsecrets/cli")

const configFlag = "config"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "docsecretsd",
		Short:         "Document password sharing on Hyperledger Fabric",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP(configFlag, "c", "", "path to the configuration file")

	rootCmd.AddCommand(
		newServeCmd(),
		newIdentityCmd(),
	)
	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return config.Default()
	}
	return config.FromFile(path)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
