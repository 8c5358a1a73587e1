/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"fmt"
	"io/ioutil"

	"github.com/hyperledger/fabric-docsecrets/pkg/docsecrets"
	"github.com/hyperledger/fabric-docsecrets/pkg/metrics"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"
)

func newIdentityCmd() *cobra.Command {
	identityCmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage wallet identities",
	}
	identityCmd.AddCommand(
		newIdentityImportCmd(),
		newIdentityShowCmd(),
		newIdentityListCmd(),
	)
	return identityCmd
}

func newIdentityImportCmd() *cobra.Command {
	var mspID, certPath, keyPath string

	cmd := &cobra.Command{
		Use:   "import <label>",
		Short: "Import an enrollment certificate and key into the wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := identityService(cmd)
			if err != nil {
				return err
			}

			certPEM, err := ioutil.ReadFile(certPath)
			if err != nil {
				return errors.Wrap(err, "failed to read certificate")
			}
			keyPEM, err := ioutil.ReadFile(keyPath)
			if err != nil {
				return errors.Wrap(err, "failed to read private key")
			}

			if err := service.ImportIdentity(args[0], mspID, certPEM, keyPEM); err != nil {
				return err
			}
			return printIdentity(cmd, service, args[0])
		},
	}
	cmd.Flags().StringVar(&mspID, "msp", "", "MSP id of the identity")
	cmd.Flags().StringVar(&certPath, "cert", "", "path to the PEM encoded enrollment certificate")
	cmd.Flags().StringVar(&keyPath, "key", "", "path to the PEM encoded enrollment private key")
	for _, name := range []string{"msp", "cert", "key"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newIdentityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <label>",
		Short: "Print the ledger identity of a wallet entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := identityService(cmd)
			if err != nil {
				return err
			}
			return printIdentity(cmd, service, args[0])
		},
	}
}

func newIdentityListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the wallet labels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			w, err := newWallet(cfg.Wallet)
			if err != nil {
				return err
			}
			labels, err := w.List()
			if err != nil {
				return err
			}
			for _, label := range labels {
				fmt.Fprintln(cmd.OutOrStdout(), label)
			}
			return nil
		},
	}
}

// identity commands never reach the ledger, so they run without metrics
func identityService(cmd *cobra.Command) (*docsecrets.Service, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	service, _, err := newService(cfg, metrics.NewDiscardClientMetrics())
	return service, err
}

func printIdentity(cmd *cobra.Command, service *docsecrets.Service, label string) error {
	id, err := service.ClientID(label)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(id)
	if err != nil {
		return errors.Wrap(err, "failed to marshal identity")
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
