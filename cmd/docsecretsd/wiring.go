/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"
	"strconv"

	"github.com/hyperledger/fabric-docsecrets/pkg/client/ledger"
	"github.com/hyperledger/fabric-docsecrets/pkg/common/errors/retry"
	"github.com/hyperledger/fabric-docsecrets/pkg/core/config"
	"github.com/hyperledger/fabric-docsecrets/pkg/docsecrets"
	"github.com/hyperledger/fabric-docsecrets/pkg/ledger/memledger"
	"github.com/hyperledger/fabric-docsecrets/pkg/metrics"
	"github.com/hyperledger/fabric-docsecrets/pkg/wallet"
	"github.com/pkg/errors"
)

func newWallet(cfg config.WalletConfig) (*wallet.Wallet, error) {
	switch cfg.Type {
	case config.WalletFileSystem:
		return wallet.NewFileSystemWallet(cfg.Path)
	case config.WalletMemory:
		return wallet.NewInMemoryWallet(), nil
	case config.WalletVault:
		return wallet.NewVaultWallet(wallet.VaultConfig{
			Address: cfg.Vault.Address,
			Token:   cfg.Vault.Token,
			Mount:   cfg.Vault.Mount,
			Path:    cfg.Vault.Path,
		})
	default:
		return nil, errors.Errorf("unsupported wallet type: %s", cfg.Type)
	}
}

func newConnector(cfg config.LedgerConfig, m *metrics.ClientMetrics) (ledger.Connector, error) {
	opts := []ledger.ClientOption{
		ledger.WithSubmitTimeout(cfg.SubmitTimeout),
		ledger.WithEvaluateTimeout(cfg.EvaluateTimeout),
		ledger.WithRetry(retry.Opts{
			Attempts:       cfg.EvaluateAttempts,
			InitialBackoff: cfg.InitialBackoff,
			MaxBackoff:     cfg.MaxBackoff,
			BackoffFactor:  retry.DefaultBackoffFactor,
			RetryableCodes: retry.DefaultRetryableCodes,
		}),
		ledger.WithMetrics(m),
	}

	switch cfg.Type {
	case config.LedgerFabric:
		if err := os.Setenv(ledger.DiscoveryAsLocalhostEnv, strconv.FormatBool(cfg.DiscoveryAsLocalhost)); err != nil {
			return nil, errors.Wrap(err, "failed to configure discovery")
		}
		return ledger.NewFabricConnector(ledger.GatewayConfig{
			ConnectionProfile:    cfg.ConnectionProfile,
			Channel:              cfg.Channel,
			Chaincode:            cfg.Chaincode,
			DiscoveryAsLocalhost: cfg.DiscoveryAsLocalhost,
		}, opts...), nil
	case config.LedgerMemory:
		logger.Warn("using an in-memory ledger; state is lost on exit")
		return ledger.NewLocalConnector(memledger.New(), opts...), nil
	default:
		return nil, errors.Errorf("unsupported ledger type: %s", cfg.Type)
	}
}

func newService(cfg *config.Config, m *metrics.ClientMetrics) (*docsecrets.Service, ledger.Connector, error) {
	w, err := newWallet(cfg.Wallet)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "failed to open wallet")
	}

	connector, err := newConnector(cfg.Ledger, m)
	if err != nil {
		return nil, nil, err
	}

	service := docsecrets.New(docsecrets.Config{
		DefaultRecipientSelf: cfg.Secrets.DefaultRecipientSelf,
		VerifyKeySignatures:  cfg.Secrets.VerifyKeySignatures,
	}, w, connector)

	return service, connector, nil
}
