/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperledger/fabric-docsecrets/pkg/client/ledger"
	"github.com/hyperledger/fabric-docsecrets/pkg/core/config"
	"github.com/hyperledger/fabric-docsecrets/pkg/docsecrets"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity/identitytest"
	"github.com/hyperledger/fabric-docsecrets/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	yaml "gopkg.in/yaml.v2"
)

func writeConfig(t *testing.T) (string, string) {
	dir := t.TempDir()
	walletDir := filepath.Join(dir, "wallet")
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("wallet:\n  type: filesystem\n  path: %s\nledger:\n  type: memory\n", walletDir)
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0600))
	return path, walletDir
}

func execute(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIdentityCommands(t *testing.T) {
	configPath, _ := writeConfig(t)

	creds := identitytest.NewClient(t, "user1")
	dir := t.TempDir()
	certPath := filepath.Join(dir, "cert.pem")
	keyPath := filepath.Join(dir, "key.pem")
	require.NoError(t, ioutil.WriteFile(certPath, creds.CertPEM, 0600))
	require.NoError(t, ioutil.WriteFile(keyPath, creds.KeyPEM, 0600))

	out, err := execute(t, "identity", "import", "user1", "--config", configPath, "--msp", "Org1MSP", "--cert", certPath, "--key", keyPath)
	require.NoError(t, err)

	expected, err := identity.FromPEM(creds.CertPEM)
	require.NoError(t, err)

	var id docsecrets.ClientIdentity
	require.NoError(t, yaml.Unmarshal([]byte(out), &id))
	assert.Equal(t, docsecrets.ClientIdentity{MSPID: "Org1MSP", ClientID: expected}, id)

	out, err = execute(t, "identity", "show", "user1", "-c", configPath)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal([]byte(out), &id))
	assert.Equal(t, expected, id.ClientID)

	out, err = execute(t, "identity", "list", "-c", configPath)
	require.NoError(t, err)
	assert.Equal(t, "user1\n", out)

	_, err = execute(t, "identity", "import", "user1", "-c", configPath, "--msp", "Org1MSP", "--cert", certPath, "--key", keyPath)
	assert.Error(t, err)

	_, err = execute(t, "identity", "show", "nobody", "-c", configPath)
	assert.Error(t, err)
}

func TestNewConnector(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)

	defer os.Unsetenv(ledger.DiscoveryAsLocalhostEnv)

	connector, err := newConnector(cfg.Ledger, metrics.NewDiscardClientMetrics())
	require.NoError(t, err)
	assert.IsType(t, &ledger.FabricConnector{}, connector)
	assert.Equal(t, "true", os.Getenv(ledger.DiscoveryAsLocalhostEnv))

	cfg.Ledger.DiscoveryAsLocalhost = false
	_, err = newConnector(cfg.Ledger, metrics.NewDiscardClientMetrics())
	require.NoError(t, err)
	assert.Equal(t, "false", os.Getenv(ledger.DiscoveryAsLocalhostEnv))

	cfg.Ledger.Type = config.LedgerMemory
	connector, err = newConnector(cfg.Ledger, metrics.NewDiscardClientMetrics())
	require.NoError(t, err)
	assert.IsType(t, &ledger.LocalConnector{}, connector)

	cfg.Ledger.Type = "sql"
	_, err = newConnector(cfg.Ledger, metrics.NewDiscardClientMetrics())
	assert.EqualError(t, err, "unsupported ledger type: sql")
}

func TestNewWallet(t *testing.T) {
	w, err := newWallet(config.WalletConfig{Type: config.WalletMemory})
	require.NoError(t, err)
	assert.False(t, w.Exists("user1"))

	_, err = newWallet(config.WalletConfig{Type: config.WalletVault, Vault: config.VaultConfig{Token: "root"}})
	assert.EqualError(t, err, "vault wallet path is empty")

	_, err = newWallet(config.WalletConfig{Type: "ldap"})
	assert.EqualError(t, err, "unsupported wallet type: ldap")
}
