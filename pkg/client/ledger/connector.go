/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"bytes"
	"sync"

	"github.com/hyperledger/fabric-docsecrets/pkg/chaincode"
	"github.com/hyperledger/fabric-docsecrets/pkg/identity"
	"github.com/hyperledger/fabric-docsecrets/pkg/ledger/memledger"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	"github.com/hyperledger/fabric-sdk-go/pkg/gateway"
	"github.com/pkg/errors"
)

// DiscoveryAsLocalhostEnv is the environment variable the gateway reads to map
// discovered peer and orderer addresses to localhost. It is read when a
// gateway connects, so it has to be set once before the first Connect.
const DiscoveryAsLocalhostEnv = "DISCOVERY_AS_LOCALHOST"

// LocalChannel is the channel name reported by clients of a LocalConnector.
const LocalChannel = "local"

// Credentials is the enrollment certificate and private key of an identity.
type Credentials struct {
	MSPID   string
	CertPEM []byte
	KeyPEM  []byte
}

// Connector returns ledger clients acting as a given identity.
type Connector interface {
	Connect(label string, creds *Credentials) (*Client, error)
	Close()
}

// GatewayConfig describes the Fabric network a FabricConnector connects to.
// DiscoveryAsLocalhost applies to the chain information queries; the gateway
// itself follows DiscoveryAsLocalhostEnv.
type GatewayConfig struct {
	ConnectionProfile    string
	Channel              string
	Chaincode            string
	DiscoveryAsLocalhost bool
}

type connection struct {
	gw      *gateway.Gateway
	certPEM []byte
	client  *Client
}

// FabricConnector opens one gateway connection per identity and reuses it
// for as long as the identity's certificate stays the same. Chain information
// is queried through a single SDK instance shared by all identities.
type FabricConnector struct {
	cfg   GatewayConfig
	opts  []ClientOption
	mutex sync.Mutex
	conns map[string]*connection
	sdk   *fabsdk.FabricSDK
	org   string
}

// NewFabricConnector returns a connector to the network described by cfg.
func NewFabricConnector(cfg GatewayConfig, opts ...ClientOption) *FabricConnector {
	return &FabricConnector{
		cfg:   cfg,
		opts:  opts,
		conns: make(map[string]*connection),
	}
}

// Connect returns a client acting as the identity stored under label.
func (fc *FabricConnector) Connect(label string, creds *Credentials) (*Client, error) {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	if conn, ok := fc.conns[label]; ok {
		if bytes.Equal(conn.certPEM, creds.CertPEM) {
			return conn.client, nil
		}
		conn.gw.Close()
		delete(fc.conns, label)
	}

	if err := fc.initSDK(); err != nil {
		return nil, err
	}

	info, err := newFabricInfo(fc.sdk, fc.org, fc.cfg.Channel, creds)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create chain information client for [%s]", label)
	}

	wallet := gateway.NewInMemoryWallet()
	if err := wallet.Put(label, gateway.NewX509Identity(creds.MSPID, string(creds.CertPEM), string(creds.KeyPEM))); err != nil {
		return nil, errors.WithMessage(err, "failed to stage identity")
	}

	gw, err := gateway.Connect(
		gateway.WithConfig(config.FromFile(fc.cfg.ConnectionProfile)),
		gateway.WithIdentity(wallet, label),
	)
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to connect to gateway as [%s]", label)
	}

	network, err := gw.GetNetwork(fc.cfg.Channel)
	if err != nil {
		gw.Close()
		return nil, errors.WithMessagef(err, "failed to get network [%s]", fc.cfg.Channel)
	}

	opts := append([]ClientOption{WithChainInfo(fc.cfg.Channel, info)}, fc.opts...)
	client, err := New(network.GetContract(fc.cfg.Chaincode), opts...)
	if err != nil {
		gw.Close()
		return nil, err
	}

	logger.Debugf("connected to channel [%s] chaincode [%s] as [%s]", fc.cfg.Channel, fc.cfg.Chaincode, label)

	fc.conns[label] = &connection{gw: gw, certPEM: creds.CertPEM, client: client}
	return client, nil
}

// Close closes every open gateway connection and the shared SDK.
func (fc *FabricConnector) Close() {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	for label, conn := range fc.conns {
		conn.gw.Close()
		delete(fc.conns, label)
	}

	if fc.sdk != nil {
		fc.sdk.Close()
		fc.sdk = nil
	}
}

func (fc *FabricConnector) initSDK() error {
	if fc.sdk != nil {
		return nil
	}

	sdk, err := fabsdk.New(profileConfig(fc.cfg.ConnectionProfile, fc.cfg.DiscoveryAsLocalhost))
	if err != nil {
		return errors.WithMessage(err, "failed to create SDK")
	}

	org, err := clientOrganization(sdk)
	if err != nil {
		sdk.Close()
		return err
	}

	fc.sdk = sdk
	fc.org = org
	return nil
}

// LocalConnector runs the chaincode in process against an in-memory ledger.
type LocalConnector struct {
	ledger *memledger.Ledger
	opts   []ClientOption
}

// NewLocalConnector returns a connector over l.
func NewLocalConnector(l *memledger.Ledger, opts ...ClientOption) *LocalConnector {
	return &LocalConnector{ledger: l, opts: opts}
}

// Connect returns a client whose transactions are attributed to the identity
// of creds, as a peer would derive it from the signed proposal.
func (lc *LocalConnector) Connect(label string, creds *Credentials) (*Client, error) {
	id, err := identity.FromPEM(creds.CertPEM)
	if err != nil {
		return nil, err
	}
	opts := append([]ClientOption{WithChainInfo(LocalChannel, &localInfo{ledger: lc.ledger})}, lc.opts...)
	return New(chaincode.NewLocalContract(lc.ledger, identity.Identity{MSPID: creds.MSPID, ID: id}), opts...)
}

// Close does nothing; the ledger lives as long as its owner keeps it.
func (lc *LocalConnector) Close() {}
