/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package ledger

import (
	"github.com/golang/protobuf/proto"
	"github.com/hyperledger/fabric-docsecrets/pkg/ledger/memledger"
	"github.com/hyperledger/fabric-protos-go/common"
	sdkledger "github.com/hyperledger/fabric-sdk-go/pkg/client/ledger"
	mspclient "github.com/hyperledger/fabric-sdk-go/pkg/client/msp"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/core"
	"github.com/hyperledger/fabric-sdk-go/pkg/common/providers/msp"
	"github.com/hyperledger/fabric-sdk-go/pkg/core/config"
	"github.com/hyperledger/fabric-sdk-go/pkg/fabsdk"
	"github.com/pkg/errors"
)

// fabricInfo queries qscc through the SDK ledger client.
type fabricInfo struct {
	client *sdkledger.Client
}

// newFabricInfo returns a chain information querier for channel acting as
// the identity of creds.
func newFabricInfo(sdk *fabsdk.FabricSDK, org, channel string, creds *Credentials) (*fabricInfo, error) {
	mspClient, err := mspclient.New(sdk.Context(), mspclient.WithOrg(org))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create MSP client")
	}

	id, err := mspClient.CreateSigningIdentity(msp.WithCert(creds.CertPEM), msp.WithPrivateKey(creds.KeyPEM))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create signing identity")
	}

	client, err := sdkledger.New(sdk.ChannelContext(channel, fabsdk.WithIdentity(id), fabsdk.WithOrg(org)))
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create ledger client for channel [%s]", channel)
	}
	return &fabricInfo{client: client}, nil
}

func (q *fabricInfo) QueryChainInfo() ([]byte, error) {
	resp, err := q.client.QueryInfo()
	if err != nil {
		return nil, err
	}
	return proto.Marshal(resp.BCI)
}

// localInfo reports the commit sequence of a memledger.Ledger.
type localInfo struct {
	ledger *memledger.Ledger
}

func (q *localInfo) QueryChainInfo() ([]byte, error) {
	info := q.ledger.Info()
	return proto.Marshal(&common.BlockchainInfo{
		Height:            info.Height,
		CurrentBlockHash:  info.CurrentBlockHash,
		PreviousBlockHash: info.PreviousBlockHash,
	})
}

func clientOrganization(sdk *fabsdk.FabricSDK) (string, error) {
	cfg, err := sdk.Config()
	if err != nil {
		return "", errors.WithMessage(err, "unable to access SDK configuration")
	}

	value, ok := cfg.Lookup("client.organization")
	org, isString := value.(string)
	if !ok || !isString || org == "" {
		return "", errors.New("no client organization defined in the connection profile")
	}
	return org, nil
}

/*
profileConfig reads a connection profile and adds what a gateway adds to it:

entityMatchers:
  peer:
    - pattern: ([^:]+):(\\d+)
      urlSubstitutionExp: localhost:${2}
      sslTargetOverrideUrlSubstitutionExp: ${1}
      mappedHost: ${1}
  orderer: (same)

when asLocalhost is set, and a _default channel served by the client
organization's peers when the profile defines no channels.
*/
func profileConfig(profile string, asLocalhost bool) core.ConfigProvider {
	provider := config.FromFile(profile)

	return func() ([]core.ConfigBackend, error) {
		backends, err := provider()
		if err != nil {
			return nil, err
		}
		if len(backends) != 1 {
			return nil, errors.New("invalid connection profile")
		}

		backend := &profileBackend{ConfigBackend: backends[0]}
		if asLocalhost {
			backend.matchers = localhostMatchers()
		}
		if _, ok := backends[0].Lookup("channels"); !ok {
			backend.channels = defaultChannel(backends[0])
		}
		return []core.ConfigBackend{backend}, nil
	}
}

type profileBackend struct {
	core.ConfigBackend
	matchers map[string][]map[string]string
	channels map[string]map[string]map[string]map[string]bool
}

func (b *profileBackend) Lookup(key string) (interface{}, bool) {
	if key == "entityMatchers" && b.matchers != nil {
		return b.matchers, true
	}
	if key == "channels" && b.channels != nil {
		return b.channels, true
	}
	return b.ConfigBackend.Lookup(key)
}

func localhostMatchers() map[string][]map[string]string {
	mappings := []map[string]string{{
		"pattern":                             "([^:]+):(\\d+)",
		"urlSubstitutionExp":                  "localhost:${2}",
		"sslTargetOverrideUrlSubstitutionExp": "${1}",
		"mappedHost":                          "${1}",
	}}

	return map[string][]map[string]string{
		"peer":    mappings,
		"orderer": mappings,
	}
}

func defaultChannel(backend core.ConfigBackend) map[string]map[string]map[string]map[string]bool {
	value, ok := backend.Lookup("client.organization")
	org, isString := value.(string)
	if !ok || !isString {
		return nil
	}

	value, ok = backend.Lookup("organizations." + org + ".peers")
	if !ok {
		return nil
	}
	names, ok := value.([]interface{})
	if !ok {
		return nil
	}

	roles := map[string]bool{
		"endorsingPeer":  true,
		"chaincodeQuery": true,
		"ledgerQuery":    true,
		"eventSource":    true,
	}

	peers := make(map[string]map[string]bool, len(names))
	for _, name := range names {
		if s, ok := name.(string); ok {
			peers[s] = roles
		}
	}

	return map[string]map[string]map[string]map[string]bool{
		"_default": {"peers": peers},
	}
}
