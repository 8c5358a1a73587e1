/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package config

import (
	"bytes"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/hyperledger/fabric-sdk-go/pkg/common/logging"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var logModules = [...]string{"", "docsecrets/chaincode", "docsecrets/ledgerclient", "docsecrets/memledger",
	"docsecrets/pubkey", "docsecrets/retry", "docsecrets/secret", "docsecrets/server", "docsecrets/service",
	"docsecrets/cli"}

const (
	cmdRoot = "DOCSECRETS"

	// WalletFileSystem stores identities in a directory
	WalletFileSystem = "filesystem"
	// WalletMemory keeps identities for the lifetime of the process
	WalletMemory = "memory"
	// WalletVault stores identities in a Vault KV v2 engine
	WalletVault = "vault"

	// LedgerFabric connects to a Fabric network through the gateway
	LedgerFabric = "fabric"
	// LedgerMemory runs the chaincode in process on an in-memory ledger
	LedgerMemory = "memory"
)

// Config is the configuration of the docsecrets service.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Server  ServerConfig  `mapstructure:"server"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Wallet  WalletConfig  `mapstructure:"wallet"`
	Ledger  LedgerConfig  `mapstructure:"ledger"`
	Secrets SecretsConfig `mapstructure:"secrets"`
}

// LoggingConfig sets the log level of every module.
type LoggingConfig struct {
	Level logging.Level `mapstructure:"level"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	ListenAddress   string        `mapstructure:"listenAddress"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

// MetricsConfig configures the Prometheus listener.
type MetricsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ListenAddress string `mapstructure:"listenAddress"`
}

// WalletConfig selects the identity store.
type WalletConfig struct {
	Type  string      `mapstructure:"type"`
	Path  string      `mapstructure:"path"`
	Vault VaultConfig `mapstructure:"vault"`
}

// VaultConfig locates a Vault wallet.
type VaultConfig struct {
	Address string `mapstructure:"address"`
	Token   string `mapstructure:"token"`
	Mount   string `mapstructure:"mount"`
	Path    string `mapstructure:"path"`
}

// LedgerConfig selects and tunes the ledger connection.
type LedgerConfig struct {
	Type                 string        `mapstructure:"type"`
	ConnectionProfile    string        `mapstructure:"connectionProfile"`
	Channel              string        `mapstructure:"channel"`
	Chaincode            string        `mapstructure:"chaincode"`
	DiscoveryAsLocalhost bool          `mapstructure:"discoveryAsLocalhost"`
	SubmitTimeout        time.Duration `mapstructure:"submitTimeout"`
	EvaluateTimeout      time.Duration `mapstructure:"evaluateTimeout"`
	EvaluateAttempts     int           `mapstructure:"evaluateAttempts"`
	InitialBackoff       time.Duration `mapstructure:"initialBackoff"`
	MaxBackoff           time.Duration `mapstructure:"maxBackoff"`
}

// SecretsConfig holds the workflow switches.
type SecretsConfig struct {
	DefaultRecipientSelf bool `mapstructure:"defaultRecipientSelf"`
	VerifyKeySignatures  bool `mapstructure:"verifyKeySignatures"`
}

type options struct {
	envPrefix string
}

// Option configures the package.
type Option func(opts *options) error

// WithEnvPrefix defines the prefix for environment variable overrides.
// See viper SetEnvPrefix for more information.
func WithEnvPrefix(prefix string) Option {
	return func(opts *options) error {
		if prefix == "" {
			return errors.New("empty env prefix")
		}
		opts.envPrefix = prefix
		return nil
	}
}

// FromFile reads the named config file. Values missing from the file take
// their defaults and every value may be overridden from the environment.
func FromFile(name string, opts ...Option) (*Config, error) {
	if name == "" {
		return nil, errors.New("filename is required")
	}

	v, err := newViper(opts...)
	if err != nil {
		return nil, err
	}

	v.SetConfigFile(name)
	if err := v.MergeInConfig(); err != nil {
		return nil, errors.Wrapf(err, "loading config file failed: %s", name)
	}

	return load(v)
}

// FromReader loads configuration from in.
// configType can be "json" or "yaml".
func FromReader(in io.Reader, configType string, opts ...Option) (*Config, error) {
	if configType == "" {
		return nil, errors.New("empty config type")
	}

	v, err := newViper(opts...)
	if err != nil {
		return nil, err
	}

	// read config from bytes array, but must set ConfigType
	// for viper to properly unmarshal the bytes array
	v.SetConfigType(configType)
	if err := v.MergeConfig(in); err != nil {
		return nil, errors.Wrap(err, "loading config failed")
	}

	return load(v)
}

// FromRaw will initialize the configs from a byte array
func FromRaw(configBytes []byte, configType string, opts ...Option) (*Config, error) {
	return FromReader(bytes.NewBuffer(configBytes), configType, opts...)
}

// Default returns the configuration used when no file is given, with
// environment overrides applied.
func Default(opts ...Option) (*Config, error) {
	v, err := newViper(opts...)
	if err != nil {
		return nil, err
	}
	return load(v)
}

func newViper(opts ...Option) (*viper.Viper, error) {
	o := options{
		envPrefix: cmdRoot,
	}

	for _, option := range opts {
		err := option(&o)
		if err != nil {
			return nil, errors.WithMessage(err, "Error in options passed to create new config")
		}
	}

	myViper := viper.New()
	myViper.SetEnvPrefix(o.envPrefix)
	myViper.AutomaticEnv()
	replacer := strings.NewReplacer(".", "_")
	myViper.SetEnvKeyReplacer(replacer)

	setDefaults(myViper)

	return myViper, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")

	v.SetDefault("server.listenAddress", ":8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 60*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.listenAddress", ":9090")

	v.SetDefault("wallet.type", WalletFileSystem)
	v.SetDefault("wallet.path", "wallet")
	v.SetDefault("wallet.vault.address", "http://localhost:8200")
	v.SetDefault("wallet.vault.token", "")
	v.SetDefault("wallet.vault.mount", "secret")
	v.SetDefault("wallet.vault.path", "docsecrets/wallet")

	v.SetDefault("ledger.type", LedgerFabric)
	v.SetDefault("ledger.connectionProfile", "connection.yaml")
	v.SetDefault("ledger.channel", "mychannel")
	v.SetDefault("ledger.chaincode", "docsecrets")
	v.SetDefault("ledger.discoveryAsLocalhost", true)
	v.SetDefault("ledger.submitTimeout", 30*time.Second)
	v.SetDefault("ledger.evaluateTimeout", 10*time.Second)
	v.SetDefault("ledger.evaluateAttempts", 3)
	v.SetDefault("ledger.initialBackoff", 250*time.Millisecond)
	v.SetDefault("ledger.maxBackoff", 5*time.Second)

	v.SetDefault("secrets.defaultRecipientSelf", true)
	v.SetDefault("secrets.verifyKeySignatures", true)
}

func load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		logLevelHookFunc(),
	)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setLogLevel(cfg.Logging.Level)

	return cfg, nil
}

// Validate checks the values that have no sensible fallback.
func (c *Config) Validate() error {
	switch c.Wallet.Type {
	case WalletFileSystem:
		if c.Wallet.Path == "" {
			return errors.New("wallet.path is required for a filesystem wallet")
		}
	case WalletMemory:
	case WalletVault:
		if c.Wallet.Vault.Token == "" {
			return errors.New("wallet.vault.token is required for a vault wallet")
		}
	default:
		return errors.Errorf("unsupported wallet type: %s", c.Wallet.Type)
	}

	switch c.Ledger.Type {
	case LedgerFabric:
		if c.Ledger.ConnectionProfile == "" || c.Ledger.Channel == "" || c.Ledger.Chaincode == "" {
			return errors.New("ledger.connectionProfile, ledger.channel and ledger.chaincode are required for a fabric ledger")
		}
	case LedgerMemory:
	default:
		return errors.Errorf("unsupported ledger type: %s", c.Ledger.Type)
	}

	if c.Ledger.EvaluateAttempts < 0 {
		return errors.Errorf("invalid ledger.evaluateAttempts: %d", c.Ledger.EvaluateAttempts)
	}
	return nil
}

// logLevelHookFunc decodes level names such as "debug" into logging.Level.
func logLevelHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(logging.INFO) {
			return data, nil
		}
		level, err := logging.LogLevel(data.(string))
		if err != nil {
			return nil, errors.Wrap(err, "invalid log level")
		}
		return level, nil
	}
}

// setLogLevel will set the log level of the service
func setLogLevel(level logging.Level) {
	for _, logModule := range logModules {
		logging.SetLevel(logModule, level)
	}
}
