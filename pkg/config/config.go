package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/blang/semver/v4"
	"github.com/nspcc-dev/evmdeploy/pkg/storage"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the configuration file used when no other is
	// specified.
	DefaultConfigFile = "./config/evmdeploy.yml"
	// DefaultArtifactsPath is the default directory with compiled contract
	// artifacts (Hardhat layout).
	DefaultArtifactsPath = "./artifacts"
	// DefaultLedgerPath is the default BoltDB ledger file.
	DefaultLedgerPath = "./deployments/ledger.db"
)

// Version is the version of the tool, set at build time.
var Version string

// ErrConfiguration is returned (wrapped) for any malformed or missing part of
// the configuration, including requests for networks that are not
// configured.
var ErrConfiguration = errors.New("configuration error")

// Config is the top level struct representing the configuration file.
type Config struct {
	// CompilerVersion is the Solidity compiler version all artifacts are
	// expected to be built with.
	CompilerVersion string `yaml:"CompilerVersion"`
	// Artifacts is the directory the compiled contract artifacts are
	// searched in.
	Artifacts string                  `yaml:"Artifacts"`
	Ledger    storage.DBConfiguration `yaml:"Ledger"`
	LogLevel  string                  `yaml:"LogLevel"`
	LogPath   string                  `yaml:"LogPath"`
	// Networks maps logical network names to their connection parameters.
	Networks map[string]Network `yaml:"Networks"`
	// Modules contains declarative deployment module definitions in
	// addition to the built-in ones.
	Modules []Module `yaml:"Modules"`
}

// LoadFile loads config from the provided path. It also applies defaults and
// validates the result.
func LoadFile(configPath string) (Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return Config{}, fmt.Errorf("%w: config '%s' doesn't exist", ErrConfiguration, configPath)
	}

	configData, err := os.ReadFile(configPath)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config: %w", err)
	}
	return FromBytes(configData)
}

// FromBytes decodes configuration from YAML, applying defaults first and
// validating the result.
func FromBytes(data []byte) (Config, error) {
	config := Config{
		Artifacts: DefaultArtifactsPath,
		Ledger: storage.DBConfiguration{
			Type: storage.BoltDB,
			BoltDBOptions: storage.BoltDBOptions{
				FilePath: DefaultLedgerPath,
			},
		},
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err := decoder.Decode(&config)
	if err != nil {
		return Config{}, fmt.Errorf("%w: failed to unmarshal config YAML: %v", ErrConfiguration, err)
	}

	err = config.Validate()
	if err != nil {
		return Config{}, err
	}
	return config, nil
}

// Validate checks Config for internal consistency.
func (c Config) Validate() error {
	if c.CompilerVersion == "" {
		return fmt.Errorf("%w: CompilerVersion is not set", ErrConfiguration)
	}
	if _, err := semver.Parse(c.CompilerVersion); err != nil {
		return fmt.Errorf("%w: invalid CompilerVersion %q: %v", ErrConfiguration, c.CompilerVersion, err)
	}
	if len(c.Networks) == 0 {
		return fmt.Errorf("%w: no networks configured", ErrConfiguration)
	}
	if _, err := NewRegistry(c.Networks); err != nil {
		return err
	}
	ids := make(map[string]struct{}, len(c.Modules))
	for i := range c.Modules {
		if err := c.Modules[i].Validate(); err != nil {
			return err
		}
		if _, ok := ids[c.Modules[i].ID]; ok {
			return fmt.Errorf("%w: duplicate module %q", ErrConfiguration, c.Modules[i].ID)
		}
		ids[c.Modules[i].ID] = struct{}{}
	}
	return nil
}

// Registry returns the network registry built from the configuration.
func (c Config) Registry() (*Registry, error) {
	return NewRegistry(c.Networks)
}
