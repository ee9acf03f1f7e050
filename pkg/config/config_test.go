package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nspcc-dev/evmdeploy/pkg/storage"
	"github.com/stretchr/testify/require"
)

const (
	testConfigPath = "./testdata/full.yml"
	localKey       = "0x8f2a55949038a9610f50fb23b5883af3b4ecb3c3bb792cbcefbd1542c692be63"
)

func TestLoadDefaultConfig(t *testing.T) {
	cfg, err := LoadFile(filepath.Join("..", "..", "config", "evmdeploy.yml"))
	require.NoError(t, err)
	require.Equal(t, "0.8.24", cfg.CompilerVersion)
	require.Equal(t, storage.BoltDB, cfg.Ledger.Type)

	r, err := cfg.Registry()
	require.NoError(t, err)
	require.Equal(t, []string{"local"}, r.Names())
	require.Equal(t, []string{"local"}, r.LiteralKeys())
}

func TestLoadFile(t *testing.T) {
	t.Setenv("EVMDEPLOY_TEST_STAGING_URL", "https://staging.example.com:8545/rpc")
	t.Setenv("EVMDEPLOY_TEST_STAGING_KEY", "0x01")

	cfg, err := LoadFile(testConfigPath)
	require.NoError(t, err)
	require.Equal(t, "./build/artifacts", cfg.Artifacts)
	require.Equal(t, storage.DBConfiguration{
		Type:           storage.LevelDB,
		LevelDBOptions: storage.LevelDBOptions{DataDirectoryPath: "./chains/ledger"},
	}, cfg.Ledger)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Len(t, cfg.Modules, 1)
	require.Equal(t, "Token", cfg.Modules[0].ID)
	require.Equal(t, []any{"Test Token", 1000, map[string]any{"Module": "MyNFT", "Output": "mynft"}}, cfg.Modules[0].Args)

	r, err := cfg.Registry()
	require.NoError(t, err)
	require.Equal(t, []string{"local", "staging"}, r.Names())
	require.Equal(t, []string{"local"}, r.LiteralKeys())

	p, err := r.Resolve("staging")
	require.NoError(t, err)
	require.Equal(t, NetworkProfile{
		Name:                "staging",
		URL:                 "https://staging.example.com:8545/rpc",
		ChainID:             0,
		Accounts:            []string{"0x01", "keystore:./keys/backup.json"},
		Timeout:             30 * time.Second,
		ConfirmationTimeout: 5 * time.Minute,
	}, p)
}

func TestLoadFileMissingEnv(t *testing.T) {
	_, err := LoadFile(testConfigPath)
	require.ErrorIs(t, err, ErrConfiguration)
	require.ErrorContains(t, err, "EVMDEPLOY_TEST_STAGING_URL")
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile("./testdata/nonexistent.yml")
	require.ErrorIs(t, err, ErrConfiguration)

	for name, data := range map[string]string{
		"unknown field":        "CompilerVersion: 0.8.24\nUnknown: 1\n",
		"no compiler version":  "Networks:\n  local:\n    URL: http://127.0.0.1:8545\n    ChainID: 1\n    Accounts: [\"0x01\"]\n",
		"bad compiler version": "CompilerVersion: '0.8'\nNetworks:\n  local:\n    URL: http://127.0.0.1:8545\n    ChainID: 1\n    Accounts: [\"0x01\"]\n",
		"no networks":          "CompilerVersion: 0.8.24\n",
		"bad URL":              "CompilerVersion: 0.8.24\nNetworks:\n  local:\n    URL: 127.0.0.1:8545\n    ChainID: 1\n    Accounts: [\"0x01\"]\n",
		"bad scheme":           "CompilerVersion: 0.8.24\nNetworks:\n  local:\n    URL: ftp://127.0.0.1\n    ChainID: 1\n    Accounts: [\"0x01\"]\n",
		"no chain id":          "CompilerVersion: 0.8.24\nNetworks:\n  local:\n    URL: http://127.0.0.1:8545\n    Accounts: [\"0x01\"]\n",
		"negative chain id":    "CompilerVersion: 0.8.24\nNetworks:\n  local:\n    URL: http://127.0.0.1:8545\n    ChainID: -1\n    Accounts: [\"0x01\"]\n",
		"no accounts":          "CompilerVersion: 0.8.24\nNetworks:\n  local:\n    URL: http://127.0.0.1:8545\n    ChainID: 1\n",
		"module without contract": "CompilerVersion: 0.8.24\nNetworks:\n  local:\n    URL: http://127.0.0.1:8545\n    ChainID: 1\n    Accounts: [\"0x01\"]\n" +
			"Modules:\n  - ID: Token\n",
		"duplicate module": "CompilerVersion: 0.8.24\nNetworks:\n  local:\n    URL: http://127.0.0.1:8545\n    ChainID: 1\n    Accounts: [\"0x01\"]\n" +
			"Modules:\n  - ID: Token\n    Contract: Token\n  - ID: Token\n    Contract: Token\n",
		"bad reference": "CompilerVersion: 0.8.24\nNetworks:\n  local:\n    URL: http://127.0.0.1:8545\n    ChainID: 1\n    Accounts: [\"0x01\"]\n" +
			"Modules:\n  - ID: Token\n    Contract: Token\n    Args:\n      - Module: MyNFT\n",
		"bad nested reference": "CompilerVersion: 0.8.24\nNetworks:\n  local:\n    URL: http://127.0.0.1:8545\n    ChainID: 1\n    Accounts: [\"0x01\"]\n" +
			"Modules:\n  - ID: Token\n    Contract: Token\n    Args:\n      - [0x01, [{Module: MyNFT}]]\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := FromBytes([]byte(data))
			require.ErrorIs(t, err, ErrConfiguration)
		})
	}
}

func TestFromBytesDefaults(t *testing.T) {
	cfg, err := FromBytes([]byte("CompilerVersion: 0.8.24\nNetworks:\n  local:\n    URL: http://127.0.0.1:8545\n    ChainID: 1\n    Accounts: [\"0x01\"]\n"))
	require.NoError(t, err)
	require.Equal(t, DefaultArtifactsPath, cfg.Artifacts)
	require.Equal(t, storage.BoltDB, cfg.Ledger.Type)
	require.Equal(t, DefaultLedgerPath, cfg.Ledger.BoltDBOptions.FilePath)
}

func TestModuleValidateNested(t *testing.T) {
	m := Module{ID: "Token", Contract: "Token", Args: []any{
		"Token",
		[]any{map[string]any{"Module": "MyNFT", "Output": "mynft"}, "0x01"},
	}}
	require.NoError(t, m.Validate())

	m.Args = append(m.Args, []any{[]any{map[string]any{"Output": "mynft"}}})
	err := m.Validate()
	require.ErrorIs(t, err, ErrConfiguration)
	require.ErrorContains(t, err, "argument #2: element #0: element #0: reference needs Module and Output only")
}
