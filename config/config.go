package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Backend names the supported key-value store implementations.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
)

type Config struct {
	RPCAddress string `toml:"RPCAddress"`
	DataDir    string `toml:"DataDir"`
	Backend    string `toml:"Backend"`
	// GenesisOwner is the bech32 address bootstrapped as the stream owner on
	// first start. Ignored once an owner record exists.
	GenesisOwner string `toml:"GenesisOwner"`
	NetworkEnv   string `toml:"NetworkEnv"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./paystream-data"
	}
	if strings.TrimSpace(cfg.Backend) == "" {
		cfg.Backend = BackendLevelDB
	}
	if strings.TrimSpace(cfg.NetworkEnv) == "" {
		cfg.NetworkEnv = "local"
	}
}

func validate(cfg *Config) error {
	switch cfg.Backend {
	case BackendLevelDB, BackendBolt:
	default:
		return fmt.Errorf("config: unknown storage backend %q", cfg.Backend)
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
