package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"tradevault/crypto"
)

// GenesisBalance seeds a fungible balance at first boot.
type GenesisBalance struct {
	Address string `toml:"Address"`
	Amount  string `toml:"Amount"`
}

// GenesisDeed seeds ownership of a unique item at first boot.
type GenesisDeed struct {
	Owner   string `toml:"Owner"`
	AssetID uint64 `toml:"AssetID"`
}

// Genesis describes the one-time bootstrap applied to an empty database: the
// administrative identity, the initial mediator allowlist and any seeded
// ledger entries.
type Genesis struct {
	Admin     string           `toml:"Admin"`
	Mediators []string         `toml:"Mediators"`
	Balances  []GenesisBalance `toml:"Balances"`
	Deeds     []GenesisDeed    `toml:"Deeds"`
}

type Config struct {
	RPCAddress  string  `toml:"RPCAddress"`
	OpsAddress  string  `toml:"OpsAddress"`
	DataDir     string  `toml:"DataDir"`
	NetworkName string  `toml:"NetworkName"`
	Genesis     Genesis `toml:"genesis"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8645"
	}
	if strings.TrimSpace(cfg.OpsAddress) == "" {
		cfg.OpsAddress = ":9645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./tradevault-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "tradevault-local"
	}
	if cfg.Genesis.Mediators == nil {
		cfg.Genesis.Mediators = []string{}
	}
}

// Validate checks that every genesis identity decodes as a bech32 address.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	if strings.TrimSpace(cfg.Genesis.Admin) != "" {
		if _, err := crypto.DecodeAddress(cfg.Genesis.Admin); err != nil {
			return fmt.Errorf("config: invalid genesis admin: %w", err)
		}
	}
	for _, mediator := range cfg.Genesis.Mediators {
		if _, err := crypto.DecodeAddress(mediator); err != nil {
			return fmt.Errorf("config: invalid genesis mediator %q: %w", mediator, err)
		}
	}
	for _, balance := range cfg.Genesis.Balances {
		if _, err := crypto.DecodeAddress(balance.Address); err != nil {
			return fmt.Errorf("config: invalid genesis balance address %q: %w", balance.Address, err)
		}
	}
	for _, d := range cfg.Genesis.Deeds {
		if _, err := crypto.DecodeAddress(d.Owner); err != nil {
			return fmt.Errorf("config: invalid genesis deed owner %q: %w", d.Owner, err)
		}
	}
	return nil
}

// createDefault creates and saves a default configuration file. The admin
// defaults to a freshly generated address so a dev node boots without edits.
// Actions authenticate by bearer token, so the key itself is discarded.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Genesis: Genesis{
			Admin:     key.PubKey().Address().String(),
			Mediators: []string{},
		},
	}
	applyDefaults(cfg)
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(cfg)
}
