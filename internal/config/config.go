// Package config loads the ledgerjack HCL configuration file.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete client configuration.
type Config struct {
	Network NetworkSettings
	Game    GameSettings
}

// NetworkSettings selects the ledger to play over. Prefix tags episode
// payloads; the routing bit-pattern is derived from it, so the two
// never drift apart.
type NetworkSettings struct {
	NodeURL string `hcl:"node_url,optional"`
	Prefix  uint32 `hcl:"prefix,optional"`
	Fee     uint64 `hcl:"fee,optional"`
}

// GameSettings carries default keys so they don't have to be passed on
// every invocation.
type GameSettings struct {
	PrivateKey  string `hcl:"private_key,optional"`
	OpponentKey string `hcl:"opponent_key,optional"`
}

// fileConfig is the on-disk schema; blocks are optional.
type fileConfig struct {
	Network *NetworkSettings `hcl:"network,block"`
	Game    *GameSettings    `hcl:"game,block"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Network: NetworkSettings{
			NodeURL: "ws://localhost:17210/feed",
			Prefix:  858598618,
			Fee:     5000,
		},
	}
}

// Load reads configuration from an HCL file, returning defaults when
// the file does not exist. Explicitly set fields override defaults;
// absent fields keep them.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %s", filename, diags.Error())
	}

	var loaded fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &loaded); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %s", filename, diags.Error())
	}

	if loaded.Network != nil {
		if loaded.Network.NodeURL != "" {
			cfg.Network.NodeURL = loaded.Network.NodeURL
		}
		if loaded.Network.Prefix != 0 {
			cfg.Network.Prefix = loaded.Network.Prefix
		}
		if loaded.Network.Fee != 0 {
			cfg.Network.Fee = loaded.Network.Fee
		}
	}
	if loaded.Game != nil {
		cfg.Game = *loaded.Game
	}
	return cfg, nil
}
