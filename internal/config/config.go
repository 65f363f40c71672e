// Package config centralizes runtime configuration for the uni-chain
// dashboard. It loads a JSON configuration file and exposes defaults when
// the file is absent, so development runs work with zero setup. Production
// operators should place a JSON file at /etc/unichain/config.json or point
// CONFIG_FILE at another path.
package config

import (
	"encoding/json"
	"os"
)

// Config holds configurable options for the dashboard service.
type Config struct {
	NodeURL string `json:"node_url"` // websocket RPC endpoint of the ledger node
	KeyFile string `json:"key_file"` // account keypair path
	Port    int    `json:"port"`     // dashboard listen port
	DBFile  string `json:"db_file"`  // course snapshot database path
	DocsDir string `json:"docs_dir"` // asciidoc documentation directory
}

// LoadConfig reads a JSON file at path. If the file does not exist or
// cannot be parsed, LoadConfig returns defaults (and no error) so that the
// application can run in development with minimal friction.
func LoadConfig(path string) (*Config, error) {
	def := &Config{
		NodeURL: "ws://127.0.0.1:9944",
		KeyFile: "unichain_key.pem",
		Port:    8080,
		DBFile:  "courses.db",
		DocsDir: "internal/docs",
	}

	if path == "" {
		return def, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		// file missing or unreadable -> use defaults
		return def, nil
	}

	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		return def, nil
	}

	// merge defaults for any zero-value fields
	if c.NodeURL == "" {
		c.NodeURL = def.NodeURL
	}
	if c.KeyFile == "" {
		c.KeyFile = def.KeyFile
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.DBFile == "" {
		c.DBFile = def.DBFile
	}
	if c.DocsDir == "" {
		c.DocsDir = def.DocsDir
	}

	return &c, nil
}
