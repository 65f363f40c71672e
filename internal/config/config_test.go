package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.NodeURL != "ws://127.0.0.1:9944" {
		t.Errorf("Unexpected default node URL: %s", cfg.NodeURL)
	}
	if cfg.Port != 8080 {
		t.Errorf("Unexpected default port: %d", cfg.Port)
	}
	if cfg.DBFile != "courses.db" {
		t.Errorf("Unexpected default db file: %s", cfg.DBFile)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Missing file should fall back to defaults, got error: %v", err)
	}
	if cfg.KeyFile != "unichain_key.pem" {
		t.Errorf("Expected default key file, got %s", cfg.KeyFile)
	}
}

func TestLoadConfig_MergesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"node_url":"ws://node.example:9944"}`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.NodeURL != "ws://node.example:9944" {
		t.Errorf("Configured node URL not honored: %s", cfg.NodeURL)
	}
	if cfg.Port != 8080 {
		t.Errorf("Zero-value port should merge to default, got %d", cfg.Port)
	}
}

func TestLoadConfig_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Bad JSON should fall back to defaults, got error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Expected defaults on parse failure, got port %d", cfg.Port)
	}
}
