package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
db_path: ./data/raddb.db
master_key_hex: abababababababababababababababababababababababababababababababab
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WebServer.Address != ":8080" {
		t.Fatalf("expected default web address, got %q", cfg.WebServer.Address)
	}
	if cfg.Security.PasswordPolicy.MinLength != 8 {
		t.Fatalf("expected default min_length 8, got %d", cfg.Security.PasswordPolicy.MinLength)
	}
}

func TestLoadRejectsMissingDBPath(t *testing.T) {
	path := writeConfig(t, `master_key_hex: abababababababababababababababababababababababababababababababab`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for missing db_path")
	}
}

func TestLoadRejectsUnimplementedAuditBackend(t *testing.T) {
	path := writeConfig(t, `
db_path: ./data/raddb.db
master_key_hex: abababababababababababababababababababababababababababababababab
security:
  audit:
    backend: KAFKA
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unimplemented audit backend")
	}
}
