package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Company.Name == "" {
		t.Fatalf("expected default company name")
	}
	if !cfg.Agent.AllowEnvSecret {
		t.Fatalf("expected env secret allowed by default")
	}
}

func TestFromYAML(t *testing.T) {
	cfg, err := FromYAML([]byte(`
company:
  name: Studio
agent:
  allow_env_secret: false
webhooks:
  - url: https://example.com/hook
    secret: s3cret
    severities: [Critical]
    timeout_seconds: 3
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Company.Name != "Studio" {
		t.Fatalf("unexpected company %q", cfg.Company.Name)
	}
	if cfg.Agent.AllowEnvSecret {
		t.Fatalf("expected env secret disabled")
	}
	if len(cfg.Webhooks) != 1 || cfg.Webhooks[0].TimeoutSeconds != 3 {
		t.Fatalf("unexpected webhooks %+v", cfg.Webhooks)
	}

	if _, err := FromYAML([]byte("company:\n  name: \"\"\n")); err == nil {
		t.Fatalf("expected missing company name to fail validation")
	}
	if _, err := FromYAML([]byte("company:\n  name: X\nwebhooks:\n  - url: \"\"\n")); err == nil {
		t.Fatalf("expected empty webhook url to fail validation")
	}
	if _, err := FromYAML([]byte("company:\n  name: X\nwebhooks:\n  - url: https://x\n    severities: [Loud]\n")); err == nil {
		t.Fatalf("expected unknown severity to fail validation")
	}
}

func TestLoadOptional(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatalf("load missing: %v", err)
	}
	if cfg.Company.Name != Default().Company.Name {
		t.Fatalf("expected defaults for missing file")
	}

	if err := os.WriteFile(filepath.Join(dir, "ventureos.yml"), []byte("company:\n  name: Written\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadOptional(dir)
	if err != nil {
		t.Fatalf("load written: %v", err)
	}
	if cfg.Company.Name != "Written" {
		t.Fatalf("expected written config, got %q", cfg.Company.Name)
	}
}

func TestLoadMissingMentionsInit(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "vos init") {
		t.Fatalf("expected init hint, got %v", err)
	}
}
