package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "milestonectl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestTemplateLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.toml")
	if err := WriteTemplate(path, "tracker", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, "tracker", false); err == nil {
		t.Fatalf("expected existing config to be kept")
	}

	cfg, err := LoadTrackerConfig(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.Addr != ":9300" || cfg.Cache.Backend != CacheMemory || cfg.Cache.TTL != 10*time.Minute {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Ledger.Donor != "0x0000000000000000000000000000000000000002" || len(cfg.Ledger.Vaults) != 1 {
		t.Fatalf("unexpected ledger config: %+v", cfg.Ledger)
	}
	if cfg.AuthToken != "" {
		t.Fatalf("template should leave writes open, got token %q", cfg.AuthToken)
	}
}

func TestLoadAuthToken(t *testing.T) {
	cfg, err := LoadTrackerConfig(writeConfig(t, `auth_token = "  operator  "`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuthToken != "operator" {
		t.Fatalf("expected trimmed token, got %q", cfg.AuthToken)
	}
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := LoadTrackerConfig(writeConfig(t, `
addr = ":9999"

[cache]
backend = "none"
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := DefaultTrackerConfig()
	if cfg.Name != def.Name || cfg.Addr != ":9999" || cfg.Cache.Backend != CacheNone {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Limits != def.Limits || cfg.Cache.TTL != def.Cache.TTL {
		t.Fatalf("defaults not kept: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"unknown backend": "[cache]\nbackend = \"memcached\"\n",
		"bad ttl":         "[cache]\nttl = \"soon\"\n",
		"short address":   "[ledger]\ndonor = \"0x02\"\n",
		"zero depth":      "[limits]\nmax_depth = 0\n",
		"empty addr":      "addr = \"  \"\n",
		"redis no addr":   "[cache]\nbackend = \"redis\"\nredis_addr = \"\"\n",
	}
	for name, body := range cases {
		if _, err := LoadTrackerConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadTrackerConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil ||
		!strings.Contains(err.Error(), "config load failed") {
		t.Fatalf("expected load failure, got %v", err)
	}
}

func TestTemplateKinds(t *testing.T) {
	if _, err := Template("relay"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}
