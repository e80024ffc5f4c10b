package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const testYAML = `
http:
  port: 9090
store:
  addrs: ["${TEST_STORE_ADDR:-localhost:6379}"]
signal_service:
  api_key: "${TEST_SIGNAL_KEY}"
engine:
  owner: catalog.Product
  fields: [name, category.name]
  hash_fields: true
  hash_salt: "${TEST_SALT:-pepper}"
auth:
  api_keys: ["k1"]
`

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func writeTestConfig(t *testing.T, content string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config", "test.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
}

func TestLoad(t *testing.T) {
	writeTestConfig(t, testYAML)
	t.Setenv("TEST_SIGNAL_KEY", "secret-key")

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.HTTP.Port != 9090 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if len(cfg.Store.Addrs) != 1 || cfg.Store.Addrs[0] != "localhost:6379" {
		t.Errorf("addrs = %v, default substitution failed", cfg.Store.Addrs)
	}
	if cfg.Signal.APIKey != "secret-key" {
		t.Errorf("api key = %s, env substitution failed", cfg.Signal.APIKey)
	}
	if cfg.Engine.Owner != "catalog.Product" || !cfg.Engine.HashFields {
		t.Errorf("engine = %+v", cfg.Engine)
	}
	if cfg.Engine.Salt != "pepper" {
		t.Errorf("salt = %s", cfg.Engine.Salt)
	}
	if len(cfg.Auth.APIKeys) != 1 || cfg.Auth.APIKeys[0] != "k1" {
		t.Errorf("auth keys = %v", cfg.Auth.APIKeys)
	}

	// Defaults applied by Load.
	if cfg.HTTP.ReadTimeoutSec != 10 || cfg.Store.KeyPrefix != "signalrank:record:" {
		t.Errorf("defaults missing: %+v", cfg)
	}
	if cfg.Engine.DefaultSize != 8 || cfg.Engine.SearchSize != 24 {
		t.Errorf("engine size defaults missing: %+v", cfg.Engine)
	}
}

func TestLoadMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := Load("nope"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		HTTP:   HTTPConfig{Port: 8080},
		Store:  StoreConfig{Addrs: []string{"localhost:6379"}},
		Engine: EngineConfig{Owner: "x", Fields: []string{"name"}},
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"no store addrs", func(c *Config) { c.Store.Addrs = nil }, "store.addrs"},
		{"no owner", func(c *Config) { c.Engine.Owner = "" }, "engine.owner"},
		{"no fields", func(c *Config) { c.Engine.Fields = nil }, "engine.data_fields"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want mention of %s", err, tc.want)
			}
		})
	}
}

func TestSearchPaths(t *testing.T) {
	cfg := Config{Engine: EngineConfig{
		Fields: []string{"name", "category.name"},
		DataFields: map[string][]string{
			"buy":  {"name", "brand"},
			"like": {"brand", "color"},
		},
	}}

	got := cfg.SearchPaths()
	want := []string{"name", "category.name", "brand", "color"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SearchPaths = %v, want %v", got, want)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("EXPAND_A", "set")

	got := string(expandEnvVars([]byte("a: ${EXPAND_A}\nb: ${EXPAND_B:-fallback}\nc: ${EXPAND_C}")))
	want := "a: set\nb: fallback\nc: "
	if got != want {
		t.Errorf("expanded = %q, want %q", got, want)
	}
}
