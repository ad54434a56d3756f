package config

import (
	"slices"
	"strings"
	"testing"
)

// memBackend is an in-memory ConfigBackend for tests.
type memBackend struct {
	strings map[string]string
	ints    map[string]int
}

func newMemBackend() *memBackend {
	return &memBackend{
		strings: make(map[string]string),
		ints:    make(map[string]int),
	}
}

func (m *memBackend) GetString(key string) (string, bool, error) {
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *memBackend) GetInt(key string) (int, bool, error) {
	v, ok := m.ints[key]
	return v, ok, nil
}

func (m *memBackend) SetString(key, val string) error {
	m.strings[key] = val
	return nil
}

func (m *memBackend) SetInt(key string, val int) error {
	m.ints[key] = val
	return nil
}

func (m *memBackend) Delete(key string) error {
	delete(m.strings, key)
	delete(m.ints, key)
	return nil
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}

	if cfg.Server.Port != 4000 {
		t.Errorf("port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Cache.ExpiryHours != 24 || cfg.Cache.MaxSize != 50 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Chat.Model != "deepseek-r1-distill-llama-70b" {
		t.Errorf("chat model = %q", cfg.Chat.Model)
	}
	if cfg.Screenshot.AccessKey != "" {
		t.Errorf("secret defaulted non-empty: %q", cfg.Screenshot.AccessKey)
	}
}

func TestLoadBackendOverridesDefaults(t *testing.T) {
	b := newMemBackend()
	b.ints["server.port"] = 9090
	b.strings["chat.model"] = "llama-3.3-70b-versatile"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Chat.Model != "llama-3.3-70b-versatile" {
		t.Errorf("model = %q", cfg.Chat.Model)
	}
}

func TestEnvOverridesBackend(t *testing.T) {
	b := newMemBackend()
	b.ints["server.port"] = 9090

	t.Setenv("SHOWCASE_SERVER_PORT", "5050")
	t.Setenv("SHOWCASE_CACHE_MAX_SIZE", "100")
	t.Setenv("SHOWCASE_CHAT_API_KEY", "env-secret")

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 5050 {
		t.Errorf("port = %d, want env override 5050", cfg.Server.Port)
	}
	if cfg.Cache.MaxSize != 100 {
		t.Errorf("max size = %d, want 100", cfg.Cache.MaxSize)
	}
	if cfg.Chat.APIKey != "env-secret" {
		t.Errorf("chat api key = %q, want the env value", cfg.Chat.APIKey)
	}
}

func TestEnvBadIntegerIgnored(t *testing.T) {
	t.Setenv("SHOWCASE_SERVER_PORT", "not-a-port")

	cfg, err := loadWith(newMemBackend())
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("port = %d, want the default when the env value is malformed", cfg.Server.Port)
	}
}

func TestSecretsNeverReadFromBackend(t *testing.T) {
	b := newMemBackend()
	b.strings["chat.api_key"] = "leaked"

	cfg, err := loadWith(b)
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Chat.APIKey != "" {
		t.Errorf("secret loaded from the file backend: %q", cfg.Chat.APIKey)
	}
}

func TestShowAllExcludesSecrets(t *testing.T) {
	cfg, _ := loadWith(newMemBackend())

	for _, info := range ShowAll(cfg) {
		if strings.Contains(info.Key, "key") || strings.Contains(info.Key, "token") {
			t.Errorf("ShowAll exposes secret key %q", info.Key)
		}
		if info.EnvVar == "" {
			t.Errorf("key %q has no env var", info.Key)
		}
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	keys := ValidKeys()
	if len(keys) == 0 {
		t.Fatal("no valid keys")
	}
	for _, secret := range []string{"server.api_token", "chat.api_key", "screenshot.access_key", "screenshot.secret_key", "uploads.service_key"} {
		if slices.Contains(keys, secret) {
			t.Errorf("ValidKeys contains secret %q", secret)
		}
	}
	if !slices.Contains(keys, "server.port") {
		t.Error("ValidKeys missing server.port")
	}
}
