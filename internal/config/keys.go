package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "SHOWCASE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.api_token", typ: kString, env: "SHOWCASE_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "storage.data_dir", typ: kString, env: "SHOWCASE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "screenshot.base_url", typ: kString, env: "SHOWCASE_SCREENSHOT_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Screenshot.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Screenshot.BaseURL },
	},
	{
		key: "screenshot.access_key", typ: kString, env: "SHOWCASE_SCREENSHOT_ACCESS_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Screenshot.AccessKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Screenshot.AccessKey },
	},
	{
		key: "screenshot.secret_key", typ: kString, env: "SHOWCASE_SCREENSHOT_SECRET_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Screenshot.SecretKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Screenshot.SecretKey },
	},
	{
		key: "chat.api_key", typ: kString, env: "SHOWCASE_CHAT_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Chat.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.APIKey },
	},
	{
		key: "chat.base_url", typ: kString, env: "SHOWCASE_CHAT_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Chat.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.BaseURL },
	},
	{
		key: "chat.model", typ: kString, env: "SHOWCASE_CHAT_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Chat.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Chat.Model },
	},
	{
		key: "cache.expiry_hours", typ: kInt, env: "SHOWCASE_CACHE_EXPIRY_HOURS",
		apply:   func(cfg *Config, v any) { cfg.Cache.ExpiryHours = v.(int) },
		extract: func(cfg Config) any { return cfg.Cache.ExpiryHours },
	},
	{
		key: "cache.max_size", typ: kInt, env: "SHOWCASE_CACHE_MAX_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Cache.MaxSize = v.(int) },
		extract: func(cfg Config) any { return cfg.Cache.MaxSize },
	},
	{
		key: "uploads.base_url", typ: kString, env: "SHOWCASE_UPLOADS_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Uploads.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Uploads.BaseURL },
	},
	{
		key: "uploads.bucket", typ: kString, env: "SHOWCASE_UPLOADS_BUCKET",
		apply:   func(cfg *Config, v any) { cfg.Uploads.Bucket = v.(string) },
		extract: func(cfg Config) any { return cfg.Uploads.Bucket },
	},
	{
		key: "uploads.service_key", typ: kString, env: "SHOWCASE_UPLOADS_SERVICE_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Uploads.ServiceKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Uploads.ServiceKey },
	},
	{
		key: "log.level", typ: kString, env: "SHOWCASE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
