package config

type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Screenshot ScreenshotConfig
	Chat       ChatConfig
	Cache      CacheConfig
	Uploads    UploadsConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type StorageConfig struct {
	DataDir string
}

type ScreenshotConfig struct {
	BaseURL   string
	AccessKey string
	SecretKey string
}

type ChatConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type CacheConfig struct {
	ExpiryHours int
	MaxSize     int
}

type UploadsConfig struct {
	BaseURL    string
	Bucket     string
	ServiceKey string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Screenshot: ScreenshotConfig{
			BaseURL: "https://api.screenshotone.com/take",
		},
		Chat: ChatConfig{
			BaseURL: "https://api.groq.com/openai/v1",
			Model:   "deepseek-r1-distill-llama-70b",
		},
		Cache: CacheConfig{
			ExpiryHours: 24,
			MaxSize:     50,
		},
		Uploads: UploadsConfig{
			Bucket: "Websites Preview",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/showcase/config.json, then applies SHOWCASE_* environment
// overrides. Secrets (API keys) are never stored in the file and must come
// from the environment.
//
// All secrets are optional: without a screenshot access key the preview
// worker only probes iframe embeddability, and without a chat API key the
// chatbot serves canned responses.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
