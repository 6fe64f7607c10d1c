package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Gemini  GeminiConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type GeminiConfig struct {
	BaseURL           string
	APIKey            string
	ImageModel        string
	TextModel         string
	RequestsPerMinute float64
}

type StorageConfig struct {
	DataDir string
	LimitMB int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Port: 4800,
		},
		Gemini: GeminiConfig{
			ImageModel:        "gemini-2.5-flash-image-preview",
			TextModel:         "gemini-2.5-flash",
			RequestsPerMinute: 30,
		},
		Storage: StorageConfig{
			DataDir: dataDir,
			LimitMB: 200,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, a local
// .env file, environment variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.bananafashion.studio)
// and secrets fall back to macOS Keychain.
// On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/studio/config.json and secrets must be provided via
// environment variables.
//
// Environment variables (STUDIO_*) override backend values on all
// platforms; a .env file in the working directory is loaded first and
// never overrides variables already set.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts Keychain access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try platform keychain for the API key if still empty.
	if cfg.Gemini.APIKey == "" {
		if key, err := kc.Get("studio", "gemini_api_key"); err == nil && key != "" {
			cfg.Gemini.APIKey = key
		}
	}

	if cfg.Gemini.APIKey == "" {
		msg := "missing required config: Gemini API key. " +
			"Set it via environment variable STUDIO_GEMINI_API_KEY" +
			apiKeyHint()
		return Config{}, fmt.Errorf("%s", msg)
	}

	return cfg, nil
}

// keychainReader reads from macOS Keychain via the security CLI.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainExec(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
