package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Provider names accepted by completion.provider.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

const secretService = "nori"

type Config struct {
	Server     ServerConfig
	Completion CompletionConfig
	Corpus     CorpusConfig
	Memory     MemoryConfig
	Policy     PolicyConfig
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CompletionConfig selects and configures the completion backend.
// Provider "openai" speaks the OpenAI-compatible chat completions protocol
// (Perplexity by default); "gemini" uses the Gemini API. An empty BaseURL
// or Model uses the provider default.
type CompletionConfig struct {
	Provider string
	BaseURL  string
	Model    string
	Timeout  string
	APIKey   string
}

// TimeoutDuration parses Timeout, falling back to 30s when it is unset.
func (c CompletionConfig) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(c.Timeout) == "" {
		return 30 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("completion.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("completion.timeout must be positive, got %s", c.Timeout)
	}
	return d, nil
}

type CorpusConfig struct {
	Path      string
	MaxTokens int
}

type MemoryConfig struct {
	MaxTurns int
}

type PolicyConfig struct {
	Path string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	dataDir := defaultDataDir()
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 5000,
		},
		Completion: CompletionConfig{
			Provider: ProviderOpenAI,
			Timeout:  "30s",
		},
		Corpus: CorpusConfig{
			Path:      filepath.Join(dataDir, "corpus.txt"),
			MaxTokens: 6000,
		},
		Memory: MemoryConfig{
			MaxTurns: 6,
		},
		Policy: PolicyConfig{
			Path: filepath.Join(dataDir, "policy.yaml"),
		},
		Storage: StorageConfig{
			DataDir: dataDir,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.inforens.nori) and the
// API key may live in the Keychain. Elsewhere the backend is a JSON file at
// $XDG_CONFIG_HOME/nori/config.json and the API key may live in
// $XDG_DATA_HOME/nori/secrets.json.
//
// Environment variables (NORI_*) override backend values on all platforms.
// Load does not require an API key; call Validate before serving.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Completion.APIKey == "" {
		if key, err := kc.Get(secretService, "completion_api_key"); err == nil && key != "" {
			cfg.Completion.APIKey = key
		}
	}

	return cfg, nil
}

// Validate reports configuration that would prevent the server from starting.
func (c Config) Validate() error {
	var errs []error
	switch c.Completion.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		errs = append(errs, fmt.Errorf("completion.provider must be %q or %q, got %q", ProviderOpenAI, ProviderGemini, c.Completion.Provider))
	}
	if c.Completion.APIKey == "" {
		errs = append(errs, fmt.Errorf("missing required config: completion API key. "+
			"Set it via environment variable NORI_COMPLETION_API_KEY%s", apiKeyHint()))
	}
	if _, err := c.Completion.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	return errors.Join(errs...)
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
