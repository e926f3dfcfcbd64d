package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NormalizerConfig configures text normalization ahead of embedding.
type NormalizerConfig struct {
	Type           string   `yaml:"type"`
	Stem           bool     `yaml:"stem"`
	ExtraStopwords []string `yaml:"extra_stopwords,omitempty"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	MaxRetries  int    `yaml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// ClustererConfig configures density-based clustering.
// Eps of 0 means it is estimated from the data at EpsQuantile.
type ClustererConfig struct {
	Type        string  `yaml:"type"`
	MinPoints   int     `yaml:"min_points"`
	Eps         float64 `yaml:"eps"`
	EpsQuantile float64 `yaml:"eps_quantile"`
}

// ScorerConfig selects the gap policy.
type ScorerConfig struct {
	Policy       string  `yaml:"policy"`
	Ratio        float64 `yaml:"ratio"`
	MinThreshold int     `yaml:"min_threshold"`
	Percentile   float64 `yaml:"percentile"`
	Z            float64 `yaml:"z"`
}

// SummarizerConfig selects how representative terms are picked.
type SummarizerConfig struct {
	Type     string `yaml:"type"`
	MaxTerms int    `yaml:"max_terms"`
}

// SQLiteConfig locates the sqlite corpus database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig contains connection details for redis-backed store and lock.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Key      string `yaml:"key"`
}

// StoreConfig selects and configures the corpus store.
type StoreConfig struct {
	Type   string        `yaml:"type"`
	Path   string        `yaml:"path"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
	Redis  *RedisConfig  `yaml:"redis,omitempty"`
}

// LockConfig selects the cross-process analysis lock.
// A redis lock without its own Redis section reuses the store's.
type LockConfig struct {
	Type    string       `yaml:"type"`
	TTLSecs int          `yaml:"ttl_secs"`
	Redis   *RedisConfig `yaml:"redis,omitempty"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	MaxUploadMB int      `yaml:"max_upload_mb"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Log        LogConfig        `yaml:"log"`
	Normalizer NormalizerConfig `yaml:"normalizer"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Clusterer  ClustererConfig  `yaml:"clusterer"`
	Scorer     ScorerConfig     `yaml:"scorer"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Store      StoreConfig      `yaml:"store"`
	Lock       LockConfig       `yaml:"lock"`
	Server     ServerConfig     `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/gapscan/config.yaml.
// If neither exists, it writes defaults to ~/.config/gapscan/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gapscan", "config.yaml"), nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	return &AppConfig{
		Log:        LogConfig{Level: "info", Format: "console"},
		Normalizer: NormalizerConfig{Type: "snowball", Stem: true},
		Embedder:   EmbedderConfig{Type: "tfidf"},
		Clusterer:  ClustererConfig{Type: "dbscan", MinPoints: 2, EpsQuantile: 0.5},
		Scorer:     ScorerConfig{Policy: "adaptive", Ratio: 0.3, MinThreshold: 2, Percentile: 20, Z: 1},
		Summarizer: SummarizerConfig{Type: "title", MaxTerms: 3},
		Store:      StoreConfig{Type: "csv", Path: "data_store.csv"},
		Lock:       LockConfig{Type: "none", TTLSecs: 600},
		Server:     ServerConfig{Host: "127.0.0.1", Port: 8000, MaxUploadMB: 32, CORSOrigins: []string{"*"}},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Clusterer.MinPoints <= 0 {
		cfg.Clusterer.MinPoints = 2
	}
	if cfg.Clusterer.EpsQuantile <= 0 || cfg.Clusterer.EpsQuantile > 1 {
		cfg.Clusterer.EpsQuantile = 0.5
	}
	if cfg.Scorer.Ratio <= 0 {
		cfg.Scorer.Ratio = 0.3
	}
	if cfg.Scorer.MinThreshold <= 0 {
		cfg.Scorer.MinThreshold = 2
	}
	if cfg.Summarizer.MaxTerms <= 0 {
		cfg.Summarizer.MaxTerms = 3
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxUploadMB <= 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Lock.TTLSecs <= 0 {
		cfg.Lock.TTLSecs = 600
	}
	if cfg.Embedder.Type == "openai" && cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.Store.Type == "sqlite" && cfg.Store.SQLite == nil {
		cfg.Store.SQLite = &SQLiteConfig{Path: "gapscan.db"}
	}
	if cfg.Store.Redis != nil && cfg.Store.Redis.Key == "" {
		cfg.Store.Redis.Key = "gapscan:corpus"
	}
}
