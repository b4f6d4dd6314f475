// Package models defines data structures for configuration, page content,
// annotations and the message contract.
package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration.
// Values come from an optional YAML file, then the environment, then CLI flags.
type Config struct {
	ListenAddr string        `yaml:"listen_addr"`
	DBPath     string        `yaml:"db_path"`
	CacheDir   string        `yaml:"cache_dir"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
	Model      ModelConfig   `yaml:"model"`
}

// ModelConfig selects and configures the model backend.
type ModelConfig struct {
	// Provider is one of "auto", "genai", "ollama" or "none".
	Provider  string `yaml:"provider"`
	Name      string `yaml:"name"`
	APIKey    string `yaml:"api_key"`
	OllamaURL string `yaml:"ollama_url"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr: "127.0.0.1:8787",
		DBPath:     "news-insight.db",
		CacheDir:   ".news-insight-cache",
		CacheTTL:   24 * time.Hour,
		Model: ModelConfig{
			Provider:  "auto",
			OllamaURL: "http://localhost:11434",
		},
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
