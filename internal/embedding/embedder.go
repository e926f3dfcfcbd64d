// Package embedding selects the configured text embedder.
package embedding

import (
	"fmt"
	"time"

	"gapscan/internal/config"
	"gapscan/internal/domain"
	"gapscan/internal/embedding/openai"
	"gapscan/internal/embedding/tfidf"
)

// New builds the embedder named by cfg.Type.
func New(cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "tfidf", "":
		return tfidf.NewEmbedder(), nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		return openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			BatchSize:  cfg.OpenAI.BatchSize,
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}
