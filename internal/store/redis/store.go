// Package redis keeps the corpus and the analysis run lock in Redis so several
// gapscan instances can share one corpus.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gapscan/internal/config"
	"gapscan/internal/domain"
)

var _ domain.CorpusStore = (*Store)(nil)

// DefaultKey is used when no key is configured.
const DefaultKey = "gapscan:corpus"

// NewClient creates a client from config and checks connectivity.
func NewClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Store implements domain.CorpusStore as one JSON document under a single key.
type Store struct {
	client *redis.Client
	key    string
}

// NewStore creates a new Redis-backed corpus store.
func NewStore(client *redis.Client, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Load returns the stored corpus, or an empty raw corpus if none is stored.
func (s *Store) Load(ctx context.Context) (domain.Corpus, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewCorpus(nil), nil
	}
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("failed to get corpus: %w", err)
	}
	var corpus domain.Corpus
	if err := json.Unmarshal(data, &corpus); err != nil {
		return domain.Corpus{}, fmt.Errorf("failed to unmarshal corpus: %w", err)
	}
	if corpus.Stage == "" {
		corpus.Stage = domain.StageRaw
	}
	return corpus, nil
}

// Save overwrites the stored corpus.
func (s *Store) Save(ctx context.Context, corpus domain.Corpus) error {
	data, err := json.Marshal(corpus)
	if err != nil {
		return fmt.Errorf("failed to marshal corpus: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save corpus: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
