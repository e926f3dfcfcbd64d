// Package memory keeps the corpus in process memory.
package memory

import (
	"context"
	"sync"

	"gapscan/internal/domain"
)

type Store struct {
	mu     sync.RWMutex
	corpus domain.Corpus
}

func NewStore() *Store {
	return &Store{corpus: domain.NewCorpus(nil)}
}

func (s *Store) Load(_ context.Context) (domain.Corpus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus.Clone(), nil
}

func (s *Store) Save(_ context.Context, corpus domain.Corpus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.corpus = corpus.Clone()
	return nil
}

func (s *Store) Close() error { return nil }
