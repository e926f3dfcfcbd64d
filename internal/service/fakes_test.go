package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gapscan/internal/domain"
)

type memStore struct {
	mu      sync.Mutex
	corpus  domain.Corpus
	saves   int
	loadErr error
}

func (m *memStore) Load(context.Context) (domain.Corpus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return domain.Corpus{}, m.loadErr
	}
	if m.corpus.Stage == "" {
		return domain.NewCorpus(nil), nil
	}
	return m.corpus.Clone(), nil
}

func (m *memStore) Save(_ context.Context, c domain.Corpus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corpus = c.Clone()
	m.saves++
	return nil
}

type lowerNormalizer struct{}

func (lowerNormalizer) Normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// vectorEmbedder returns a one-dimensional vector holding each text length.
type vectorEmbedder struct {
	err   error
	short bool
	calls int
}

func (e *vectorEmbedder) Name() string { return "fake" }

func (e *vectorEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float64, 0, len(texts))
	for _, t := range texts {
		out = append(out, []float64{float64(len(t))})
	}
	if e.short {
		return out[:len(out)-1], nil
	}
	return out, nil
}

// blockingEmbedder signals started and waits for release or cancellation.
type blockingEmbedder struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingEmbedder() *blockingEmbedder {
	return &blockingEmbedder{started: make(chan struct{}), release: make(chan struct{})}
}

func (e *blockingEmbedder) Name() string { return "blocking" }

func (e *blockingEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	close(e.started)
	select {
	case <-e.release:
	case <-ctx.Done():
		return nil, context.Cause(ctx)
	}
	return (&vectorEmbedder{}).Embed(ctx, texts)
}

// labelClusterer returns preset labels.
type labelClusterer struct {
	labels []int
	err    error
}

func (c *labelClusterer) Name() string { return "fake" }

func (c *labelClusterer) Cluster(_ context.Context, vectors [][]float64) ([]int, error) {
	if c.err != nil {
		return nil, c.err
	}
	return append([]int(nil), c.labels...), nil
}

// fakeLock is shared between services to stand in for one redis lock.
type fakeLock struct {
	mu       sync.Mutex
	held     bool
	err      error
	released int
	extended int
	lost     bool
}

func (l *fakeLock) Acquire(context.Context, string, time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *fakeLock) Extend(context.Context, string, time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lost || !l.held {
		return false, nil
	}
	l.extended++
	return true, nil
}

func (l *fakeLock) extensions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.extended
}

func (l *fakeLock) Release(context.Context, string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.released++
	return nil
}

type statusRecorder struct {
	mu       sync.Mutex
	statuses []string
	ingested int
}

func (r *statusRecorder) ObserveIngest(rows int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingested += rows
}

func (r *statusRecorder) ObserveAnalysis(status string, _ time.Duration, _ *domain.Analysis) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

var errBoom = errors.New("boom")

func records(n int) []domain.Record {
	out := make([]domain.Record, n)
	for i := range out {
		id := string(rune('a' + i))
		out[i] = domain.Record{ID: id, Title: "Title " + id + " more words", Abstract: "Abstract " + id}
	}
	return out
}
