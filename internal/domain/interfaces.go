package domain

import (
	"context"
	"time"
)

// Normalizer turns raw text into a normalized token string. It never fails;
// malformed input may normalize to the empty string.
type Normalizer interface {
	Normalize(text string) string
}

// Embedder converts texts into numeric vectors, one per input, in input order.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Clusterer assigns a cluster label to each vector, in input order.
// NoiseCluster marks vectors that belong to no cluster.
type Clusterer interface {
	Name() string
	Cluster(ctx context.Context, vectors [][]float64) ([]int, error)
}

// GapPolicy derives the gap threshold from the non-noise cluster sizes.
// A cluster is a gap iff its size is at or below the threshold.
type GapPolicy interface {
	Name() string
	Threshold(sizes []int) int
}

// Summarizer picks representative terms for a cluster from its members, given in corpus order.
type Summarizer interface {
	Summarize(members []Record) []string
}

// CorpusStore holds the single current corpus.
type CorpusStore interface {
	Load(ctx context.Context) (Corpus, error)
	Save(ctx context.Context, corpus Corpus) error
}

// RunLock serializes corpus writes across processes.
// Extend renews a held lock and reports false once it is no longer owned.
type RunLock interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Extend(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

// AnalysisService defines the operations exposed by the application core.
type AnalysisService interface {
	Ingest(ctx context.Context, records []Record) (int, error)
	Analyze(ctx context.Context) (*Analysis, error)
	Domains(ctx context.Context) ([]ClusterGroup, error)
	Members(ctx context.Context, clusterID int) ([]Record, error)
}
