// Package dbscan implements density-based clustering over embedding vectors.
package dbscan

import (
	"context"
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"gapscan/internal/domain"
	"gapscan/internal/vectorstore"
	"gapscan/internal/vectorstore/memory"
)

var _ domain.Clusterer = (*Clusterer)(nil)

const unvisited = -2

// Config tunes the clusterer. Eps <= 0 means eps is estimated as the EpsQuantile
// of every point's distance to its (MinPoints-1)-th nearest neighbour.
type Config struct {
	MinPoints   int
	Eps         float64
	EpsQuantile float64
}

// Clusterer labels vectors with DBSCAN. Cluster ids are assigned in order of
// discovery, so identical input yields identical labels.
type Clusterer struct {
	cfg      Config
	newIndex func() vectorstore.Index
}

// New creates a clusterer backed by the in-memory vector index.
func New(cfg Config) *Clusterer {
	if cfg.MinPoints < 2 {
		cfg.MinPoints = 2
	}
	if cfg.EpsQuantile <= 0 || cfg.EpsQuantile > 1 {
		cfg.EpsQuantile = 0.5
	}
	return &Clusterer{cfg: cfg, newIndex: func() vectorstore.Index { return memory.NewStorage() }}
}

func (c *Clusterer) Name() string { return "dbscan" }

// Cluster returns one label per vector; domain.NoiseCluster marks noise.
func (c *Clusterer) Cluster(ctx context.Context, vectors [][]float64) ([]int, error) {
	n := len(vectors)
	labels := make([]int, n)
	if n == 0 {
		return labels, nil
	}
	idx := c.newIndex()
	if err := idx.Init(len(vectors[0])); err != nil {
		return nil, err
	}
	if err := idx.Upsert(vectors); err != nil {
		return nil, err
	}
	defer idx.Clear()

	eps := c.cfg.Eps
	if eps <= 0 {
		var ok bool
		eps, ok = estimateEps(idx, c.cfg.MinPoints-1, c.cfg.EpsQuantile)
		if !ok {
			for i := range labels {
				labels[i] = domain.NoiseCluster
			}
			return labels, nil
		}
	}

	for i := range labels {
		labels[i] = unvisited
	}
	cluster := 0
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if labels[i] != unvisited {
			continue
		}
		neighbours := idx.Within(i, eps)
		if len(neighbours) < c.cfg.MinPoints {
			labels[i] = domain.NoiseCluster
			continue
		}
		labels[i] = cluster
		queue := neighbours
		for q := 0; q < len(queue); q++ {
			j := queue[q]
			if labels[j] == domain.NoiseCluster {
				// border point
				labels[j] = cluster
				continue
			}
			if labels[j] != unvisited {
				continue
			}
			labels[j] = cluster
			if nb := idx.Within(j, eps); len(nb) >= c.cfg.MinPoints {
				queue = append(queue, nb...)
			}
		}
		cluster++
	}
	return labels, nil
}

// EstimateEps exposes the automatic eps for a vector set, for diagnostics.
func (c *Clusterer) EstimateEps(vectors [][]float64) (float64, error) {
	if len(vectors) == 0 {
		return 0, errors.New("no vectors")
	}
	idx := c.newIndex()
	if err := idx.Init(len(vectors[0])); err != nil {
		return 0, err
	}
	if err := idx.Upsert(vectors); err != nil {
		return 0, err
	}
	eps, ok := estimateEps(idx, c.cfg.MinPoints-1, c.cfg.EpsQuantile)
	if !ok {
		return 0, errors.New("not enough vectors to estimate eps")
	}
	return eps, nil
}

func estimateEps(idx vectorstore.Index, k int, quantile float64) (float64, bool) {
	dists := make([]float64, 0, idx.Len())
	for i := 0; i < idx.Len(); i++ {
		d := idx.KNearestDistance(i, k)
		if math.IsInf(d, 1) {
			continue
		}
		dists = append(dists, d)
	}
	if len(dists) == 0 {
		return 0, false
	}
	sort.Float64s(dists)
	return stat.Quantile(quantile, stat.Empirical, dists, nil), true
}
