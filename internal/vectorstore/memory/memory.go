package memory

import (
	"errors"
	"math"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"gapscan/internal/vectorstore"
)

var _ vectorstore.Index = (*Storage)(nil)

// Storage is a simple in-memory vector index using brute-force euclidean distance.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	return nil
}

func (s *Storage) Upsert(vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.vectors = append(s.vectors, vectors...)
	return nil
}

func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

// Within returns the positions of all vectors at distance <= radius from vector i,
// including i itself, in ascending position order.
func (s *Storage) Within(i int, radius float64) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.vectors) {
		return nil
	}
	var out []int
	for j := range s.vectors {
		if floats.Distance(s.vectors[i], s.vectors[j], 2) <= radius {
			out = append(out, j)
		}
	}
	return out
}

// KNearestDistance returns the distance from vector i to its k-th nearest other vector.
// It returns +Inf when fewer than k other vectors exist.
func (s *Storage) KNearestDistance(i, k int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i < 0 || i >= len(s.vectors) || k <= 0 || k >= len(s.vectors) {
		return math.Inf(1)
	}
	dists := make([]float64, 0, len(s.vectors)-1)
	for j := range s.vectors {
		if j == i {
			continue
		}
		dists = append(dists, floats.Distance(s.vectors[i], s.vectors[j], 2))
	}
	sort.Float64s(dists)
	return dists[k-1]
}

func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	return nil
}
