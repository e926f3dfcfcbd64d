package gap

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"gapscan/internal/config"
	"gapscan/internal/domain"
)

var (
	_ domain.GapPolicy = (*AdaptivePolicy)(nil)
	_ domain.GapPolicy = (*PercentilePolicy)(nil)
	_ domain.GapPolicy = (*ZScorePolicy)(nil)
)

// AdaptivePolicy sets the threshold to max(Min, floor(mean_size * Ratio)).
type AdaptivePolicy struct {
	Ratio float64
	Min   int
}

// NewAdaptivePolicy returns the default policy: ratio 0.3, floor 2.
func NewAdaptivePolicy() *AdaptivePolicy {
	return &AdaptivePolicy{Ratio: 0.3, Min: 2}
}

func (p *AdaptivePolicy) Name() string { return "adaptive" }

func (p *AdaptivePolicy) Threshold(sizes []int) int {
	if len(sizes) == 0 {
		return p.Min
	}
	mean := stat.Mean(toFloats(sizes), nil)
	return maxInt(p.Min, int(math.Floor(mean*p.Ratio)))
}

// PercentilePolicy sets the threshold to the nearest-rank Percentile of sizes, at least Min.
type PercentilePolicy struct {
	Percentile float64
	Min        int
}

func (p *PercentilePolicy) Name() string { return "percentile" }

func (p *PercentilePolicy) Threshold(sizes []int) int {
	if len(sizes) == 0 {
		return p.Min
	}
	sorted := append([]int(nil), sizes...)
	sort.Ints(sorted)
	rank := int(math.Ceil(p.Percentile / 100 * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return maxInt(p.Min, sorted[rank-1])
}

// ZScorePolicy sets the threshold Z sample standard deviations below the mean size, at least Min.
type ZScorePolicy struct {
	Z   float64
	Min int
}

func (p *ZScorePolicy) Name() string { return "zscore" }

func (p *ZScorePolicy) Threshold(sizes []int) int {
	if len(sizes) == 0 {
		return p.Min
	}
	xs := toFloats(sizes)
	mean := stat.Mean(xs, nil)
	std := 0.0
	if len(xs) > 1 {
		std = stat.StdDev(xs, nil)
	}
	return maxInt(p.Min, int(math.Floor(mean-p.Z*std)))
}

// NewPolicy builds the policy named by cfg.Policy.
func NewPolicy(cfg config.ScorerConfig) (domain.GapPolicy, error) {
	floor := cfg.MinThreshold
	if floor <= 0 {
		floor = 2
	}
	switch cfg.Policy {
	case "adaptive", "":
		ratio := cfg.Ratio
		if ratio <= 0 {
			ratio = 0.3
		}
		return &AdaptivePolicy{Ratio: ratio, Min: floor}, nil
	case "percentile":
		if cfg.Percentile <= 0 || cfg.Percentile > 100 {
			return nil, fmt.Errorf("percentile must be in (0, 100], got %v", cfg.Percentile)
		}
		return &PercentilePolicy{Percentile: cfg.Percentile, Min: floor}, nil
	case "zscore":
		if cfg.Z < 0 {
			return nil, fmt.Errorf("z must be non-negative, got %v", cfg.Z)
		}
		return &ZScorePolicy{Z: cfg.Z, Min: floor}, nil
	default:
		return nil, fmt.Errorf("unknown gap policy: %s", cfg.Policy)
	}
}

func toFloats(xs []int) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = float64(x)
	}
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
