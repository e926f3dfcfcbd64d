// Package gap turns a clustered corpus into domain insights and flags the
// clusters that are small relative to the rest of the corpus.
package gap

import (
	"fmt"

	"gapscan/internal/domain"
	"gapscan/internal/summarizer"
)

// Result is a scoring pass with the figures that produced it.
type Result struct {
	Insights   []domain.DomainInsight
	Threshold  int
	NoiseCount int
	Policy     string
}

// Scorer computes per-cluster size and density and applies a gap policy.
// It reads the corpus and never modifies it.
type Scorer struct {
	policy     domain.GapPolicy
	summarizer domain.Summarizer
}

// NewScorer creates a scorer. Nil arguments fall back to the adaptive policy
// and the title summarizer.
func NewScorer(policy domain.GapPolicy, sum domain.Summarizer) *Scorer {
	if policy == nil {
		policy = NewAdaptivePolicy()
	}
	if sum == nil {
		sum = summarizer.NewTitleSummarizer(3)
	}
	return &Scorer{policy: policy, summarizer: sum}
}

// Policy returns the name of the active gap policy.
func (s *Scorer) Policy() string { return s.policy.Name() }

// Score returns one insight per non-noise cluster, in order of first appearance.
func (s *Scorer) Score(corpus domain.Corpus) ([]domain.DomainInsight, error) {
	res, err := s.Evaluate(corpus)
	if err != nil {
		return nil, err
	}
	return res.Insights, nil
}

// Evaluate scores the corpus and reports the threshold and noise count alongside.
func (s *Scorer) Evaluate(corpus domain.Corpus) (*Result, error) {
	total := corpus.Len()
	if total == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if !corpus.Clustered() {
		return nil, fmt.Errorf("%w: stage %q", domain.ErrNotClustered, corpus.Stage)
	}

	var order []int
	members := map[int][]domain.Record{}
	noise := 0
	for _, r := range corpus.Records {
		if r.Cluster == domain.NoiseCluster {
			noise++
			continue
		}
		if r.Cluster < 0 {
			return nil, fmt.Errorf("record %q: invalid cluster label %d", r.ID, r.Cluster)
		}
		if _, ok := members[r.Cluster]; !ok {
			order = append(order, r.Cluster)
		}
		members[r.Cluster] = append(members[r.Cluster], r)
	}

	sizes := make([]int, len(order))
	for i, c := range order {
		sizes[i] = len(members[c])
	}
	threshold := s.policy.Threshold(sizes)

	insights := make([]domain.DomainInsight, 0, len(order))
	for i, c := range order {
		terms := s.summarizer.Summarize(members[c])
		if terms == nil {
			terms = []string{}
		}
		insights = append(insights, domain.DomainInsight{
			ClusterID:           c,
			Name:                fmt.Sprintf("Domain %d", c),
			Size:                sizes[i],
			DensityScore:        float64(sizes[i]) / float64(total),
			IsGap:               sizes[i] <= threshold,
			RepresentativeTerms: terms,
		})
	}
	return &Result{Insights: insights, Threshold: threshold, NoiseCount: noise, Policy: s.policy.Name()}, nil
}
