package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gapscan/internal/domain"
	"gapscan/internal/gap"
	"gapscan/internal/logger"
)

// Pipeline runs normalize, embed, cluster and score over one corpus.
type Pipeline struct {
	normalizer domain.Normalizer
	embedder   domain.Embedder
	clusterer  domain.Clusterer
	scorer     *gap.Scorer
	log        *logger.Logger
	now        func() time.Time
}

func NewPipeline(normalizer domain.Normalizer, embedder domain.Embedder, clusterer domain.Clusterer, scorer *gap.Scorer, log *logger.Logger) *Pipeline {
	if scorer == nil {
		scorer = gap.NewScorer(nil, nil)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{normalizer: normalizer, embedder: embedder, clusterer: clusterer, scorer: scorer, log: log, now: time.Now}
}

// Run analyses corpus and returns the clustered corpus alongside the analysis.
// The input corpus is never modified. Any derived columns it carries are recomputed.
func (p *Pipeline) Run(ctx context.Context, corpus domain.Corpus) (domain.Corpus, *domain.Analysis, error) {
	if corpus.Len() == 0 {
		return domain.Corpus{}, nil, domain.ErrEmptyCorpus
	}
	started := p.now()
	runID := uuid.NewString()
	log := p.log.With("run_id", runID, "records", corpus.Len())
	log.Info("analysis started", "embedder", p.embedder.Name(), "clusterer", p.clusterer.Name(), "policy", p.scorer.Policy())

	out := corpus.Raw()
	texts := make([]string, out.Len())
	for i := range out.Records {
		out.Records[i].CleanedAbstract = p.normalizer.Normalize(out.Records[i].Abstract)
		texts[i] = out.Records[i].CleanedAbstract
	}
	out.Stage = domain.StageNormalized
	log.Debug("normalized")

	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		log.Error("embedding failed", "error", err)
		return domain.Corpus{}, nil, &domain.UpstreamError{Stage: "embed", Err: err}
	}
	if len(vectors) != len(texts) {
		return domain.Corpus{}, nil, &domain.UpstreamError{Stage: "embed", Err: fmt.Errorf("%w: %d vectors for %d texts", domain.ErrLengthMismatch, len(vectors), len(texts))}
	}
	log.Debug("embedded", "dimension", dimension(vectors))

	labels, err := p.clusterer.Cluster(ctx, vectors)
	if err != nil {
		log.Error("clustering failed", "error", err)
		return domain.Corpus{}, nil, &domain.UpstreamError{Stage: "cluster", Err: err}
	}
	if len(labels) != len(vectors) {
		return domain.Corpus{}, nil, &domain.UpstreamError{Stage: "cluster", Err: fmt.Errorf("%w: %d labels for %d vectors", domain.ErrLengthMismatch, len(labels), len(vectors))}
	}
	for i := range out.Records {
		out.Records[i].Cluster = labels[i]
	}
	out.Stage = domain.StageClustered

	res, err := p.scorer.Evaluate(out)
	if err != nil {
		return domain.Corpus{}, nil, err
	}
	analysis := &domain.Analysis{
		RunID:          runID,
		Domains:        res.Insights,
		TotalProcessed: out.Len(),
		NoiseCount:     res.NoiseCount,
		GapThreshold:   res.Threshold,
		Policy:         res.Policy,
		StartedAt:      started.UTC(),
		Duration:       p.now().Sub(started),
	}
	log.Info("analysis finished",
		"domains", len(analysis.Domains),
		"gaps", len(analysis.Gaps()),
		"noise", analysis.NoiseCount,
		"threshold", analysis.GapThreshold,
		"duration", analysis.Duration,
	)
	return out, analysis, nil
}

func dimension(vectors [][]float64) int {
	if len(vectors) == 0 {
		return 0
	}
	return len(vectors[0])
}
