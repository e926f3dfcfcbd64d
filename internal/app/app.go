// Package app assembles the configured components into a ready service.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gapscan/internal/clustering"
	"gapscan/internal/config"
	"gapscan/internal/domain"
	"gapscan/internal/embedding"
	"gapscan/internal/gap"
	"gapscan/internal/logger"
	"gapscan/internal/metrics"
	"gapscan/internal/normalizer"
	"gapscan/internal/service"
	"gapscan/internal/store"
	"gapscan/internal/summarizer"
)

// App holds the wired components of one process.
type App struct {
	Config  *config.AppConfig
	Logger  *logger.Logger
	Metrics *metrics.Metrics
	Service *service.AnalysisService

	closers []func() error
}

// New builds every component selected by cfg. m may be nil.
func New(ctx context.Context, cfg *config.AppConfig, log *logger.Logger, m *metrics.Metrics) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Logger: log, Metrics: m}

	norm, err := NewNormalizer(cfg.Normalizer)
	if err != nil {
		return nil, err
	}
	emb, err := embedding.New(cfg.Embedder)
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	cl, err := clustering.New(cfg.Clusterer)
	if err != nil {
		return nil, fmt.Errorf("clusterer: %w", err)
	}
	policy, err := gap.NewPolicy(cfg.Scorer)
	if err != nil {
		return nil, fmt.Errorf("scorer: %w", err)
	}
	sum, err := summarizer.New(cfg.Summarizer)
	if err != nil {
		return nil, fmt.Errorf("summarizer: %w", err)
	}

	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	a.closers = append(a.closers, st.Close)

	lock, closeLock, err := store.NewRunLock(ctx, cfg.Lock, cfg.Store.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("lock: %w", err)
	}
	a.closers = append(a.closers, closeLock)

	pipeline := service.NewPipeline(norm, emb, cl, gap.NewScorer(policy, sum), log.With("component", "pipeline"))
	opts := service.Options{
		Lock:    lock,
		LockTTL: time.Duration(cfg.Lock.TTLSecs) * time.Second,
		Logger:  log.With("component", "service"),
	}
	if m != nil {
		opts.Recorder = m
	}
	a.Service = service.NewAnalysisService(st, pipeline, opts)

	log.Debug("components ready",
		"store", cfg.Store.Type,
		"lock", cfg.Lock.Type,
		"embedder", emb.Name(),
		"clusterer", cl.Name(),
		"policy", policy.Name(),
	)
	return a, nil
}

// NewNormalizer returns the normalizer selected by cfg.Type.
func NewNormalizer(cfg config.NormalizerConfig) (domain.Normalizer, error) {
	switch cfg.Type {
	case "", "snowball":
		return normalizer.New(cfg.Stem, cfg.ExtraStopwords...), nil
	case "plain":
		return normalizer.New(false, cfg.ExtraStopwords...), nil
	default:
		return nil, fmt.Errorf("unsupported normalizer type: %s", cfg.Type)
	}
}

// Close releases stores and lock clients in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
