// Package service holds the application core: the analysis pipeline and the
// store-backed service the CLI and HTTP surfaces call into.
package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gapscan/internal/domain"
	"gapscan/internal/ingestion"
	"gapscan/internal/logger"
)

const runLockName = "analyze"

var errRunLockLost = errors.New("run lock lost before the corpus was saved")

// Recorder observes service activity. The metrics package provides the Prometheus implementation.
type Recorder interface {
	ObserveIngest(rows int)
	ObserveAnalysis(status string, elapsed time.Duration, analysis *domain.Analysis)
}

type nopRecorder struct{}

func (nopRecorder) ObserveIngest(int) {}

func (nopRecorder) ObserveAnalysis(string, time.Duration, *domain.Analysis) {}

// Options carries the optional collaborators of a Service.
type Options struct {
	Lock     domain.RunLock
	LockTTL  time.Duration
	Recorder Recorder
	Logger   *logger.Logger
}

// AnalysisService implements domain.AnalysisService over a CorpusStore.
type AnalysisService struct {
	mu       sync.Mutex
	store    domain.CorpusStore
	pipeline *Pipeline
	lock     domain.RunLock
	lockTTL  time.Duration
	recorder Recorder
	log      *logger.Logger
}

var _ domain.AnalysisService = (*AnalysisService)(nil)

func NewAnalysisService(store domain.CorpusStore, pipeline *Pipeline, opts Options) *AnalysisService {
	s := &AnalysisService{
		store:    store,
		pipeline: pipeline,
		lock:     opts.Lock,
		lockTTL:  opts.LockTTL,
		recorder: opts.Recorder,
		log:      opts.Logger,
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 10 * time.Minute
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	return s
}

// Ingest validates records and replaces the stored corpus with them.
// Derived columns from any earlier analysis are discarded. Ingest takes the
// same run lock as Analyze so an upload is never overwritten by a run that
// loaded the previous corpus.
func (s *AnalysisService) Ingest(ctx context.Context, records []domain.Record) (int, error) {
	if err := ingestion.Validate(records); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	corpus := domain.NewCorpus(records).Raw()
	err := s.withRunLock(ctx, func(ctx context.Context) error {
		return s.store.Save(ctx, corpus)
	})
	if err != nil {
		return 0, err
	}
	s.recorder.ObserveIngest(corpus.Len())
	s.log.Info("corpus ingested", "rows", corpus.Len())
	return corpus.Len(), nil
}

// Analyze runs the pipeline over the stored corpus and persists the labelled result.
func (s *AnalysisService) Analyze(ctx context.Context) (*domain.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	var analysis *domain.Analysis
	err := s.withRunLock(ctx, func(ctx context.Context) error {
		corpus, err := s.store.Load(ctx)
		if err != nil {
			return err
		}
		labelled, a, err := s.pipeline.Run(ctx, corpus)
		if err != nil {
			return err
		}
		if err := context.Cause(ctx); err != nil {
			return err
		}
		if err := s.store.Save(ctx, labelled); err != nil {
			return err
		}
		analysis = a
		return nil
	})
	if err != nil {
		s.recorder.ObserveAnalysis(statusOf(err), time.Since(start), nil)
		return nil, err
	}
	s.recorder.ObserveAnalysis("ok", time.Since(start), analysis)
	return analysis, nil
}

// withRunLock runs fn while holding the cross-process run lock, renewing it
// every third of its TTL. If a renewal finds the lock gone, fn's context is
// cancelled with errRunLockLost. Without a configured lock fn runs directly.
func (s *AnalysisService) withRunLock(ctx context.Context, fn func(context.Context) error) error {
	if s.lock == nil {
		return fn(ctx)
	}
	ok, err := s.lock.Acquire(ctx, runLockName, s.lockTTL)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrAnalysisInProgress
	}
	defer func() {
		if err := s.lock.Release(context.Background(), runLockName); err != nil {
			s.log.Warn("failed to release run lock", "error", err)
		}
	}()

	lockCtx, cancel := context.WithCancelCause(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.renewRunLock(lockCtx, cancel)
	}()
	err = fn(lockCtx)
	cancel(nil)
	<-done
	if err != nil && errors.Is(context.Cause(lockCtx), errRunLockLost) {
		return errRunLockLost
	}
	return err
}

func (s *AnalysisService) renewRunLock(ctx context.Context, cancel context.CancelCauseFunc) {
	ticker := time.NewTicker(max(s.lockTTL/3, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok, err := s.lock.Extend(ctx, runLockName, s.lockTTL)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.log.Warn("failed to extend run lock", "error", err)
				continue
			}
			if !ok {
				s.log.Error("run lock lost", "lock", runLockName)
				cancel(errRunLockLost)
				return
			}
		}
	}
}

// Domains returns the stored corpus grouped by cluster label, ascending, noise first.
func (s *AnalysisService) Domains(ctx context.Context) ([]domain.ClusterGroup, error) {
	corpus, err := s.clustered(ctx)
	if err != nil {
		return nil, err
	}
	byCluster := make(map[int][]domain.Record)
	for _, r := range corpus.Records {
		byCluster[r.Cluster] = append(byCluster[r.Cluster], r)
	}
	ids := make([]int, 0, len(byCluster))
	for id := range byCluster {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	groups := make([]domain.ClusterGroup, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, domain.ClusterGroup{Cluster: id, Records: byCluster[id]})
	}
	return groups, nil
}

// Members returns the records labelled clusterID, in corpus order.
func (s *AnalysisService) Members(ctx context.Context, clusterID int) ([]domain.Record, error) {
	corpus, err := s.clustered(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Record
	for _, r := range corpus.Records {
		if r.Cluster == clusterID {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out, nil
}

func (s *AnalysisService) clustered(ctx context.Context) (domain.Corpus, error) {
	corpus, err := s.store.Load(ctx)
	if err != nil {
		return domain.Corpus{}, err
	}
	if !corpus.Clustered() {
		return domain.Corpus{}, domain.ErrNotAnalyzed
	}
	return corpus, nil
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyCorpus):
		return "empty"
	case errors.Is(err, domain.ErrAnalysisInProgress):
		return "busy"
	case domain.IsUpstream(err):
		return "upstream_error"
	default:
		return "error"
	}
}
