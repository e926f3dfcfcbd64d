// Package csvfile persists the corpus as a single flat CSV file.
// The stage is implied by the columns: cleaned_abstract marks a normalized
// corpus and cluster a clustered one.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"gapscan/internal/domain"
)

const (
	colID       = "id"
	colTitle    = "title"
	colAbstract = "abstract"
	colCleaned  = "cleaned_abstract"
	colCluster  = "cluster"
)

type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load reads the corpus. A missing file is an empty raw corpus.
func (s *Store) Load(_ context.Context) (domain.Corpus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.NewCorpus(nil), nil
	}
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("open corpus file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("read corpus file: %w", err)
	}
	if len(rows) == 0 {
		return domain.NewCorpus(nil), nil
	}
	header := rows[0]
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, c := range []string{colID, colTitle, colAbstract} {
		if _, ok := idx[c]; !ok {
			return domain.Corpus{}, fmt.Errorf("corpus file %s: missing column %q", s.path, c)
		}
	}
	_, hasCleaned := idx[colCleaned]
	_, hasCluster := idx[colCluster]

	corpus := domain.NewCorpus(make([]domain.Record, 0, len(rows)-1))
	switch {
	case hasCleaned && hasCluster:
		corpus.Stage = domain.StageClustered
	case hasCleaned:
		corpus.Stage = domain.StageNormalized
	}
	for n, row := range rows[1:] {
		r := domain.Record{ID: row[idx[colID]], Title: row[idx[colTitle]], Abstract: row[idx[colAbstract]]}
		if hasCleaned {
			r.CleanedAbstract = row[idx[colCleaned]]
		}
		if corpus.Stage == domain.StageClustered {
			label, err := strconv.Atoi(row[idx[colCluster]])
			if err != nil {
				return domain.Corpus{}, fmt.Errorf("corpus file %s row %d: bad cluster label: %w", s.path, n+2, err)
			}
			r.Cluster = label
		}
		// Every metadata column is written for every record, so an empty
		// cell means the record never had that key.
		for i, h := range header {
			if reserved(h) || row[i] == "" {
				continue
			}
			if r.Metadata == nil {
				r.Metadata = map[string]string{}
			}
			r.Metadata[h] = row[i]
		}
		corpus.Records = append(corpus.Records, r)
	}
	return corpus, nil
}

// Save replaces the file atomically.
func (s *Store) Save(_ context.Context, corpus domain.Corpus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metaKeys := metadataKeys(corpus.Records)
	header := append([]string{colID, colTitle, colAbstract}, metaKeys...)
	normalized := corpus.Stage == domain.StageNormalized || corpus.Stage == domain.StageClustered
	if normalized {
		header = append(header, colCleaned)
	}
	if corpus.Stage == domain.StageClustered {
		header = append(header, colCluster)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create corpus dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".corpus-*.csv")
	if err != nil {
		return fmt.Errorf("create temp corpus file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return err
	}
	for _, r := range corpus.Records {
		row := []string{r.ID, r.Title, r.Abstract}
		for _, k := range metaKeys {
			row = append(row, r.Metadata[k])
		}
		if normalized {
			row = append(row, r.CleanedAbstract)
		}
		if corpus.Stage == domain.StageClustered {
			row = append(row, strconv.Itoa(r.Cluster))
		}
		if err := w.Write(row); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("write corpus file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *Store) Close() error { return nil }

func reserved(col string) bool {
	switch col {
	case colID, colTitle, colAbstract, colCleaned, colCluster:
		return true
	}
	return false
}

func metadataKeys(records []domain.Record) []string {
	seen := map[string]struct{}{}
	for _, r := range records {
		for k := range r.Metadata {
			if !reserved(k) {
				seen[k] = struct{}{}
			}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
