// Package sqlite persists the corpus in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"gapscan/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS records (
	position         INTEGER PRIMARY KEY,
	id               TEXT NOT NULL UNIQUE,
	title            TEXT NOT NULL,
	abstract         TEXT NOT NULL,
	metadata         TEXT,
	cleaned_abstract TEXT,
	cluster          INTEGER
);
CREATE TABLE IF NOT EXISTS corpus_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Store is a CorpusStore backed by a single SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the stored corpus in insertion order.
func (s *Store) Load(ctx context.Context) (domain.Corpus, error) {
	corpus := domain.NewCorpus(nil)

	var stage string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM corpus_meta WHERE key = 'stage'`).Scan(&stage)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return domain.Corpus{}, fmt.Errorf("reading stage: %w", err)
	default:
		corpus.Stage = domain.Stage(stage)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, abstract, metadata, cleaned_abstract, cluster
		FROM records ORDER BY position`)
	if err != nil {
		return domain.Corpus{}, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r        domain.Record
			metadata sql.NullString
			cleaned  sql.NullString
			cluster  sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Abstract, &metadata, &cleaned, &cluster); err != nil {
			return domain.Corpus{}, fmt.Errorf("scanning record: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &r.Metadata); err != nil {
				return domain.Corpus{}, fmt.Errorf("decoding metadata for %s: %w", r.ID, err)
			}
		}
		r.CleanedAbstract = cleaned.String
		r.Cluster = int(cluster.Int64)
		corpus.Records = append(corpus.Records, r)
	}
	if err := rows.Err(); err != nil {
		return domain.Corpus{}, fmt.Errorf("iterating records: %w", err)
	}
	return corpus, nil
}

// Save replaces the stored corpus in one transaction.
func (s *Store) Save(ctx context.Context, corpus domain.Corpus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (position, id, title, abstract, metadata, cleaned_abstract, cluster)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	normalized := corpus.Stage == domain.StageNormalized || corpus.Stage == domain.StageClustered
	for i, r := range corpus.Records {
		var metadata, cleaned, cluster any
		if len(r.Metadata) > 0 {
			b, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
			}
			metadata = string(b)
		}
		if normalized {
			cleaned = r.CleanedAbstract
		}
		if corpus.Stage == domain.StageClustered {
			cluster = r.Cluster
		}
		if _, err := stmt.ExecContext(ctx, i, r.ID, r.Title, r.Abstract, metadata, cleaned, cluster); err != nil {
			return fmt.Errorf("inserting record %s: %w", r.ID, err)
		}
	}

	stage := corpus.Stage
	if stage == "" {
		stage = domain.StageRaw
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO corpus_meta (key, value) VALUES ('stage', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, string(stage)); err != nil {
		return fmt.Errorf("writing stage: %w", err)
	}
	return tx.Commit()
}
