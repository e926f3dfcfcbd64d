// Package ingestion parses and validates uploaded record batches.
package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gapscan/internal/domain"
)

// RequiredColumns must be present in every uploaded CSV header.
var RequiredColumns = []string{"id", "title", "abstract"}

// CheckFilename rejects uploads that are not CSV files.
func CheckFilename(name string) error {
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		return &domain.ValidationError{Field: "file", Reason: "only CSV files accepted"}
	}
	return nil
}

// derivedColumns are recomputed by every analysis and never taken from uploads.
var derivedColumns = []string{"cleaned_abstract", "cluster"}

// ParseCSV reads records from r. Columns other than the required and derived
// ones are kept as metadata.
func ParseCSV(r io.Reader) ([]domain.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &domain.ValidationError{Reason: "empty file"}
	}
	if err != nil {
		return nil, &domain.ValidationError{Reason: fmt.Sprintf("malformed CSV header: %v", err)}
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		header[i] = h
		cols[h] = i
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.ValidationError{Field: "columns", Reason: "missing required columns: " + strings.Join(missing, ", ")}
	}

	var records []domain.Record
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, &domain.ValidationError{Reason: fmt.Sprintf("line %d: %v", line, err)}
		}
		get := func(name string) string {
			i := cols[name]
			if i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		rec := domain.Record{ID: get("id"), Title: get("title"), Abstract: get("abstract")}
		for i, h := range header {
			if isRequired(h) || isDerived(h) || h == "" || i >= len(row) || row[i] == "" {
				continue
			}
			if rec.Metadata == nil {
				rec.Metadata = map[string]string{}
			}
			rec.Metadata[h] = row[i]
		}
		records = append(records, rec)
	}
	if err := Validate(records); err != nil {
		return nil, err
	}
	return records, nil
}

// Validate checks that the batch is non-empty, every abstract is non-empty and ids are unique.
func Validate(records []domain.Record) error {
	if len(records) == 0 {
		return &domain.ValidationError{Reason: "no records"}
	}
	seen := make(map[string]int, len(records))
	for i, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("record %d has an empty id", i+1)}
		}
		if strings.TrimSpace(r.Abstract) == "" {
			return &domain.ValidationError{Field: "abstract", Reason: fmt.Sprintf("record %q has an empty abstract", r.ID)}
		}
		if j, dup := seen[r.ID]; dup {
			return &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("duplicate id %q (records %d and %d)", r.ID, j+1, i+1)}
		}
		seen[r.ID] = i
	}
	return nil
}

func isRequired(col string) bool {
	for _, c := range RequiredColumns {
		if c == col {
			return true
		}
	}
	return false
}

func isDerived(col string) bool {
	for _, c := range derivedColumns {
		if c == col {
			return true
		}
	}
	return false
}
