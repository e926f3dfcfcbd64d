package tfidf

import (
	"context"
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"gapscan/internal/domain"
	"gapscan/internal/normalizer"
)

var _ domain.Embedder = (*Embedder)(nil)

var (
	errEmptyBatch  = errors.New("tfidf: empty batch")
	errNoTerms     = errors.New("tfidf: no terms left after stopword removal; every abstract is empty")
	errNotPrepared = errors.New("tfidf: embedder not prepared")
)

// Embedder is a TF-IDF vectorizer. Each Embed call refits the vocabulary on
// its batch, so the vectors of one run share a space.
type Embedder struct {
	stopwords  map[string]struct{}
	vocabulary map[string]int
	idf        []float64
}

// NewEmbedder creates an unprepared embedder using the normalizer's stopword set.
func NewEmbedder() *Embedder {
	return &Embedder{stopwords: normalizer.Stopwords()}
}

func (e *Embedder) Name() string { return "tfidf" }

// Embed fits the model on texts and returns one L2-normalized vector per text.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	docs, err := e.fit(texts)
	if err != nil {
		return nil, err
	}
	vectors := make([][]float64, len(docs))
	for i, terms := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.vector(terms)
	}
	return vectors, nil
}

// Prepare fits the vocabulary and IDF weights on corpus.
func (e *Embedder) Prepare(corpus []string) error {
	_, err := e.fit(corpus)
	return err
}

// Dimension is the vocabulary size of the last fit, or zero before one.
func (e *Embedder) Dimension() int { return len(e.idf) }

// EmbedOne vectorizes text against the fitted vocabulary. Unknown terms are ignored.
func (e *Embedder) EmbedOne(text string) ([]float64, error) {
	if e.vocabulary == nil {
		return nil, errNotPrepared
	}
	return e.vector(e.terms(text)), nil
}

// fit tokenizes each text once, then builds a sorted vocabulary with smoothed
// IDF weights ln((1+n)/(1+df)) + 1. It returns the per-text terms for reuse.
func (e *Embedder) fit(texts []string) ([][]string, error) {
	if len(texts) == 0 {
		return nil, errEmptyBatch
	}
	docs := make([][]string, len(texts))
	df := make(map[string]int)
	for i, text := range texts {
		docs[i] = e.terms(text)
		seen := make(map[string]bool, len(docs[i]))
		for _, t := range docs[i] {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}
	if len(df) == 0 {
		return nil, errNoTerms
	}

	vocab := make([]string, 0, len(df))
	for t := range df {
		vocab = append(vocab, t)
	}
	sort.Strings(vocab)

	n := float64(len(texts))
	e.vocabulary = make(map[string]int, len(vocab))
	e.idf = make([]float64, len(vocab))
	for i, t := range vocab {
		e.vocabulary[t] = i
		e.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	return docs, nil
}

func (e *Embedder) vector(terms []string) []float64 {
	vec := make([]float64, len(e.idf))
	known := 0
	for _, t := range terms {
		if i, ok := e.vocabulary[t]; ok {
			vec[i]++
			known++
		}
	}
	if known == 0 {
		return vec
	}
	for i := range vec {
		if vec[i] > 0 {
			vec[i] = vec[i] / float64(known) * e.idf[i]
		}
	}
	if l2 := floats.Norm(vec, 2); l2 > 0 {
		floats.Scale(1/l2, vec)
	}
	return vec
}

func (e *Embedder) terms(text string) []string {
	words := normalizer.Words(text)
	out := words[:0]
	for _, w := range words {
		if _, stop := e.stopwords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}
