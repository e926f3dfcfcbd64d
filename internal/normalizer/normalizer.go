// Package normalizer cleans abstracts ahead of embedding: lowercase, Unicode
// folding, punctuation and stopword removal, and stemming as a lemma stand-in.
package normalizer

import (
	"regexp"
	"strings"

	"github.com/kljensen/snowball/english"
	"golang.org/x/text/unicode/norm"

	"gapscan/internal/domain"
)

var _ domain.Normalizer = (*Normalizer)(nil)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`)

// Words lower-cases text and splits it into word tokens. Nothing is filtered.
func Words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Normalizer is a deterministic English text normalizer.
type Normalizer struct {
	stopwords map[string]struct{}
	stem      bool
}

// New creates a normalizer. extraStopwords extend the built-in English list.
func New(stem bool, extraStopwords ...string) *Normalizer {
	sw := Stopwords()
	for _, w := range extraStopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			sw[w] = struct{}{}
		}
	}
	return &Normalizer{stopwords: sw, stem: stem}
}

// Normalize returns the space-joined normalized tokens of text.
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// Tokens returns the normalized tokens of text in order.
func (n *Normalizer) Tokens(text string) []string {
	raw := Words(norm.NFKC.String(text))
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSuffix(strings.TrimSuffix(t, "'s"), "’s")
		if len([]rune(t)) < 2 {
			continue
		}
		if _, isStop := n.stopwords[t]; isStop {
			continue
		}
		if n.stem {
			t = english.Stem(t, false)
		}
		if t == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// IsStopword reports whether w is on the stopword list.
func (n *Normalizer) IsStopword(w string) bool {
	_, ok := n.stopwords[strings.ToLower(w)]
	return ok
}

// Stopwords returns a fresh copy of the built-in English stopword set.
func Stopwords() map[string]struct{} {
	words := []string{
		"a", "about", "above", "after", "again", "against", "ain", "all", "am", "an", "and", "any", "are", "aren", "as", "at",
		"be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
		"can", "couldn", "d", "did", "didn", "do", "does", "doesn", "doing", "don", "down", "during",
		"each", "few", "for", "from", "further", "had", "hadn", "has", "hasn", "have", "haven", "having", "he", "her", "here", "hers", "herself", "him", "himself", "his", "how",
		"i", "if", "in", "into", "is", "isn", "it", "its", "itself", "just", "ll", "m", "ma", "me", "mightn", "more", "most", "mustn", "my", "myself",
		"needn", "no", "nor", "not", "now", "o", "of", "off", "on", "once", "only", "or", "other", "our", "ours", "ourselves", "out", "over", "own",
		"re", "s", "same", "shan", "she", "should", "shouldn", "so", "some", "such", "t", "than", "that", "the", "their", "theirs", "them", "themselves", "then", "there", "these", "they", "this", "those", "through", "to", "too",
		"under", "until", "up", "ve", "very", "was", "wasn", "we", "were", "weren", "what", "when", "where", "which", "while", "who", "whom", "why", "will", "with", "won", "wouldn", "y", "you", "your", "yours", "yourself", "yourselves",
		"also", "however", "may", "might", "must", "would", "could", "shall", "using", "used", "via", "within", "without", "among", "upon",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
