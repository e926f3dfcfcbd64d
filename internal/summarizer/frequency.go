package summarizer

import (
	"regexp"
	"sort"
	"strings"

	"gapscan/internal/domain"
)

var _ domain.Summarizer = (*FrequencySummarizer)(nil)

// FrequencySummarizer ranks terms by how many members mention them (stopwords filtered),
// then by total frequency, then alphabetically.
type FrequencySummarizer struct {
	maxTerms     int
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based term ranker.
func NewFrequencySummarizer(maxTerms int) *FrequencySummarizer {
	if maxTerms <= 0 {
		maxTerms = 3
	}
	return &FrequencySummarizer{
		maxTerms:     maxTerms,
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Summarize returns the top terms of the members' cleaned abstracts,
// falling back to the raw abstract for members that were never normalized.
func (s *FrequencySummarizer) Summarize(members []domain.Record) []string {
	docFreq := map[string]int{}
	freq := map[string]int{}
	for _, m := range members {
		text := m.CleanedAbstract
		if text == "" {
			text = m.Abstract
		}
		seen := map[string]struct{}{}
		for _, tok := range s.tokens(text) {
			if _, ok := s.stopwords[tok]; ok {
				continue
			}
			freq[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docFreq[tok]++
			}
		}
	}
	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		a, b := terms[i], terms[j]
		if docFreq[a] != docFreq[b] {
			return docFreq[a] > docFreq[b]
		}
		if freq[a] != freq[b] {
			return freq[a] > freq[b]
		}
		return a < b
	})
	if len(terms) > s.maxTerms {
		terms = terms[:s.maxTerms]
	}
	return terms
}

func (s *FrequencySummarizer) tokens(text string) []string {
	lower := strings.ToLower(text)
	return s.tokenPattern.FindAllString(lower, -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
