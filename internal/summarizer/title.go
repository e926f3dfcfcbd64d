package summarizer

import (
	"fmt"
	"strings"

	"gapscan/internal/config"
	"gapscan/internal/domain"
)

var _ domain.Summarizer = (*TitleSummarizer)(nil)

// TitleSummarizer takes the first whitespace-separated words of the first member's title.
// It is a placeholder for real keyword extraction.
type TitleSummarizer struct {
	maxTerms int
}

func NewTitleSummarizer(maxTerms int) *TitleSummarizer {
	if maxTerms <= 0 {
		maxTerms = 3
	}
	return &TitleSummarizer{maxTerms: maxTerms}
}

func (s *TitleSummarizer) Summarize(members []domain.Record) []string {
	if len(members) == 0 {
		return []string{}
	}
	words := strings.Fields(members[0].Title)
	if len(words) > s.maxTerms {
		words = words[:s.maxTerms]
	}
	return words
}

// New builds the summarizer named by cfg.Type.
func New(cfg config.SummarizerConfig) (domain.Summarizer, error) {
	switch cfg.Type {
	case "title", "":
		return NewTitleSummarizer(cfg.MaxTerms), nil
	case "frequency":
		return NewFrequencySummarizer(cfg.MaxTerms), nil
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Type)
	}
}
