package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gapscan/internal/config"
	"gapscan/internal/domain"
)

func TestTitleSummarizer(t *testing.T) {
	s := NewTitleSummarizer(3)
	members := []domain.Record{
		{Title: "  Graphene   anodes for fast charging"},
		{Title: "Other title entirely"},
	}
	assert.Equal(t, []string{"Graphene", "anodes", "for"}, s.Summarize(members))
	assert.Equal(t, []string{"Short"}, s.Summarize([]domain.Record{{Title: "Short"}}))
	assert.Equal(t, []string{}, s.Summarize([]domain.Record{{Title: "   "}}))
	assert.Equal(t, []string{}, s.Summarize(nil))
}

func TestFrequencySummarizer(t *testing.T) {
	s := NewFrequencySummarizer(2)
	members := []domain.Record{
		{CleanedAbstract: "graphene anode anode"},
		{CleanedAbstract: "graphene cathode"},
		{Abstract: "The graphene electrolyte"},
	}
	// graphene appears in all three members; anode has the higher raw count among the rest
	assert.Equal(t, []string{"graphene", "anode"}, s.Summarize(members))
}

func TestFrequencySummarizer_TieBreaksAlphabetically(t *testing.T) {
	s := NewFrequencySummarizer(3)
	members := []domain.Record{{CleanedAbstract: "zeta beta alpha"}}
	assert.Equal(t, []string{"alpha", "beta", "zeta"}, s.Summarize(members))
}

func TestNew(t *testing.T) {
	s, err := New(config.SummarizerConfig{Type: "frequency", MaxTerms: 1})
	require.NoError(t, err)
	assert.IsType(t, &FrequencySummarizer{}, s)

	s, err = New(config.SummarizerConfig{})
	require.NoError(t, err)
	assert.IsType(t, &TitleSummarizer{}, s)

	_, err = New(config.SummarizerConfig{Type: "llm"})
	assert.Error(t, err)
}
