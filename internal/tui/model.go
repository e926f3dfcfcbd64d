// Package tui is the interactive domain browser behind `gapscan browse`.
package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"gapscan/internal/domain"
)

// MembersPort is the TUI-facing subset of the analysis service.
type MembersPort interface {
	Members(ctx context.Context, clusterID int) ([]domain.Record, error)
}

// Model is the Bubble Tea model for the domain browser.
type Model struct {
	ctx      context.Context
	service  MembersPort
	analysis *domain.Analysis
	input    textinput.Model
	viewport viewport.Model
	visible  []domain.DomainInsight
	members  []domain.Record
	gapsOnly bool
	status   string
	cursor   int
	ready    bool
	filter   string
}

// New creates a browser over analysis. Members are fetched from service on selection.
func New(ctx context.Context, service MembersPort, analysis *domain.Analysis) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "Highlight term and press Enter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	m := Model{ctx: ctx, service: service, analysis: analysis, input: ti, viewport: vp}
	m.refreshVisible()
	m.loadMembers()
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, bh := detailBoxStyle.GetFrameSize()
		_, ih := inputBoxStyle.GetFrameSize()
		reserved := 2 + 1 + ih + 1 // header + summary, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-bh)
		m.viewport.SetContent(m.renderCurrentDomain())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			m.filter = strings.TrimSpace(m.input.Value())
			if m.filter == "" {
				m.status = "Highlight cleared"
			} else {
				m.status = fmt.Sprintf("Highlighting %q", m.filter)
			}
			m.viewport.SetContent(m.renderCurrentDomain())
			return m, nil
		case "ctrl+g":
			m.gapsOnly = !m.gapsOnly
			m.refreshVisible()
			m.cursor = 0
			m.loadMembers()
			m.viewport.SetContent(m.renderCurrentDomain())
			return m, nil
		case "down":
			if len(m.visible) > 0 {
				m.cursor = (m.cursor + 1) % len(m.visible)
				m.loadMembers()
				m.viewport.SetContent(m.renderCurrentDomain())
				m.viewport.GotoTop()
				return m, nil
			}
		case "up":
			if len(m.visible) > 0 {
				m.cursor = (m.cursor - 1 + len(m.visible)) % len(m.visible)
				m.loadMembers()
				m.viewport.SetContent(m.renderCurrentDomain())
				m.viewport.GotoTop()
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the layout and the selected domain.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("gapscan: research domains")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summaryLine())
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	detail := detailBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + detail + "\n" + input + "\n" + status
}

func (m Model) summaryLine() string {
	if m.analysis == nil {
		return "No analysis"
	}
	view := "all domains"
	if m.gapsOnly {
		view = "gaps only"
	}
	return fmt.Sprintf("%d records, %d domains, %d gaps, %d noise, threshold %d (%s) | %s | up/down, ctrl+g, esc",
		m.analysis.TotalProcessed, len(m.analysis.Domains), len(m.analysis.Gaps()),
		m.analysis.NoiseCount, m.analysis.GapThreshold, m.analysis.Policy, view)
}

func (m *Model) refreshVisible() {
	m.visible = nil
	if m.analysis == nil {
		return
	}
	for _, d := range m.analysis.Domains {
		if !m.gapsOnly || d.IsGap {
			m.visible = append(m.visible, d)
		}
	}
}

func (m *Model) loadMembers() {
	m.members = nil
	if len(m.visible) == 0 {
		m.status = "No domains to show"
		return
	}
	d := m.visible[m.cursor]
	members, err := m.service.Members(m.ctx, d.ClusterID)
	if err != nil {
		m.status = "Error: " + err.Error()
		return
	}
	m.members = members
	m.status = fmt.Sprintf("%s: %d members", d.Name, len(members))
}

func (m Model) renderCurrentDomain() string {
	if len(m.visible) == 0 {
		return "No domains."
	}
	d := m.visible[m.cursor]
	var b strings.Builder
	title := fmt.Sprintf("%s  (%d/%d)  size=%d  density=%.3f", d.Name, m.cursor+1, len(m.visible), d.Size, d.DensityScore)
	if d.IsGap {
		title += "  " + gapStyle.Render("GAP")
	}
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString("terms: " + strings.Join(d.RepresentativeTerms, ", "))
	b.WriteString("\n")
	for _, r := range m.members {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(r.Title))
		b.WriteString(" [" + r.ID + "]\n")
		b.WriteString(highlightBestSentence(r.Abstract, m.filter))
		b.WriteString("\n")
	}
	return b.String()
}

var (
	detailBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	gapStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// highlightBestSentence marks the sentence sharing most words with query.
// Sentences without any shared word are left plain.
func highlightBestSentence(text, query string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	sentences := splitSentences(text)
	qTokens := toTokenSet(query)
	bestIdx, bestScore := -1, 0
	if len(qTokens) > 0 {
		for i, s := range sentences {
			if score := tokenOverlapScore(qTokens, s); score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
	}
	for i := range sentences {
		sent := strings.TrimSpace(sentences[i])
		if i == bestIdx {
			sentences[i] = highlightStyle.Render(sent)
		} else {
			sentences[i] = sent
		}
	}
	return strings.Join(sentences, " ")
}

func splitSentences(text string) []string {
	var out []string
	end := 0
	for _, loc := range sentenceRe.FindAllStringIndex(text, -1) {
		out = append(out, text[loc[0]:loc[1]])
		end = loc[1]
	}
	if rest := strings.TrimSpace(text[end:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	tokens := unicodeWordRe.FindAllString(strings.ToLower(sentence), -1)
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
