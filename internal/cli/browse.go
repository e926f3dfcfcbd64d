package cli

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"gapscan/internal/domain"
	"gapscan/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Analyze the stored corpus and browse domains interactively",
	Args:  cobra.NoArgs,
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, nil)
	if err != nil {
		return err
	}
	defer closeApp(a)

	analysis, err := a.Service.Analyze(ctx)
	if errors.Is(err, domain.ErrEmptyCorpus) {
		return fmt.Errorf("nothing to browse: run 'gapscan ingest <file.csv>' first")
	}
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	p := tea.NewProgram(tui.New(ctx, a.Service, analysis), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}
