package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gapscan/internal/domain"
)

var analyzeJSON bool

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Cluster the stored corpus and report research gaps",
	Args:  cobra.NoArgs,
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "output the analysis as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, nil)
	if err != nil {
		return err
	}
	defer closeApp(a)

	analysis, err := a.Service.Analyze(ctx)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	if analyzeJSON {
		return printJSON(cmd, analysis)
	}
	printAnalysis(cmd, analysis)
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printAnalysis(cmd *cobra.Command, a *domain.Analysis) {
	cmd.Printf("Run %s: %d records, %d noise, threshold %d (%s)\n",
		a.RunID, a.TotalProcessed, a.NoiseCount, a.GapThreshold, a.Policy)
	if len(a.Domains) == 0 {
		cmd.Println("No domains found.")
		return
	}
	cmd.Println()
	for _, d := range a.Domains {
		marker := " "
		if d.IsGap {
			marker = "*"
		}
		cmd.Printf("  %s %-12s size=%-4d density=%.3f  %s\n",
			marker, d.Name, d.Size, d.DensityScore, strings.Join(d.RepresentativeTerms, " "))
	}
	cmd.Println()
	cmd.Printf("%d of %d domains flagged as gaps (*)\n", len(a.Gaps()), len(a.Domains))
}
