package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gapscan/internal/ingestion"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file.csv]",
	Short: "Replace the stored corpus with records from a CSV file",
	Long: `Reads a CSV with at least id, title and abstract columns and replaces the
stored corpus with it. Any earlier analysis is discarded.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	if err := ingestion.CheckFilename(path); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := ingestion.ParseCSV(f)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := buildApp(ctx, nil)
	if err != nil {
		return err
	}
	defer closeApp(a)

	rows, err := a.Service.Ingest(ctx, records)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	cmd.Printf("Ingested %d rows\n", rows)
	return nil
}
