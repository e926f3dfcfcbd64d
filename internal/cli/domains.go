package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gapscan/internal/domain"
)

var domainsJSON bool

var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "List stored records grouped by cluster",
	Args:  cobra.NoArgs,
	RunE:  runDomains,
}

func init() {
	domainsCmd.Flags().BoolVar(&domainsJSON, "json", false, "output groups as JSON")
	rootCmd.AddCommand(domainsCmd)
}

func runDomains(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx, nil)
	if err != nil {
		return err
	}
	defer closeApp(a)

	groups, err := a.Service.Domains(ctx)
	if err != nil {
		return fmt.Errorf("listing domains: %w", err)
	}
	if domainsJSON {
		return printJSON(cmd, groups)
	}
	for _, g := range groups {
		label := fmt.Sprintf("Domain %d", g.Cluster)
		if g.Cluster == domain.NoiseCluster {
			label = "Noise"
		}
		cmd.Printf("%s (%d)\n", label, len(g.Records))
		for _, r := range g.Records {
			cmd.Printf("  [%s] %s\n", r.ID, r.Title)
		}
	}
	return nil
}
