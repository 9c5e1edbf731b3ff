package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobmatch/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	Long:  "Reads the config and prints a table of listing sources with their pacing.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath, setupLogger(debug))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-10s %-9s %-8s %-12s %-12s %s\n", "Source", "Status", "Proxies", "Detail", "Page", "Keyword")
	fmt.Println(strings.Repeat("─", 68))

	enabled, disabled := 0, 0
	for _, sc := range cfg.Sources {
		status := "enabled"
		if !sc.Enabled {
			status = "disabled"
			disabled++
		} else {
			enabled++
		}
		spec, _ := source.Lookup(sc.Name)
		pacing := spec.Pacing
		if sc.Pacing != nil {
			pacing = *sc.Pacing
		}
		fmt.Printf("%-10s %-9s %-8d %-12s %-12s %s\n", sc.Name, status, len(sc.Proxies),
			pacing.Detail, pacing.Page, pacing.Keyword)
	}

	fmt.Printf("\nTotal: %d sources (%d enabled, %d disabled)\n", len(cfg.Sources), enabled, disabled)
	return nil
}
