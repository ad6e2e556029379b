package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List all configured sources",
	Long:  "Reads the config and prints a table of all configured job boards.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return err
	}

	fmt.Printf("%-12s %-9s %-6s %-6s %-10s %s\n", "Source", "Status", "Pages", "Fuzzy", "Delay", "Query")
	fmt.Println(strings.Repeat("─", 60))

	enabled, disabled := 0, 0
	for _, s := range cfg.Crawl.Sources {
		status := "enabled"
		if !s.Enabled {
			status = "disabled"
			disabled++
		} else {
			enabled++
		}
		fmt.Printf("%-12s %-9s %-6d %-6t %-10s %s\n",
			s.Name, status, s.MaxPages, s.FuzzyDedup, cfg.RateLimit.MinDelayFor(s.Name), sourceQuery(s.Name, s.Keyword, s.DutyGroupIDs))
	}

	fmt.Printf("\nTotal: %d sources (%d enabled, %d disabled)\n", len(cfg.Crawl.Sources), enabled, disabled)
	return nil
}

func sourceQuery(name, keyword string, dutyGroups []string) string {
	switch name {
	case "saramin":
		return "keyword=" + keyword
	case "jasoseol":
		return "duty_groups=" + strings.Join(dutyGroups, ",")
	default:
		return "-"
	}
}
