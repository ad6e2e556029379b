package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfinder/internal/adapter"
	"github.com/amishk599/jobfinder/internal/browse"
	"github.com/amishk599/jobfinder/internal/model"
	"github.com/amishk599/jobfinder/internal/normalize"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Browse a source's first page against the title filter (TUI)",
	Long:  "Shows the source picker, fetches the first page live, then launches the split-pane view of fetched versus filter-matched postings. Nothing is stored.",
	RunE:  runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	// Log output before the alt screen starts corrupts the display.
	logger := discardLogger()
	sources, _ := buildSources(cfg, newHTTPClient(cfg), logger)
	if len(sources) == 0 {
		fmt.Println("No enabled sources in config.")
		return nil
	}
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name()
	}

	normalizer := normalize.New(cfg.Location, nil)
	jobFilter := newTitleFilter(cfg)

	for {
		choice, err := browse.RunPicker("Filter Audit · Select a source", names)
		if err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if choice < 0 {
			return nil
		}
		src := sources[choice]

		jobs, err := browse.RunLoader("Fetching "+src.Name(), cfg.Crawl.HTTPTimeout*2, func(ctx context.Context) ([]model.Job, error) {
			return firstPage(ctx, src, normalizer)
		})
		if err != nil {
			fmt.Printf("Error fetching %s: %v\n", src.Name(), err)
			continue
		}

		var matched []model.Job
		for _, j := range jobs {
			if jobFilter.Match(j) {
				matched = append(matched, j)
			}
		}

		wantQuit, err := browse.Run(
			browse.Pane{Title: "Fetched", Jobs: jobs},
			browse.Pane{Title: "Matched", Jobs: matched},
			cfg.Location,
		)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
	}
}

// firstPage fetches and normalizes page 1 of src, ignoring its stop rule.
func firstPage(ctx context.Context, src adapter.Source, n *normalize.Normalizer) ([]model.Job, error) {
	records, err := src.FetchPage(ctx, 1)
	if err != nil {
		return nil, err
	}
	jobs := make([]model.Job, 0, len(records))
	for _, r := range records {
		jobs = append(jobs, n.Normalize(r, src.Name(), src.BaseURL()))
	}
	return jobs, nil
}

