package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfinder/internal/ingest"
	"github.com/amishk599/jobfinder/internal/model"
	"github.com/amishk599/jobfinder/internal/store"
)

var (
	crawlDryRun   bool
	crawlMaxPages int
	crawlSources  []string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one crawl cycle and exit",
	Long:  "Crawls every enabled source once, stores new postings, prints a per-source summary and exits.",
	RunE:  runCrawl,
}

func init() {
	crawlCmd.Flags().BoolVar(&crawlDryRun, "dry-run", false, "fetch and dedup but store nothing")
	crawlCmd.Flags().IntVar(&crawlMaxPages, "max-pages", 0, "cap every source's page budget (0 uses config)")
	crawlCmd.Flags().StringSliceVar(&crawlSources, "source", nil, "only crawl the named sources")
	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var jobStore model.JobStore
	if crawlDryRun {
		logger.Info("dry-run mode enabled, nothing will be stored")
		jobStore = store.NewNopStore()
	} else {
		st, err := openStore(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			return err
		}
		defer st.Close()
		jobStore = st
	}

	crawlers := selectCrawlers(buildCrawlers(cfg, jobStore, newHTTPClient(cfg), crawlMaxPages, logger), crawlSources)
	if len(crawlers) == 0 {
		return errors.New("no sources to crawl")
	}

	results, err := ingest.RunAll(ctx, crawlers, logger)
	printResults(results)
	if err != nil {
		logger.Error("crawl finished with errors", "error", err)
		return err
	}
	logger.Info("crawl complete")
	return nil
}

func selectCrawlers(all []*ingest.SourceCrawler, names []string) []*ingest.SourceCrawler {
	if len(names) == 0 {
		return all
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[strings.ToLower(strings.TrimSpace(n))] = true
	}
	var out []*ingest.SourceCrawler
	for _, c := range all {
		if want[c.Name()] {
			out = append(out, c)
		}
	}
	return out
}

func printResults(results []ingest.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tPAGES\tFETCHED\tFILTERED\tEXACT\tFUZZY\tINSERTED\tDURATION")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Source, r.Pages, r.Fetched, r.Filtered, r.ExactDupes, r.FuzzyDupes, r.Inserted, r.Duration.Round(time.Millisecond))
	}
	_ = w.Flush()
}
