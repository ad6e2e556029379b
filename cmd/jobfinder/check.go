package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfinder/internal/store"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch one page per source, print matches, exit",
	Long:  "One-shot check: fetches the first page of every enabled source into an in-memory store and prints what would be inserted. Nothing is persisted.",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	logger.Info("check mode: nothing will be persisted")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mem := store.NewMemoryStore(nil)
	for _, c := range buildCrawlers(cfg, mem, newHTTPClient(cfg), 1, logger) {
		if _, err := c.Crawl(ctx); err != nil {
			logger.Error("check failed", "source", c.Name(), "error", err)
		}
	}

	for _, j := range mem.Jobs() {
		deadline := "-"
		if j.EndAt != nil {
			deadline = j.EndAt.In(cfg.Location).Format(time.DateOnly)
		}
		fmt.Printf("[%s] %s / %s (~%s)\n    %s\n", j.Source, j.Company, j.Title, deadline, j.Detail)
	}
	logger.Info("check complete", "jobs", len(mem.Jobs()))
	return nil
}
