package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfinder/internal/digest"
	"github.com/amishk599/jobfinder/internal/ingest"
	"github.com/amishk599/jobfinder/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the crawl and digest daemon",
	Long:  "Start the scheduler daemon; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	logger.Info("config loaded",
		"timezone", cfg.Location.String(),
		"crawl_schedule", cfg.Crawl.Schedule,
		"digest_schedule", cfg.Digest.Schedule,
		"sources", len(cfg.EnabledSources()),
		"title_keywords", len(cfg.Filters.TitleKeywords),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer st.Close()

	httpClient := newHTTPClient(cfg)
	crawlers := buildCrawlers(cfg, st, httpClient, 0, logger)
	if len(crawlers) == 0 {
		logger.Warn("no sources enabled, only the digest will run")
	}

	dispatcher := digest.NewDispatcher(st, st, setupMailer(cfg, httpClient, logger), logger,
		digest.WithLocation(cfg.Location),
		digest.WithWindow(cfg.Digest.Window),
	)

	tasks := []scheduler.Task{{
		Name: "digest",
		Spec: cfg.Digest.Schedule,
		Run: func(ctx context.Context) error {
			_, err := dispatcher.Run(ctx)
			return err
		},
	}}
	if len(crawlers) > 0 {
		tasks = append(tasks, scheduler.Task{
			Name:       "crawl",
			Spec:       cfg.Crawl.Schedule,
			RunOnStart: cfg.Crawl.RunOnStart,
			Run: func(ctx context.Context) error {
				_, err := ingest.RunAll(ctx, crawlers, logger)
				return err
			},
		})
	}

	sched := scheduler.New(cfg.Location, logger, tasks...)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		return err
	}

	logger.Info("goodbye")
	return nil
}
