package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfinder/internal/adapter"
	"github.com/amishk599/jobfinder/internal/config"
	"github.com/amishk599/jobfinder/internal/dedup"
	"github.com/amishk599/jobfinder/internal/filter"
	"github.com/amishk599/jobfinder/internal/ingest"
	"github.com/amishk599/jobfinder/internal/lock"
	"github.com/amishk599/jobfinder/internal/mailer"
	"github.com/amishk599/jobfinder/internal/model"
	"github.com/amishk599/jobfinder/internal/normalize"
	"github.com/amishk599/jobfinder/internal/ratelimit"
	"github.com/amishk599/jobfinder/internal/retry"
	"github.com/amishk599/jobfinder/internal/store"
	"github.com/amishk599/jobfinder/internal/subscription"
)

var (
	cfgPath string
	envPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:          "jobfinder",
	Short:        "Job board aggregator with keyword digests",
	Long:         "jobfinder crawls Korean job boards into one deduplicated store and mails subscribers a daily digest of postings matching their keyword.",
	SilenceUsage: true,
	// Default to `start` so that `jobfinder` with no args runs the daemon.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBFINDER_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envPath, "env-file", ".env", "dotenv file loaded before the config is parsed")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBFINDER_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadEnvFile(envPath); err != nil {
		return nil, err
	}
	if path == "" {
		if env := os.Getenv("JOBFINDER_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

// discardLogger is used by the TUI commands; log output before the alt
// screen starts corrupts the display.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Crawl.HTTPTimeout}
}

func retryPolicy(rc config.RetryConfig) retry.Policy {
	return retry.Policy{MaxRetries: rc.MaxRetries, BaseDelay: rc.BaseDelay}
}

// appStore is the combined job and user store behind the configured driver.
type appStore interface {
	model.JobStore
	model.UserStore
	Close() error
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (appStore, error) {
	switch cfg.Database.Driver {
	case "postgres":
		s, err := store.NewPostgresStore(ctx, store.PostgresConfig{
			DSN:             cfg.Database.DSN,
			MaxConns:        cfg.Database.MaxConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			DialTimeout:     cfg.Crawl.HTTPTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		logger.Debug("using postgres store")
		return s, nil
	default:
		s, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		logger.Debug("using sqlite store", "path", cfg.Database.Path)
		return s, nil
	}
}

func setupMailer(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.MailSender {
	var primary model.MailSender
	switch cfg.Mail.Type {
	case "sendgrid":
		logger.Info("using sendgrid mailer", "from", cfg.Mail.FromAddress)
		primary = mailer.NewSendGridSender(mailer.SendGridConfig{
			APIKey:      cfg.Mail.APIKey,
			FromName:    cfg.Mail.FromName,
			FromAddress: cfg.Mail.FromAddress,
		}, logger)
	default:
		primary = mailer.NewLogSender(logger)
	}
	primary = mailer.NewRetrySender(primary, retryPolicy(cfg.Mail.Retry), logger)

	if cfg.Mail.SlackWebhookURL == "" {
		return primary
	}
	logger.Info("mirroring mail to slack")
	return mailer.NewTeeSender(logger, primary, mailer.NewSlackSender(cfg.Mail.SlackWebhookURL, httpClient, logger))
}

// setupLocker returns the per-email locker and a func that releases its
// resources.
func setupLocker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (lock.Locker, func(), error) {
	lc := cfg.Verification.Lock
	if lc.Type != "redis" {
		return lock.NewLocalLocker(), func() {}, nil
	}
	client, err := lock.NewRedisClient(ctx, lc.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("using redis locker", "ttl", lc.TTL)
	return lock.NewRedisLocker(client, lc.TTL), func() { _ = client.Close() }, nil
}

func newSubscriptionService(cfg *config.Config, users model.UserStore, mail model.MailSender, locker lock.Locker, logger *slog.Logger) *subscription.Service {
	return subscription.NewService(users, mail, logger,
		subscription.WithLocker(locker),
		subscription.WithCodeLength(cfg.Verification.CodeLength),
		subscription.WithCodeTTL(cfg.Verification.CodeTTL),
	)
}

func createSource(sc config.SourceConfig, httpClient *http.Client, logger *slog.Logger) (adapter.Source, bool) {
	switch sc.Name {
	case "jasoseol":
		return adapter.NewJasoseolAdapter(sc.DutyGroupIDs, httpClient), true
	case "saramin":
		return adapter.NewSaraminAdapter(sc.Keyword, httpClient), true
	case "linkareer":
		return adapter.NewLinkareerAdapter(sc.PageSize, httpClient), true
	default:
		logger.Warn("unsupported source, skipping", "source", sc.Name)
		return nil, false
	}
}

// buildSources returns the enabled sources wrapped with rate limiting, plus
// retries when crawl.retry.max_retries is set. Every source shares one limiter.
func buildSources(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) ([]adapter.Source, []config.SourceConfig) {
	limiter := ratelimit.NewSourceLimiter(cfg.RateLimit.MinDelay, cfg.RateLimit.SourceOverrides)
	policy := retryPolicy(cfg.Crawl.Retry)

	var (
		sources []adapter.Source
		configs []config.SourceConfig
	)
	for _, sc := range cfg.EnabledSources() {
		src, ok := createSource(sc, httpClient, logger)
		if !ok {
			continue
		}
		var wrapped adapter.Source = ratelimit.NewLimitedSource(src, limiter)
		if policy.MaxRetries > 0 {
			wrapped = retry.NewRetrySource(wrapped, policy, logger)
		}
		sources = append(sources, wrapped)
		configs = append(configs, sc)
	}
	return sources, configs
}

func newTitleFilter(cfg *config.Config) *filter.TitleFilter {
	return filter.NewTitleFilter(cfg.Filters.TitleKeywords, cfg.Filters.TitleExcludeKeywords)
}

// buildCrawlers wires one crawler per enabled source. maxPages > 0 caps every
// source's page budget.
func buildCrawlers(cfg *config.Config, jobStore model.JobStore, httpClient *http.Client, maxPages int, logger *slog.Logger) []*ingest.SourceCrawler {
	logger.Info("rate limiter configured", "min_delay", cfg.RateLimit.MinDelay.String())

	normalizer := normalize.New(cfg.Location, nil)
	engine := dedup.NewEngine(dedup.WithThreshold(cfg.Dedup.Threshold))
	jobFilter := newTitleFilter(cfg)

	sources, configs := buildSources(cfg, httpClient, logger)
	crawlers := make([]*ingest.SourceCrawler, 0, len(sources))
	for i, src := range sources {
		sc := configs[i]
		opts := ingest.Options{
			MaxPages:        sc.MaxPages,
			FuzzyDedup:      sc.FuzzyDedup,
			StopOnKnownPage: sc.StopOnKnownPage,
		}
		if maxPages > 0 {
			opts.MaxPages = maxPages
		}
		crawlers = append(crawlers, ingest.NewSourceCrawler(src, opts, jobFilter, normalizer, engine, jobStore, logger))
		logger.Info("registered source", "source", sc.Name, "max_pages", opts.MaxPages, "fuzzy_dedup", opts.FuzzyDedup)
	}
	return crawlers
}
