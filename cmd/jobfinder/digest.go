package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfinder/internal/digest"
	"github.com/amishk599/jobfinder/internal/mailer"
)

var (
	digestTo      string
	digestKeyword string
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Keyword digest subcommands",
}

var digestRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Send the digest to every subscriber now",
	RunE:  runDigest,
}

var digestTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send one digest to an address",
	Long:  "Composes the digest for --keyword over the configured window and sends it to --to, ignoring subscriptions. Without --keyword a plain test message is sent.",
	RunE:  runDigestTest,
}

func init() {
	digestTestCmd.Flags().StringVar(&digestTo, "to", "", "recipient email address")
	digestTestCmd.Flags().StringVar(&digestKeyword, "keyword", "", "keyword to build the digest for")
	_ = digestTestCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(digestCmd)
	digestCmd.AddCommand(digestRunCmd, digestTestCmd)
}

func runDigest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer st.Close()

	d := digest.NewDispatcher(st, st, setupMailer(cfg, newHTTPClient(cfg), logger), logger,
		digest.WithLocation(cfg.Location),
		digest.WithWindow(cfg.Digest.Window),
	)
	sum, err := d.Run(ctx)
	fmt.Printf("subscribers: %d  sent: %d  skipped: %d  failed: %d\n", sum.Subscribers, sum.Sent, sum.Skipped, sum.Failed)
	return err
}

func runDigestTest(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mail := setupMailer(cfg, newHTTPClient(cfg), logger)

	if digestKeyword == "" {
		if err := mailer.SendTestMessage(ctx, mail, digestTo); err != nil {
			logger.Error("test message failed", "error", err)
			return err
		}
		logger.Info("test message sent", "to", digestTo)
		return nil
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer st.Close()

	d := digest.NewDispatcher(st, st, mail, logger,
		digest.WithLocation(cfg.Location),
		digest.WithWindow(cfg.Digest.Window),
	)
	n, err := d.SendTo(ctx, digestTo, digestKeyword)
	if err != nil {
		logger.Error("test digest failed", "error", err)
		return err
	}
	if n == 0 {
		fmt.Printf("no postings for %q in the last %s, nothing sent\n", digestKeyword, cfg.Digest.Window)
		return nil
	}
	logger.Info("test digest sent", "to", digestTo, "keyword", digestKeyword, "jobs", n)
	return nil
}
