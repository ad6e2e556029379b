package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfinder/internal/export"
)

var (
	exportOutput string
	exportFormat string
	exportSince  time.Duration
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write stored postings to an xlsx or txt report",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "jobs.xlsx", "output file")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "xlsx or txt (default: from the output extension)")
	exportCmd.Flags().DurationVar(&exportSince, "since", 0, "only postings stored within this window, e.g. 24h (0 exports all)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return err
	}

	name := exportFormat
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(exportOutput), ".")
	}
	format, err := export.ParseFormat(name)
	if err != nil {
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

	var since time.Time
	if exportSince > 0 {
		since = time.Now().Add(-exportSince)
	}

	f, err := os.Create(exportOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOutput, err)
	}
	n, err := export.NewService(st, cfg.Location, logger).Export(ctx, f, format, since)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		logger.Error("export failed", "error", err)
		return err
	}
	fmt.Printf("wrote %d postings to %s\n", n, exportOutput)
	return nil
}
