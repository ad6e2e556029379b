package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/jobfinder/internal/browse"
	"github.com/amishk599/jobfinder/internal/export"
	"github.com/amishk599/jobfinder/internal/filter"
	"github.com/amishk599/jobfinder/internal/model"
)

const searchLimit = 100

var searchPlain bool

var searchCmd = &cobra.Command{
	Use:   "search <keywords>",
	Short: "Search stored postings (TUI)",
	Long:  "Searches stored postings for the first comma-separated keyword, earliest deadline first, and opens the results in a split-pane browser.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchPlain, "plain", false, "print results as text instead of opening the browser")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	keyword := filter.FirstKeyword(strings.Join(args, " "))
	if keyword == "" {
		return errors.New("search keyword is empty")
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	logger := discardLogger()
	if searchPlain {
		logger = setupLogger(debug)
	}

	st, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	search := func(ctx context.Context) ([]model.Job, error) {
		return st.SearchJobs(ctx, keyword, searchLimit)
	}

	if searchPlain {
		jobs, err := search(cmd.Context())
		if err != nil {
			return err
		}
		if len(jobs) == 0 {
			fmt.Printf("no postings match %q\n", keyword)
			return nil
		}
		return export.WriteText(cmd.OutOrStdout(), jobs, cfg.Location)
	}

	jobs, err := browse.RunLoader(fmt.Sprintf("Searching %q", keyword), time.Minute, search)
	if err != nil {
		return err
	}
	_, err = browse.Run(
		browse.Pane{Title: "Results", Jobs: jobs},
		browse.Pane{Title: "Open", Jobs: browse.OpenJobs(jobs, time.Now())},
		cfg.Location,
	)
	return err
}
