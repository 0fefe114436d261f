package main

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"ukatrack/internal/config"
	"ukatrack/internal/pipeline"
	"ukatrack/internal/policy"
)

func loadRunner() (*pipeline.Runner, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return pipeline.New(cfg)
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Run the full ingestion pipeline once",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := loadRunner()
			if err != nil {
				return err
			}
			defer runner.Close()

			report, err := runner.Run(cmd.Context())
			if err != nil {
				// Non-zero exit lets the external scheduler alert.
				return err
			}
			for _, res := range report.Results {
				status := "ok"
				switch {
				case res.Err != nil:
					status = "failed: " + res.Err.Error()
				case res.Truncated:
					status = "truncated"
				}
				fmt.Printf("%-18s %6d rows  %s\n", res.Source, res.Rows, status)
			}
			return nil
		},
	}
}

func newBackfillCmd() *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Backfill carbon-intensity history from a start date",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := time.Parse("2006-01-02", from)
			if err != nil {
				return fmt.Errorf("invalid --from date: %w", err)
			}
			runner, err := loadRunner()
			if err != nil {
				return err
			}
			defer runner.Close()

			rows, truncated, err := runner.BackfillIntensity(cmd.Context(), start)
			if err != nil {
				return err
			}
			if truncated {
				log.Printf("[WARN] backfill stored %d rows but the series is truncated", rows)
			} else {
				log.Printf("[INFO] backfill stored %d rows", rows)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "2020-01-01", "start date (YYYY-MM-DD)")
	return cmd
}

func newNewsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "news",
		Short: "Print the latest UKA-related headlines",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := loadRunner()
			if err != nil {
				return err
			}
			defer runner.Close()

			fetch := runner.RecentNews
			if all {
				fetch = runner.FetchNews
			}
			items, err := fetch(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("no recent items")
				return nil
			}
			for _, item := range items {
				published := "unknown date"
				if item.HasPublished() {
					published = item.Published.Format("2006-01-02")
				}
				fmt.Printf("[%s] %s (%s)\n  %s\n", published, item.Title, item.Source, item.Link)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include items outside the recency window")
	return cmd
}

func newPoliciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "Print the UK ETS policy watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, card := range policy.Watchlist() {
				fmt.Printf("%s (%s)\n  %s\n  status: %s\n", card.Title, card.LastUpdated, card.Description, card.Status)
			}
			return nil
		},
	}
}
