package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Best effort: a missing .env just means the environment is already set.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "ukatrack",
		Short: "UK carbon-allowance market data ingestion pipeline",
		Long: `ukatrack pulls UKA futures prices, carbon intensity, related market
data and news from their upstream sources and consolidates them into
append-only time-series stores for downstream analytics.`,
		SilenceUsage: true,
	}

	defaultCfg := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultCfg = v
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultCfg, "path to config file")

	root.AddCommand(newUpdateCmd())
	root.AddCommand(newBackfillCmd())
	root.AddCommand(newNewsCmd())
	root.AddCommand(newPoliciesCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
