package cmd

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pricewatch",
	Short: "Pricewatch scrapes retail stores and tracks price history",
	Long: `pricewatch ingests price and stock observations from configured retail
store feeds into the product catalog database.

Each run fetches every configured store concurrently, matches scraped items
against the catalog, upserts listings and appends price history whenever a
price or stock status actually changed. Afterwards the storefront is asked
to revalidate the pages of any store that changed.

Common workflows:

  Run all configured store pipelines once:
    pricewatch run

  Apply pending database migrations:
    pricewatch migrate

Configuration:
  Values come from pricewatch.yaml (or --config) and PRICEWATCH_* environment
  variables; the environment wins. The database connection string is read
  from DATABASE_URL.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./pricewatch.yaml)")
}
