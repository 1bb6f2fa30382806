// Package main is the entry point for the pricewatch scraper.
// It runs the configured store pipelines, ingests their observations and
// notifies the storefront when listings change.
package main

import (
	"os"

	"pricewatch/cmd/pricewatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
