// Package main provides the entry point for the pagetrace CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pagetrace",
	Short: "LCP threshold tracing agent",
	Long:  "pagetrace monitors a page's Largest Contentful Paint in a headless browser and, when the value crosses a configured threshold, reports a bounded snapshot of navigation and resource timing data to an analytics sink.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
