package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "studio",
	Short:         "AI fashion design studio: generate, compose, and curate looks",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(cropCmd)
	rootCmd.AddCommand(resizeCmd)
	rootCmd.AddCommand(composeCmd)
	rootCmd.AddCommand(albumCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(variationsCmd)
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
