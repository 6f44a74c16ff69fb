// Command blueprint keeps a local, optimistically updated copy of blueprint
// projects and exposes it over MCP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "blueprint",
	Short:         "Blueprint board client",
	Long:          "blueprint caches generated project boards locally, applies edits optimistically and syncs them with the blueprint API.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (overrides BLUEPRINT_CONFIG_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
