package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rpggio/blueprint/internal/export"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Export a project board as CSV",
	Long:  "Export fetches the project and writes one CSV row per story. When the API is unreachable the last cached snapshot is used.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

var exportOutput string

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	logger := newLogger(cfg, os.Stderr)

	a, err := newApp(cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.close()

	p, err := a.ws.Load(context.Background(), args[0])
	if err != nil {
		cached, cacheErr := a.ws.Project(args[0])
		if cacheErr != nil {
			return fmt.Errorf("loading project: %w", err)
		}
		logger.Warn("exporting cached snapshot", "project_id", args[0], "error", err)
		p = cached
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return export.WriteCSV(w, p)
}
