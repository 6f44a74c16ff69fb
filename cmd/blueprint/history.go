package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rpggio/blueprint/internal/domain/journal"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history <project-id>",
	Short: "List recent changes to a project and how they settled",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", journal.DefaultLimit, "Maximum number of entries")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	a, err := newApp(cfg, newLogger(cfg, os.Stderr), false)
	if err != nil {
		return err
	}
	defer a.close()

	entries, err := a.ws.RecentMutations(context.Background(), args[0], historyLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, subtleStyle.Render("no changes recorded"))
		return nil
	}
	for _, e := range entries {
		fmt.Fprintln(out, renderEntry(e))
	}
	return nil
}

func renderEntry(e journal.Entry) string {
	line := fmt.Sprintf("%-14s %-16s %-18s %s",
		subtleStyle.Render(humanize.Time(e.CreatedAt)),
		e.Operation,
		outcomeStyle(e.Outcome).Render(string(e.Outcome)),
		e.EntityID,
	)
	if e.Error != "" {
		line += "  " + errorStyle.Render(e.Error)
	}
	return line
}
