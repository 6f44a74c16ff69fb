package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <project-id>",
	Short: "Follow generation progress of a project",
	Long:  "Watch follows a project through generation using the push channel when configured and polling otherwise, then prints the generated board.",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	projectID := args[0]
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	updates, cancel := a.ws.Subscribe(projectID)
	defer cancel()

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		var last string
		for {
			select {
			case <-ctx.Done():
				return
			case p := <-updates:
				line := renderStatus(p)
				if line != last {
					fmt.Fprintln(out, line)
					last = line
				}
				if p.Status.Terminal() {
					return
				}
			}
		}
	}()

	final, err := a.watcher.Watch(ctx, projectID)
	if err != nil {
		stop()
		<-printed
		return fmt.Errorf("watching %s: %w", projectID, err)
	}
	stop()
	<-printed

	fmt.Fprintln(out, renderStatus(final))
	fmt.Fprintln(out, renderSummary(final))
	return nil
}
