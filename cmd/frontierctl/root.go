package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "frontierctl",
		Short: "Offline tools for the cost/accuracy frontier engine",
		Long: `frontierctl works with plan logs produced by a pipeline-rewrite search.

Examples:
  frontierctl replay plans.yaml
  frontierctl replay plans.yaml --plot frontier.png --max-iterations 50`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log engine events to stderr")

	logger := func(cmd *cobra.Command) *slog.Logger {
		if !verbose {
			return slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	root.AddCommand(newReplayCmd(logger))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the frontierctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "frontierctl %s\n", Version)
		},
	})
	return root
}
