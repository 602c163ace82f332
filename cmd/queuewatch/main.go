// Command queuewatch follows the support queue from a terminal.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "queuewatch",
		Short: "Watch the EduResolve support queue",
		Long:  `queuewatch polls the support API and prints the agent queue with its status counts, average priority and critical tickets.`,
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", envOr("QUEUEWATCH_SERVER", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("QUEUEWATCH_TOKEN"), "Bearer token of a support agent")
	rootCmd.PersistentFlags().StringVar(&opts.sortBy, "sort-by", "priority_score", "Sort key (priority_score, updated_at)")
	rootCmd.PersistentFlags().StringVar(&opts.order, "order", "desc", "Sort order (asc, desc)")
	rootCmd.PersistentFlags().StringVar(&opts.status, "status", "", "Only show conversations with this status")

	rootCmd.AddCommand(
		newWatchCommand(),
		newStatsCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
