package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eduresolve/support-platform/internal/client"
	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/model"
)

var opts struct {
	server   string
	token    string
	sortBy   string
	order    string
	status   string
	interval time.Duration
	limit    int
}

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the queue and print it on every refresh",
		RunE:  runWatch,
	}
	cmd.Flags().DurationVarP(&opts.interval, "interval", "i", client.DefaultPollInterval, "Polling interval")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 15, "Number of conversations to print")
	return cmd
}

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print queue statistics once",
		RunE:  runStats,
	}
}

func listOptions() (client.ListOptions, error) {
	if _, err := lifecycle.ParseSortKey(opts.sortBy); err != nil {
		return client.ListOptions{}, err
	}
	if _, err := lifecycle.ParseSortOrder(opts.order); err != nil {
		return client.ListOptions{}, err
	}
	lo := client.ListOptions{SortBy: opts.sortBy, Order: opts.order}
	if opts.status != "" {
		st, err := lifecycle.ParseStatus(opts.status)
		if err != nil {
			return client.ListOptions{}, err
		}
		lo.Status = st
	}
	return lo, nil
}

func newClient() *client.Client {
	return client.New(opts.server, client.StaticToken(opts.token))
}

func runWatch(cmd *cobra.Command, args []string) error {
	lo, err := listOptions()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	poller := client.NewPoller(newClient().QueueFetcher(lo), func(convs []model.Conversation) {
		fmt.Fprintf(out, "\n== %s ==\n", time.Now().Format(time.Kitchen))
		renderStats(out, lifecycle.ComputeStats(convs))
		renderQueue(out, convs, opts.limit)
	},
		client.WithInterval(opts.interval),
		client.WithErrorHandler(func(err error) {
			fmt.Fprintf(cmd.ErrOrStderr(), "refresh failed: %v\n", err)
		}),
	)

	if err := poller.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	lo, err := listOptions()
	if err != nil {
		return err
	}

	convs, err := newClient().ListConversations(cmd.Context(), lo)
	if err != nil {
		return err
	}
	renderStats(cmd.OutOrStdout(), lifecycle.ComputeStats(convs))
	return nil
}
