package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/eduresolve/support-platform/internal/model"
)

func renderStats(w io.Writer, s model.QueueStats) {
	fmt.Fprintf(w, "total %d | open %d | in progress %d | resolved %d\n",
		s.Total,
		s.ByStatus[model.StatusOpen],
		s.ByStatus[model.StatusInProgress],
		s.ByStatus[model.StatusResolved],
	)
	fmt.Fprintf(w, "avg priority %.1f over %d analysed | critical %d\n", s.AveragePriority, s.ProcessedCount, s.CriticalCount)
}

func renderQueue(w io.Writer, convs []model.Conversation, limit int) {
	if len(convs) == 0 {
		fmt.Fprintln(w, "queue is empty")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tSTATUS\tSTUDENT\tAGENT\tLAST MESSAGE")
	for i := range convs {
		if limit > 0 && i >= limit {
			break
		}
		c := &convs[i]
		priority := "-"
		if c.AIAnalysis.IsProcessed {
			priority = fmt.Sprintf("%d", c.AIAnalysis.PriorityScore)
		}
		agent := c.AgentName
		if agent == "" {
			agent = "unassigned"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", priority, c.Status, c.StudentName, agent, truncate(c.LastMessage, 48))
	}
	_ = tw.Flush()

	if limit > 0 && len(convs) > limit {
		fmt.Fprintf(w, "... and %d more\n", len(convs)-limit)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
