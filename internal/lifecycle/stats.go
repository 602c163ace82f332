package lifecycle

import (
	"time"

	"github.com/eduresolve/support-platform/internal/model"
)

// CriticalPriority is the score from which a conversation counts as critical.
const CriticalPriority = 8

// DailyBuckets is the number of days covered by the analytics overview.
const DailyBuckets = 7

// IsCritical reports whether a processed conversation scored at or above CriticalPriority.
func IsCritical(c *model.Conversation) bool {
	return c.AIAnalysis.IsProcessed && c.AIAnalysis.PriorityScore >= CriticalPriority
}

// ComputeStats derives queue statistics. Conversations still pending AI analysis
// are excluded from the average priority instead of counting as zero.
func ComputeStats(convs []model.Conversation) model.QueueStats {
	stats := model.QueueStats{
		Total: len(convs),
		ByStatus: map[model.Status]int{
			model.StatusOpen:       0,
			model.StatusInProgress: 0,
			model.StatusResolved:   0,
		},
	}

	var sum int
	for i := range convs {
		c := &convs[i]
		stats.ByStatus[c.Status]++
		if !c.AIAnalysis.IsProcessed {
			continue
		}
		stats.ProcessedCount++
		sum += c.AIAnalysis.PriorityScore
		if IsCritical(c) {
			stats.CriticalCount++
		}
	}

	if stats.ProcessedCount > 0 {
		stats.AveragePriority = float64(sum) / float64(stats.ProcessedCount)
	}
	return stats
}

// IssueDistribution counts conversations per AI category; uncategorised ones land in "Others".
func IssueDistribution(convs []model.Conversation) map[string]int {
	dist := make(map[string]int)
	for i := range convs {
		category := convs[i].AIAnalysis.Category
		if category == "" {
			category = "Others"
		}
		dist[category]++
	}
	return dist
}

// DailyTickets counts conversations by updated_at day for the DailyBuckets days ending at now.
func DailyTickets(convs []model.Conversation, now time.Time) []model.DailyTicketStats {
	byDate := make(map[string]int)
	for i := range convs {
		byDate[convs[i].UpdatedAt.In(now.Location()).Format(time.DateOnly)]++
	}

	out := make([]model.DailyTicketStats, 0, DailyBuckets)
	for i := DailyBuckets - 1; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format(time.DateOnly)
		out = append(out, model.DailyTicketStats{Date: date, Count: byDate[date]})
	}
	return out
}

// Overview builds the analytics overview for the agent dashboard.
func Overview(convs []model.Conversation, now time.Time) model.AnalyticsOverview {
	stats := ComputeStats(convs)
	return model.AnalyticsOverview{
		Stats:                stats,
		IssueDistribution:    IssueDistribution(convs),
		AveragePriorityScore: stats.AveragePriority,
		DailyTickets:         DailyTickets(convs, now),
	}
}
