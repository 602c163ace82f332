package model

// QueueStats are derived statistics over a list of conversations.
type QueueStats struct {
	Total           int            `json:"total"`
	ByStatus        map[Status]int `json:"by_status"`
	AveragePriority float64        `json:"average_priority"`
	ProcessedCount  int            `json:"processed_count"`
	CriticalCount   int            `json:"critical_count"`
}

// AnalyticsOverview is the agent dashboard summary.
type AnalyticsOverview struct {
	Stats                QueueStats         `json:"stats"`
	IssueDistribution    map[string]int     `json:"issue_distribution"`
	AveragePriorityScore float64            `json:"average_priority_score"`
	DailyTickets         []DailyTicketStats `json:"daily_tickets"`
}

// DailyTicketStats counts tickets touched on one calendar day.
type DailyTicketStats struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}
