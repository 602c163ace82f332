package lifecycle

import (
	"sort"
	"strings"

	"github.com/eduresolve/support-platform/internal/model"
)

// SortKey is the field a conversation queue is ordered by.
type SortKey string

const (
	SortByPriority  SortKey = "priority_score"
	SortByUpdatedAt SortKey = "updated_at"
)

// SortOrder is the direction of a queue ordering.
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ParseSortKey returns the sort key, defaulting to priority_score when empty.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByPriority:
		return SortByPriority, nil
	case SortByUpdatedAt:
		return SortByUpdatedAt, nil
	default:
		return "", validationf("invalid sort_by: %q", s)
	}
}

// ParseSortOrder returns the order, defaulting to desc when empty.
func ParseSortOrder(s string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderDesc:
		return OrderDesc, nil
	case OrderAsc:
		return OrderAsc, nil
	default:
		return "", validationf("invalid order: %q", s)
	}
}

// Priority is the sort priority of a conversation: the AI score once processed, 0 before.
func Priority(c *model.Conversation) int {
	if !c.AIAnalysis.IsProcessed {
		return 0
	}
	return c.AIAnalysis.PriorityScore
}

// Sort orders conversations in place. Ties fall back to most recently updated, then id.
func Sort(convs []model.Conversation, key SortKey, order SortOrder) {
	sort.SliceStable(convs, func(i, j int) bool {
		a, b := &convs[i], &convs[j]

		var cmp int
		switch key {
		case SortByUpdatedAt:
			cmp = a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			cmp = Priority(a) - Priority(b)
		}
		if cmp != 0 {
			if order == OrderAsc {
				return cmp < 0
			}
			return cmp > 0
		}

		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
}

// FilterByStatus keeps conversations in the given status. An empty status keeps everything.
func FilterByStatus(convs []model.Conversation, status model.Status) []model.Conversation {
	if status == "" {
		return convs
	}
	out := make([]model.Conversation, 0, len(convs))
	for _, c := range convs {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}
