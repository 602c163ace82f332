// Package lifecycle holds the conversation triage rules: the status state machine,
// claiming, message appends, queue ordering and derived statistics.
// Everything here is pure and operates on model values; persistence lives elsewhere.
package lifecycle

import (
	"strings"

	"github.com/eduresolve/support-platform/internal/model"
)

var validStatuses = map[model.Status]bool{
	model.StatusOpen:       true,
	model.StatusInProgress: true,
	model.StatusResolved:   true,
}

// resolved is terminal.
var statusTransitions = map[model.Status][]model.Status{
	model.StatusOpen: {
		model.StatusInProgress,
		model.StatusResolved,
	},
	model.StatusInProgress: {
		model.StatusResolved,
	},
	model.StatusResolved: {},
}

// ParseStatus validates a raw status value.
func ParseStatus(s string) (model.Status, error) {
	st := model.Status(strings.TrimSpace(strings.ToLower(s)))
	if !validStatuses[st] {
		return "", validationf("invalid status: %q", s)
	}
	return st, nil
}

// IsValidStatus reports whether st is one of open, in_progress, resolved.
func IsValidStatus(st model.Status) bool {
	return validStatuses[st]
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to model.Status) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanReply reports whether the conversation still accepts messages.
func CanReply(c *model.Conversation) bool {
	return c.Status != model.StatusResolved
}
