package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/model"
)

func TestRenderStats(t *testing.T) {
	convs := []model.Conversation{
		{Status: model.StatusOpen, AIAnalysis: model.AIAnalysis{PriorityScore: 4, IsProcessed: true}},
		{Status: model.StatusOpen},
		{Status: model.StatusInProgress, AIAnalysis: model.AIAnalysis{PriorityScore: 8, IsProcessed: true}},
	}

	var buf bytes.Buffer
	renderStats(&buf, lifecycle.ComputeStats(convs))

	assert.Contains(t, buf.String(), "total 3 | open 2 | in progress 1 | resolved 0")
	assert.Contains(t, buf.String(), "avg priority 6.0 over 2 analysed | critical 1")
}

func TestRenderQueue(t *testing.T) {
	convs := []model.Conversation{
		{Status: model.StatusOpen, StudentName: "Sam", LastMessage: "Help me", AIAnalysis: model.AIAnalysis{PriorityScore: 9, IsProcessed: true}},
		{Status: model.StatusInProgress, StudentName: "Kim", AgentName: "Alice", LastMessage: "On it"},
		{Status: model.StatusOpen, StudentName: "Lee"},
	}

	var buf bytes.Buffer
	renderQueue(&buf, convs, 2)
	out := buf.String()

	assert.Contains(t, out, "unassigned")
	assert.Contains(t, out, "Alice")
	assert.NotContains(t, out, "Lee")
	assert.Contains(t, out, "... and 1 more")

	buf.Reset()
	renderQueue(&buf, nil, 10)
	assert.Equal(t, "queue is empty\n", buf.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}

func TestListOptionsValidation(t *testing.T) {
	opts.sortBy, opts.order, opts.status = "priority_score", "desc", ""
	lo, err := listOptions()
	assert.NoError(t, err)
	assert.Equal(t, "priority_score", lo.SortBy)

	opts.status = "archived"
	_, err = listOptions()
	assert.Error(t, err)

	opts.status, opts.sortBy = "", "name"
	_, err = listOptions()
	assert.Error(t, err)
}
