package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eduresolve/support-platform/internal/llm"
	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/pkg/logger"
)

// maxPromptMessages bounds how much of a thread is sent to the model.
const maxPromptMessages = 20

const analysisSystemPrompt = `You triage support tickets for an online learning platform.
Read the student's conversation and reply with a JSON object with these fields:
- summary (string): one or two sentences describing the problem.
- category (string): a short issue category such as "Academic", "Payment", "Technical" or "Account".
- priority_score (integer 1-10): urgency, 10 being the most urgent.
- reason (string): why you chose the category and score.
- sentiment (string): the student's mood, one of "positive", "neutral", "negative", "anxious", "frustrated".`

const suggestionSystemPrompt = `You help support agents of an online learning platform reply to students.
Draft three alternative replies to the latest student message with different tones.
Reply with a JSON object {"suggestions": [{"tone": "...", "content": "..."}]}.
Use the tones "empathetic", "professional" and "concise".`

// Analyzer asks an LLM to classify conversations and draft replies.
type Analyzer struct {
	client llm.Client
	model  string
	logger *logger.Logger
}

// NewAnalyzer creates an analyzer. An empty model uses the provider default.
func NewAnalyzer(client llm.Client, model string, log *logger.Logger) *Analyzer {
	return &Analyzer{
		client: client,
		model:  model,
		logger: log.Named("analyzer"),
	}
}

// Analyze classifies a conversation. The returned analysis is not yet clamped.
func (a *Analyzer) Analyze(ctx context.Context, conv *model.Conversation) (model.AIAnalysis, error) {
	resp, err := a.client.Complete(ctx, &llm.CompletionRequest{
		Model:       a.model,
		System:      analysisSystemPrompt,
		Messages:    []llm.ChatMessage{{Role: "user", Content: transcript(conv)}},
		Temperature: 0.2,
		JSON:        true,
		Purpose:     "analysis",
	})
	if err != nil {
		return model.AIAnalysis{}, fmt.Errorf("analysis request failed: %w", err)
	}

	var analysis model.AIAnalysis
	if err := decodeJSON(resp.Content, &analysis); err != nil {
		a.logger.Warn("unparseable analysis", zap.String("conversation_id", conv.ID), zap.Error(err))
		return model.AIAnalysis{}, err
	}
	analysis.Sentiment = strings.ToLower(strings.TrimSpace(analysis.Sentiment))
	return analysis, nil
}

// Suggest drafts reply suggestions for the latest state of a conversation.
func (a *Analyzer) Suggest(ctx context.Context, conv *model.Conversation) ([]model.ResponseSuggestion, error) {
	resp, err := a.client.Complete(ctx, &llm.CompletionRequest{
		Model:       a.model,
		System:      suggestionSystemPrompt,
		Messages:    []llm.ChatMessage{{Role: "user", Content: transcript(conv)}},
		Temperature: 0.7,
		JSON:        true,
		Purpose:     "suggestions",
	})
	if err != nil {
		return nil, fmt.Errorf("suggestion request failed: %w", err)
	}

	suggestions, err := parseSuggestions(resp.Content)
	if err != nil {
		a.logger.Warn("unparseable suggestions", zap.String("conversation_id", conv.ID), zap.Error(err))
		return nil, err
	}
	return suggestions, nil
}

func transcript(conv *model.Conversation) string {
	var b strings.Builder
	if conv.Topic != "" {
		fmt.Fprintf(&b, "Topic selected by the student: %s\n\n", conv.Topic)
	}

	msgs := conv.Messages
	if len(msgs) > maxPromptMessages {
		msgs = msgs[len(msgs)-maxPromptMessages:]
	}
	for _, m := range msgs {
		who := "Student"
		if m.Sender == model.SenderSupport {
			who = "Support"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, m.Text)
	}
	return b.String()
}

func parseSuggestions(raw string) ([]model.ResponseSuggestion, error) {
	var wrapped struct {
		Suggestions []model.ResponseSuggestion `json:"suggestions"`
	}
	if err := decodeJSON(raw, &wrapped); err == nil && len(wrapped.Suggestions) > 0 {
		return nonEmpty(wrapped.Suggestions)
	}

	var list []model.ResponseSuggestion
	if err := decodeJSON(raw, &list); err != nil {
		return nil, err
	}
	return nonEmpty(list)
}

func nonEmpty(in []model.ResponseSuggestion) ([]model.ResponseSuggestion, error) {
	out := make([]model.ResponseSuggestion, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s.Content) != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("model returned no suggestions")
	}
	return out, nil
}

// decodeJSON tolerates markdown code fences around the payload.
func decodeJSON(raw string, v any) error {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), v); err != nil {
		return fmt.Errorf("failed to parse model output: %w", err)
	}
	return nil
}
