package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduresolve/support-platform/internal/cooldown"
	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/llm"
	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/internal/store"
	"github.com/eduresolve/support-platform/pkg/logger"
)

// fakeLLM answers analysis and suggestion prompts with canned JSON.
type fakeLLM struct {
	mu       sync.Mutex
	analysis string
	suggest  string
	err      error
	calls    map[string]int
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{
		analysis: `{"summary":"Cannot open exam","category":"Academic","priority_score":12,"reason":"exam today","sentiment":"negative"}`,
		suggest:  "```json\n{\"suggestions\":[{\"tone\":\"empathetic\",\"content\":\"Sorry to hear that.\"},{\"tone\":\"concise\",\"content\":\"Fixed.\"}]}\n```",
		calls:    make(map[string]int),
	}
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.Purpose]++
	if f.err != nil {
		return nil, f.err
	}
	if req.Purpose == "suggestions" {
		return &llm.CompletionResponse{Content: f.suggest}, nil
	}
	return &llm.CompletionResponse{Content: f.analysis}, nil
}

func (f *fakeLLM) callCount(purpose string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[purpose]
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ConversationEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, e *model.ConversationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, *e)
	return nil
}

func (p *recordingPublisher) types() []model.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	svc    *ConversationService
	store  *store.MemoryStore
	llm    *fakeLLM
	events *recordingPublisher
	clock  *clock
}

func newFixture(t *testing.T, withAI bool) *fixture {
	t.Helper()
	f := &fixture{
		store:  store.NewMemoryStore(),
		llm:    newFakeLLM(),
		events: &recordingPublisher{},
		clock:  &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	opts := []Option{WithEvents(f.events), WithClock(f.clock.Now)}
	if withAI {
		opts = append(opts, WithAnalyzer(NewAnalyzer(f.llm, "", logger.NewNop())))
	}
	limiter := cooldown.NewMemoryWithClock(cooldown.DefaultWindow, f.clock.Now)
	f.svc = NewConversationService(f.store, limiter, logger.NewNop(), opts...)
	return f
}

var (
	student = lifecycle.Actor{UID: "stu-1", Name: "Ada"}
	agentA  = lifecycle.Actor{UID: "agent-a", Name: "Alice"}
	agentB  = lifecycle.Actor{UID: "agent-b", Name: "Bob"}
)

func (f *fixture) create(t *testing.T, text string) *model.Conversation {
	t.Helper()
	conv, err := f.svc.Create(context.Background(), student, &model.CreateConversationRequest{Message: text})
	require.NoError(t, err)
	return conv
}

// --- lifecycle through the service ---

func TestCreateThenFetch(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	conv := f.create(t, "Help me")

	got, err := f.svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "Help me", got.Messages[0].Text)
	assert.Equal(t, model.StatusOpen, got.Status)
	assert.False(t, got.AIAnalysis.IsProcessed)
	assert.Equal(t, []model.EventType{model.EventTypeCreated}, f.events.types())
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, student, &model.CreateConversationRequest{Message: "   "})
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))

	_, err = f.svc.Create(ctx, lifecycle.Actor{UID: "x"}, &model.CreateConversationRequest{Message: "hi"})
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))

	conv, err := f.svc.Create(ctx, lifecycle.Actor{UID: "x"}, &model.CreateConversationRequest{StudentName: "Grace", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Grace", conv.StudentName)
}

func TestGet_Unknown(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.svc.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, lifecycle.ErrNotFound))
}

func TestReply_ClaimsAndStartsWork(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	conv := f.create(t, "Help me")

	f.clock.Advance(time.Minute)
	msg, err := f.svc.Reply(ctx, conv.ID, agentA, "Looking into it")
	require.NoError(t, err)
	assert.Equal(t, model.SenderSupport, msg.Sender)
	assert.Equal(t, f.clock.Now(), msg.Timestamp)

	got, err := f.svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Equal(t, "agent-a", got.AgentUID)
	assert.Equal(t, "Looking into it", got.LastMessage)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "Help me", got.Messages[0].Text)

	assert.Equal(t, []model.EventType{
		model.EventTypeCreated,
		model.EventTypeMessageAppended,
		model.EventTypeAssigned,
		model.EventTypeStatusChanged,
	}, f.events.types())
}

func TestAssign(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	conv := f.create(t, "Help me")

	got, err := f.svc.Assign(ctx, conv.ID, agentA)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, got.Status)

	_, err = f.svc.Assign(ctx, conv.ID, agentA)
	assert.NoError(t, err, "same agent is idempotent")

	_, err = f.svc.Assign(ctx, conv.ID, agentB)
	assert.True(t, errors.Is(err, lifecycle.ErrConflict))
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	conv := f.create(t, "Help me")

	_, err := f.svc.UpdateStatus(ctx, conv.ID, "closed", agentA)
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))

	_, err = f.svc.UpdateStatus(ctx, conv.ID, "resolved", agentA)
	assert.True(t, errors.Is(err, lifecycle.ErrConflict), "unassigned conversations cannot be resolved")

	_, err = f.svc.Assign(ctx, conv.ID, agentA)
	require.NoError(t, err)

	resolved, err := f.svc.UpdateStatus(ctx, conv.ID, "resolved", agentA)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)

	_, err = f.svc.UpdateStatus(ctx, conv.ID, "open", agentA)
	assert.True(t, errors.Is(err, lifecycle.ErrConflict))

	_, err = f.svc.Reply(ctx, conv.ID, agentA, "one more thing")
	assert.True(t, errors.Is(err, lifecycle.ErrConflict), "resolved offers no reply")
}

func TestList_SortsUnprocessedLast(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	low := f.create(t, "low")
	high := f.create(t, "high")
	unset := f.create(t, "unset")

	for id, score := range map[string]int{low.ID: 3, high.ID: 9} {
		_, err := f.store.Update(ctx, id, func(c *model.Conversation) error {
			lifecycle.AttachAnalysis(c, model.AIAnalysis{PriorityScore: score})
			return nil
		})
		require.NoError(t, err)
	}

	resp, err := f.svc.List(ctx, ListParams{})
	require.NoError(t, err)
	require.Equal(t, 3, resp.Total)
	assert.Equal(t, []string{high.ID, low.ID, unset.ID}, []string{
		resp.Conversations[0].ID, resp.Conversations[1].ID, resp.Conversations[2].ID,
	})

	_, err = f.svc.List(ctx, ListParams{SortBy: "name"})
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))

	_, err = f.svc.List(ctx, ListParams{Order: "sideways"})
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))
}

func TestList_StatusFilter(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	a := f.create(t, "first")
	f.create(t, "second")
	_, err := f.svc.Assign(ctx, a.ID, agentA)
	require.NoError(t, err)

	resp, err := f.svc.List(ctx, ListParams{Status: "in_progress"})
	require.NoError(t, err)
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, a.ID, resp.Conversations[0].ID)

	_, err = f.svc.List(ctx, ListParams{Status: "archived"})
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))
}

// --- AI ---

func TestGet_AnalyzesOnDemand(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	conv := f.create(t, "I cannot open my exam")

	got, err := f.svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, got.AIAnalysis.IsProcessed)
	assert.Equal(t, 10, got.AIAnalysis.PriorityScore, "score is clamped")
	assert.Equal(t, "Academic", got.AIAnalysis.Category)

	_, err = f.svc.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.llm.callCount("analysis"), "analysis is persisted")
}

func TestGet_AnalysisFailureStillReturnsConversation(t *testing.T) {
	f := newFixture(t, true)
	f.llm.err = errors.New("provider down")
	conv := f.create(t, "Help me")

	got, err := f.svc.Get(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.False(t, got.AIAnalysis.IsProcessed)
}

func TestSuggestions_Cooldown(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	conv := f.create(t, "Help me")

	first, err := f.svc.Suggestions(ctx, agentA.UID, conv.ID)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "empathetic", first[0].Tone)

	f.clock.Advance(20 * time.Second)
	_, err = f.svc.Suggestions(ctx, agentA.UID, conv.ID)
	require.Error(t, err)
	var cd *lifecycle.CooldownError
	require.True(t, errors.As(err, &cd))
	assert.Equal(t, 40*time.Second, cd.RetryAfter)
	assert.Equal(t, 1, f.llm.callCount("suggestions"), "rejected call never reaches the model")

	_, err = f.svc.Suggestions(ctx, agentB.UID, conv.ID)
	assert.NoError(t, err, "cooldown is per session")

	f.clock.Advance(40 * time.Second)
	_, err = f.svc.Suggestions(ctx, agentA.UID, conv.ID)
	assert.NoError(t, err)
}

func TestSuggestions_Unavailable(t *testing.T) {
	f := newFixture(t, false)
	conv := f.create(t, "Help me")

	_, err := f.svc.Suggestions(context.Background(), agentA.UID, conv.ID)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestSuggestions_UnknownConversation(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.Suggestions(context.Background(), agentA.UID, "missing")
	assert.True(t, errors.Is(err, lifecycle.ErrNotFound))
}

func TestHandleEvent(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	conv := f.create(t, "Help me")

	require.NoError(t, f.svc.HandleEvent(ctx, &model.ConversationEvent{Type: model.EventTypeAssigned, ConversationID: conv.ID}))
	assert.Zero(t, f.llm.callCount("analysis"))

	require.NoError(t, f.svc.HandleEvent(ctx, &model.ConversationEvent{Type: model.EventTypeCreated, ConversationID: conv.ID}))
	got, err := f.store.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.True(t, got.AIAnalysis.IsProcessed)

	assert.NoError(t, f.svc.HandleEvent(ctx, &model.ConversationEvent{Type: model.EventTypeCreated, ConversationID: "gone"}))
}

func TestHandleEvent_WithoutAnalyzerAcknowledges(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	conv := f.create(t, "Help me")

	assert.NoError(t, f.svc.HandleEvent(ctx, &model.ConversationEvent{Type: model.EventTypeCreated, ConversationID: conv.ID}))

	got, err := f.store.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.False(t, got.AIAnalysis.IsProcessed)
}

func TestHandleEvent_LLMFailureIsRetried(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	conv := f.create(t, "Help me")
	f.llm.err = errors.New("provider down")

	err := f.svc.HandleEvent(ctx, &model.ConversationEvent{Type: model.EventTypeCreated, ConversationID: conv.ID})
	assert.Error(t, err)
}

func TestInlineAnalysis(t *testing.T) {
	f := newFixture(t, true)
	WithInlineAnalysis(true)(f.svc)

	conv := f.create(t, "Help me please")
	assert.True(t, conv.AIAnalysis.IsProcessed)
}

func TestAnalyze_Sentiment(t *testing.T) {
	assert.Contains(t, analysisSystemPrompt, `"anxious"`)
	assert.Contains(t, analysisSystemPrompt, `"frustrated"`)

	f := newFixture(t, true)
	f.llm.analysis = `{"summary":"s","category":"Payment","priority_score":6,"reason":"r","sentiment":" Frustrated "}`
	conv := f.create(t, "I was charged twice")

	got, err := f.svc.EnsureAnalyzed(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "frustrated", got.AIAnalysis.Sentiment)
}

func TestParseSuggestions_BareArray(t *testing.T) {
	got, err := parseSuggestions(`[{"tone":"professional","content":"We are on it."},{"tone":"x","content":" "}]`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "professional", got[0].Tone)

	_, err = parseSuggestions(`{"suggestions":[]}`)
	assert.Error(t, err)
}

// --- student scope ---

func TestStudentScope(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	resp, err := f.svc.SubmitComplaint(ctx, student, "ada@example.com", &model.SubmitComplaintRequest{
		Category: "Exam",
		Text:     "My exam page keeps crashing when I submit.",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)

	_, err = f.svc.SubmitComplaint(ctx, student, "", &model.SubmitComplaintRequest{Text: "too short"})
	assert.True(t, errors.Is(err, lifecycle.ErrValidation))

	mine, err := f.svc.StudentList(ctx, student.UID)
	require.NoError(t, err)
	require.Len(t, mine.Conversations, 1)
	assert.Equal(t, "exam", mine.Conversations[0].Topic)

	other := lifecycle.Actor{UID: "stu-2", Name: "Eve"}
	_, err = f.svc.StudentGet(ctx, other.UID, resp.TicketID)
	assert.True(t, errors.Is(err, lifecycle.ErrForbidden))

	_, err = f.svc.StudentReply(ctx, resp.TicketID, other, "let me in")
	assert.True(t, errors.Is(err, lifecycle.ErrForbidden))

	_, err = f.svc.StudentReply(ctx, resp.TicketID, student, "any update?")
	require.NoError(t, err)

	got, err := f.svc.StudentGet(ctx, student.UID, resp.TicketID)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, model.StatusOpen, got.Status, "student replies keep the status")
}

func TestEvents_Unavailable(t *testing.T) {
	f := newFixture(t, false)
	conv := f.create(t, "Help me")
	_, err := f.svc.Events(context.Background(), conv.ID, 10)
	assert.True(t, errors.Is(err, ErrUnavailable))
}
