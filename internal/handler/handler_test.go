package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduresolve/support-platform/internal/auth"
	"github.com/eduresolve/support-platform/internal/cooldown"
	"github.com/eduresolve/support-platform/internal/llm"
	"github.com/eduresolve/support-platform/internal/model"
	"github.com/eduresolve/support-platform/internal/service"
	"github.com/eduresolve/support-platform/internal/store"
	"github.com/eduresolve/support-platform/pkg/logger"
)

type cannedLLM struct{}

func (cannedLLM) Name() string { return "canned" }

func (cannedLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if req.Purpose == "suggestions" {
		return &llm.CompletionResponse{Content: `{"suggestions":[{"tone":"friendly","content":"We are on it."}]}`}, nil
	}
	return &llm.CompletionResponse{Content: `{"summary":"s","category":"Billing","priority_score":7,"reason":"r","sentiment":"neutral"}`}, nil
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	verifier *auth.JWTVerifier
	store    *store.MemoryStore
}

func newTestServer(t *testing.T, withLLM bool) *testServer {
	t.Helper()
	log := logger.NewNop()
	st := store.NewMemoryStore()
	verifier, err := auth.NewJWTVerifier("test-secret")
	require.NoError(t, err)

	var opts []service.Option
	if withLLM {
		opts = append(opts, service.WithAnalyzer(service.NewAnalyzer(cannedLLM{}, "", log)))
	}
	conversations := service.NewConversationService(st, cooldown.NewMemory(time.Minute), log, opts...)

	srv := &testServer{t: t, verifier: verifier, store: st}
	srv.handler = NewRouter(RouterConfig{
		Conversations: conversations,
		Users:         service.NewUserService(st, verifier, log),
		Analytics:     service.NewAnalyticsService(st),
		Verifier:      verifier,
		Profiles:      st,
		Health:        NewHealthHandler(st, nil),
		Logger:        log,
	})

	srv.addUser("student-1", "Sam", model.RoleCustomer)
	srv.addUser("student-2", "Kim", model.RoleCustomer)
	srv.addUser("agent-1", "Alice", model.RoleSupport)
	srv.addUser("agent-2", "Bob", model.RoleSupport)
	return srv
}

func (s *testServer) addUser(uid, name string, role model.Role) {
	require.NoError(s.t, s.store.SaveUser(context.Background(), &model.UserProfile{
		UID: uid, Name: name, Email: uid + "@example.com", Role: role,
	}))
}

func (s *testServer) token(uid string) string {
	token, err := s.verifier.Sign(auth.Identity{UID: uid, Email: uid + "@example.com"}, time.Hour)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path, uid string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+s.token(uid))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createConversation(uid, text string) *model.Conversation {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/conversations", uid, model.CreateConversationRequest{Message: text})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	conv := decode[model.Conversation](s.t, rec)
	return &conv
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")
}

func TestCreateThenFetch(t *testing.T) {
	srv := newTestServer(t, false)

	created := srv.createConversation("student-1", "Help me")
	assert.Equal(t, model.StatusOpen, created.Status)

	rec := srv.do(http.MethodGet, "/api/v1/conversations/"+created.ID, "agent-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	conv := decode[model.Conversation](t, rec)
	require.Len(t, conv.Messages, 1)
	assert.Equal(t, "Help me", conv.Messages[0].Text)
	assert.Equal(t, model.StatusOpen, conv.Status)
	assert.Equal(t, "Sam", conv.StudentName)
}

func TestRoleEnforcement(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodGet, "/api/v1/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(http.MethodGet, "/api/v1/conversations", "student-1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(http.MethodPost, "/api/v1/conversations", "agent-1", model.CreateConversationRequest{Message: "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(http.MethodGet, "/api/v1/analytics/overview", "agent-1", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReplyLifecycle(t *testing.T) {
	srv := newTestServer(t, false)
	conv := srv.createConversation("student-1", "My exam will not load")
	base := "/api/v1/conversations/" + conv.ID

	rec := srv.do(http.MethodPost, base+"/reply", "agent-1", model.SendMessageRequest{Text: "Looking into it"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[model.SendMessageResponse](t, rec).Success)

	got := decode[model.Conversation](t, srv.do(http.MethodGet, base, "agent-1", nil))
	assert.Equal(t, model.StatusInProgress, got.Status)
	assert.Equal(t, "agent-1", got.AgentUID)
	assert.Len(t, got.Messages, 2)
	assert.Equal(t, "Looking into it", got.LastMessage)

	rec = srv.do(http.MethodPut, base+"/assign", "agent-2", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(http.MethodPost, base+"/messages", "agent-1", model.SendMessageRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodPut, base+"/status", "agent-1", model.UpdateStatusRequest{Status: "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodPut, base+"/status", "agent-1", model.UpdateStatusRequest{Status: model.StatusResolved})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusResolved, decode[model.Conversation](t, rec).Status)

	rec = srv.do(http.MethodPost, base+"/reply", "agent-1", model.SendMessageRequest{Text: "one more"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(http.MethodPut, base+"/status", "agent-1", model.UpdateStatusRequest{Status: model.StatusOpen})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestResolveRequiresAssignment(t *testing.T) {
	srv := newTestServer(t, false)
	conv := srv.createConversation("student-1", "Refund please")

	rec := srv.do(http.MethodPut, "/api/v1/conversations/"+conv.ID+"/status", "agent-1",
		model.UpdateStatusRequest{Status: model.StatusResolved})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(http.MethodPut, "/api/v1/conversations/"+conv.ID+"/assign", "agent-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assigned := decode[model.Conversation](t, rec)
	assert.Equal(t, model.StatusInProgress, assigned.Status)
	assert.Equal(t, "Alice", assigned.AgentName)
}

func TestNotFoundAndBadID(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodGet, "/api/v1/conversations/missing", "agent-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "conversation missing not found")

	rec = srv.do(http.MethodGet, "/api/v1/conversations/bad.id", "agent-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSortedByPriority(t *testing.T) {
	srv := newTestServer(t, false)
	ctx := context.Background()

	for i, score := range []int{3, 9, 0} {
		conv := srv.createConversation("student-1", "question")
		if score == 0 {
			continue
		}
		_, err := srv.store.Update(ctx, conv.ID, func(c *model.Conversation) error {
			c.AIAnalysis = model.AIAnalysis{PriorityScore: score, IsProcessed: true}
			c.UpdatedAt = c.UpdatedAt.Add(time.Duration(i) * time.Second)
			return nil
		})
		require.NoError(t, err)
	}

	rec := srv.do(http.MethodGet, "/api/v1/conversations?sort_by=priority_score&order=desc", "agent-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[model.ListConversationsResponse](t, rec)
	require.Len(t, resp.Conversations, 3)
	assert.Equal(t, 9, resp.Conversations[0].AIAnalysis.PriorityScore)
	assert.Equal(t, 3, resp.Conversations[1].AIAnalysis.PriorityScore)
	assert.False(t, resp.Conversations[2].AIAnalysis.IsProcessed)

	rec = srv.do(http.MethodGet, "/api/v1/conversations?sort_by=name", "agent-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestionsCooldown(t *testing.T) {
	srv := newTestServer(t, true)
	conv := srv.createConversation("student-1", "Cannot pay my invoice")
	path := "/api/v1/conversations/" + conv.ID + "/suggestions"

	rec := srv.do(http.MethodGet, path, "agent-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[model.SuggestionsResponse](t, rec)
	require.Len(t, resp.Suggestions, 1)
	assert.Equal(t, "friendly", resp.Suggestions[0].Tone)

	rec = srv.do(http.MethodGet, path, "agent-1", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	body := decode[map[string]interface{}](t, rec)
	assert.Greater(t, body["retry_after"].(float64), float64(0))

	// Cooldown is per session.
	rec = srv.do(http.MethodGet, path, "agent-2", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSuggestionsWithoutLLM(t *testing.T) {
	srv := newTestServer(t, false)
	conv := srv.createConversation("student-1", "Cannot pay my invoice")

	rec := srv.do(http.MethodGet, "/api/v1/conversations/"+conv.ID+"/suggestions", "agent-1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStudentEndpoints(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodPost, "/api/v1/student/complaints", "student-1",
		model.SubmitComplaintRequest{Category: "Payment", Text: "too short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodPost, "/api/v1/student/complaints", "student-1",
		model.SubmitComplaintRequest{Category: "Payment", Text: "I was charged twice for the same course"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	submitted := decode[model.SubmitComplaintResponse](t, rec)
	require.NotEmpty(t, submitted.TicketID)

	own := "/api/v1/student/conversations/" + submitted.TicketID
	rec = srv.do(http.MethodGet, own, "student-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "payment", decode[model.Conversation](t, rec).Topic)

	rec = srv.do(http.MethodGet, own, "student-2", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(http.MethodPost, own+"/reply", "student-2", model.SendMessageRequest{Text: "not mine"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(http.MethodPost, own+"/reply", "student-1", model.SendMessageRequest{Text: "any update?"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = srv.do(http.MethodGet, "/api/v1/student/conversations", "student-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[model.ListConversationsResponse](t, rec)
	require.Len(t, list.Conversations, 1)
	assert.Len(t, list.Conversations[0].Messages, 2)
	assert.Equal(t, model.StatusOpen, list.Conversations[0].Status)

	rec = srv.do(http.MethodGet, "/api/v1/student/conversations", "student-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[model.ListConversationsResponse](t, rec).Conversations)
}

func TestAuthEndpoints(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(http.MethodPost, "/api/v1/auth/register", "", model.RegisterRequest{
		IDToken: srv.token("new-user"), Role: model.RoleCustomer, Name: "Nia",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	registered := decode[model.AuthResponse](t, rec)
	assert.True(t, registered.Success)
	assert.Equal(t, "new-user@example.com", registered.Data.User.Email)

	rec = srv.do(http.MethodPost, "/api/v1/auth/register", "", model.RegisterRequest{
		IDToken: srv.token("other"), Role: "admin", Name: "X",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodPost, "/api/v1/auth/register", "", model.RegisterRequest{
		IDToken: srv.token("student-1"), Role: model.RoleSupport, Name: "Sam",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{IDToken: srv.token("new-user")})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.RoleCustomer, decode[model.AuthResponse](t, rec).Data.User.Role)

	rec = srv.do(http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{IDToken: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodGet, "/api/v1/auth/me", "agent-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice", decode[model.AuthResponse](t, rec).Data.User.Name)

	rec = srv.do(http.MethodGet, "/api/v1/auth/me", "ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
