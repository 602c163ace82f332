// Package client is a Go client for the support API used by agent tooling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eduresolve/support-platform/internal/cooldown"
	"github.com/eduresolve/support-platform/internal/lifecycle"
	"github.com/eduresolve/support-platform/internal/model"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(ctx context.Context) (string, error) {
	if t == "" {
		return "", &AuthError{Message: "not signed in"}
	}
	return string(t), nil
}

// Client calls the /api/v1 endpoints on behalf of one signed-in session.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	// suggestions throttles suggestion requests before they reach the network.
	suggestions *cooldown.Memory
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithSuggestionCooldown sets the local suggestion cooldown. now may be nil.
func WithSuggestionCooldown(window time.Duration, now func() time.Time) Option {
	return func(c *Client) {
		if now == nil {
			now = time.Now
		}
		c.suggestions = cooldown.NewMemoryWithClock(window, now)
	}
}

// New creates a client for the API at baseURL, e.g. "https://support.example.com".
func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/") + "/api/v1",
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		suggestions: cooldown.NewMemory(cooldown.DefaultWindow),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListOptions selects the queue ordering and filter.
type ListOptions struct {
	SortBy string
	Order  string
	Status model.Status
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.SortBy != "" {
		q.Set("sort_by", o.SortBy)
	}
	if o.Order != "" {
		q.Set("order", o.Order)
	}
	if o.Status != "" {
		q.Set("status", string(o.Status))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// Me returns the caller's profile.
func (c *Client) Me(ctx context.Context) (*model.UserProfile, error) {
	var resp model.AuthResponse
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data.User, nil
}

// CreateConversation opens a conversation with the student's first message.
func (c *Client) CreateConversation(ctx context.Context, studentName, studentEmail, text string) (*model.Conversation, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Message: "message text cannot be empty"}
	}
	req := &model.CreateConversationRequest{StudentName: studentName, StudentEmail: studentEmail, Message: text}
	var conv model.Conversation
	if err := c.do(ctx, http.MethodPost, "/conversations", req, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListConversations returns the agent queue.
func (c *Client) ListConversations(ctx context.Context, opts ListOptions) ([]model.Conversation, error) {
	var resp model.ListConversationsResponse
	if err := c.do(ctx, http.MethodGet, "/conversations"+opts.query(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// GetConversation returns one conversation with its messages.
func (c *Client) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id), nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Reply sends an agent message.
func (c *Client) Reply(ctx context.Context, id, text string) (*model.SendMessageResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Message: "message text cannot be empty"}
	}
	var resp model.SendMessageResponse
	if err := c.do(ctx, http.MethodPost, "/conversations/"+url.PathEscape(id)+"/reply", &model.SendMessageRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Assign claims a conversation for the caller.
func (c *Client) Assign(ctx context.Context, id string) (*model.Conversation, error) {
	var conv model.Conversation
	if err := c.do(ctx, http.MethodPut, "/conversations/"+url.PathEscape(id)+"/assign", nil, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// UpdateStatus moves a conversation to status.
func (c *Client) UpdateStatus(ctx context.Context, id string, status model.Status) (*model.Conversation, error) {
	if !lifecycle.IsValidStatus(status) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid status: %q", status)}
	}
	var conv model.Conversation
	if err := c.do(ctx, http.MethodPut, "/conversations/"+url.PathEscape(id)+"/status", &model.UpdateStatusRequest{Status: status}, &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

// Suggestions fetches AI reply drafts. A second call within the cooldown
// window fails locally with a ValidationError and sends nothing. Failures
// that never reached the server do not start the cooldown.
func (c *Client) Suggestions(ctx context.Context, id string) ([]model.ResponseSuggestion, error) {
	if err := c.suggestions.Acquire(ctx, "suggestions"); err != nil {
		var cd *lifecycle.CooldownError
		if errors.As(err, &cd) {
			return nil, &ValidationError{Message: "please wait before requesting new suggestions", RetryAfter: cd.RetryAfter}
		}
		return nil, err
	}

	var resp model.SuggestionsResponse
	if err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id)+"/suggestions", nil, &resp); err != nil {
		if neverReachedAI(ctx, err) {
			c.suggestions.Release("suggestions")
		}
		return nil, err
	}
	return resp.Suggestions, nil
}

// neverReachedAI reports whether a failed suggestion request was stopped
// before the server could call the AI provider.
func neverReachedAI(ctx context.Context, err error) bool {
	var netErr *NetworkError
	var authErr *AuthError
	return ctx.Err() != nil || errors.As(err, &netErr) || errors.As(err, &authErr)
}

// SuggestionCooldown reports how long until suggestions may be requested again.
func (c *Client) SuggestionCooldown() time.Duration {
	return c.suggestions.Remaining("suggestions")
}

// SubmitComplaint files a categorised complaint as a student.
func (c *Client) SubmitComplaint(ctx context.Context, req *model.SubmitComplaintRequest) (*model.SubmitComplaintResponse, error) {
	var resp model.SubmitComplaintResponse
	if err := c.do(ctx, http.MethodPost, "/student/complaints", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MyConversations lists the caller's own conversations.
func (c *Client) MyConversations(ctx context.Context) ([]model.Conversation, error) {
	var resp model.ListConversationsResponse
	if err := c.do(ctx, http.MethodGet, "/student/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// StudentReply appends a student message to one of the caller's conversations.
func (c *Client) StudentReply(ctx context.Context, id, text string) (*model.SendMessageResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ValidationError{Message: "message text cannot be empty"}
	}
	var resp model.SendMessageResponse
	if err := c.do(ctx, http.MethodPost, "/student/conversations/"+url.PathEscape(id)+"/reply", &model.SendMessageRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Overview returns the analytics dashboard figures.
func (c *Client) Overview(ctx context.Context) (*model.AnalyticsOverview, error) {
	var resp model.AnalyticsOverview
	if err := c.do(ctx, http.MethodGet, "/analytics/overview", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	op := method + " " + path

	token, err := c.tokens.Token(ctx)
	if err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return authErr
		}
		return &AuthError{Message: err.Error()}
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &BackendError{StatusCode: resp.StatusCode, Message: "malformed response body"}
		}
		return nil
	}

	return responseError(resp)
}

func responseError(resp *http.Response) error {
	var body struct {
		Error      string `json:"error"`
		RetryAfter int    `json:"retry_after"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, Message: body.Error}
	case http.StatusBadRequest:
		return &ValidationError{Message: body.Error}
	case http.StatusTooManyRequests:
		secs := body.RetryAfter
		if h := resp.Header.Get("Retry-After"); secs == 0 && h != "" {
			secs, _ = strconv.Atoi(h)
		}
		return &ValidationError{Message: body.Error, RetryAfter: time.Duration(secs) * time.Second}
	default:
		return &BackendError{StatusCode: resp.StatusCode, Message: body.Error}
	}
}
