package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	resp *CompletionResponse
	err  error
	got  *CompletionRequest
}

func (s *stubClient) Name() string { return "stub" }

func (s *stubClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	s.got = req
	return s.resp, s.err
}

func TestNewClient_RequiresKey(t *testing.T) {
	ctx := context.Background()
	for _, p := range []Provider{ProviderAnthropic, ProviderOpenAI, ProviderGemini} {
		_, err := NewClient(ctx, p, "")
		assert.Error(t, err, p)
	}

	_, err := NewClient(ctx, Provider("mystery"), "key")
	assert.Error(t, err)
}

func TestNewClient_BuildsProvider(t *testing.T) {
	c, err := NewClient(context.Background(), ProviderOpenAI, "sk-test")
	require.NoError(t, err)
	assert.Equal(t, "openai", c.Name())

	c, err = NewClient(context.Background(), ProviderAnthropic, "sk-ant-test")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())
}

func TestInstrumented_PassesThrough(t *testing.T) {
	stub := &stubClient{resp: &CompletionResponse{Content: "{}", Model: "m", TokensIn: 3, TokensOut: 5}}
	c := Instrument(stub)

	resp, err := c.Complete(context.Background(), &CompletionRequest{Purpose: "analysis"})
	require.NoError(t, err)
	assert.Equal(t, "{}", resp.Content)
	assert.Equal(t, "analysis", stub.got.Purpose)
	assert.Equal(t, "stub", c.Name())
}

func TestInstrumented_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	c := Instrument(&stubClient{err: boom})

	_, err := c.Complete(context.Background(), &CompletionRequest{Purpose: "suggestions"})
	assert.ErrorIs(t, err, boom)
}
