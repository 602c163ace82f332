package client

import (
	"context"
	"sync"
	"time"

	"github.com/eduresolve/support-platform/internal/model"
)

// DefaultPollInterval is how often the agent queue is refreshed.
const DefaultPollInterval = 30 * time.Second

// QueueFetcher loads the current queue.
type QueueFetcher func(ctx context.Context) ([]model.Conversation, error)

// QueueFetcher returns a fetcher listing the queue with opts.
func (c *Client) QueueFetcher(opts ListOptions) QueueFetcher {
	return func(ctx context.Context) ([]model.Conversation, error) {
		return c.ListConversations(ctx, opts)
	}
}

// Poller refreshes the queue on a fixed interval. Every fetch is numbered and
// a result is delivered only if no later-started fetch has been delivered yet.
type Poller struct {
	fetch    QueueFetcher
	interval time.Duration
	onUpdate func([]model.Conversation)
	onError  func(error)

	mu  sync.Mutex
	seq uint64

	// deliver serialises the stale check with the callbacks.
	deliver sync.Mutex
	applied uint64
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval overrides DefaultPollInterval.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) { p.interval = d }
}

// WithErrorHandler receives errors from fetches that were not superseded.
func WithErrorHandler(fn func(error)) PollerOption {
	return func(p *Poller) { p.onError = fn }
}

// NewPoller creates a poller delivering queue snapshots to onUpdate.
func NewPoller(fetch QueueFetcher, onUpdate func([]model.Conversation), opts ...PollerOption) *Poller {
	p := &Poller{
		fetch:    fetch,
		interval: DefaultPollInterval,
		onUpdate: onUpdate,
		onError:  func(error) {},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run fetches immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	_ = p.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = p.Refresh(ctx)
		}
	}
}

// Refresh performs one fetch now. It may run concurrently with Run, but
// must not be called from the update or error callbacks.
func (p *Poller) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.seq++
	seq := p.seq
	p.mu.Unlock()

	convs, err := p.fetch(ctx)

	p.deliver.Lock()
	defer p.deliver.Unlock()
	if seq <= p.applied || ctx.Err() != nil {
		return err
	}
	p.applied = seq

	if err != nil {
		p.onError(err)
		return err
	}
	p.onUpdate(convs)
	return nil
}
