package turnview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"babelbridge/internal/api"
)

type FetchFunc func(ctx context.Context) (*api.Conversation, error)

// PollResult is one successfully fetched snapshot. Seq is the issue order of
// the request that produced it.
type PollResult struct {
	Seq      uint64
	Snapshot *api.Conversation
}

// Poller fetches a conversation right away and then on every interval tick
// until the conversation completes or Stop is called.
//
// Every tick issues its own request, so requests can overlap. Results are
// delivered in the order they resolve, which means an older snapshot can
// arrive after a newer one; WithOrderedDelivery drops such stragglers.
type Poller struct {
	fetch    FetchFunc
	interval time.Duration
	ordered  bool
	log      *slog.Logger
	out      chan PollResult

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}

	mu        sync.Mutex
	issued    uint64
	delivered uint64
}

type PollerOption func(*Poller)

func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithOrderedDelivery() PollerOption {
	return func(p *Poller) {
		p.ordered = true
	}
}

func WithPollLogger(log *slog.Logger) PollerOption {
	return func(p *Poller) {
		if log != nil {
			p.log = log
		}
	}
}

func NewPoller(fetch FetchFunc, opts ...PollerOption) *Poller {
	p := &Poller{
		fetch:    fetch,
		interval: PollInterval,
		log:      slog.Default(),
		out:      make(chan PollResult, 4),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "turnview.poller")
	return p
}

// Start begins polling and returns the result channel, which is closed once
// polling has ended and every outstanding request has returned. Calling Start
// more than once returns the same channel.
func (p *Poller) Start(ctx context.Context) <-chan PollResult {
	p.startOnce.Do(func() {
		go p.run(ctx)
	})
	return p.out
}

// Stop ends polling for good. It is safe to call more than once, and results
// that resolve afterwards are dropped.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

func (p *Poller) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}

func (p *Poller) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
		close(p.out)
	}()
	if p.stopped() {
		return
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.issue(ctx, &inflight)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			p.issue(ctx, &inflight)
		}
	}
}

func (p *Poller) issue(ctx context.Context, inflight *sync.WaitGroup) {
	p.mu.Lock()
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	inflight.Add(1)
	go func() {
		defer inflight.Done()
		snapshot, err := p.fetch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.log.DebugContext(ctx, "poll failed", "seq", seq, "err", err)
			}
			return
		}
		if snapshot == nil {
			return
		}
		p.deliver(ctx, PollResult{Seq: seq, Snapshot: snapshot})
	}()
}

func (p *Poller) deliver(ctx context.Context, res PollResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped() || ctx.Err() != nil {
		return
	}
	if p.ordered && res.Seq < p.delivered {
		p.log.DebugContext(ctx, "dropping stale poll result", "seq", res.Seq, "delivered", p.delivered)
		return
	}
	if res.Seq > p.delivered {
		p.delivered = res.Seq
	}
	select {
	case p.out <- res:
	case <-p.stop:
		return
	case <-ctx.Done():
		return
	}
	if res.Snapshot.Completed() {
		p.Stop()
	}
}
