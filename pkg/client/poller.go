package client

import (
	"context"
	"errors"
	"sync"
	"time"
)

// PollState identifies where a poll is in its lifecycle. idle and
// processing are transient; the other four are terminal and only a new
// Start call leaves them.
type PollState string

const (
	StateIdle       PollState = "idle"
	StateProcessing PollState = "processing"
	StateComplete   PollState = "complete"
	StateError      PollState = "error"
	StateTimedOut   PollState = "timed_out"
	StateAborted    PollState = "aborted"
)

// Terminal reports whether s is a state the poll will not leave on its own.
func (s PollState) Terminal() bool {
	switch s {
	case StateComplete, StateError, StateTimedOut, StateAborted:
		return true
	}
	return false
}

const (
	timeoutMessage      = "Resume generation timed out"
	genericErrorMessage = "Resume generation failed"
)

// PollConfig controls attempt budget and backoff. The delay before attempt
// k+1 is BaseInterval + min(k*StepIncrement, MaxBackoffCap): linear with a
// cap, not exponential.
type PollConfig struct {
	BaseInterval  time.Duration
	StepIncrement time.Duration
	MaxBackoffCap time.Duration
	MaxAttempts   int
}

// DefaultPollConfig returns the intervals the web client shipped with:
// 1.5s base, 200ms step, 3s cap, 40 attempts.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		BaseInterval:  1500 * time.Millisecond,
		StepIncrement: 200 * time.Millisecond,
		MaxBackoffCap: 3000 * time.Millisecond,
		MaxAttempts:   40,
	}
}

func (c PollConfig) withDefaults() PollConfig {
	d := DefaultPollConfig()
	if c.BaseInterval <= 0 {
		c.BaseInterval = d.BaseInterval
	}
	if c.StepIncrement < 0 {
		c.StepIncrement = d.StepIncrement
	}
	if c.MaxBackoffCap <= 0 {
		c.MaxBackoffCap = d.MaxBackoffCap
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	return c
}

// delayAfter returns the backoff before the attempt that follows attempt k.
func (c PollConfig) delayAfter(k int) time.Duration {
	step := time.Duration(k) * c.StepIncrement
	if step > c.MaxBackoffCap {
		step = c.MaxBackoffCap
	}
	return c.BaseInterval + step
}

// StatusFetcher issues one status request for a resource id and returns
// the raw response body. [Client] implements it against the live service.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, resourceID string) ([]byte, error)
}

// Snapshot is a point-in-time copy of a poll's observable state.
type Snapshot struct {
	ResourceID string
	State      PollState
	Attempts   int
	LastResult map[string]interface{}
	LastError  string
	Running    bool
}

// StatusPoller tracks one asynchronous resume-generation job until it
// reaches a terminal state.
//
// At most one status request is in flight per poller at any time; attempt
// N+1 is never issued before attempt N resolved. Stop cancels the
// in-flight request and any pending backoff timer, and is safe to call
// from any state, any number of times.
//
// Network and decoding failures end the poll with [StateError]: the design
// retries by issuing the next status check, never by re-running a failed
// one. Exhausting the attempt budget ends the poll with [StateTimedOut].
type StatusPoller struct {
	fetcher StatusFetcher
	cfg     PollConfig
	clock   Clock

	mu         sync.Mutex
	gen        int // incremented per Start; stale loops must not touch state
	resourceID string
	state      PollState
	attempts   int
	lastResult map[string]interface{}
	lastError  string
	running    bool
	cancel     context.CancelFunc
	done       chan struct{}
}

// PollerOption customizes a [StatusPoller].
type PollerOption func(*StatusPoller)

// WithClock substitutes the timer source, letting tests drive backoff with
// a virtual clock.
func WithClock(c Clock) PollerOption {
	return func(p *StatusPoller) { p.clock = c }
}

// NewStatusPoller creates a poller. Zero fields of cfg fall back to
// [DefaultPollConfig].
func NewStatusPoller(fetcher StatusFetcher, cfg PollConfig, opts ...PollerOption) *StatusPoller {
	p := &StatusPoller{
		fetcher: fetcher,
		cfg:     cfg.withDefaults(),
		clock:   realClock{},
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins tracking resourceID. If a poll is already running the call
// is a no-op. The first request is issued immediately with no initial
// delay; prior error and result state is cleared.
func (p *StatusPoller) Start(ctx context.Context, resourceID string) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	if resourceID == "" {
		p.mu.Unlock()
		return ErrEmptyResourceID
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.gen++
	gen := p.gen
	p.resourceID = resourceID
	p.state = StateProcessing
	p.attempts = 0
	p.lastResult = nil
	p.lastError = ""
	p.running = true
	p.cancel = cancel
	p.done = make(chan struct{})
	done := p.done
	p.mu.Unlock()

	go p.loop(pollCtx, gen, resourceID, done)
	return nil
}

// Stop aborts the poll. The state becomes [StateAborted] if the poll was
// still running; a caller-initiated abort is not an error, so LastError is
// left untouched. Idempotent.
func (p *StatusPoller) Stop() {
	p.mu.Lock()
	if p.running {
		p.state = StateAborted
		p.running = false
	}
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Done returns a channel closed once the current poll loop has fully
// exited. Before the first Start it returns an already-closed channel.
func (p *StatusPoller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.done
}

// Snapshot returns a copy of the poll's observable state.
func (p *StatusPoller) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Snapshot{
		ResourceID: p.resourceID,
		State:      p.state,
		Attempts:   p.attempts,
		LastResult: p.lastResult,
		LastError:  p.lastError,
		Running:    p.running,
	}
}

func (p *StatusPoller) loop(ctx context.Context, gen int, resourceID string, done chan struct{}) {
	defer close(done)

	for {
		p.mu.Lock()
		if p.gen != gen || !p.running {
			p.mu.Unlock()
			return
		}
		p.attempts++
		attempt := p.attempts
		p.mu.Unlock()

		body, err := p.fetcher.FetchStatus(ctx, resourceID)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				// Aborted by Stop; Stop already recorded the state.
				return
			}
			p.finish(gen, StateError, err.Error())
			return
		}

		status, errMsg, doc, derr := decodeStatusPayload(body)
		if derr != nil {
			p.finish(gen, StateError, derr.Error())
			return
		}

		p.mu.Lock()
		if p.gen == gen && p.running {
			p.lastResult = doc
		}
		p.mu.Unlock()

		switch status {
		case JobComplete:
			p.finish(gen, StateComplete, "")
			return
		case JobError:
			if errMsg == "" {
				errMsg = genericErrorMessage
			}
			p.finish(gen, StateError, errMsg)
			return
		}

		// Still in flight. Give up once the attempt budget is spent rather
		// than sleeping through one more useless delay.
		if attempt >= p.cfg.MaxAttempts {
			p.finish(gen, StateTimedOut, timeoutMessage)
			return
		}

		select {
		case <-p.clock.After(p.cfg.delayAfter(attempt)):
		case <-ctx.Done():
			return
		}
	}
}

// finish moves the poll into a terminal state unless Stop or a newer Start
// got there first.
func (p *StatusPoller) finish(gen int, state PollState, errMsg string) {
	p.mu.Lock()
	if p.gen != gen || !p.running {
		p.mu.Unlock()
		return
	}
	p.state = state
	if errMsg != "" {
		p.lastError = errMsg
	}
	p.running = false
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
