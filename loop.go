package discord

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/oklahomer/go-kasumi/logger"
)

// Loop is the consumer context: a FIFO of functions executed one at a time.
// Post never blocks, so discordgo's goroutines can hand work over and go back to the gateway.
// Consume the queue either with Run on a dedicated goroutine or with Drain from a host's own tick.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

// NewLoop creates an empty Loop.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
	}
}

// Post queues fn for execution on the consumer context.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}

	l.mu.Lock()
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Drain executes every function queued so far on the calling goroutine and returns how many ran.
func (l *Loop) Drain() int {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	for _, fn := range batch {
		l.execute(fn)
	}
	return len(batch)
}

// Run executes queued functions until ctx is canceled.
// Functions still queued at cancellation are left for a later Drain.
func (l *Loop) Run(ctx context.Context) {
	for {
		l.Drain()

		select {
		case <-ctx.Done():
			return

		case <-l.wake:
		}
	}
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Recovered from panic on consumer loop: %+v\n%s", r, debug.Stack())
		}
	}()
	fn()
}
