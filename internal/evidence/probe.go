package evidence

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Probe memoizes whether the search endpoint is reachable. The first
// completed check decides the answer for the rest of the process.
// Concurrent first callers may each run the check; the earliest result wins.
type Probe struct {
	check func(ctx context.Context) error

	mu        sync.Mutex
	done      bool
	available bool
}

// NewProbe returns a Probe backed by check.
func NewProbe(check func(ctx context.Context) error) *Probe {
	return &Probe{check: check}
}

// Available reports whether search can be used, running the check once.
func (p *Probe) Available(ctx context.Context) bool {
	p.mu.Lock()
	if p.done {
		v := p.available
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()

	// A canceled caller must not decide the answer for everyone else.
	err := p.check(context.WithoutCancel(ctx))

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.done {
		p.done = true
		p.available = err == nil
		if err != nil {
			zap.L().Warn("evidence: search unavailable, continuing without it", zap.Error(err))
		}
	}
	return p.available
}
