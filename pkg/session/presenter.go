package session

import (
	"context"
	"sync"
	"time"
)

// DefaultRevealTick is the fixed cadence at which the presenter reveals
// accumulated text, one rune per tick.
const DefaultRevealTick = 20 * time.Millisecond

// Presenter paces the display of accumulated text. Revealed text is
// always a prefix of the source and never rewinds; the reveal cadence is
// fixed and independent of fragment arrival. Presentation never affects
// what gets persisted.
type Presenter struct {
	source func() string
	tick   time.Duration

	mu    sync.Mutex
	count int // runes revealed

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewPresenter builds a presenter over source. A non-positive tick falls
// back to DefaultRevealTick.
func NewPresenter(source func() string, tick time.Duration) *Presenter {
	if tick <= 0 {
		tick = DefaultRevealTick
	}
	return &Presenter{
		source: source,
		tick:   tick,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the reveal loop until Stop is called.
func (p *Presenter) Start() {
	go func() {
		defer close(p.done)
		t := time.NewTicker(p.tick)
		defer t.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-t.C:
				p.step()
			}
		}
	}()
}

func (p *Presenter) step() {
	runes := []rune(p.source())
	p.mu.Lock()
	if p.count < len(runes) {
		p.count++
	}
	p.mu.Unlock()
}

// Stop halts the reveal loop. Revealed text stays where it was.
func (p *Presenter) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	<-p.done
}

// Revealed returns the currently visible prefix of the source.
func (p *Presenter) Revealed() string {
	runes := []rune(p.source())
	p.mu.Lock()
	n := p.count
	p.mu.Unlock()
	if n > len(runes) {
		n = len(runes)
	}
	return string(runes[:n])
}

// CaughtUp reports whether everything accumulated is visible.
func (p *Presenter) CaughtUp() bool {
	runes := []rune(p.source())
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count >= len(runes)
}

// Reveal jumps the visible prefix to the full source. Used when pacing
// is abandoned (for example after cancellation).
func (p *Presenter) Reveal() {
	runes := []rune(p.source())
	p.mu.Lock()
	if p.count < len(runes) {
		p.count = len(runes)
	}
	p.mu.Unlock()
}

// Wait blocks until the presenter catches up with the source, the max
// bound elapses, or ctx is cancelled. It returns nil when caught up.
func (p *Presenter) Wait(ctx context.Context, max time.Duration) error {
	deadline := time.NewTimer(max)
	defer deadline.Stop()
	poll := time.NewTicker(p.tick)
	defer poll.Stop()
	for {
		if p.CaughtUp() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrRevealTimeout
		case <-poll.C:
		}
	}
}
