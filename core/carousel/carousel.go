package carousel

import (
	"context"
	"sync"
	"time"
)

// Carousel is a cyclic cursor over a fixed number of items.
type Carousel struct {
	mu    sync.Mutex
	n     int
	index int
}

func New(n int) *Carousel {
	c := &Carousel{}
	c.Reset(n)
	return c
}

// Reset swaps the item count (the image list changed) and rewinds to the first item.
func (c *Carousel) Reset(n int) {
	if n < 0 {
		n = 0
	}
	c.mu.Lock()
	c.n = n
	c.index = 0
	c.mu.Unlock()
}

func (c *Carousel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func (c *Carousel) Index() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index
}

// Advance moves to the next item, wrapping after the last one, and returns the new index.
func (c *Carousel) Advance() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.n == 0 {
		return 0
	}
	c.index = (c.index + 1) % c.n
	return c.index
}

// Rotate returns items reordered to start at index start, wrapping around.
func Rotate[T any](items []T, start int) []T {
	n := len(items)
	if n == 0 {
		return items
	}
	start = ((start % n) + n) % n
	out := make([]T, 0, n)
	out = append(out, items[start:]...)
	return append(out, items[:start]...)
}

// newTicker is mockable.
var newTicker = func(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Runner advances a Carousel on a fixed interval between Start and Stop.
// At most one timer runs per Runner.
type Runner struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(interval time.Duration) *Runner {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Runner{interval: interval}
}

// Start stops any previous timer, then advances c on every tick and reports the new index
// to onTick until ctx is done or Stop is called. Nothing is started for an empty carousel.
func (r *Runner) Start(ctx context.Context, c *Carousel, onTick func(index int)) {
	r.Stop()
	if c.Len() == 0 {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	ticks, stopTicker := newTicker(r.interval)

	r.mu.Lock()
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		defer stopTicker()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				idx := c.Advance()
				if ctx.Err() != nil {
					return
				}
				if onTick != nil {
					onTick(idx)
				}
			}
		}
	}()
}

// Stop cancels the running timer, if any, and waits for it to exit.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Running reports whether a timer is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}
