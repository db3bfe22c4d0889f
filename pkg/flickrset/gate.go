package flickrset

import (
	"context"
	"sync"
)

// Gate is a one-shot completion signal. Resolve fires it once; later calls do nothing.
type Gate struct {
	once sync.Once
	done chan struct{}
}

// NewGate returns an unresolved gate.
func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Resolve fires the gate and reports whether this call was the one that fired it.
func (g *Gate) Resolve() bool {
	fired := false
	g.once.Do(func() {
		close(g.done)
		fired = true
	})
	return fired
}

// Done is closed once the gate has fired.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

// Resolved reports whether the gate has fired.
func (g *Gate) Resolved() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the gate fires or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
