package client

import (
	"sync"

	"xdao.co/hermes/account"
	"xdao.co/hermes/outcome"
)

// Pending is the handle of one in-flight call. It completes exactly once.
type Pending struct {
	query account.Query
	done  chan struct{}
	once  sync.Once
	out   outcome.Outcome
}

func newPending(q account.Query) *Pending {
	return &Pending{query: q, done: make(chan struct{})}
}

// complete stores o unless an outcome was already delivered.
func (p *Pending) complete(o outcome.Outcome) bool {
	first := false
	p.once.Do(func() {
		p.out = o
		first = true
		close(p.done)
	})
	return first
}

// Query returns the request this call was made for.
func (p *Pending) Query() account.Query { return p.query }

// Done is closed once the outcome is available.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the outcome is available.
func (p *Pending) Wait() outcome.Outcome {
	<-p.done
	return p.out
}

// Result returns the outcome without blocking; ok is false while in flight.
func (p *Pending) Result() (o outcome.Outcome, ok bool) {
	select {
	case <-p.done:
		return p.out, true
	default:
		return outcome.Outcome{}, false
	}
}

// Then calls fn exactly once, from its own goroutine, with the outcome.
func (p *Pending) Then(fn func(outcome.Outcome)) {
	go func() { fn(p.Wait()) }()
}
