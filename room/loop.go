package room

import (
	"context"
	"sync"
	"sync/atomic"
)

const inboxSize = 256

// Loop serializes host events onto one goroutine, in the order they were
// posted.
type Loop struct {
	Inbox chan any

	m        *Manager
	quit     chan struct{}
	stopOnce sync.Once
}

func NewLoop(m *Manager) *Loop {
	return &Loop{
		Inbox: make(chan any, inboxSize),
		m:     m,
		quit:  make(chan struct{}),
	}
}

func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.quit) })
}

// Post queues cmd, giving up when ctx ends or the loop stops.
func (l *Loop) Post(ctx context.Context, cmd any) bool {
	select {
	case l.Inbox <- cmd:
		return true
	case <-ctx.Done():
		return false
	case <-l.quit:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish. When Do returns false
// fn has not run and never will.
func (l *Loop) Do(ctx context.Context, fn func(*Manager)) bool {
	done := make(chan struct{})
	claim := new(atomic.Int32)
	if !l.Post(ctx, Call{Fn: fn, Done: done, claim: claim}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-ctx.Done():
	case <-l.quit:
	}
	if claim.CompareAndSwap(callPending, callAbandoned) {
		return false
	}
	// Already running; fn is short, so wait it out.
	<-done
	return true
}

func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.quit:
			return
		case cmd := <-l.Inbox:
			l.handleCommand(ctx, cmd)
		}
	}
}

func (l *Loop) handleCommand(ctx context.Context, cmd any) {
	switch c := cmd.(type) {
	case Move:
		l.m.Move(ctx, c.Actor, c.From, c.To)
	case Eliminate:
		l.m.Eliminate(ctx, c.Actor)
	case Disconnect:
		l.m.Disconnect(ctx, c.Actor)
	case Call:
		if c.claim != nil && !c.claim.CompareAndSwap(callPending, callRunning) {
			return
		}
		c.Fn(l.m)
		if c.Done != nil {
			close(c.Done)
		}
	}
}
