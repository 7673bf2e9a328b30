package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"battlerooms/storage"
)

const (
	persistQueueSize = 64
	persistTimeout   = 5 * time.Second
)

type persistOp struct {
	save    *storage.RoomRecord
	del     string
	flushed chan struct{}
}

// persister applies store writes on a single goroutine in submission order.
type persister struct {
	store Store
	log   *slog.Logger

	mu     sync.RWMutex
	closed bool
	ops    chan persistOp
	done   chan struct{}
}

func newPersister(store Store, log *slog.Logger) *persister {
	p := &persister{
		store: store,
		log:   log,
		ops:   make(chan persistOp, persistQueueSize),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) run() {
	defer close(p.done)
	for op := range p.ops {
		if op.flushed != nil {
			close(op.flushed)
			continue
		}
		if p.store == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		switch {
		case op.save != nil:
			if err := p.store.SaveRoom(ctx, *op.save); err != nil {
				p.log.Error("persist room", slog.String("room", op.save.Name), slog.Any("error", err))
			}
		case op.del != "":
			if err := p.store.DeleteRoom(ctx, op.del); err != nil && !errors.Is(err, storage.ErrNotFound) {
				p.log.Error("delete persisted room", slog.String("room", op.del), slog.Any("error", err))
			}
		}
		cancel()
	}
}

func (p *persister) enqueue(op persistOp) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	p.ops <- op
	return true
}

func (p *persister) save(rec storage.RoomRecord) {
	if !p.enqueue(persistOp{save: &rec}) {
		p.log.Warn("persist after shutdown dropped", slog.String("room", rec.Name))
	}
}

func (p *persister) delete(name string) {
	if !p.enqueue(persistOp{del: name}) {
		p.log.Warn("delete after shutdown dropped", slog.String("room", name))
	}
}

// Flush waits until every write queued before the call has been applied.
func (p *persister) Flush(ctx context.Context) error {
	ch := make(chan struct{})
	if !p.enqueue(persistOp{flushed: ch}) {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queue and stops the writer.
func (p *persister) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.ops)
	}
	p.mu.Unlock()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
