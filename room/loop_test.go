package room

import (
	"context"
	"testing"
	"time"

	"battlerooms/game"
)

func TestLoopAppliesEventsInOrder(t *testing.T) {
	h := newHarness(t)
	h.commitRoom(t, "1v1", "Arena1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := NewLoop(h.m)
	go loop.Run(ctx)

	events := []any{
		Move{Actor: "alice", From: outside, To: inside(0)},
		Move{Actor: "bob", From: outside, To: inside(1)},
		Eliminate{Actor: "bob"},
	}
	for _, ev := range events {
		if !loop.Post(ctx, ev) {
			t.Fatal("post rejected")
		}
	}

	var info RoomInfo
	ok := loop.Do(ctx, func(m *Manager) {
		info, _ = m.Get("Arena1")
	})
	if !ok {
		t.Fatal("do rejected")
	}
	if info.State != game.Cooldown {
		t.Fatalf("state = %v, want COOLDOWN", info.State)
	}
}

func TestLoopDisconnect(t *testing.T) {
	h := newHarness(t)
	h.commitRoom(t, "1v1", "Arena1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := NewLoop(h.m)
	go loop.Run(ctx)

	loop.Post(ctx, Move{Actor: "alice", From: outside, To: inside(0)})
	loop.Post(ctx, Disconnect{Actor: "alice"})
	var n int
	loop.Do(ctx, func(m *Manager) {
		info, _ := m.Get("Arena1")
		n = len(info.Occupants)
	})
	if n != 0 {
		t.Fatalf("occupants = %d, want 0", n)
	}
}

func TestLoopStopRejectsWork(t *testing.T) {
	h := newHarness(t)
	loop := NewLoop(h.m)
	done := make(chan struct{})
	go func() {
		loop.Run(context.Background())
		close(done)
	}()
	loop.Stop()
	loop.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}

	// Fill the inbox so Post can only return through quit.
	for i := 0; i < inboxSize; i++ {
		loop.Inbox <- Eliminate{Actor: "x"}
	}
	if loop.Post(context.Background(), Eliminate{Actor: "y"}) {
		t.Fatal("post accepted after stop")
	}
}

func TestLoopDoWithdrawnCallNeverRuns(t *testing.T) {
	h := newHarness(t)
	loop := NewLoop(h.m)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ran := false
	if loop.Do(ctx, func(*Manager) { ran = true }) {
		t.Fatal("Do reported success without a running loop")
	}

	runCtx, stop := context.WithCancel(context.Background())
	defer stop()
	go loop.Run(runCtx)
	if !loop.Do(runCtx, func(*Manager) {}) {
		t.Fatal("do rejected")
	}
	if ran {
		t.Fatal("withdrawn call ran after Do gave up")
	}
}
