package room

import (
	"sync/atomic"

	"battlerooms/game"
)

// Move: actor crossed into a new cell
type Move struct {
	Actor    string
	From, To game.Point
}

// Eliminate: actor was defeated
type Eliminate struct {
	Actor string
}

// Disconnect: issued when the actor's connection closes
type Disconnect struct {
	Actor string
}

// Call runs Fn against the manager on the loop goroutine. Done, if set, is
// closed afterwards.
type Call struct {
	Fn   func(*Manager)
	Done chan<- struct{}

	// claim, when set, lets the poster withdraw a call that has not started.
	claim *atomic.Int32
}

const (
	callPending int32 = iota
	callRunning
	callAbandoned
)
