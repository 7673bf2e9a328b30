package room

import (
	"context"
	"errors"
	"time"

	"battlerooms/game"
	"battlerooms/storage"
)

// Store persists committed rooms. The manager treats writes as fire and
// forget; in-memory state stays authoritative.
type Store interface {
	LoadRooms(ctx context.Context) ([]storage.RoomRecord, error)
	SaveRoom(ctx context.Context, record storage.RoomRecord) error
	DeleteRoom(ctx context.Context, name string) error
}

// World reads and writes block contents for gate sealing.
type World interface {
	ReadCell(ctx context.Context, p game.Point) (string, error)
	WriteCell(ctx context.Context, p game.Point, content string) error
}

// Notifier delivers lifecycle announcements. It is called with the manager
// lock held and must not block or call back into the manager.
type Notifier interface {
	Broadcast(msg string)
	Send(actor, msg string)
	DisplayName(actor string) string
}

// Scheduler runs f once after d on its own goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type clockScheduler struct{}

func (clockScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

type nopNotifier struct{}

func (nopNotifier) Broadcast(string)             {}
func (nopNotifier) Send(string, string)          {}
func (nopNotifier) DisplayName(id string) string { return id }

var errNoWorld = errors.New("no world configured")

type missingWorld struct{}

func (missingWorld) ReadCell(context.Context, game.Point) (string, error) {
	return "", errNoWorld
}

func (missingWorld) WriteCell(context.Context, game.Point, string) error {
	return errNoWorld
}
