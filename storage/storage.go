// Package storage defines persistence contracts for committed battle rooms.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested room record is missing.
	ErrNotFound = errors.New("record not found")
)

// Corner is one persisted lattice coordinate.
type Corner struct {
	X, Y, Z int
}

// RoomRecord stores one committed room definition. Corners are nil when a
// stored row is partial; loaders skip such records.
type RoomRecord struct {
	Name      string
	Type      string
	World     string
	Pos1      *Corner
	Pos2      *Corner
	Gate1     *Corner
	Gate2     *Corner
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Complete reports whether all four corners are present.
func (r RoomRecord) Complete() bool {
	return r.Pos1 != nil && r.Pos2 != nil && r.Gate1 != nil && r.Gate2 != nil
}

// RoomStore persists room definitions.
type RoomStore interface {
	LoadRooms(ctx context.Context) ([]RoomRecord, error)
	SaveRoom(ctx context.Context, record RoomRecord) error
	DeleteRoom(ctx context.Context, name string) error
}
