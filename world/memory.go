// Package world holds the block contents of the coordinate spaces rooms live
// in.
package world

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"battlerooms/game"
)

// ErrNoWorld is returned when a cell is addressed in a world that is not
// loaded.
var ErrNoWorld = errors.New("world not loaded")

// Memory is an in-memory sparse voxel store. Cells never written read as
// game.EmptyCell.
type Memory struct {
	mu     sync.RWMutex
	worlds map[string]map[game.Point]string
}

func NewMemory(names ...string) *Memory {
	m := &Memory{worlds: make(map[string]map[game.Point]string)}
	for _, n := range names {
		m.AddWorld(n)
	}
	return m
}

// AddWorld loads an empty world. Adding an existing world is a no-op.
func (m *Memory) AddWorld(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.worlds[name]; !ok {
		m.worlds[name] = make(map[game.Point]string)
	}
}

// RemoveWorld unloads a world and all its cells.
func (m *Memory) RemoveWorld(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.worlds, name)
}

// Worlds returns the number of loaded worlds.
func (m *Memory) Worlds() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.worlds)
}

func (m *Memory) ReadCell(ctx context.Context, p game.Point) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cells, ok := m.worlds[p.World]
	if !ok {
		return "", fmt.Errorf("read %s: %w", p, ErrNoWorld)
	}
	if c, ok := cells[p]; ok {
		return c, nil
	}
	return game.EmptyCell, nil
}

func (m *Memory) WriteCell(ctx context.Context, p game.Point, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cells, ok := m.worlds[p.World]
	if !ok {
		return fmt.Errorf("write %s: %w", p, ErrNoWorld)
	}
	if content == "" || content == game.EmptyCell {
		delete(cells, p)
		return nil
	}
	cells[p] = content
	return nil
}

// Fill writes content to every cell of r.
func (m *Memory) Fill(ctx context.Context, r game.Region, content string) error {
	var err error
	r.Cells(func(p game.Point) bool {
		err = m.WriteCell(ctx, p, content)
		return err == nil
	})
	return err
}
