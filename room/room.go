package room

import (
	"context"
	"fmt"
	"sort"

	"battlerooms/game"
	"battlerooms/storage"
)

// Corner names one of the four points a room is built from.
type Corner uint8

const (
	Pos1 Corner = iota
	Pos2
	Gate1
	Gate2
)

func (c Corner) String() string {
	switch c {
	case Pos1:
		return "pos1"
	case Pos2:
		return "pos2"
	case Gate1:
		return "gate1"
	case Gate2:
		return "gate2"
	default:
		return "unknown"
	}
}

// Room is one battle arena: a body region actors fight in and a gate region
// that is sealed while a match runs.
type Room struct {
	name  string
	key   string
	typ   game.Type
	world string

	corners [4]*game.Point

	state     game.State
	occupants map[string]struct{}

	// snapshot holds pre-seal gate contents; non-nil while any gate cell
	// is still sealed.
	snapshot map[game.Point]string
	// cooldownGen ties a scheduled reopen to the cooldown that armed it.
	cooldownGen uint64
}

// RoomInfo is a point-in-time copy of a room for listings.
type RoomInfo struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Capacity  int        `json:"capacity"`
	World     string     `json:"world"`
	State     game.State `json:"state"`
	Occupants []string   `json:"occupants"`
	Sealed    bool       `json:"sealed"`
}

func New(name string, typ game.Type, world string) *Room {
	return &Room{
		name:      name,
		key:       game.NameKey(name),
		typ:       typ,
		world:     world,
		state:     game.Waiting,
		occupants: make(map[string]struct{}),
	}
}

func (r *Room) Name() string      { return r.name }
func (r *Room) Key() string       { return r.key }
func (r *Room) Type() game.Type   { return r.typ }
func (r *Room) World() string     { return r.world }
func (r *Room) State() game.State { return r.state }
func (r *Room) Sealed() bool      { return r.snapshot != nil }

// SetCorner stores p as corner c, replacing any earlier value.
func (r *Room) SetCorner(c Corner, p game.Point) {
	p.World = r.world
	r.corners[c] = &p
}

// CornerAt returns corner c if it has been set.
func (r *Room) CornerAt(c Corner) (game.Point, bool) {
	p := r.corners[c]
	if p == nil {
		return game.Point{}, false
	}
	return *p, true
}

// IsComplete reports whether all four corners are set.
func (r *Room) IsComplete() bool {
	for _, p := range r.corners {
		if p == nil {
			return false
		}
	}
	return true
}

func (r *Room) region(a, b Corner) game.Region {
	pa, pb := r.corners[a], r.corners[b]
	if pa == nil || pb == nil {
		return game.Region{}
	}
	return game.NewRegion(r.world, *pa, *pb)
}

// Body is the playable volume. Unset until pos1 and pos2 are both known.
func (r *Room) Body() game.Region { return r.region(Pos1, Pos2) }

// Gate is the volume sealed during a match.
func (r *Room) Gate() game.Region { return r.region(Gate1, Gate2) }

func (r *Room) Contains(p game.Point) bool { return r.Body().Contains(p) }

// IsProtected reports whether p is part of the room's shell or its gate.
func (r *Room) IsProtected(p game.Point) bool {
	return r.Body().IsOnBoundary(p) || r.Gate().Contains(p)
}

func (r *Room) HasOccupant(actor string) bool {
	_, ok := r.occupants[actor]
	return ok
}

func (r *Room) OccupantCount() int { return len(r.occupants) }

// Occupants returns the occupant ids in sorted order.
func (r *Room) Occupants() []string {
	out := make([]string, 0, len(r.occupants))
	for id := range r.occupants {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Room) addOccupant(actor string) bool {
	if r.HasOccupant(actor) {
		return false
	}
	r.occupants[actor] = struct{}{}
	return true
}

func (r *Room) removeOccupant(actor string) bool {
	if !r.HasOccupant(actor) {
		return false
	}
	delete(r.occupants, actor)
	return true
}

func (r *Room) clearOccupants() {
	clear(r.occupants)
}

// sealGate records the current gate contents and overwrites every gate cell
// with material. Cells that could not be captured are left untouched, so the
// snapshot always matches what was actually replaced. Cells still held from an
// earlier partial unseal keep their recorded content.
func (r *Room) sealGate(ctx context.Context, w World, material string) error {
	gate := r.Gate()
	if r.snapshot == nil {
		r.snapshot = make(map[game.Point]string, gate.Volume())
	}
	snap := r.snapshot
	var err error
	gate.Cells(func(p game.Point) bool {
		prev, held := snap[p]
		if !held {
			var rerr error
			if prev, rerr = w.ReadCell(ctx, p); rerr != nil {
				err = fmt.Errorf("seal gate of %s: %w", r.name, rerr)
				return false
			}
		}
		if werr := w.WriteCell(ctx, p, material); werr != nil {
			err = fmt.Errorf("seal gate of %s: %w", r.name, werr)
			return false
		}
		snap[p] = prev
		return true
	})
	return err
}

// unsealGate restores the gate snapshot. Cells that could not be written stay
// in the snapshot so a later unseal retries them.
func (r *Room) unsealGate(ctx context.Context, w World) error {
	if r.snapshot == nil {
		return nil
	}
	var first error
	total := len(r.snapshot)
	for p, content := range r.snapshot {
		if err := w.WriteCell(ctx, p, content); err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		delete(r.snapshot, p)
	}
	failed := len(r.snapshot)
	if failed == 0 {
		r.snapshot = nil
	}
	if first != nil {
		return fmt.Errorf("unseal gate of %s: %d of %d cells not restored: %w", r.name, failed, total, first)
	}
	return nil
}

// Info snapshots the room for callers outside the manager lock.
func (r *Room) Info() RoomInfo {
	return RoomInfo{
		Name:      r.name,
		Type:      r.typ.Display,
		Capacity:  r.typ.Capacity,
		World:     r.world,
		State:     r.state,
		Occupants: r.Occupants(),
		Sealed:    r.Sealed(),
	}
}

func (r *Room) record() storage.RoomRecord {
	rec := storage.RoomRecord{Name: r.name, Type: r.typ.Display, World: r.world}
	dst := []**storage.Corner{&rec.Pos1, &rec.Pos2, &rec.Gate1, &rec.Gate2}
	for i, p := range r.corners {
		if p != nil {
			*dst[i] = &storage.Corner{X: p.X, Y: p.Y, Z: p.Z}
		}
	}
	return rec
}

// fromRecord rebuilds a committed room from storage. Records with an unknown
// type, no world or a missing corner are rejected.
func fromRecord(rec storage.RoomRecord) (*Room, error) {
	typ, ok := game.ParseType(rec.Type)
	if !ok {
		return nil, fmt.Errorf("room %q: unknown type %q", rec.Name, rec.Type)
	}
	if game.NameKey(rec.Name) == "" || rec.World == "" {
		return nil, fmt.Errorf("room %q: missing name or world", rec.Name)
	}
	if !rec.Complete() {
		return nil, fmt.Errorf("room %q: incomplete corners", rec.Name)
	}
	r := New(rec.Name, typ, rec.World)
	for i, c := range []*storage.Corner{rec.Pos1, rec.Pos2, rec.Gate1, rec.Gate2} {
		r.SetCorner(Corner(i), game.Point{X: c.X, Y: c.Y, Z: c.Z})
	}
	return r, nil
}
