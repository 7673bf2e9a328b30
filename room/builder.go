package room

import (
	"context"
	"log/slog"
	"strings"

	apperrors "battlerooms/errors"
	"battlerooms/game"
)

// Progress reports which corners of a draft are set.
type Progress struct {
	Name  string
	Type  string
	World string
	Set   [4]bool
}

func (p Progress) Complete() bool {
	return p.Set[Pos1] && p.Set[Pos2] && p.Set[Gate1] && p.Set[Gate2]
}

func progressOf(r *Room) Progress {
	p := Progress{Name: r.name, Type: r.typ.Display, World: r.world}
	for i, c := range r.corners {
		p.Set[i] = c != nil
	}
	return p
}

// CreateDraft starts building a room of the given type in world on behalf of
// actor.
func (m *Manager) CreateDraft(actor, typeName, name, world string) error {
	typ, ok := game.ParseType(typeName)
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeInvalidType,
			"invalid room type: "+typeName, map[string]string{"type": typeName})
	}
	name = strings.TrimSpace(name)
	key := game.NameKey(name)
	if key == "" {
		return apperrors.ErrInvalidName
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.rooms[key]; exists {
		return apperrors.WithMetadata(apperrors.CodeDuplicateName,
			"a room named "+name+" already exists", map[string]string{"room": name})
	}
	if _, drafting := m.drafts[actor]; drafting {
		return apperrors.ErrAlreadyDrafting
	}
	m.drafts[actor] = New(name, typ, world)
	return nil
}

// SetPoint records p as corner c of actor's draft.
func (m *Manager) SetPoint(actor string, c Corner, p game.Point) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[actor]
	if !ok {
		return Progress{}, apperrors.ErrNoActiveDraft
	}
	if p.World != d.world {
		return progressOf(d), apperrors.WithMetadata(apperrors.CodeWrongWorld,
			"the room is being built in "+d.world, map[string]string{"world": d.world})
	}
	d.SetCorner(c, p)
	return progressOf(d), nil
}

// Progress returns the state of actor's draft.
func (m *Manager) Progress(actor string) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drafts[actor]
	if !ok {
		return Progress{}, apperrors.ErrNoActiveDraft
	}
	return progressOf(d), nil
}

// Commit registers actor's draft as a live room and queues it for
// persistence.
func (m *Manager) Commit(ctx context.Context, actor string) (RoomInfo, error) {
	m.mu.Lock()
	d, ok := m.drafts[actor]
	if !ok {
		m.mu.Unlock()
		return RoomInfo{}, apperrors.ErrNoActiveDraft
	}
	_, span := m.startSpan(ctx, "room.commit", d)
	defer span.End()
	if !d.IsComplete() {
		m.mu.Unlock()
		return RoomInfo{}, apperrors.ErrIncompleteConfiguration
	}
	if _, exists := m.rooms[d.key]; exists {
		m.mu.Unlock()
		return RoomInfo{}, apperrors.WithMetadata(apperrors.CodeDuplicateName,
			"a room named "+d.name+" already exists", map[string]string{"room": d.name})
	}
	m.rooms[d.key] = d
	m.order = nil
	delete(m.drafts, actor)
	info := d.Info()
	rec := d.record()
	m.mu.Unlock()

	m.writes.save(rec)
	m.log.Info("room saved", slog.String("room", d.name), slog.String("type", d.typ.Display))
	return info, nil
}

// CancelDraft discards actor's draft.
func (m *Manager) CancelDraft(actor string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.drafts[actor]; !ok {
		return apperrors.ErrNoActiveDraft
	}
	delete(m.drafts, actor)
	return nil
}

// Drafting reports whether actor has a draft open.
func (m *Manager) Drafting(actor string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.drafts[actor]
	return ok
}
