package room

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "battlerooms/errors"
	"battlerooms/game"
)

var tracer = otel.Tracer("battlerooms/room")

// Messages are the announcement templates. {room}, {type} and {winner} are
// substituted when sent.
type Messages struct {
	Entered       string
	BattleBegun   string
	PlayerWins    string
	NoWinner      string
	RoomReopening string
}

func DefaultMessages() Messages {
	return Messages{
		Entered:       "You have entered the {room} room ({type})",
		BattleBegun:   "The battle has begun! The room is now sealed!",
		PlayerWins:    "{winner} has won the battle in {room}!",
		NoWinner:      "The battle in {room} has ended with no winner!",
		RoomReopening: "{room} will reopen shortly.",
	}
}

type Options struct {
	Cooldown       time.Duration
	SealedMaterial string
	Messages       Messages
	Logger         *slog.Logger
}

// Deps are the manager's collaborators. Nil members fall back to inert
// implementations, except Store, which disables persistence when nil.
type Deps struct {
	Store     Store
	World     World
	Notifier  Notifier
	Scheduler Scheduler
}

// Manager owns the room registry and draft sessions and runs every room's
// lifecycle.
type Manager struct {
	opts   Options
	store  Store
	world  World
	notify Notifier
	sched  Scheduler
	log    *slog.Logger
	writes *persister

	mu     sync.Mutex
	rooms  map[string]*Room
	order  []*Room // rooms sorted by key; nil when stale
	drafts map[string]*Room
}

func NewManager(opts Options, deps Deps) *Manager {
	if opts.Cooldown <= 0 {
		opts.Cooldown = game.DefaultCooldown
	}
	if opts.SealedMaterial == "" {
		opts.SealedMaterial = game.DefaultSealedMaterial
	}
	defaults := DefaultMessages()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&opts.Messages.Entered, defaults.Entered)
	fill(&opts.Messages.BattleBegun, defaults.BattleBegun)
	fill(&opts.Messages.PlayerWins, defaults.PlayerWins)
	fill(&opts.Messages.NoWinner, defaults.NoWinner)
	fill(&opts.Messages.RoomReopening, defaults.RoomReopening)
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	m := &Manager{
		opts:   opts,
		store:  deps.Store,
		world:  deps.World,
		notify: deps.Notifier,
		sched:  deps.Scheduler,
		log:    opts.Logger,
		rooms:  make(map[string]*Room),
		drafts: make(map[string]*Room),
	}
	if m.world == nil {
		m.world = missingWorld{}
	}
	if m.notify == nil {
		m.notify = nopNotifier{}
	}
	if m.sched == nil {
		m.sched = clockScheduler{}
	}
	m.writes = newPersister(deps.Store, m.log)
	return m
}

// Load replaces the registry with the rooms held by the store. Invalid
// records are skipped.
func (m *Manager) Load(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	ctx, span := tracer.Start(ctx, "room.load")
	defer span.End()

	recs, err := m.store.LoadRooms(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load rooms")
		return fmt.Errorf("load rooms: %w", err)
	}
	loaded := make(map[string]*Room, len(recs))
	for _, rec := range recs {
		r, err := fromRecord(rec)
		if err != nil {
			m.log.Warn("skipping stored room", slog.Any("error", err))
			continue
		}
		loaded[r.key] = r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, old := range m.rooms {
		m.unsealLocked(ctx, old)
	}
	m.rooms = loaded
	m.order = nil
	span.SetAttributes(attribute.Int("rooms", len(loaded)))
	m.log.Info("loaded battle rooms", slog.Int("count", len(loaded)))
	return nil
}

// Reload waits for pending writes and then reloads the registry from the
// store. Rooms in progress are reset.
func (m *Manager) Reload(ctx context.Context) error {
	if err := m.writes.Flush(ctx); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}
	return m.Load(ctx)
}

// Shutdown restores every sealed gate and flushes pending writes. Pending
// reopen timers are left to fire as no-ops.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	for _, r := range m.rooms {
		m.unsealLocked(ctx, r)
	}
	m.mu.Unlock()
	return m.writes.Close(ctx)
}

// Delete removes a room from the registry and the store.
func (m *Manager) Delete(ctx context.Context, name string) error {
	key := game.NameKey(name)
	m.mu.Lock()
	r, ok := m.rooms[key]
	if !ok {
		m.mu.Unlock()
		return apperrors.WithMetadata(apperrors.CodeNotFound, "room not found: "+name, map[string]string{"room": name})
	}
	delete(m.rooms, key)
	m.order = nil
	m.unsealLocked(ctx, r)
	r.clearOccupants()
	m.mu.Unlock()

	m.writes.delete(r.name)
	m.log.Info("room deleted", slog.String("room", r.name))
	return nil
}

// List returns a snapshot of every room sorted by name.
func (m *Manager) List() []RoomInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := m.orderedLocked()
	out := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Info())
	}
	return out
}

// Get returns a snapshot of one room.
func (m *Manager) Get(name string) (RoomInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[game.NameKey(name)]
	if !ok {
		return RoomInfo{}, false
	}
	return r.Info(), true
}

// Names returns the registry keys in order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := m.orderedLocked()
	out := make([]string, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.key)
	}
	return out
}

// RoomOf returns the room actor currently occupies.
func (m *Manager) RoomOf(actor string) (RoomInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.roomOfLocked(actor)
	if r == nil {
		return RoomInfo{}, false
	}
	return r.Info(), true
}

// InActiveRoom reports whether actor is fighting in a sealed match.
func (m *Manager) InActiveRoom(actor string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.roomOfLocked(actor)
	return r != nil && r.state == game.Active
}

// IsProtected reports whether p belongs to any room's shell or gate.
func (m *Manager) IsProtected(p game.Point) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.orderedLocked() {
		if r.IsProtected(p) {
			return true
		}
	}
	return false
}

// Move applies one cell change of actor. The caller suppresses moves within
// the same cell.
func (m *Manager) Move(ctx context.Context, actor string, from, to game.Point) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := Resolve(m.orderedLocked(), from, to)
	if t.Leave != nil {
		m.leaveLocked(t.Leave, actor)
	}
	if t.Enter != nil {
		m.enterLocked(ctx, t.Enter, actor)
	}
}

// Eliminate removes a defeated actor from its active match.
func (m *Manager) Eliminate(ctx context.Context, actor string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.roomOfLocked(actor)
	if r == nil || r.state != game.Active {
		return
	}
	r.removeOccupant(actor)
	m.checkWinLocked(ctx, r)
}

// Disconnect drops actor's draft and removes it from its room. Leaving an
// active match counts as an elimination.
func (m *Manager) Disconnect(ctx context.Context, actor string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, actor)
	r := m.roomOfLocked(actor)
	if r == nil {
		return
	}
	r.removeOccupant(actor)
	if r.state == game.Active {
		m.checkWinLocked(ctx, r)
	}
}

func (m *Manager) orderedLocked() []*Room {
	if m.order == nil {
		m.order = make([]*Room, 0, len(m.rooms))
		for _, r := range m.rooms {
			m.order = append(m.order, r)
		}
		sort.Slice(m.order, func(i, j int) bool { return m.order[i].key < m.order[j].key })
	}
	return m.order
}

func (m *Manager) roomOfLocked(actor string) *Room {
	for _, r := range m.orderedLocked() {
		if r.HasOccupant(actor) {
			return r
		}
	}
	return nil
}

// enterLocked keeps each actor in at most one room: a fighter cannot join
// another room, and a waiting actor moves out of its old room first.
func (m *Manager) enterLocked(ctx context.Context, r *Room, actor string) {
	if r.state != game.Waiting {
		return
	}
	if cur := m.roomOfLocked(actor); cur != nil && cur != r {
		if cur.state != game.Waiting {
			return
		}
		cur.removeOccupant(actor)
	}
	if !r.addOccupant(actor) {
		return
	}
	m.notify.Send(actor, m.render(m.opts.Messages.Entered, r, ""))
	if r.OccupantCount() >= r.typ.Capacity {
		m.activateLocked(ctx, r)
	}
}

func (m *Manager) leaveLocked(r *Room, actor string) {
	if r.state != game.Waiting {
		return
	}
	r.removeOccupant(actor)
}

func (m *Manager) activateLocked(ctx context.Context, r *Room) {
	ctx, span := m.startSpan(ctx, "room.activate", r)
	defer span.End()

	if err := r.sealGate(ctx, m.world, m.opts.SealedMaterial); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "seal gate")
		m.log.Error("gate left partially sealed", slog.String("room", r.name), slog.Any("error", err))
	}
	r.state = game.Active
	msg := m.render(m.opts.Messages.BattleBegun, r, "")
	for _, id := range r.Occupants() {
		m.notify.Send(id, msg)
	}
	m.log.Info("room is now active", slog.String("room", r.name), slog.Int("players", r.OccupantCount()))
}

// checkWinLocked ends the match once at most one occupant is left. Squad
// rooms use the same last-one-standing rule since teams are not tracked.
func (m *Manager) checkWinLocked(ctx context.Context, r *Room) {
	remaining := r.OccupantCount()
	if remaining > 1 {
		return
	}
	if remaining == 1 {
		winner := r.Occupants()[0]
		m.notify.Broadcast(m.render(m.opts.Messages.PlayerWins, r, m.notify.DisplayName(winner)))
		m.log.Info("match won", slog.String("room", r.name), slog.String("winner", winner))
	} else {
		m.notify.Broadcast(m.render(m.opts.Messages.NoWinner, r, ""))
		m.log.Info("match ended with no winner", slog.String("room", r.name))
	}
	m.startCooldownLocked(ctx, r)
}

func (m *Manager) startCooldownLocked(ctx context.Context, r *Room) {
	_, span := m.startSpan(ctx, "room.cooldown", r)
	defer span.End()

	r.clearOccupants()
	r.state = game.Cooldown
	r.cooldownGen++
	gen := r.cooldownGen
	m.sched.AfterFunc(m.opts.Cooldown, func() { m.reopen(r, gen) })
	m.notify.Broadcast(m.render(m.opts.Messages.RoomReopening, r, ""))
}

// reopen is the cooldown timer callback. It is a no-op when the room was
// deleted or replaced, or when this cooldown was already handled.
func (m *Manager) reopen(r *Room, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[r.key] != r || r.state != game.Cooldown || r.cooldownGen != gen {
		m.log.Debug("stale reopen ignored", slog.String("room", r.name))
		return
	}
	ctx, span := m.startSpan(context.Background(), "room.reopen", r)
	defer span.End()

	m.unsealLocked(ctx, r)
	r.clearOccupants()
	r.state = game.Waiting
	m.log.Info("room has reopened", slog.String("room", r.name))
}

func (m *Manager) unsealLocked(ctx context.Context, r *Room) {
	if err := r.unsealGate(ctx, m.world); err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		m.log.Error("gate not fully restored", slog.String("room", r.name), slog.Any("error", err))
	}
}

func (m *Manager) startSpan(ctx context.Context, name string, r *Room) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("room.name", r.name),
		attribute.String("room.type", r.typ.Display),
		attribute.String("room.state", r.state.String()),
	))
}

func (m *Manager) render(tmpl string, r *Room, winner string) string {
	if winner == "" {
		winner = "Unknown"
	}
	return strings.NewReplacer(
		"{room}", r.name,
		"{type}", r.typ.Display,
		"{winner}", winner,
	).Replace(tmpl)
}
