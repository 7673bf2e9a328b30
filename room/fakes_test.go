package room

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"battlerooms/game"
	"battlerooms/storage"
	"battlerooms/world"
)

type fakeScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	s.fns = append(s.fns, f)
}

func (s *fakeScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

func (s *fakeScheduler) fire(t *testing.T, i int) {
	t.Helper()
	s.mu.Lock()
	if i >= len(s.fns) {
		s.mu.Unlock()
		t.Fatalf("no scheduled callback %d (have %d)", i, len(s.fns))
	}
	f := s.fns[i]
	s.mu.Unlock()
	f()
}

type recordingNotifier struct {
	mu         sync.Mutex
	broadcasts []string
	direct     map[string][]string
}

func (n *recordingNotifier) Broadcast(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.broadcasts = append(n.broadcasts, msg)
}

func (n *recordingNotifier) Send(actor, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.direct == nil {
		n.direct = make(map[string][]string)
	}
	n.direct[actor] = append(n.direct[actor], msg)
}

func (n *recordingNotifier) DisplayName(actor string) string {
	return "name-" + actor
}

func (n *recordingNotifier) sent(actor string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.direct[actor]...)
}

func (n *recordingNotifier) broadcasted() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.broadcasts...)
}

type memStore struct {
	mu   sync.Mutex
	recs map[string]storage.RoomRecord
}

func newMemStore(recs ...storage.RoomRecord) *memStore {
	s := &memStore{recs: make(map[string]storage.RoomRecord)}
	for _, r := range recs {
		s.recs[game.NameKey(r.Name)] = r
	}
	return s
}

func (s *memStore) LoadRooms(ctx context.Context) ([]storage.RoomRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]storage.RoomRecord, 0, len(s.recs))
	for _, r := range s.recs {
		out = append(out, r)
	}
	return out, nil
}

func (s *memStore) SaveRoom(ctx context.Context, rec storage.RoomRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[game.NameKey(rec.Name)] = rec
	return nil
}

func (s *memStore) DeleteRoom(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[game.NameKey(name)]; !ok {
		return storage.ErrNotFound
	}
	delete(s.recs, game.NameKey(name))
	return nil
}

func (s *memStore) has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.recs[game.NameKey(name)]
	return ok
}

const (
	testWorld    = "world"
	testCooldown = 10 * time.Second
	gateMaterial = "oak_planks"
)

type harness struct {
	m     *Manager
	sched *fakeScheduler
	note  *recordingNotifier
	world *world.Memory
	store *memStore
}

func newHarness(t *testing.T, recs ...storage.RoomRecord) *harness {
	t.Helper()
	h := &harness{
		sched: &fakeScheduler{},
		note:  &recordingNotifier{},
		world: world.NewMemory(testWorld),
		store: newMemStore(recs...),
	}
	h.m = NewManager(Options{
		Cooldown: testCooldown,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, Deps{
		Store:     h.store,
		World:     h.world,
		Notifier:  h.note,
		Scheduler: h.sched,
	})
	t.Cleanup(func() {
		_ = h.m.Shutdown(context.Background())
	})
	return h
}

func at(x, y, z int) game.Point {
	return game.Point{World: testWorld, X: x, Y: y, Z: z}
}

// Body spans (0,60,0)-(10,70,10); the gate is a 2x3 opening in the z=0 wall.
var (
	bodyA = at(10, 70, 10)
	bodyB = at(0, 60, 0)
	gateA = at(5, 61, 0)
	gateB = at(6, 63, 0)

	outside = at(20, 65, 5)
)

func inside(n int) game.Point { return at(1+n, 62, 5) }

// commitRoom builds and commits a room through the builder API.
func (h *harness) commitRoom(t *testing.T, typ, name string) {
	t.Helper()
	builder := "builder-" + name
	if err := h.m.CreateDraft(builder, typ, name, testWorld); err != nil {
		t.Fatalf("create draft: %v", err)
	}
	for c, p := range map[Corner]game.Point{Pos1: bodyA, Pos2: bodyB, Gate1: gateA, Gate2: gateB} {
		if _, err := h.m.SetPoint(builder, c, p); err != nil {
			t.Fatalf("set %s: %v", c, err)
		}
	}
	if _, err := h.m.Commit(context.Background(), builder); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

// fillGate gives every gate cell a recognizable pre-seal material.
func (h *harness) fillGate(t *testing.T) {
	t.Helper()
	if err := h.world.Fill(context.Background(), game.NewRegion(testWorld, gateA, gateB), gateMaterial); err != nil {
		t.Fatalf("fill gate: %v", err)
	}
}

func (h *harness) gateCells(t *testing.T) []string {
	t.Helper()
	var out []string
	game.NewRegion(testWorld, gateA, gateB).Cells(func(p game.Point) bool {
		c, err := h.world.ReadCell(context.Background(), p)
		if err != nil {
			t.Fatalf("read gate cell %s: %v", p, err)
		}
		out = append(out, c)
		return true
	})
	return out
}

func (h *harness) info(t *testing.T, name string) RoomInfo {
	t.Helper()
	info, ok := h.m.Get(name)
	if !ok {
		t.Fatalf("room %q not found", name)
	}
	return info
}

func (h *harness) enter(actor string, n int) {
	h.m.Move(context.Background(), actor, outside, inside(n))
}

func allEqual(cells []string, want string) bool {
	for _, c := range cells {
		if c != want {
			return false
		}
	}
	return len(cells) > 0
}
