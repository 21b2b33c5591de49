package room_test

import (
	"fmt"
	"sync"
	"testing"

	"chess-relay/internal/game"
	"chess-relay/internal/metrics"
	"chess-relay/internal/room"
	"chess-relay/internal/shared"
	"chess-relay/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// scriptedGame is a rules oracle whose behaviour is fixed by the test: every action not
// listed in illegal is accepted and passes the turn, and the game ends after endAfter moves.
type scriptedGame struct {
	turn     game.Side
	moves    int
	illegal  map[string]bool
	endAfter int
	outcome  game.Outcome
}

func (g *scriptedGame) Turn() game.Side { return g.turn }

func (g *scriptedGame) Apply(a game.Action) (game.Action, error) {
	if g.illegal[a.String()] {
		return a, fmt.Errorf("%w: %s", game.ErrIllegalAction, a)
	}
	g.moves++
	g.turn = g.turn.Opponent()
	return a, nil
}

func (g *scriptedGame) Terminal() bool       { return g.endAfter > 0 && g.moves >= g.endAfter }
func (g *scriptedGame) Outcome() game.Outcome { return g.outcome }
func (g *scriptedGame) Snapshot() string      { return fmt.Sprintf("pos-%d", g.moves) }

type scriptedEngine struct {
	illegal  map[string]bool
	endAfter int
	outcome  game.Outcome
}

func (e scriptedEngine) NewGame() game.Game {
	return &scriptedGame{turn: game.White, illegal: e.illegal, endAfter: e.endAfter, outcome: e.outcome}
}

// recorder is an in-memory Broadcaster delivering into per-connection inboxes.
type recorder struct {
	mu      sync.Mutex
	members map[string]map[string]bool
	inbox   map[string][]shared.Message
	closed  []string
}

func newRecorder() *recorder {
	return &recorder{
		members: map[string]map[string]bool{},
		inbox:   map[string][]shared.Message{},
	}
}

func (r *recorder) SendTo(connID string, msg shared.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inbox[connID] = append(r.inbox[connID], msg)
}

func (r *recorder) Broadcast(sessionID string, msg shared.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.members[sessionID] {
		r.inbox[c] = append(r.inbox[c], msg)
	}
}

func (r *recorder) Subscribe(sessionID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.members[sessionID] == nil {
		r.members[sessionID] = map[string]bool{}
	}
	r.members[sessionID][connID] = true
}

func (r *recorder) CloseRoom(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, sessionID)
	r.closed = append(r.closed, sessionID)
}

// drain returns and forgets everything delivered to connID so far.
func (r *recorder) drain(connID string) []shared.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.inbox[connID]
	delete(r.inbox, connID)
	return msgs
}

func (r *recorder) actions(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.inbox[connID]))
	for _, m := range r.inbox[connID] {
		out = append(out, m.Action)
	}
	return out
}

type fixture struct {
	reg     *room.Registry
	out     *recorder
	clock   *clockwork.FakeClock
	metrics *metrics.RelayMetrics
}

func newFixture(t *testing.T, e game.Engine) *fixture {
	t.Helper()
	f := &fixture{
		out:     newRecorder(),
		clock:   clockwork.NewFakeClock(),
		metrics: metrics.NewRelayMetrics(prometheus.NewRegistry()),
	}
	f.reg = room.NewRegistry(store.NewMemoryStore(), e, f.out, f.clock, f.metrics)
	return f
}

// startGame creates a session for "alice" and seats "bob", then clears both inboxes.
func (f *fixture) startGame(t *testing.T) *room.Session {
	t.Helper()
	s, err := f.reg.Create("alice")
	require.NoError(t, err)
	_, err = f.reg.Join(s.ID(), "bob")
	require.NoError(t, err)
	f.out.drain("alice")
	f.out.drain("bob")
	return s
}
