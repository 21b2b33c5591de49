package room

import (
	"fmt"

	"chess-relay/internal/game"
	"chess-relay/internal/logging"
	"chess-relay/internal/metrics"
	"chess-relay/internal/shared"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Registry owns the open sessions. It is safe for concurrent use.
type Registry struct {
	store   Store
	engine  game.Engine
	out     Broadcaster
	clock   clockwork.Clock
	metrics *metrics.RelayMetrics
}

func NewRegistry(s Store, engine game.Engine, out Broadcaster, clock clockwork.Clock, m *metrics.RelayMetrics) *Registry {
	return &Registry{store: s, engine: engine, out: out, clock: clock, metrics: m}
}

// Create opens a session with connID seated on the first side and tells connID the new id.
func (r *Registry) Create(connID string) (*Session, error) {
	s := newSession(uuid.NewString(), r, r.engine.NewGame(), r.clock.Now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if !r.store.Seat(connID, s.id) {
		r.out.SendTo(connID, shared.Message{
			Action: shared.EventCreateError,
			Data:   shared.Rejection{Reason: shared.ReasonAlreadySeated},
		})
		return nil, fmt.Errorf("create session: %w", ErrAlreadySeated)
	}
	side := s.admit(connID)
	r.store.SaveSession(s)
	r.out.Subscribe(s.id, connID)
	r.out.SendTo(connID, shared.Message{
		Action: shared.EventSessionCreated,
		Data:   shared.SessionAssigned{ID: s.id, Side: side},
	})

	r.metrics.SessionOpened()
	logging.WithSession(s.id).Info("Session created", "conn_id", connID, "side", side)
	return s, nil
}

// Join seats connID as the second participant. Once seated, both participants receive the
// starting position and the game is playable.
func (r *Registry) Join(sessionID, connID string) (*Session, error) {
	s, ok := r.store.GetSession(sessionID)
	if !ok {
		return nil, r.rejectJoin(sessionID, connID, ErrSessionNotFound, shared.ReasonNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.closed:
		return nil, r.rejectJoin(sessionID, connID, ErrSessionNotFound, shared.ReasonNotFound)
	case len(s.participants) >= maxParticipants:
		return nil, r.rejectJoin(sessionID, connID, ErrSessionFull, shared.ReasonFull)
	case !r.store.Seat(connID, s.id):
		return nil, r.rejectJoin(sessionID, connID, ErrAlreadySeated, shared.ReasonAlreadySeated)
	}

	side := s.admit(connID)
	r.out.Subscribe(s.id, connID)
	r.out.SendTo(connID, shared.Message{
		Action: shared.EventSessionJoined,
		Data:   shared.SessionAssigned{ID: s.id, Side: side},
	})
	r.out.Broadcast(s.id, s.stateUpdate(nil))

	logging.WithSession(s.id).Info("Session joined", "conn_id", connID, "side", side)
	return s, nil
}

func (r *Registry) rejectJoin(sessionID, connID string, err error, reason string) error {
	r.out.SendTo(connID, shared.Message{
		Action: shared.EventJoinError,
		Data:   shared.Rejection{ID: sessionID, Reason: reason},
	})
	logging.WithConn(connID).Debug("Join rejected", "session_id", sessionID, "reason", reason)
	return fmt.Errorf("join session %s: %w", sessionID, err)
}

// Act routes a move to its session. Unknown sessions are ignored.
func (r *Registry) Act(sessionID, connID string, a game.Action) {
	s, ok := r.store.GetSession(sessionID)
	if !ok {
		logging.WithConn(connID).Debug("Dropping action for unknown session", "session_id", sessionID)
		r.metrics.Action(metrics.ActionDropped)
		return
	}
	s.SubmitAction(connID, a)
}

// Resign routes a resignation to its session. Unknown sessions are ignored.
func (r *Registry) Resign(sessionID, connID string) {
	if s, ok := r.store.GetSession(sessionID); ok {
		s.Resign(connID)
	}
}

// Disconnect closes whatever session connID was seated in. Calling it for a connection
// without a seat does nothing.
func (r *Registry) Disconnect(connID string) {
	if s, ok := r.FindByParticipant(connID); ok {
		s.HandleDisconnect(connID)
	}
}

func (r *Registry) Get(sessionID string) (*Session, bool) {
	return r.store.GetSession(sessionID)
}

// FindByParticipant returns the open session connID is seated in.
func (r *Registry) FindByParticipant(connID string) (*Session, bool) {
	id, ok := r.store.SeatOf(connID)
	if !ok {
		return nil, false
	}
	return r.store.GetSession(id)
}

// Remove closes and forgets a session without notifying its members. It is a no-op for
// unknown or already closed sessions.
func (r *Registry) Remove(sessionID string) {
	s, ok := r.store.GetSession(sessionID)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(metrics.CloseRemoved)
}

// Count reports the number of open sessions.
func (r *Registry) Count() int {
	return r.store.Count()
}

// drop is called by a session closing itself, with its lock held.
func (r *Registry) drop(s *Session, reason string) {
	r.store.DeleteSession(s.id, s.participants...)
	r.out.CloseRoom(s.id)
	r.metrics.SessionClosed(reason, r.clock.Since(s.createdAt))
	logging.WithSession(s.id).Info("Session closed", "reason", reason)
}
