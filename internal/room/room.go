package room

import (
	"errors"
	"sync"
	"time"

	"chess-relay/internal/game"
	"chess-relay/internal/logging"
	"chess-relay/internal/metrics"
	"chess-relay/internal/shared"
)

const maxParticipants = 2

// Session states as reported by State.
const (
	StateEmpty            = "empty"
	StateAwaitingOpponent = "awaiting_opponent"
	StateActive           = "active"
	StateClosed           = "closed"
)

// Session is one two-player game. All exported methods lock the session, so everything
// that happens to one game is serialized while different sessions run independently.
type Session struct {
	id        string
	createdAt time.Time
	reg       *Registry

	mu           sync.Mutex
	game         game.Game
	participants []string
	colorOf      map[string]game.Side
	closed       bool
}

func newSession(id string, reg *Registry, g game.Game, now time.Time) *Session {
	return &Session{
		id:        id,
		createdAt: now,
		reg:       reg,
		game:      g,
		colorOf:   make(map[string]game.Side, maxParticipants),
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Participants returns the seated connection ids in join order.
func (s *Session) Participants() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.participants...)
}

func (s *Session) SideOf(connID string) (game.Side, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	side, ok := s.colorOf[connID]
	return side, ok
}

func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return StateClosed
	case len(s.participants) == 0:
		return StateEmpty
	case len(s.participants) < maxParticipants:
		return StateAwaitingOpponent
	default:
		return StateActive
	}
}

// admit seats connID on the next free side. Caller holds s.mu and has checked capacity.
func (s *Session) admit(connID string) game.Side {
	side := game.Sides[len(s.participants)]
	s.participants = append(s.participants, connID)
	s.colorOf[connID] = side
	return side
}

func (s *Session) stateUpdate(last *game.Action) shared.Message {
	return shared.Message{
		Action: shared.EventStateUpdate,
		Data: shared.StateUpdate{
			Snapshot:   s.game.Snapshot(),
			Turn:       s.game.Turn(),
			LastAction: last,
		},
	}
}

// SubmitAction applies a move for connID if it holds the side to move. Moves from
// non-members, from the wrong side, before the opponent arrived, or after the game closed
// are dropped without a reply. Moves the rules reject are answered with invalidAction to
// the submitter only.
func (s *Session) SubmitAction(connID string, a game.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logging.WithSession(s.id).With("conn_id", connID, "move", a.String())

	side, seated := s.colorOf[connID]
	if s.closed || !seated || len(s.participants) < maxParticipants || s.game.Turn() != side {
		log.Debug("Dropping unauthorized action", "closed", s.closed, "seated", seated)
		s.reg.metrics.Action(metrics.ActionDropped)
		return
	}

	applied, err := s.game.Apply(a)
	if err != nil {
		if !errors.Is(err, game.ErrIllegalAction) {
			log.Error("Rules engine failed", "error", err)
		}
		s.reg.metrics.Action(metrics.ActionIllegal)
		s.reg.out.SendTo(connID, shared.Message{
			Action: shared.EventInvalidAction,
			Data:   shared.InvalidAction{Action: a},
		})
		return
	}

	s.reg.metrics.Action(metrics.ActionApplied)
	s.reg.out.Broadcast(s.id, s.stateUpdate(&applied))

	if s.game.Terminal() {
		outcome := s.game.Outcome()
		log.Info("Game over", "winner", outcome.Winner, "reason", outcome.Reason)
		s.reg.out.Broadcast(s.id, shared.Message{
			Action: shared.EventGameOver,
			Data:   shared.NewGameOver(outcome),
		})
		s.closeLocked(metrics.CloseGameOver)
	}
}

// Resign ends the game in favour of the opponent of connID.
func (s *Session) Resign(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	side, seated := s.colorOf[connID]
	if s.closed || !seated {
		logging.WithSession(s.id).Debug("Dropping resignation", "conn_id", connID)
		return
	}

	outcome := game.Resignation(side)
	if len(s.participants) < maxParticipants {
		// nobody to award the game to
		outcome.Winner = ""
	}
	logging.WithSession(s.id).Info("Player resigned", "conn_id", connID, "side", side)
	s.reg.out.Broadcast(s.id, shared.Message{
		Action: shared.EventGameOver,
		Data:   shared.NewGameOver(outcome),
	})
	s.closeLocked(metrics.CloseResigned)
}

// HandleDisconnect tears the session down after connID left. The remaining participant is
// told the opponent is gone; no result is recorded.
func (s *Session) HandleDisconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seated := s.colorOf[connID]; s.closed || !seated {
		return
	}

	for _, p := range s.participants {
		if p != connID {
			s.reg.out.SendTo(p, shared.Message{Action: shared.EventOpponentDisconnected})
		}
	}
	logging.WithSession(s.id).Info("Participant disconnected", "conn_id", connID)
	s.closeLocked(metrics.CloseAbandoned)
}

// closeLocked marks the session closed and removes it from the registry. Caller holds s.mu.
func (s *Session) closeLocked(reason string) {
	if s.closed {
		return
	}
	s.closed = true
	s.reg.drop(s, reason)
}
