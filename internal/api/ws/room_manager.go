package ws

import (
	"chess-relay/internal/game"
	"chess-relay/internal/room"
)

// RoomManager is what the websocket layer needs from the session registry.
type RoomManager interface {
	Create(connID string) (*room.Session, error)
	Join(sessionID, connID string) (*room.Session, error)
	Act(sessionID, connID string, a game.Action)
	Resign(sessionID, connID string)
	Disconnect(connID string)
}
