package room

import "chess-relay/internal/shared"

// Broadcaster is the outbound side of the transport. Room membership decides who a
// Broadcast reaches. Implementations must not block and must not call back into the room
// package, since they are invoked with a session lock held.
type Broadcaster interface {
	SendTo(connID string, msg shared.Message)
	Broadcast(sessionID string, msg shared.Message)
	Subscribe(sessionID, connID string)
	CloseRoom(sessionID string)
}

// Store persists open sessions and which connection sits in which session.
type Store interface {
	GetSession(id string) (*Session, bool)
	SaveSession(s *Session)
	DeleteSession(id string, connIDs ...string)
	Seat(connID, sessionID string) bool
	SeatOf(connID string) (string, bool)
	Count() int
}
