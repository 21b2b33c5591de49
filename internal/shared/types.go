package shared

import (
	"chess-relay/internal/game"

	"github.com/goccy/go-json"
)

// Outbound events.
const (
	EventSessionCreated       = "sessionCreated"
	EventSessionJoined        = "sessionJoined"
	EventStateUpdate          = "stateUpdate"
	EventInvalidAction        = "invalidAction"
	EventGameOver             = "gameOver"
	EventOpponentDisconnected = "opponentDisconnected"
	EventJoinError            = "joinError"
	EventCreateError          = "createError"
)

// Inbound actions.
const (
	ActionCreateRoom = "createRoom"
	ActionJoinRoom   = "joinRoom"
	ActionMove       = "move"
	ActionResign     = "resign"
)

// Rejection reasons carried by joinError and createError.
const (
	ReasonNotFound      = "not found"
	ReasonFull          = "full"
	ReasonAlreadySeated = "already seated"
)

// Message is the envelope used in both directions.
type Message struct {
	Action string `json:"action"`
	Data   any    `json:"data,omitempty"`
}

// Inbound is a decoded client envelope whose payload is parsed per action.
type Inbound struct {
	Action string          `json:"action" validate:"required,oneof=createRoom joinRoom move resign"`
	Data   json.RawMessage `json:"data"`
}

type RoomRequest struct {
	RoomID string `json:"roomId" validate:"required"`
}

// UnmarshalJSON also accepts a bare string payload, e.g. {"action":"joinRoom","data":"<id>"}.
func (r *RoomRequest) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		r.RoomID = id
		return nil
	}
	type plain RoomRequest
	return json.Unmarshal(b, (*plain)(r))
}

type MoveRequest struct {
	RoomID string      `json:"roomId" validate:"required"`
	Move   game.Action `json:"move"`
}

type SessionAssigned struct {
	ID   string    `json:"id"`
	Side game.Side `json:"side"`
}

type StateUpdate struct {
	Snapshot   string       `json:"snapshot"`
	Turn       game.Side    `json:"turn"`
	LastAction *game.Action `json:"lastAction,omitempty"`
}

type InvalidAction struct {
	Action game.Action `json:"action"`
}

type GameOver struct {
	Winner game.Side `json:"winner,omitempty"`
	Result string    `json:"result,omitempty"` // "draw"
	Reason string    `json:"reason"`
}

type Rejection struct {
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

func NewGameOver(o game.Outcome) GameOver {
	g := GameOver{Winner: o.Winner, Reason: o.Reason}
	if o.Draw {
		g.Result = "draw"
	}
	return g
}

// Encode renders a message once so the same bytes can be fanned out to every member.
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
