package game

import "github.com/goccy/go-json"

// Side is one of the two roles in a game. White always moves first.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

// Sides lists the sides in seating order: the first participant gets Sides[0].
var Sides = [2]Side{White, Black}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// Action is a move submitted by a participant, either in coordinate notation or as a SAN
// string such as "Nf3". On the wire it is an object {from, to, promotion} or a bare string.
type Action struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"` // q, r, b or n
	SAN       string `json:"-"`
}

func (a Action) String() string {
	if a.SAN != "" {
		return a.SAN
	}
	return a.From + a.To + a.Promotion
}

func (a *Action) UnmarshalJSON(b []byte) error {
	var san string
	if err := json.Unmarshal(b, &san); err == nil {
		*a = Action{SAN: san}
		return nil
	}
	type plain Action
	return json.Unmarshal(b, (*plain)(a))
}

// MarshalJSON echoes a SAN action back as the string it arrived as.
func (a Action) MarshalJSON() ([]byte, error) {
	if a.SAN != "" {
		return json.Marshal(a.SAN)
	}
	type plain Action
	return json.Marshal(plain(a))
}

// Outcome is the result of a finished game. Winner is empty for a draw.
type Outcome struct {
	Winner Side   `json:"winner,omitempty"`
	Draw   bool   `json:"-"`
	Reason string `json:"reason"`
}

const (
	ReasonCheckmate            = "checkmate"
	ReasonResignation          = "resignation"
	ReasonStalemate            = "stalemate"
	ReasonInsufficientMaterial = "insufficient material"
	ReasonThreefoldRepetition  = "threefold repetition"
	ReasonFivefoldRepetition   = "fivefold repetition"
	ReasonFiftyMoveRule        = "fifty-move rule"
	ReasonSeventyFiveMoveRule  = "seventy-five-move rule"
)

// Resignation builds the outcome of the resigning side giving up.
func Resignation(resigning Side) Outcome {
	return Outcome{Winner: resigning.Opponent(), Reason: ReasonResignation}
}
