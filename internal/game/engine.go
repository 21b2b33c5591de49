package game

import (
	"errors"
	"fmt"

	"github.com/notnil/chess"
)

// ErrIllegalAction is returned by Game.Apply when the rules reject an action.
var ErrIllegalAction = errors.New("illegal action")

// Engine creates fresh games. It is the only thing a session needs to know about the rules.
type Engine interface {
	NewGame() Game
}

// Game is the rules oracle for one session. Implementations need not be safe for
// concurrent use; callers serialize access.
type Game interface {
	Turn() Side
	// Apply plays a and returns it in coordinate form, so a SAN action comes back resolved.
	Apply(a Action) (Action, error)
	Terminal() bool
	Outcome() Outcome
	Snapshot() string
}

// ChessEngine is an Engine backed by github.com/notnil/chess.
type ChessEngine struct {
	startFEN string
}

func NewChessEngine() *ChessEngine {
	return &ChessEngine{}
}

// NewChessEngineFromFEN starts every game from the given position instead of the standard one.
func NewChessEngineFromFEN(fen string) (*ChessEngine, error) {
	if _, err := chess.FEN(fen); err != nil {
		return nil, fmt.Errorf("parse start position: %w", err)
	}
	return &ChessEngine{startFEN: fen}, nil
}

func (e *ChessEngine) NewGame() Game {
	if e.startFEN == "" {
		return &chessGame{g: chess.NewGame()}
	}
	opt, err := chess.FEN(e.startFEN)
	if err != nil {
		// validated in NewChessEngineFromFEN
		panic(err)
	}
	return &chessGame{g: chess.NewGame(opt)}
}

type chessGame struct {
	g *chess.Game
}

func (c *chessGame) Turn() Side {
	if c.g.Position().Turn() == chess.White {
		return White
	}
	return Black
}

func (c *chessGame) Apply(a Action) (Action, error) {
	mv, err := c.resolve(a)
	if err != nil {
		return a, err
	}
	if err := c.g.Move(mv); err != nil {
		return a, fmt.Errorf("%w: %v", ErrIllegalAction, err)
	}
	c.claimDraw()
	return actionOf(mv), nil
}

func (c *chessGame) resolve(a Action) (*chess.Move, error) {
	if a.SAN != "" {
		mv, err := chess.AlgebraicNotation{}.Decode(c.g.Position(), a.SAN)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrIllegalAction, a.SAN, err)
		}
		return mv, nil
	}

	promo, ok := promotions[a.Promotion]
	if !ok {
		return nil, fmt.Errorf("%w: unknown promotion %q", ErrIllegalAction, a.Promotion)
	}
	for _, mv := range c.g.ValidMoves() {
		if mv.S1().String() != a.From || mv.S2().String() != a.To {
			continue
		}
		// the piece only matters on a promotion; an unnamed piece becomes a queen
		if mv.Promo() == chess.NoPieceType {
			return mv, nil
		}
		if promo == chess.NoPieceType {
			promo = chess.Queen
		}
		if mv.Promo() == promo {
			return mv, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrIllegalAction, a)
}

func actionOf(mv *chess.Move) Action {
	a := Action{From: mv.S1().String(), To: mv.S2().String()}
	for letter, pt := range promotions {
		if pt != chess.NoPieceType && pt == mv.Promo() {
			a.Promotion = letter
		}
	}
	return a
}

func (c *chessGame) Terminal() bool {
	return c.g.Outcome() != chess.NoOutcome
}

func (c *chessGame) Outcome() Outcome {
	return outcomeOf(c.g)
}

func (c *chessGame) Snapshot() string {
	return c.g.FEN()
}

var promotions = map[string]chess.PieceType{
	"":  chess.NoPieceType,
	"q": chess.Queen,
	"r": chess.Rook,
	"b": chess.Bishop,
	"n": chess.Knight,
}
