package game

import "github.com/notnil/chess"

var drawReasons = map[chess.Method]string{
	chess.Stalemate:            ReasonStalemate,
	chess.InsufficientMaterial: ReasonInsufficientMaterial,
	chess.ThreefoldRepetition:  ReasonThreefoldRepetition,
	chess.FivefoldRepetition:   ReasonFivefoldRepetition,
	chess.FiftyMoveRule:        ReasonFiftyMoveRule,
	chess.SeventyFiveMoveRule:  ReasonSeventyFiveMoveRule,
}

func outcomeOf(g *chess.Game) Outcome {
	switch g.Outcome() {
	case chess.WhiteWon:
		return Outcome{Winner: White, Reason: ReasonCheckmate}
	case chess.BlackWon:
		return Outcome{Winner: Black, Reason: ReasonCheckmate}
	case chess.Draw:
		reason, ok := drawReasons[g.Method()]
		if !ok {
			reason = g.Method().String()
		}
		return Outcome{Draw: true, Reason: reason}
	}
	return Outcome{}
}

// claimDraw ends the game on threefold repetition or the fifty-move rule. The library
// only offers these as claims, but clients expect them to finish the game on their own.
func (c *chessGame) claimDraw() {
	if c.g.Outcome() != chess.NoOutcome {
		return
	}
	for _, m := range c.g.EligibleDraws() {
		if m == chess.ThreefoldRepetition || m == chess.FiftyMoveRule {
			_ = c.g.Draw(m)
			return
		}
	}
}
