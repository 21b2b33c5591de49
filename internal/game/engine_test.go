package game

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func play(t *testing.T, g Game, moves ...Action) {
	t.Helper()
	for _, mv := range moves {
		_, err := g.Apply(mv)
		require.NoError(t, err, "move %s", mv)
	}
}

func TestChessGame_InitialPosition(t *testing.T) {
	g := NewChessEngine().NewGame()

	assert.Equal(t, startFEN, g.Snapshot())
	assert.Equal(t, White, g.Turn())
	assert.False(t, g.Terminal())
	assert.Equal(t, Outcome{}, g.Outcome())
}

func TestChessGame_ApplyAdvancesTurn(t *testing.T) {
	g := NewChessEngine().NewGame()

	applied, err := g.Apply(Action{From: "e2", To: "e4"})
	require.NoError(t, err)

	assert.Equal(t, Action{From: "e2", To: "e4"}, applied)
	assert.Equal(t, Black, g.Turn())
	assert.True(t, strings.HasPrefix(g.Snapshot(), "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq"))
}

func TestChessGame_IllegalActionLeavesStateUntouched(t *testing.T) {
	g := NewChessEngine().NewGame()

	cases := []Action{
		{From: "e2", To: "e5"},
		{From: "e7", To: "e5"}, // black piece on white's turn
		{From: "zz", To: "e4"},
		{},
		{From: "e2", To: "e4", Promotion: "k"},
		{SAN: "e5"},
		{SAN: "Nf6"},
		{SAN: "garbage"},
	}
	for _, a := range cases {
		_, err := g.Apply(a)
		assert.ErrorIs(t, err, ErrIllegalAction, "action %q", a)
	}
	assert.Equal(t, startFEN, g.Snapshot())
	assert.Equal(t, White, g.Turn())
}

func TestChessGame_PromotionLetterOnOrdinaryMoveIsIgnored(t *testing.T) {
	g := NewChessEngine().NewGame()

	applied, err := g.Apply(Action{From: "e2", To: "e4", Promotion: "q"})
	require.NoError(t, err)

	assert.Equal(t, Action{From: "e2", To: "e4"}, applied)
	assert.Equal(t, Black, g.Turn())
}

func TestChessGame_SANActions(t *testing.T) {
	g := NewChessEngine().NewGame()

	applied, err := g.Apply(Action{SAN: "e4"})
	require.NoError(t, err)
	assert.Equal(t, Action{From: "e2", To: "e4"}, applied)

	applied, err = g.Apply(Action{SAN: "Nf6"})
	require.NoError(t, err)
	assert.Equal(t, Action{From: "g8", To: "f6"}, applied)
	assert.Equal(t, White, g.Turn())
}

func TestChessGame_Checkmate(t *testing.T) {
	g := NewChessEngine().NewGame()

	play(t, g,
		Action{From: "f2", To: "f3"},
		Action{From: "e7", To: "e5"},
		Action{From: "g2", To: "g4"},
		Action{From: "d8", To: "h4"},
	)

	require.True(t, g.Terminal())
	assert.Equal(t, Outcome{Winner: Black, Reason: ReasonCheckmate}, g.Outcome())
}

func TestChessGame_Stalemate(t *testing.T) {
	e, err := NewChessEngineFromFEN("7k/8/6K1/5Q2/8/8/8/8 w - - 0 1")
	require.NoError(t, err)
	g := e.NewGame()

	play(t, g, Action{From: "f5", To: "f7"})

	require.True(t, g.Terminal())
	assert.Equal(t, Outcome{Draw: true, Reason: ReasonStalemate}, g.Outcome())
}

func TestChessGame_InsufficientMaterial(t *testing.T) {
	e, err := NewChessEngineFromFEN("k7/8/8/8/8/8/1r6/K7 w - - 0 1")
	require.NoError(t, err)
	g := e.NewGame()

	play(t, g, Action{From: "a1", To: "b2"})

	require.True(t, g.Terminal())
	assert.Equal(t, Outcome{Draw: true, Reason: ReasonInsufficientMaterial}, g.Outcome())
}

func TestChessGame_ThreefoldRepetitionEndsGame(t *testing.T) {
	g := NewChessEngine().NewGame()

	shuffle := []Action{
		{From: "g1", To: "f3"},
		{From: "g8", To: "f6"},
		{From: "f3", To: "g1"},
		{From: "f6", To: "g8"},
	}
	play(t, g, shuffle...)
	require.False(t, g.Terminal())
	play(t, g, shuffle...)

	require.True(t, g.Terminal())
	assert.Equal(t, Outcome{Draw: true, Reason: ReasonThreefoldRepetition}, g.Outcome())
}

func TestChessGame_Promotion(t *testing.T) {
	e, err := NewChessEngineFromFEN("8/P6k/8/8/8/8/8/K7 w - - 0 1")
	require.NoError(t, err)

	t.Run("defaults to queen", func(t *testing.T) {
		g := e.NewGame()
		play(t, g, Action{From: "a7", To: "a8"})
		assert.Contains(t, g.Snapshot(), "Q7/7k/")
	})

	t.Run("underpromotion", func(t *testing.T) {
		g := e.NewGame()
		play(t, g, Action{From: "a7", To: "a8", Promotion: "n"})
		assert.Contains(t, g.Snapshot(), "N7/7k/")
	})

	t.Run("applied action names the piece", func(t *testing.T) {
		g := e.NewGame()
		applied, err := g.Apply(Action{From: "a7", To: "a8"})
		require.NoError(t, err)
		assert.Equal(t, Action{From: "a7", To: "a8", Promotion: "q"}, applied)
	})

	t.Run("SAN", func(t *testing.T) {
		g := e.NewGame()
		applied, err := g.Apply(Action{SAN: "a8=R"})
		require.NoError(t, err)
		assert.Equal(t, Action{From: "a7", To: "a8", Promotion: "r"}, applied)
	})
}

func TestNewChessEngineFromFEN_RejectsGarbage(t *testing.T) {
	_, err := NewChessEngineFromFEN("not a position")
	assert.Error(t, err)
}

func TestAction_JSON(t *testing.T) {
	var obj, san Action
	require.NoError(t, json.Unmarshal([]byte(`{"from":"e2","to":"e4","promotion":"q"}`), &obj))
	require.NoError(t, json.Unmarshal([]byte(`"Nf3"`), &san))
	assert.Equal(t, Action{From: "e2", To: "e4", Promotion: "q"}, obj)
	assert.Equal(t, Action{SAN: "Nf3"}, san)

	var bad Action
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))

	b, err := json.Marshal(san)
	require.NoError(t, err)
	assert.JSONEq(t, `"Nf3"`, string(b))

	b, err = json.Marshal(Action{From: "e2", To: "e4"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"e2","to":"e4"}`, string(b))
}

func TestSide_Opponent(t *testing.T) {
	assert.Equal(t, Black, White.Opponent())
	assert.Equal(t, White, Black.Opponent())
	assert.Equal(t, Outcome{Winner: Black, Reason: ReasonResignation}, Resignation(White))
}
