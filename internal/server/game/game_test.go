package game

import (
	"testing"

	"arcadechess/internal/server/board"
	"arcadechess/internal/server/core"
)

func newTestGame(t *testing.T) *Game {
	t.Helper()
	our := core.NewPlayer(core.PlayerConfig{Type: core.PlayerHuman}, core.TeamOur)
	opp := core.NewPlayer(core.PlayerConfig{Type: core.PlayerComputer, Proposer: "random"}, core.TeamOpponent)
	return New(board.NewGame(), our, opp)
}

func playAI(t *testing.T, g *Game, from, to board.Position) {
	t.Helper()
	p, ok := g.Board().PieceAt(from)
	if !ok {
		t.Fatalf("no piece at %s", from)
	}
	next, err := g.Board().PlayAIMove(p, to)
	if err != nil {
		t.Fatalf("PlayAIMove: %v", err)
	}
	g.AddSnapshot(next, FormatMove(from, to), core.TeamOpponent)
}

func playOur(t *testing.T, g *Game, from, to board.Position) {
	t.Helper()
	p, ok := g.Board().PieceAt(from)
	if !ok {
		t.Fatalf("no piece at %s", from)
	}
	next, ok := g.Board().PlayMove(p, to)
	if !ok {
		t.Fatalf("move %s rejected", FormatMove(from, to))
	}
	g.AddSnapshot(next, FormatMove(from, to), core.TeamOur)
}

func TestSnapshotsAndUndo(t *testing.T) {
	g := newTestGame(t)
	if g.NextTeam() != core.TeamOpponent || g.NextPlayer().Type != core.PlayerComputer {
		t.Fatalf("first mover got=%s", g.NextTeam())
	}

	playAI(t, g, board.NewPosition(4, 6), board.NewPosition(4, 4))
	playOur(t, g, board.NewPosition(3, 1), board.NewPosition(3, 3))

	moves := g.Moves()
	if len(moves) != 2 || moves[0] != "(4,6)->(4,4)" || moves[1] != "(3,1)->(3,3)" {
		t.Fatalf("moves got=%v", moves)
	}

	first := g.Snapshots()[1].Board
	if err := g.UndoMoves(1); err != nil {
		t.Fatalf("UndoMoves: %v", err)
	}
	if g.Board() != first || g.NextTeam() != core.TeamOur {
		t.Fatalf("undo did not restore the earlier snapshot")
	}
	if err := g.UndoMoves(2); err == nil {
		t.Fatalf("undo past start accepted")
	}
	if err := g.UndoMoves(0); err == nil {
		t.Fatalf("zero undo accepted")
	}
	if err := g.UndoMoves(1); err != nil || g.MoveCount() != 0 {
		t.Fatalf("undo to start got err=%v count=%d", err, g.MoveCount())
	}
}

func TestUndoRestoresWinnerState(t *testing.T) {
	our := core.NewPlayer(core.PlayerConfig{Type: core.PlayerHuman}, core.TeamOur)
	opp := core.NewPlayer(core.PlayerConfig{Type: core.PlayerHuman}, core.TeamOpponent)
	b, err := board.ParseLayout("4k3/8/8/8/8/8/8/4K3 0")
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	g := New(b, our, opp)

	playAI(t, g, board.NewPosition(4, 7), board.NewPosition(4, 0))
	if g.RefreshState() != core.StateOpponentWins {
		t.Fatalf("state got=%s want=opponent wins", g.State())
	}
	if err := g.UndoMoves(1); err != nil {
		t.Fatalf("UndoMoves: %v", err)
	}
	if g.State() != core.StateOngoing {
		t.Fatalf("state after undo got=%s want=ongoing", g.State())
	}
}

func TestReplaceCurrentForPromotion(t *testing.T) {
	our := core.NewPlayer(core.PlayerConfig{Type: core.PlayerHuman}, core.TeamOur)
	opp := core.NewPlayer(core.PlayerConfig{Type: core.PlayerHuman}, core.TeamOpponent)
	b, err := board.ParseLayout("4k3/P7/8/8/8/8/8/4K3 1")
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	g := New(b, our, opp)

	playOur(t, g, board.NewPosition(0, 6), board.NewPosition(0, 7))
	if g.RefreshState() != core.StatePromotion {
		t.Fatalf("state got=%s want=promotion", g.State())
	}

	promoted, ok := g.Board().Promote(board.NewPosition(0, 7), core.Knight)
	if !ok {
		t.Fatalf("promotion rejected")
	}
	g.ReplaceCurrent(promoted, "=N")

	if g.MoveCount() != 1 || g.Moves()[0] != "(0,6)->(0,7)=N" {
		t.Fatalf("moves got=%v", g.Moves())
	}
	if g.RefreshState() != core.StateOngoing {
		t.Fatalf("state got=%s want=ongoing", g.State())
	}
}
