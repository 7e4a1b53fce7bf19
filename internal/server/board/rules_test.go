package board

import (
	"testing"

	"arcadechess/internal/server/core"
)

var allTypes = []core.PieceType{core.Pawn, core.Knight, core.Bishop, core.Rook, core.Queen, core.King}

func samePositions(got, want []Position) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if !got[i].SamePosition(want[i]) {
			return false
		}
	}
	return true
}

func contains(moves []Position, pos Position) bool {
	for _, m := range moves {
		if m.SamePosition(pos) {
			return true
		}
	}
	return false
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// crowded is a mid-game style position with pieces of both teams scattered around
func crowded() []Piece {
	return []Piece{
		NewPiece(NewPosition(4, 0), core.King, core.TeamOur, false),
		NewPiece(NewPosition(2, 2), core.Bishop, core.TeamOur, true),
		NewPiece(NewPosition(5, 3), core.Knight, core.TeamOur, true),
		NewPawn(NewPosition(3, 3), core.TeamOur, false, true),
		NewPawn(NewPosition(6, 1), core.TeamOur, false, false),
		NewPiece(NewPosition(4, 7), core.King, core.TeamOpponent, false),
		NewPiece(NewPosition(3, 5), core.Queen, core.TeamOpponent, true),
		NewPiece(NewPosition(7, 4), core.Rook, core.TeamOpponent, true),
		NewPawn(NewPosition(2, 4), core.TeamOpponent, false, true),
		NewPawn(NewPosition(6, 6), core.TeamOpponent, false, false),
	}
}

func TestMovesStayOnBoard(t *testing.T) {
	layouts := map[string][]Piece{
		"empty":    nil,
		"crowded":  crowded(),
		"starting": NewGame().Pieces(),
	}

	for name, others := range layouts {
		for _, team := range []core.Team{core.TeamOur, core.TeamOpponent} {
			for _, pt := range allTypes {
				for x := 0; x < Size; x++ {
					for y := 0; y < Size; y++ {
						from := NewPosition(x, y)
						if occupied(others, from) {
							continue
						}
						moves := RuleFor(pt)(from, team, others)
						for _, m := range moves {
							if !m.OnBoard() {
								t.Fatalf("%s: %s %s at %s produced off-board %s", name, team, pt, from, m)
							}
						}
						if (pt == core.Knight || pt == core.King) && len(moves) > 8 {
							t.Fatalf("%s: %s at %s has %d moves, want <= 8", name, pt, from, len(moves))
						}
					}
				}
			}
		}
	}
}

func TestRaysNeverJumpBlockers(t *testing.T) {
	pieces := crowded()
	for _, team := range []core.Team{core.TeamOur, core.TeamOpponent} {
		for _, pt := range []core.PieceType{core.Bishop, core.Rook, core.Queen} {
			for x := 0; x < Size; x++ {
				for y := 0; y < Size; y++ {
					from := NewPosition(x, y)
					if occupied(pieces, from) {
						continue
					}
					for _, m := range RuleFor(pt)(from, team, pieces) {
						dx, dy := sign(m.X-from.X), sign(m.Y-from.Y)
						for c := from.offset(dx, dy); !c.SamePosition(m); c = c.offset(dx, dy) {
							if occupied(pieces, c) {
								t.Fatalf("%s at %s reached %s through occupied %s", pt, from, m, c)
							}
						}
						if target, ok := pieceAt(pieces, m); ok && target.Team == team {
							t.Fatalf("%s at %s lists own piece at %s", pt, from, m)
						}
					}
				}
			}
		}
	}
}

func TestRookStopsAtFirstBlocker(t *testing.T) {
	pieces := []Piece{
		NewPawn(NewPosition(0, 3), core.TeamOur, false, true),
		NewPawn(NewPosition(3, 0), core.TeamOpponent, false, true),
	}
	got := RookMoves(NewPosition(0, 0), core.TeamOur, pieces)
	want := []Position{{0, 1}, {0, 2}, {1, 0}, {2, 0}, {3, 0}}
	if !samePositions(got, want) {
		t.Fatalf("rook moves got=%v want=%v", got, want)
	}
}

func TestStepRules(t *testing.T) {
	friendly := []Piece{NewPiece(NewPosition(1, 1), core.Rook, core.TeamOur, true)}
	enemy := []Piece{NewPiece(NewPosition(1, 1), core.Rook, core.TeamOpponent, true)}

	tests := []struct {
		name   string
		rule   MoveRule
		from   Position
		pieces []Piece
		want   int
	}{
		{"knight centre", KnightMoves, NewPosition(3, 3), nil, 8},
		{"knight corner", KnightMoves, NewPosition(0, 0), nil, 2},
		{"knight edge", KnightMoves, NewPosition(0, 3), nil, 4},
		{"king centre", KingMoves, NewPosition(3, 3), nil, 8},
		{"king corner", KingMoves, NewPosition(0, 0), nil, 3},
		{"king beside friend", KingMoves, NewPosition(0, 0), friendly, 2},
		{"king beside enemy", KingMoves, NewPosition(0, 0), enemy, 3},
		{"queen centre empty", QueenMoves, NewPosition(3, 3), nil, 27},
		{"bishop corner empty", BishopMoves, NewPosition(0, 0), nil, 7},
		{"rook anywhere empty", RookMoves, NewPosition(5, 2), nil, 14},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rule(tt.from, core.TeamOur, tt.pieces)
			if len(got) != tt.want {
				t.Fatalf("got=%d moves %v want=%d", len(got), got, tt.want)
			}
		})
	}
}

func TestPawnMoves(t *testing.T) {
	tests := []struct {
		name   string
		from   Position
		team   core.Team
		pieces []Piece
		want   []Position
	}{
		{
			name: "our start row double step",
			from: NewPosition(0, 1),
			team: core.TeamOur,
			want: []Position{{0, 2}, {0, 3}},
		},
		{
			name: "opponent start row double step",
			from: NewPosition(3, 6),
			team: core.TeamOpponent,
			want: []Position{{3, 5}, {3, 4}},
		},
		{
			name:   "double step blocked on second cell",
			from:   NewPosition(0, 1),
			team:   core.TeamOur,
			pieces: []Piece{NewPawn(NewPosition(0, 3), core.TeamOpponent, false, true)},
			want:   []Position{{0, 2}},
		},
		{
			name:   "single step blocked stops double step",
			from:   NewPosition(0, 1),
			team:   core.TeamOur,
			pieces: []Piece{NewPawn(NewPosition(0, 2), core.TeamOpponent, false, true)},
			want:   nil,
		},
		{
			name: "off start row single step only",
			from: NewPosition(3, 2),
			team: core.TeamOur,
			want: []Position{{3, 3}},
		},
		{
			name: "captures enemy diagonal only",
			from: NewPosition(3, 3),
			team: core.TeamOur,
			pieces: []Piece{
				NewPiece(NewPosition(2, 4), core.Knight, core.TeamOpponent, true),
				NewPiece(NewPosition(4, 4), core.Knight, core.TeamOur, true),
			},
			want: []Position{{3, 4}, {2, 4}},
		},
		{
			name: "en passant beside flagged pawn",
			from: NewPosition(1, 3),
			team: core.TeamOpponent,
			pieces: []Piece{
				NewPawn(NewPosition(0, 3), core.TeamOur, true, true),
				NewPawn(NewPosition(2, 3), core.TeamOur, false, true),
			},
			want: []Position{{1, 2}, {0, 2}},
		},
		{
			name: "far row has nothing",
			from: NewPosition(3, 7),
			team: core.TeamOur,
			want: nil,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := PawnMoves(tt.from, tt.team, tt.pieces)
			if !samePositions(got, tt.want) {
				t.Fatalf("got=%v want=%v", got, tt.want)
			}
		})
	}
}

func TestMovesForNeverNil(t *testing.T) {
	p := NewPawn(NewPosition(3, 7), core.TeamOur, false, true)
	moves := MovesFor(p, nil)
	if moves == nil || len(moves) != 0 {
		t.Fatalf("got=%v want empty non-nil", moves)
	}
}
