package board

import (
	"arcadechess/internal/server/core"
)

// MoveRule computes the reachable cells for a piece of one type. Rules are pure and
// geometry-only: they never consider whether the mover's king is left capturable.
type MoveRule func(from Position, team core.Team, pieces []Piece) []Position

var (
	rookDirs   = [4][2]int{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	bishopDirs = [4][2]int{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	queenDirs  = [8][2]int{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	knightJump = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
)

var rules = map[core.PieceType]MoveRule{
	core.Pawn:   PawnMoves,
	core.Knight: KnightMoves,
	core.Bishop: BishopMoves,
	core.Rook:   RookMoves,
	core.Queen:  QueenMoves,
	core.King:   KingMoves,
}

// RuleFor returns the move rule for a piece type, nil if the type is unknown
func RuleFor(pt core.PieceType) MoveRule {
	return rules[pt]
}

// MovesFor evaluates the piece's rule against the given piece set. The result is
// never nil so that a computed-but-empty list stays distinct from "not computed".
func MovesFor(p Piece, pieces []Piece) []Position {
	rule := RuleFor(p.Type)
	if rule == nil {
		return []Position{}
	}
	moves := rule(p.Position, p.Team, pieces)
	if moves == nil {
		moves = []Position{}
	}
	return moves
}

// PawnDirection is the row delta of a forward pawn step
func PawnDirection(team core.Team) int {
	if team == core.TeamOur {
		return 1
	}
	return -1
}

// PawnStartRow is the row a team's pawns may double-step from
func PawnStartRow(team core.Team) int {
	if team == core.TeamOur {
		return 1
	}
	return Size - 2
}

// PromotionRow is the far row for a team's pawns
func PromotionRow(team core.Team) int {
	if team == core.TeamOur {
		return Size - 1
	}
	return 0
}

// Order: single step, double step, then the two diagonals (left, right).
func PawnMoves(from Position, team core.Team, pieces []Piece) []Position {
	var moves []Position
	dir := PawnDirection(team)

	one := from.offset(0, dir)
	if one.OnBoard() && !occupied(pieces, one) {
		moves = append(moves, one)
		two := from.offset(0, 2*dir)
		if from.Y == PawnStartRow(team) && two.OnBoard() && !occupied(pieces, two) {
			moves = append(moves, two)
		}
	}

	for _, dx := range [2]int{-1, 1} {
		diag := from.offset(dx, dir)
		if !diag.OnBoard() {
			continue
		}
		if target, ok := pieceAt(pieces, diag); ok {
			if isOpposing(target, team) {
				moves = append(moves, diag)
			}
			continue
		}
		// En passant: the enemy pawn sits beside the mover, one row behind the target cell
		if side, ok := pieceAt(pieces, from.offset(dx, 0)); ok && side.IsPawn() && side.EnPassant && isOpposing(side, team) {
			moves = append(moves, diag)
		}
	}
	return moves
}

func KnightMoves(from Position, team core.Team, pieces []Piece) []Position {
	return stepMoves(from, team, pieces, knightJump[:])
}

func KingMoves(from Position, team core.Team, pieces []Piece) []Position {
	return stepMoves(from, team, pieces, queenDirs[:])
}

func BishopMoves(from Position, team core.Team, pieces []Piece) []Position {
	return rayMoves(from, team, pieces, bishopDirs[:])
}

func RookMoves(from Position, team core.Team, pieces []Piece) []Position {
	return rayMoves(from, team, pieces, rookDirs[:])
}

func QueenMoves(from Position, team core.Team, pieces []Piece) []Position {
	return rayMoves(from, team, pieces, queenDirs[:])
}

// stepMoves tries each offset once: empty or opposing cells are reachable
func stepMoves(from Position, team core.Team, pieces []Piece, offsets [][2]int) []Position {
	var moves []Position
	for _, d := range offsets {
		to := from.offset(d[0], d[1])
		if !to.OnBoard() {
			continue
		}
		if target, ok := pieceAt(pieces, to); ok && !isOpposing(target, team) {
			continue
		}
		moves = append(moves, to)
	}
	return moves
}

// rayMoves walks each direction until the edge or the first occupied cell, which is
// included only when it holds an opposing piece
func rayMoves(from Position, team core.Team, pieces []Piece, dirs [][2]int) []Position {
	var moves []Position
	for _, d := range dirs {
		to := from.offset(d[0], d[1])
		for to.OnBoard() {
			if target, ok := pieceAt(pieces, to); ok {
				if isOpposing(target, team) {
					moves = append(moves, to)
				}
				break
			}
			moves = append(moves, to)
			to = to.offset(d[0], d[1])
		}
	}
	return moves
}

func pieceAt(pieces []Piece, pos Position) (Piece, bool) {
	for _, p := range pieces {
		if p.Position.SamePosition(pos) {
			return p, true
		}
	}
	return Piece{}, false
}

func occupied(pieces []Piece, pos Position) bool {
	_, ok := pieceAt(pieces, pos)
	return ok
}

func isOpposing(p Piece, team core.Team) bool {
	return p.Team != team && p.Team != core.TeamNone
}
