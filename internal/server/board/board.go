package board

import (
	"errors"
	"fmt"

	"arcadechess/internal/server/core"
)

var (
	ErrGameOver         = errors.New("game is over")
	ErrNotOpponentTurn  = errors.New("not the opponent's turn")
	ErrPieceNotFound    = errors.New("no piece at position")
	ErrNotOpponentPiece = errors.New("piece does not belong to the opponent")
	ErrOffBoard         = errors.New("destination is off the board")
	ErrNoMovement       = errors.New("destination equals the piece position")
)

var backRow = [Size]core.PieceType{
	core.Rook, core.Knight, core.Bishop, core.Queen,
	core.King, core.Bishop, core.Knight, core.Rook,
}

// Board is an immutable snapshot once handed out. Every mutating entry point
// clones first and returns the new snapshot, leaving the receiver untouched.
type Board struct {
	pieces      []Piece
	totalTurns  int
	winningTeam core.Team
}

// NewGame returns the standard 32-piece layout with OUR on rows 0-1
func NewGame() *Board {
	pieces := make([]Piece, 0, 4*Size)
	for x := 0; x < Size; x++ {
		pieces = append(pieces, NewPiece(NewPosition(x, 0), backRow[x], core.TeamOur, false))
	}
	for x := 0; x < Size; x++ {
		pieces = append(pieces, NewPawn(NewPosition(x, PawnStartRow(core.TeamOur)), core.TeamOur, false, false))
	}
	for x := 0; x < Size; x++ {
		pieces = append(pieces, NewPawn(NewPosition(x, PawnStartRow(core.TeamOpponent)), core.TeamOpponent, false, false))
	}
	for x := 0; x < Size; x++ {
		pieces = append(pieces, NewPiece(NewPosition(x, Size-1), backRow[x], core.TeamOpponent, false))
	}

	b := &Board{pieces: pieces}
	b.CalculateAllMoves()
	return b
}

// NewBoard builds a custom setup. Pieces are copied; move lists are recomputed.
func NewBoard(pieces []Piece, totalTurns int) (*Board, error) {
	if totalTurns < 0 {
		return nil, fmt.Errorf("negative turn count: %d", totalTurns)
	}

	seen := make(map[Position]bool, len(pieces))
	kings := make(map[core.Team]int)
	own := make([]Piece, 0, len(pieces))
	for _, p := range pieces {
		if !p.Position.OnBoard() {
			return nil, fmt.Errorf("piece %s off board at %s", p.Type, p.Position)
		}
		if seen[p.Position] {
			return nil, fmt.Errorf("two pieces share cell %s", p.Position)
		}
		if RuleFor(p.Type) == nil {
			return nil, fmt.Errorf("unknown piece type at %s", p.Position)
		}
		if p.Team != core.TeamOur && p.Team != core.TeamOpponent {
			return nil, fmt.Errorf("piece at %s has no team", p.Position)
		}
		if p.EnPassant && !p.IsPawn() {
			return nil, fmt.Errorf("en passant flag on non-pawn at %s", p.Position)
		}
		if p.IsKing() {
			kings[p.Team]++
			if kings[p.Team] > 1 {
				return nil, fmt.Errorf("more than one %s king", p.Team)
			}
		}
		seen[p.Position] = true
		own = append(own, p.Clone())
	}

	b := &Board{pieces: own, totalTurns: totalTurns}
	b.CalculateAllMoves()
	return b, nil
}

// Clone returns a deep copy sharing no mutable state with the receiver
func (b *Board) Clone() *Board {
	pieces := make([]Piece, len(b.pieces))
	for i, p := range b.pieces {
		pieces[i] = p.Clone()
	}
	return &Board{
		pieces:      pieces,
		totalTurns:  b.totalTurns,
		winningTeam: b.winningTeam,
	}
}

// CalculateAllMoves refreshes every cached move list against the current piece set.
// Only call it on a board that has not been handed out yet.
func (b *Board) CalculateAllMoves() {
	for i := range b.pieces {
		b.pieces[i].PossibleMoves = MovesFor(b.pieces[i], b.pieces)
	}
}

// Pieces returns deep copies of all pieces
func (b *Board) Pieces() []Piece {
	out := make([]Piece, len(b.pieces))
	for i, p := range b.pieces {
		out[i] = p.Clone()
	}
	return out
}

func (b *Board) TeamPieces(team core.Team) []Piece {
	var out []Piece
	for _, p := range b.pieces {
		if p.Team == team {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (b *Board) PieceAt(pos Position) (Piece, bool) {
	if i := b.index(pos); i >= 0 {
		return b.pieces[i].Clone(), true
	}
	return Piece{}, false
}

func (b *Board) TotalTurns() int {
	return b.totalTurns
}

// CurrentTeam is OUR on odd turn counts and OPPONENT on even ones
func (b *Board) CurrentTeam() core.Team {
	if b.totalTurns%2 == 1 {
		return core.TeamOur
	}
	return core.TeamOpponent
}

// WinningTeam is TeamNone while the game is undecided
func (b *Board) WinningTeam() core.Team {
	return b.winningTeam
}

func (b *Board) IsOver() bool {
	return b.winningTeam != core.TeamNone
}

func (b *Board) HasKing(team core.Team) bool {
	for _, p := range b.pieces {
		if p.Team == team && p.IsKing() {
			return true
		}
	}
	return false
}

// PendingPromotion reports an OUR pawn waiting on the far row
func (b *Board) PendingPromotion() (Position, bool) {
	row := PromotionRow(core.TeamOur)
	for _, p := range b.pieces {
		if p.IsPawn() && p.Team == core.TeamOur && p.Position.Y == row {
			return p.Position, true
		}
	}
	return Position{}, false
}

// PlayMove executes a move on the standard path. The piece must be on the board with
// a computed move list, belong to the team whose turn it is, and list dest. Rejected
// moves return the receiver and false.
func (b *Board) PlayMove(piece Piece, dest Position) (*Board, bool) {
	if b.IsOver() || piece.PossibleMoves == nil {
		return b, false
	}
	i := b.index(piece.Position)
	if i < 0 {
		return b, false
	}
	current := b.pieces[i]
	if current.Team != piece.Team || current.Type != piece.Type {
		return b, false
	}
	if current.PossibleMoves == nil || current.Team != b.CurrentTeam() {
		return b, false
	}
	if !current.CanMoveTo(dest) {
		return b, false
	}

	next := b.Clone()
	next.totalTurns++
	next.applyMove(i, dest, next.isEnPassantMove(current, dest))
	return next, true
}

// PlayAIMove executes an externally proposed move for the OPPONENT. Any cell on the
// board is accepted as destination and whatever stands there is removed.
func (b *Board) PlayAIMove(piece Piece, dest Position) (*Board, error) {
	if b.IsOver() {
		return b, ErrGameOver
	}
	if b.CurrentTeam() != core.TeamOpponent {
		return b, ErrNotOpponentTurn
	}
	i := b.index(piece.Position)
	if i < 0 {
		return b, ErrPieceNotFound
	}
	current := b.pieces[i]
	if current.Team != core.TeamOpponent {
		return b, ErrNotOpponentPiece
	}
	if !dest.OnBoard() {
		return b, ErrOffBoard
	}
	if dest.SamePosition(current.Position) {
		return b, ErrNoMovement
	}

	next := b.Clone()
	next.totalTurns++
	next.applyMove(i, dest, next.isEnPassantMove(current, dest))
	return next, nil
}

// Promote replaces the OUR pawn at pos with a fresh piece of the chosen type. It does
// not consume a turn. Anything else is a no-op returning the receiver and false.
func (b *Board) Promote(pos Position, pt core.PieceType) (*Board, bool) {
	if !pt.IsPromotionTarget() {
		return b, false
	}
	i := b.index(pos)
	if i < 0 {
		return b, false
	}
	p := b.pieces[i]
	if !p.IsPawn() || p.Team != core.TeamOur || pos.Y != PromotionRow(core.TeamOur) {
		return b, false
	}

	next := b.Clone()
	next.pieces[i] = NewPiece(pos, pt, p.Team, true)
	next.CalculateAllMoves()
	return next, true
}

// Equal compares piece placement only: cell, type and team
func (b *Board) Equal(o *Board) bool {
	if o == nil || len(b.pieces) != len(o.pieces) {
		return false
	}
	for _, p := range b.pieces {
		i := o.index(p.Position)
		if i < 0 {
			return false
		}
		q := o.pieces[i]
		if q.Type != p.Type || q.Team != p.Team {
			return false
		}
	}
	return true
}

// isEnPassantMove: a diagonal pawn step onto an empty cell with a flagged enemy pawn
// directly behind the target
func (b *Board) isEnPassantMove(p Piece, dest Position) bool {
	if !p.IsPawn() {
		return false
	}
	dir := PawnDirection(p.Team)
	dx := dest.X - p.Position.X
	if (dx != 1 && dx != -1) || dest.Y-p.Position.Y != dir {
		return false
	}
	if b.index(dest) >= 0 {
		return false
	}
	j := b.index(NewPosition(dest.X, dest.Y-dir))
	if j < 0 {
		return false
	}
	victim := b.pieces[j]
	return victim.IsPawn() && victim.EnPassant && victim.Team != p.Team
}

// applyMove is the shared mutation core. Callers have cloned and advanced the turn.
func (b *Board) applyMove(i int, dest Position, enPassant bool) {
	from := b.pieces[i].Position

	captureAt := dest
	if enPassant {
		captureAt = NewPosition(dest.X, dest.Y-PawnDirection(b.pieces[i].Team))
	}

	var captured *Piece
	if j := b.index(captureAt); j >= 0 && j != i {
		victim := b.pieces[j]
		captured = &victim
		b.pieces = append(b.pieces[:j], b.pieces[j+1:]...)
		if j < i {
			i--
		}
	}

	for k := range b.pieces {
		if k != i {
			b.pieces[k].EnPassant = false
		}
	}

	moved := &b.pieces[i]
	moved.Position = dest
	moved.HasMoved = true
	if moved.IsPawn() {
		dy := dest.Y - from.Y
		moved.EnPassant = dest.X == from.X && (dy == 2 || dy == -2)
	}

	b.CalculateAllMoves()

	if captured != nil && captured.IsKing() {
		b.winningTeam = core.Opposite(captured.Team)
	}
}

func (b *Board) index(pos Position) int {
	for i := range b.pieces {
		if b.pieces[i].Position.SamePosition(pos) {
			return i
		}
	}
	return -1
}
