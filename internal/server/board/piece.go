package board

import (
	"arcadechess/internal/server/core"
)

// Piece is a tagged value: Type is the discriminant and EnPassant is the pawn-only
// payload. PossibleMoves is nil until the owning board computes it.
type Piece struct {
	Position      Position       `json:"position"`
	Type          core.PieceType `json:"type"`
	Team          core.Team      `json:"team"`
	HasMoved      bool           `json:"hasMoved"`
	PossibleMoves []Position     `json:"possibleMoves,omitempty"`
	EnPassant     bool           `json:"enPassant,omitempty"`
}

func NewPiece(pos Position, pt core.PieceType, team core.Team, hasMoved bool) Piece {
	return Piece{
		Position: pos,
		Type:     pt,
		Team:     team,
		HasMoved: hasMoved,
	}
}

func NewPawn(pos Position, team core.Team, enPassant, hasMoved bool) Piece {
	p := NewPiece(pos, core.Pawn, team, hasMoved)
	p.EnPassant = enPassant
	return p
}

// Clone returns a deep copy, including the cached move list
func (p Piece) Clone() Piece {
	c := p
	if p.PossibleMoves != nil {
		c.PossibleMoves = make([]Position, len(p.PossibleMoves))
		copy(c.PossibleMoves, p.PossibleMoves)
	}
	return c
}

// SamePiecePosition matches pieces across board snapshots by cell
func (p Piece) SamePiecePosition(o Piece) bool {
	return p.Position.SamePosition(o.Position)
}

func (p Piece) IsPawn() bool {
	return p.Type == core.Pawn
}

func (p Piece) IsKing() bool {
	return p.Type == core.King
}

// CanMoveTo reports membership in the cached move list
func (p Piece) CanMoveTo(dest Position) bool {
	for _, m := range p.PossibleMoves {
		if m.SamePosition(dest) {
			return true
		}
	}
	return false
}

// letter is the layout letter: upper case for OUR, lower case for OPPONENT
func (p Piece) letter() byte {
	l := p.Type.Letter()
	if p.Team == core.TeamOur {
		l -= 'a' - 'A'
	}
	return l
}
