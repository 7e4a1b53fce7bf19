package core

// Request types

// PositionDTO is a board cell on the wire. Range checks are left to the engine so
// that out-of-range AI proposals reach the fallback path instead of failing validation.
type PositionDTO struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type CreateGameRequest struct {
	Opponent PlayerConfig `json:"opponent" validate:"required"`
	Layout   string       `json:"layout,omitempty" validate:"omitempty,max=120"`
}

type MoveRequest struct {
	From *PositionDTO `json:"from" validate:"required"`
	To   *PositionDTO `json:"to" validate:"required"`
}

// AIMoveRequest carries an externally produced proposal. Both fields nil asks the
// game's configured proposer instead.
type AIMoveRequest struct {
	From      *PositionDTO `json:"from,omitempty" validate:"required_with=To"`
	To        *PositionDTO `json:"to,omitempty" validate:"required_with=From"`
	Reasoning string       `json:"reasoning,omitempty" validate:"omitempty,max=2000"`
}

type PromoteRequest struct {
	PieceType string `json:"pieceType" validate:"required,max=8"`
}

type UndoRequest struct {
	Count int `json:"count" validate:"required,min=1,max=500"`
}

// Response types

type GameResponse struct {
	GameID           string          `json:"gameId"`
	Layout           string          `json:"layout"`
	Turn             string          `json:"turn"`
	TotalTurns       int             `json:"totalTurns"`
	State            string          `json:"state"`
	Winner           string          `json:"winner,omitempty"`
	Moves            []string        `json:"moves"`
	Players          PlayersResponse `json:"players"`
	PendingPromotion *PositionDTO    `json:"pendingPromotion,omitempty"`
	LastMove         *MoveInfo       `json:"lastMove,omitempty"`
}

type MoveInfo struct {
	Move      string `json:"move"`
	Team      string `json:"team"`
	Reasoning string `json:"reasoning,omitempty"`
	Fallback  bool   `json:"fallback,omitempty"` // Proposal was rejected and replaced by a random move
}

type BoardResponse struct {
	Layout string `json:"layout"`
	Board  string `json:"board"` // ASCII representation
}

type PieceResponse struct {
	Type          string        `json:"type"`
	Team          string        `json:"team"`
	Position      PositionDTO   `json:"position"`
	HasMoved      bool          `json:"hasMoved"`
	EnPassant     bool          `json:"enPassant,omitempty"`
	PossibleMoves []PositionDTO `json:"possibleMoves"`
}

type PiecesResponse struct {
	Turn   string          `json:"turn"`
	Pieces []PieceResponse `json:"pieces"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
