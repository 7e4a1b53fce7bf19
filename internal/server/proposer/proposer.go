// Package proposer supplies opponent moves from an external source and enforces
// the contract those moves must meet before they reach the board.
package proposer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"arcadechess/internal/server/board"
	"arcadechess/internal/server/core"
)

const (
	KindRandom = "random"
	KindRemote = "remote"
)

var (
	ErrInvalidProposal = errors.New("invalid proposal")
	ErrNoPieces        = errors.New("opponent has no pieces")
)

// Proposal is one opponent move as suggested by a proposer
type Proposal struct {
	From      board.Position `json:"from"`
	To        board.Position `json:"to"`
	Reasoning string         `json:"reasoning,omitempty"`
}

type Proposer interface {
	Propose(ctx context.Context, b *board.Board) (Proposal, error)
}

// Config selects and configures a proposer
type Config struct {
	Kind     string
	Endpoint string
	Model    string
	APIKey   string
	Timeout  time.Duration
	Seed     uint64 // 0 seeds from the clock
}

func New(cfg Config) (Proposer, error) {
	switch cfg.Kind {
	case KindRandom, "":
		return NewRandom(cfg.Seed), nil
	case KindRemote:
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("remote proposer requires an endpoint")
		}
		return NewRemote(cfg.Endpoint, cfg.Model, cfg.APIKey, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown proposer kind %q", cfg.Kind)
	}
}

// Resolve checks a proposal against the board: the piece must exist and belong to
// the opponent, and the destination must be a different on-board cell.
func Resolve(b *board.Board, p Proposal) (board.Piece, board.Position, error) {
	piece, ok := b.PieceAt(p.From)
	if !ok {
		return board.Piece{}, board.Position{}, fmt.Errorf("%w: no piece at %s", ErrInvalidProposal, p.From)
	}
	if piece.Team != core.TeamOpponent {
		return board.Piece{}, board.Position{}, fmt.Errorf("%w: piece at %s is not the opponent's", ErrInvalidProposal, p.From)
	}
	if !p.To.OnBoard() {
		return board.Piece{}, board.Position{}, fmt.Errorf("%w: destination %s off board", ErrInvalidProposal, p.To)
	}
	if p.To.SamePosition(p.From) {
		return board.Piece{}, board.Position{}, fmt.Errorf("%w: piece does not move", ErrInvalidProposal)
	}
	return piece, p.To, nil
}

// Decision is a resolved move ready for Board.PlayAIMove
type Decision struct {
	Piece     board.Piece
	To        board.Position
	Reasoning string
	Fallback  bool
	Cause     error // Why the primary proposal was discarded
}

// Choose asks primary for a move and substitutes a random one when the call fails or
// the proposal breaks the contract. It only errors when no fallback move exists.
func Choose(ctx context.Context, primary Proposer, fallback *Random, b *board.Board) (Decision, error) {
	var cause error
	if primary != nil {
		p, err := primary.Propose(ctx, b)
		if err == nil {
			piece, to, rerr := Resolve(b, p)
			if rerr == nil {
				return Decision{Piece: piece, To: to, Reasoning: p.Reasoning}, nil
			}
			err = rerr
		}
		cause = err
	}

	// The primary may have used up the deadline; the fallback must still answer
	p, err := fallback.Propose(context.WithoutCancel(ctx), b)
	if err != nil {
		return Decision{}, err
	}
	piece, to, err := Resolve(b, p)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Piece: piece, To: to, Reasoning: p.Reasoning, Fallback: true, Cause: cause}, nil
}

// FromDTO converts an explicit wire proposal
func FromDTO(from, to core.PositionDTO, reasoning string) Proposal {
	return Proposal{
		From:      board.NewPosition(from.X, from.Y),
		To:        board.NewPosition(to.X, to.Y),
		Reasoning: reasoning,
	}
}

// Static replays one fixed proposal; used for explicitly submitted AI moves
type Static Proposal

func (s Static) Propose(ctx context.Context, b *board.Board) (Proposal, error) {
	return Proposal(s), nil
}
