package proposer

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"arcadechess/internal/server/board"
	"arcadechess/internal/server/core"
)

// Random picks any opponent piece and any other cell on the board
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom(seed uint64) *Random {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Random{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (r *Random) Propose(ctx context.Context, b *board.Board) (Proposal, error) {
	if err := ctx.Err(); err != nil {
		return Proposal{}, err
	}

	pieces := b.TeamPieces(core.TeamOpponent)
	if len(pieces) == 0 {
		return Proposal{}, ErrNoPieces
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	from := pieces[r.rng.IntN(len(pieces))].Position
	to := from
	for to.SamePosition(from) {
		to = board.NewPosition(r.rng.IntN(board.Size), r.rng.IntN(board.Size))
	}

	return Proposal{From: from, To: to, Reasoning: "random move"}, nil
}
