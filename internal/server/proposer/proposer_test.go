package proposer

import (
	"context"
	"errors"
	"testing"

	"arcadechess/internal/server/board"
	"arcadechess/internal/server/core"
)

type failing struct{ err error }

func (f failing) Propose(ctx context.Context, b *board.Board) (Proposal, error) {
	return Proposal{}, f.err
}

func TestResolve(t *testing.T) {
	b := board.NewGame()

	tests := []struct {
		name    string
		p       Proposal
		wantErr bool
	}{
		{"valid", Proposal{From: board.NewPosition(1, 7), To: board.NewPosition(2, 5)}, false},
		{"unreachable but in range", Proposal{From: board.NewPosition(3, 7), To: board.NewPosition(3, 0)}, false},
		{"empty cell", Proposal{From: board.NewPosition(3, 3), To: board.NewPosition(3, 2)}, true},
		{"our piece", Proposal{From: board.NewPosition(3, 1), To: board.NewPosition(3, 2)}, true},
		{"off board", Proposal{From: board.NewPosition(3, 6), To: board.NewPosition(3, -1)}, true},
		{"no movement", Proposal{From: board.NewPosition(3, 6), To: board.NewPosition(3, 6)}, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Resolve(b, tt.p)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidProposal) {
					t.Fatalf("got=%v want=%v", err, ErrInvalidProposal)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRandomAlwaysPlayable(t *testing.T) {
	r := NewRandom(42)
	b := board.NewGame()
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		p, err := r.Propose(ctx, b)
		if err != nil {
			t.Fatalf("Propose: %v", err)
		}
		piece, to, err := Resolve(b, p)
		if err != nil {
			t.Fatalf("random proposal broke contract: %v", err)
		}
		if _, err := b.PlayAIMove(piece, to); err != nil {
			t.Fatalf("PlayAIMove(%s->%s): %v", p.From, p.To, err)
		}
	}
}

func TestRandomNoPieces(t *testing.T) {
	b, err := board.NewBoard([]board.Piece{
		board.NewPiece(board.NewPosition(4, 0), core.King, core.TeamOur, false),
	}, 0)
	if err != nil {
		t.Fatalf("NewBoard: %v", err)
	}
	if _, err := NewRandom(1).Propose(context.Background(), b); !errors.Is(err, ErrNoPieces) {
		t.Fatalf("got=%v want=%v", err, ErrNoPieces)
	}
}

func TestChoose(t *testing.T) {
	b := board.NewGame()
	fallback := NewRandom(7)
	ctx := context.Background()

	t.Run("valid proposal kept", func(t *testing.T) {
		primary := Static{From: board.NewPosition(6, 7), To: board.NewPosition(5, 5), Reasoning: "develop"}
		d, err := Choose(ctx, primary, fallback, b)
		if err != nil {
			t.Fatalf("Choose: %v", err)
		}
		if d.Fallback || !d.To.SamePosition(board.NewPosition(5, 5)) || d.Piece.Type != core.Knight {
			t.Fatalf("decision got=%+v", d)
		}
		if d.Reasoning != "develop" {
			t.Fatalf("reasoning got=%q", d.Reasoning)
		}
	})

	t.Run("our piece replaced by random", func(t *testing.T) {
		primary := Static{From: board.NewPosition(4, 0), To: board.NewPosition(4, 1)}
		d, err := Choose(ctx, primary, fallback, b)
		if err != nil {
			t.Fatalf("Choose: %v", err)
		}
		if !d.Fallback || !errors.Is(d.Cause, ErrInvalidProposal) {
			t.Fatalf("decision got fallback=%v cause=%v", d.Fallback, d.Cause)
		}
		if d.Piece.Team != core.TeamOpponent {
			t.Fatalf("fallback piece team got=%s", d.Piece.Team)
		}
	})

	t.Run("proposer failure replaced by random", func(t *testing.T) {
		boom := errors.New("boom")
		d, err := Choose(ctx, failing{err: boom}, fallback, b)
		if err != nil {
			t.Fatalf("Choose: %v", err)
		}
		if !d.Fallback || !errors.Is(d.Cause, boom) {
			t.Fatalf("decision got fallback=%v cause=%v", d.Fallback, d.Cause)
		}
	})

	t.Run("expired context still falls back", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		d, err := Choose(cctx, failing{err: context.Canceled}, fallback, b)
		if err != nil {
			t.Fatalf("Choose: %v", err)
		}
		if !d.Fallback {
			t.Fatalf("expected fallback")
		}
	})
}

func TestNew(t *testing.T) {
	if p, err := New(Config{Kind: KindRandom, Seed: 3}); err != nil {
		t.Fatalf("random: %v", err)
	} else if _, ok := p.(*Random); !ok {
		t.Fatalf("random kind got=%T", p)
	}
	if _, err := New(Config{Kind: KindRemote}); err == nil {
		t.Fatalf("remote without endpoint accepted")
	}
	if _, err := New(Config{Kind: "oracle"}); err == nil {
		t.Fatalf("unknown kind accepted")
	}
}
