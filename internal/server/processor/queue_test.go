package processor

import (
	"context"
	"testing"
	"time"

	"arcadechess/internal/server/board"
	"arcadechess/internal/server/proposer"
)

// blockingProposer never answers before its context ends
type blockingProposer struct{}

func (blockingProposer) Propose(ctx context.Context, _ *board.Board) (proposer.Proposal, error) {
	<-ctx.Done()
	return proposer.Proposal{}, ctx.Err()
}

func TestQueueDeliversProposal(t *testing.T) {
	q := NewProposerQueue(1, proposer.NewRandom(1))
	defer q.Shutdown(time.Second)

	b := board.NewGame()
	want := proposer.Static{From: board.NewPosition(4, 6), To: board.NewPosition(4, 4)}

	results := make(chan ProposalResult, 1)
	if err := q.SubmitAsync("g1", b, want, time.Second, func(r ProposalResult) { results <- r }); err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case r := <-results:
		if r.Error != nil {
			t.Fatalf("unexpected error: %v", r.Error)
		}
		if r.Decision.Fallback {
			t.Fatalf("valid proposal replaced by fallback: %v", r.Decision.Cause)
		}
		if !r.Decision.To.SamePosition(want.To) || !r.Decision.Piece.Position.SamePosition(want.From) {
			t.Fatalf("decision got=%s->%s", r.Decision.Piece.Position, r.Decision.To)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no result delivered")
	}
}

func TestQueueFallsBackOnTimeout(t *testing.T) {
	q := NewProposerQueue(1, proposer.NewRandom(1))
	defer q.Shutdown(time.Second)

	results := make(chan ProposalResult, 1)
	err := q.SubmitAsync("g1", board.NewGame(), blockingProposer{}, 50*time.Millisecond, func(r ProposalResult) { results <- r })
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	select {
	case r := <-results:
		if r.Error != nil {
			t.Fatalf("unexpected error: %v", r.Error)
		}
		if !r.Decision.Fallback {
			t.Fatalf("expected fallback decision")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no result delivered")
	}
}

func TestQueueRejectsAfterShutdown(t *testing.T) {
	q := NewProposerQueue(1, nil)
	if err := q.Shutdown(time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := q.Submit(ProposalTask{GameID: "g1"}); err == nil {
		t.Fatalf("expected submit after shutdown to fail")
	}
}
