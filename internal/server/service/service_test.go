package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"arcadechess/internal/server/board"
	"arcadechess/internal/server/core"
	"arcadechess/internal/server/storage"
)

var testSecret = []byte("test-secret-minimum-32-characters-long")

func newPlayers() (*core.Player, *core.Player) {
	our := core.NewPlayer(core.PlayerConfig{Type: core.PlayerHuman}, core.TeamOur)
	opp := core.NewPlayer(core.PlayerConfig{Type: core.PlayerComputer, Proposer: "random"}, core.TeamOpponent)
	return our, opp
}

func newStoredService(t *testing.T) (*Service, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "svc.db"), false)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.InitDB(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	svc := New(store, testSecret)
	t.Cleanup(func() { svc.Shutdown(time.Second) })
	return svc, store
}

func TestApplyMoveRejectsStaleBoard(t *testing.T) {
	svc := New(nil, testSecret)
	defer svc.Shutdown(time.Second)

	our, opp := newPlayers()
	start := board.NewGame()
	if err := svc.CreateGame("g1", our, opp, start); err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := svc.GetComputerGameCount(); got != 1 {
		t.Fatalf("computer games got=%d want=1", got)
	}

	pawn, _ := start.PieceAt(board.NewPosition(0, 6))
	first, err := start.PlayAIMove(pawn, board.NewPosition(0, 5))
	if err != nil {
		t.Fatalf("ai move: %v", err)
	}
	if err := svc.ApplyMove("g1", start, first, "(0,6)->(0,5)", core.TeamOpponent); err != nil {
		t.Fatalf("apply: %v", err)
	}

	// A second writer still holding the old board loses
	other, _ := start.PlayAIMove(pawn, board.NewPosition(0, 4))
	if err := svc.ApplyMove("g1", start, other, "(0,6)->(0,4)", core.TeamOpponent); !errors.Is(err, ErrStaleBoard) {
		t.Fatalf("stale apply got=%v want=%v", err, ErrStaleBoard)
	}

	if n, _ := svc.MoveCount("g1"); n != 1 {
		t.Fatalf("move count got=%d want=1", n)
	}

	if err := svc.UndoMoves("g1", 1); err != nil {
		t.Fatalf("undo: %v", err)
	}
	g, _ := svc.GetGame("g1")
	if g.Board() != start {
		t.Fatal("undo did not restore the initial snapshot")
	}

	if err := svc.DeleteGame("g1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetGame("g1"); !errors.Is(err, ErrGameNotFound) {
		t.Fatalf("get after delete got=%v want=%v", err, ErrGameNotFound)
	}
	if got := svc.GetComputerGameCount(); got != 0 {
		t.Fatalf("computer games got=%d want=0", got)
	}
}

func TestGameHistoryPersisted(t *testing.T) {
	svc, store := newStoredService(t)

	our, opp := newPlayers()
	start := board.NewGame()
	if err := svc.CreateGame("g1", our, opp, start); err != nil {
		t.Fatalf("create: %v", err)
	}
	knight, _ := start.PieceAt(board.NewPosition(1, 7))
	next, err := start.PlayAIMove(knight, board.NewPosition(2, 5))
	if err != nil {
		t.Fatalf("ai move: %v", err)
	}
	if err := svc.ApplyMove("g1", start, next, "(1,7)->(2,5)", core.TeamOpponent); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := store.Flush(time.Second); err != nil {
		t.Fatalf("flush: %v", err)
	}

	moves, err := store.QueryMoves("g1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(moves) != 1 || moves[0].Team != "opponent" || moves[0].LayoutAfterMove != next.Encode() {
		t.Fatalf("moves got=%+v", moves)
	}
}

func TestWaitNotifiedOnMove(t *testing.T) {
	svc := New(nil, testSecret)
	defer svc.Shutdown(time.Second)

	our, opp := newPlayers()
	start := board.NewGame()
	svc.CreateGame("g1", our, opp, start)

	ch := svc.RegisterWait("g1", 0, context.Background())

	pawn, _ := start.PieceAt(board.NewPosition(3, 6))
	next, _ := start.PlayAIMove(pawn, board.NewPosition(3, 4))
	if err := svc.ApplyMove("g1", start, next, "(3,6)->(3,4)", core.TeamOpponent); err != nil {
		t.Fatalf("apply: %v", err)
	}

	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatal("wait channel closed instead of notified")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not notified")
	}
}

func TestWaitRegistry(t *testing.T) {
	t.Run("same count is not woken", func(t *testing.T) {
		w := NewWaitRegistry()
		defer w.Shutdown(time.Second)

		ch := w.RegisterWait("g", 3, context.Background())
		w.NotifyGame("g", 3)
		select {
		case <-ch:
			t.Fatal("waiter woken without a change")
		case <-time.After(50 * time.Millisecond):
		}
	})

	t.Run("timeout wakes", func(t *testing.T) {
		w := NewWaitRegistry()
		w.timeout = 20 * time.Millisecond
		defer w.Shutdown(time.Second)

		select {
		case <-w.RegisterWait("g", 0, context.Background()):
		case <-time.After(time.Second):
			t.Fatal("timeout did not wake waiter")
		}
	})

	t.Run("cancel closes", func(t *testing.T) {
		w := NewWaitRegistry()
		defer w.Shutdown(time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		ch := w.RegisterWait("g", 0, ctx)
		cancel()

		select {
		case _, ok := <-ch:
			if ok {
				t.Fatal("expected closed channel after cancel")
			}
		case <-time.After(time.Second):
			t.Fatal("cancel did not release waiter")
		}
	})

	t.Run("remove game wakes all", func(t *testing.T) {
		w := NewWaitRegistry()
		defer w.Shutdown(time.Second)

		a := w.RegisterWait("g", 0, context.Background())
		b := w.RegisterWait("g", 1, context.Background())
		w.RemoveGame("g")
		for _, ch := range []<-chan struct{}{a, b} {
			select {
			case <-ch:
			case <-time.After(time.Second):
				t.Fatal("waiter not released on remove")
			}
		}
	})

	t.Run("after shutdown", func(t *testing.T) {
		w := NewWaitRegistry()
		if err := w.Shutdown(time.Second); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
		if _, ok := <-w.RegisterWait("g", 0, context.Background()); ok {
			t.Fatal("expected closed channel after shutdown")
		}
	})
}

func TestUserSessions(t *testing.T) {
	svc, _ := newStoredService(t)

	user, err := svc.CreateUser("alice", "Alice@Example.com", "password123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.AccountType != storage.AccountTemp || user.ExpiresAt == nil {
		t.Fatalf("expected temp account, got %+v", user)
	}

	if _, err := svc.AuthenticateUser("alice", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password got=%v want=%v", err, ErrInvalidCredentials)
	}
	authed, err := svc.AuthenticateUser("alice@example.com", "password123")
	if err != nil || authed.UserID != user.UserID {
		t.Fatalf("login by email got=%+v err=%v", authed, err)
	}

	first, err := svc.GenerateUserToken(user.UserID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	userID, claims, err := svc.ValidateToken(first)
	if err != nil || userID != user.UserID || claims["username"] != "alice" {
		t.Fatalf("validate got=%s %v err=%v", userID, claims, err)
	}

	// A new login replaces the session
	second, _ := svc.GenerateUserToken(user.UserID)
	if _, _, err := svc.ValidateToken(first); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("old token got=%v want=%v", err, ErrSessionExpired)
	}

	if err := svc.Logout(user.UserID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, _, err := svc.ValidateToken(second); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("token after logout got=%v want=%v", err, ErrSessionExpired)
	}
}

func TestUsersWithoutStorage(t *testing.T) {
	svc := New(nil, testSecret)
	defer svc.Shutdown(time.Second)

	if _, err := svc.CreateUser("bob", "", "password123"); !errors.Is(err, ErrStorageDisabled) {
		t.Fatalf("got=%v want=%v", err, ErrStorageDisabled)
	}
	if got := svc.GetStorageHealth(); got != "disabled" {
		t.Fatalf("health got=%s want=disabled", got)
	}
}
