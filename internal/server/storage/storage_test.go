package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"), false)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := s.InitDB(); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGameHistory(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	s.RecordNewGame(GameRecord{
		GameID:           "g1",
		InitialLayout:    "4k3/8/8/8/8/8/8/4K3 1 -",
		OurPlayerID:      "u1",
		OpponentPlayerID: "bot",
		OpponentType:     2,
		OpponentProposer: "random",
		StartTimeUTC:     now,
	})
	for i, text := range []string{"(4,0)->(4,1)", "(4,7)->(4,6)", "(4,1)->(4,2)"} {
		team := "our"
		if i%2 == 1 {
			team = "opponent"
		}
		s.RecordMove(MoveRecord{
			GameID:          "g1",
			MoveNumber:      i + 1,
			MoveText:        text,
			LayoutAfterMove: "layout",
			Team:            team,
			MoveTimeUTC:     now,
		})
	}
	s.DeleteUndoneMoves("g1", 2)
	s.RecordPromotion("g1", 2, "(4,7)->(4,6)=Q", "promoted")

	if err := s.Flush(time.Second); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if !s.IsHealthy() {
		t.Fatal("store degraded")
	}

	games, err := s.QueryGames("*", "u1")
	if err != nil {
		t.Fatalf("query games: %v", err)
	}
	if len(games) != 1 || games[0].OpponentProposer != "random" {
		t.Fatalf("games got=%+v", games)
	}

	moves, err := s.QueryMoves("g1")
	if err != nil {
		t.Fatalf("query moves: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("moves got=%d want=2", len(moves))
	}
	if moves[1].MoveText != "(4,7)->(4,6)=Q" || moves[1].LayoutAfterMove != "promoted" {
		t.Fatalf("promotion not recorded: %+v", moves[1])
	}
}

func TestBadWriteDegradesStore(t *testing.T) {
	s := newTestStore(t)

	// Unknown game violates the foreign key
	s.RecordMove(MoveRecord{GameID: "missing", MoveNumber: 1, MoveText: "x", LayoutAfterMove: "x", Team: "our"})
	s.Flush(time.Second)

	if s.IsHealthy() {
		t.Fatal("expected degraded store after failed write")
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	expired := now.Add(-time.Hour)

	records := []UserRecord{
		{UserID: "a", Username: "alice", Email: "alice@example.com", PasswordHash: "h", AccountType: AccountPermanent, CreatedAt: now},
		{UserID: "b", Username: "bob", PasswordHash: "h", AccountType: AccountTemp, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: &expired},
	}
	for _, r := range records {
		if err := s.CreateUser(r); err != nil {
			t.Fatalf("create %s: %v", r.Username, err)
		}
	}

	if err := s.CreateUser(UserRecord{UserID: "c", Username: "ALICE", PasswordHash: "h", CreatedAt: now}); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate username got=%v want=%v", err, ErrUserExists)
	}

	total, permanent, temp, err := s.GetUserCounts()
	if err != nil || total != 2 || permanent != 1 || temp != 1 {
		t.Fatalf("counts got=%d/%d/%d err=%v", total, permanent, temp, err)
	}

	u, err := s.GetUserByEmail("ALICE@example.com")
	if err != nil || u.UserID != "a" {
		t.Fatalf("lookup by email got=%+v err=%v", u, err)
	}
	if _, err := s.GetUserByEmail(""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty email lookup got=%v want=%v", err, ErrNotFound)
	}

	oldest, err := s.GetOldestTempUser()
	if err != nil || oldest.UserID != "b" {
		t.Fatalf("oldest temp got=%+v err=%v", oldest, err)
	}

	n, err := s.DeleteExpiredTempUsers()
	if err != nil || n != 1 {
		t.Fatalf("expired deleted got=%d err=%v", n, err)
	}
	if _, err := s.GetUserByID("b"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired user still present: %v", err)
	}
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	if err := s.CreateUser(UserRecord{UserID: "a", Username: "alice", PasswordHash: "h", CreatedAt: now}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	first := SessionRecord{SessionID: "s1", UserID: "a", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	second := SessionRecord{SessionID: "s2", UserID: "a", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := s.CreateSession(first); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := s.CreateSession(second); err != nil {
		t.Fatalf("replace session: %v", err)
	}

	if ok, _ := s.IsSessionValid("s1"); ok {
		t.Fatal("replaced session still valid")
	}
	if ok, _ := s.IsSessionValid("s2"); !ok {
		t.Fatal("new session not valid")
	}

	if err := s.DeleteUserByID("a"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := s.GetSession("s2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("session should cascade with user, got %v", err)
	}
}
