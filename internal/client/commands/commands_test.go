package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"arcadechess/internal/client/session"
	"arcadechess/internal/server/core"
)

func TestParseOpponent(t *testing.T) {
	tests := []struct {
		arg     string
		want    core.PlayerConfig
		wantErr bool
	}{
		{arg: "human", want: core.PlayerConfig{Type: core.PlayerHuman}},
		{arg: "h", want: core.PlayerConfig{Type: core.PlayerHuman}},
		{arg: "computer", want: core.PlayerConfig{Type: core.PlayerComputer}},
		{arg: "c:remote", want: core.PlayerConfig{Type: core.PlayerComputer, Proposer: "remote"}},
		{arg: "computer:random:500", want: core.PlayerConfig{Type: core.PlayerComputer, Proposer: "random", ThinkTime: 500}},
		{arg: "human:x", wantErr: true},
		{arg: "computer:random:fast", wantErr: true},
		{arg: "robot", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.arg, func(t *testing.T) {
			got, err := parseOpponent(tt.arg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got=%+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got=%+v want=%+v", got, tt.want)
			}
		})
	}
}

func TestParsePosition(t *testing.T) {
	got, err := parsePosition("3, 4")
	if err != nil || got != (core.PositionDTO{X: 3, Y: 4}) {
		t.Fatalf("got=%+v err=%v", got, err)
	}
	// Range is the server's concern
	if got, err := parsePosition("9,-1"); err != nil || got != (core.PositionDTO{X: 9, Y: -1}) {
		t.Fatalf("got=%+v err=%v", got, err)
	}
	for _, bad := range []string{"34", "a,b", ",1"} {
		if _, err := parsePosition(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

// stubServer answers the game endpoints with canned responses and records requests
type stubServer struct {
	requests []string
	bodies   []string
}

func (st *stubServer) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)
		st.requests = append(st.requests, r.Method+" "+r.URL.Path)
		st.bodies = append(st.bodies, body.String())

		w.Header().Set("Content-Type", "application/json")
		game := core.GameResponse{GameID: "game-1", Turn: "opponent", State: "ongoing", Moves: []string{}}

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/games":
			w.WriteHeader(http.StatusCreated)
		case r.URL.Path == "/api/v1/games/game-1/moves":
			game.Turn = "opponent"
			game.TotalTurns = 2
			game.Moves = []string{"(4,6)->(4,4)", "(4,1)->(4,3)"}
			game.LastMove = &core.MoveInfo{Move: "(4,1)->(4,3)", Team: "our"}
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
			return
		case r.URL.Path == "/api/v1/games/missing":
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(core.ErrorResponse{Error: "game not found", Code: core.ErrGameNotFound})
			return
		}
		json.NewEncoder(w).Encode(game)
	})
}

func newTestRegistry(t *testing.T) (*Registry, *session.Session, *stubServer, *bytes.Buffer) {
	t.Helper()
	stub := &stubServer{}
	srv := httptest.NewServer(stub.handler(t))
	t.Cleanup(srv.Close)

	s := session.New(srv.URL)
	var out bytes.Buffer
	prompter := func(string, bool) (string, error) { return "", errors.New("no input in tests") }
	return NewRegistry(s, &out, prompter), s, stub, &out
}

func TestGameCommandFlow(t *testing.T) {
	r, s, stub, out := newTestRegistry(t)

	r.Execute("new computer:random 4k3/8/8/8/8/8/8/4K3 1 -")
	if s.CurrentGame != "game-1" {
		t.Fatalf("current game got=%q want=game-1\n%s", s.CurrentGame, out)
	}
	var created core.CreateGameRequest
	if err := json.Unmarshal([]byte(stub.bodies[0]), &created); err != nil {
		t.Fatalf("create body: %v", err)
	}
	if created.Opponent.Type != core.PlayerComputer || created.Layout != "4k3/8/8/8/8/8/8/4K3 1 -" {
		t.Fatalf("create request got=%+v", created)
	}

	r.Execute("move 4,1 4,3")
	if s.LastMoveCount != 2 {
		t.Fatalf("move count got=%d want=2", s.LastMoveCount)
	}
	if !strings.Contains(out.String(), "(4,1)->(4,3)") {
		t.Fatalf("last move not printed:\n%s", out)
	}

	r.Execute("delete")
	if s.CurrentGame != "" {
		t.Fatalf("game not forgotten after delete")
	}
	if got := stub.requests[len(stub.requests)-1]; got != "DELETE /api/v1/games/game-1" {
		t.Fatalf("last request got=%q", got)
	}
}

func TestCommandErrorsArePrinted(t *testing.T) {
	r, s, _, out := newTestRegistry(t)

	r.Execute("move 1,1 1,2")
	if !strings.Contains(out.String(), "no current game") {
		t.Fatalf("missing game error not printed:\n%s", out)
	}

	r.Execute("join missing")
	if !strings.Contains(out.String(), core.ErrGameNotFound) {
		t.Fatalf("server error code not printed:\n%s", out)
	}
	if s.CurrentGame != "" {
		t.Fatalf("failed join must not set the game")
	}

	r.Execute("bogus")
	if !strings.Contains(out.String(), "Unknown command") {
		t.Fatalf("unknown command not reported:\n%s", out)
	}

	if err := r.Execute("exit"); !errors.Is(err, ErrExit) {
		t.Fatalf("exit got=%v want=ErrExit", err)
	}
}
