package proposer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"arcadechess/internal/server/board"
)

func TestParseProposal(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Proposal
		wantErr bool
	}{
		{
			name: "plain json",
			text: `{"piecePosition":{"x":1,"y":7},"destination":{"x":2,"y":5},"reasoning":"jump"}`,
			want: Proposal{From: board.NewPosition(1, 7), To: board.NewPosition(2, 5), Reasoning: "jump"},
		},
		{
			name: "fenced json",
			text: "```json\n{\"piecePosition\":{\"x\":0,\"y\":6},\"destination\":{\"x\":0,\"y\":4}}\n```",
			want: Proposal{From: board.NewPosition(0, 6), To: board.NewPosition(0, 4)},
		},
		{name: "missing destination", text: `{"piecePosition":{"x":0,"y":6}}`, wantErr: true},
		{name: "not json", text: "I would move the knight", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProposal(tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidProposal) {
					t.Fatalf("got=%v want=%v", err, ErrInvalidProposal)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseProposal: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got=%+v want=%+v", got, tt.want)
			}
		})
	}
}

func TestRemotePropose(t *testing.T) {
	var gotAuth string
	var gotReq remoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(remoteResponse{
			Text: "```json\n{\"piecePosition\":{\"x\":6,\"y\":7},\"destination\":{\"x\":5,\"y\":5},\"reasoning\":\"develop\"}\n```",
		})
	}))
	defer srv.Close()

	r := NewRemote(srv.URL, "test-model", "secret", time.Second)
	p, err := r.Propose(context.Background(), board.NewGame())
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}

	want := Proposal{From: board.NewPosition(6, 7), To: board.NewPosition(5, 5), Reasoning: "develop"}
	if p != want {
		t.Fatalf("got=%+v want=%+v", p, want)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("auth header got=%q", gotAuth)
	}
	if gotReq.Model != "test-model" || !strings.Contains(gotReq.Prompt, "OPPONENT team") {
		t.Fatalf("request got model=%q prompt=%q", gotReq.Model, gotReq.Prompt)
	}
	if !strings.Contains(gotReq.Prompt, `"position": "(4, 7)"`) {
		t.Fatalf("prompt lacks opponent king position")
	}
}

func TestRemoteBareProposal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"piecePosition":{"x":0,"y":6},"destination":{"x":0,"y":5}}`))
	}))
	defer srv.Close()

	p, err := NewRemote(srv.URL, "", "", time.Second).Propose(context.Background(), board.NewGame())
	if err != nil {
		t.Fatalf("Propose: %v", err)
	}
	if !p.From.SamePosition(board.NewPosition(0, 6)) || !p.To.SamePosition(board.NewPosition(0, 5)) {
		t.Fatalf("got=%+v", p)
	}
}

func TestRemoteFailures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		if _, err := NewRemote(srv.URL, "", "", time.Second).Propose(context.Background(), board.NewGame()); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("deadline", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		d, err := Choose(ctx, NewRemote(srv.URL, "", "", 5*time.Second), NewRandom(9), board.NewGame())
		if err != nil {
			t.Fatalf("Choose: %v", err)
		}
		if !d.Fallback {
			t.Fatalf("expected random fallback after deadline")
		}
	})
}
