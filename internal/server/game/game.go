package game

import (
	"fmt"

	"arcadechess/internal/server/board"
	"arcadechess/internal/server/core"
)

// Snapshot is one immutable board state and the move that produced it
type Snapshot struct {
	Board        *board.Board
	PreviousMove string
	MovedBy      core.Team
}

// MoveResult tracks the outcome of a move
type MoveResult struct {
	Move      string     `json:"move"`
	Team      core.Team  `json:"team"`
	GameState core.State `json:"gameState"`
	Reasoning string     `json:"reasoning,omitempty"`
	Fallback  bool       `json:"fallback,omitempty"`
}

type Game struct {
	snapshots  []Snapshot
	players    map[core.Team]*core.Player
	state      core.State
	lastResult *MoveResult
}

func New(initial *board.Board, our, opponent *core.Player) *Game {
	return &Game{
		snapshots: []Snapshot{{Board: initial}},
		players: map[core.Team]*core.Player{
			core.TeamOur:      our,
			core.TeamOpponent: opponent,
		},
		state: core.StateOngoing,
	}
}

// FormatMove renders a move as "(x,y)->(x,y)"
func FormatMove(from, to board.Position) string {
	return from.String() + "->" + to.String()
}

func (g *Game) SetLastResult(result *MoveResult) {
	g.lastResult = result
}

func (g *Game) LastResult() *MoveResult {
	return g.lastResult
}

// CurrentSnapshot returns the latest game snapshot
func (g *Game) CurrentSnapshot() Snapshot {
	return g.snapshots[len(g.snapshots)-1]
}

// Board returns the current authoritative board
func (g *Game) Board() *board.Board {
	return g.CurrentSnapshot().Board
}

func (g *Game) InitialBoard() *board.Board {
	return g.snapshots[0].Board
}

// Snapshots returns the full history, oldest first
func (g *Game) Snapshots() []Snapshot {
	out := make([]Snapshot, len(g.snapshots))
	copy(out, g.snapshots)
	return out
}

func (g *Game) NextTeam() core.Team {
	return g.Board().CurrentTeam()
}

func (g *Game) NextPlayer() *core.Player {
	return g.players[g.NextTeam()]
}

func (g *Game) GetPlayer(team core.Team) *core.Player {
	return g.players[team]
}

func (g *Game) AddSnapshot(b *board.Board, move string, movedBy core.Team) {
	g.snapshots = append(g.snapshots, Snapshot{
		Board:        b,
		PreviousMove: move,
		MovedBy:      movedBy,
	})
}

// ReplaceCurrent swaps the latest board without adding a history entry. Promotion
// uses it: the choice is appended to the move that reached the far row.
func (g *Game) ReplaceCurrent(b *board.Board, suffix string) {
	cur := &g.snapshots[len(g.snapshots)-1]
	cur.Board = b
	cur.PreviousMove += suffix
}

func (g *Game) UndoMoves(count int) error {
	if count < 1 {
		return fmt.Errorf("invalid undo count: %d", count)
	}

	availableMoves := len(g.snapshots) - 1
	if availableMoves < count {
		return fmt.Errorf("cannot undo %d moves: only %d moves available", count, availableMoves)
	}

	g.snapshots = g.snapshots[:len(g.snapshots)-count]
	g.lastResult = nil
	g.state = g.derivedState()
	return nil
}

func (g *Game) Moves() []string {
	moves := []string{}
	for i := 1; i < len(g.snapshots); i++ {
		if g.snapshots[i].PreviousMove != "" {
			moves = append(moves, g.snapshots[i].PreviousMove)
		}
	}
	return moves
}

func (g *Game) MoveCount() int {
	return len(g.snapshots) - 1
}

func (g *Game) State() core.State {
	return g.state
}

func (g *Game) SetState(s core.State) {
	g.state = s
}

// derivedState reads win and promotion status off the current board
func (g *Game) derivedState() core.State {
	b := g.Board()
	if b.IsOver() {
		return core.WinState(b.WinningTeam())
	}
	if _, pending := b.PendingPromotion(); pending {
		return core.StatePromotion
	}
	return core.StateOngoing
}

// RefreshState recomputes the state from the current board
func (g *Game) RefreshState() core.State {
	g.state = g.derivedState()
	return g.state
}
