package service

import (
	"fmt"
	"log"
	"time"

	"arcadechess/internal/server/board"
	"arcadechess/internal/server/core"
	"arcadechess/internal/server/game"
	"arcadechess/internal/server/storage"

	"github.com/google/uuid"
)

func (s *Service) GenerateGameID() string {
	return uuid.New().String()
}

// CreateGame registers a game with fully formed players
func (s *Service) CreateGame(gameID string, our, opponent *core.Player, initial *board.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.games[gameID]; exists {
		return fmt.Errorf("game %s already exists", gameID)
	}
	if opponent.Type == core.PlayerComputer {
		if !s.CanCreateComputerGame() {
			return fmt.Errorf("computer game limit reached (%d)", MaxComputerGames)
		}
		s.computerGames.Add(1)
	}

	s.games[gameID] = game.New(initial, our, opponent)

	if s.store != nil {
		err := s.store.RecordNewGame(storage.GameRecord{
			GameID:           gameID,
			InitialLayout:    initial.Encode(),
			OurPlayerID:      our.ID,
			OpponentPlayerID: opponent.ID,
			OpponentType:     int(opponent.Type),
			OpponentProposer: opponent.Proposer,
			StartTimeUTC:     time.Now().UTC(),
		})
		if err != nil {
			log.Printf("Failed to record game %s: %v", gameID, err)
		}
	}
	return nil
}

func (s *Service) GetGame(gameID string) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return g, nil
}

// MoveCount reads the history length under the service lock
func (s *Service) MoveCount(gameID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[gameID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	return g.MoveCount(), nil
}

// ApplyMove appends next as the new current board. base must still be the current
// board, otherwise another writer got there first and ErrStaleBoard is returned.
func (s *Service) ApplyMove(gameID string, base, next *board.Board, move string, team core.Team) error {
	count, err := s.withGame(gameID, func(g *game.Game) error {
		if g.Board() != base {
			return ErrStaleBoard
		}
		g.AddSnapshot(next, move, team)

		if s.store != nil {
			err := s.store.RecordMove(storage.MoveRecord{
				GameID:          gameID,
				MoveNumber:      g.MoveCount(),
				MoveText:        move,
				LayoutAfterMove: next.Encode(),
				Team:            team.String(),
				MoveTimeUTC:     time.Now().UTC(),
			})
			if err != nil {
				log.Printf("Failed to record move for game %s: %v", gameID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.waiter.NotifyGame(gameID, count)
	return nil
}

// ApplyPromotion replaces the current board in place; the move count does not change
func (s *Service) ApplyPromotion(gameID string, base, next *board.Board, suffix string) error {
	_, err := s.withGame(gameID, func(g *game.Game) error {
		if g.Board() != base {
			return ErrStaleBoard
		}
		g.ReplaceCurrent(next, suffix)

		if s.store != nil {
			snap := g.CurrentSnapshot()
			if err := s.store.RecordPromotion(gameID, g.MoveCount(), snap.PreviousMove, next.Encode()); err != nil {
				log.Printf("Failed to record promotion for game %s: %v", gameID, err)
			}
		}
		return nil
	})
	return err
}

func (s *Service) UpdateGameState(gameID string, state core.State) error {
	_, err := s.withGame(gameID, func(g *game.Game) error {
		g.SetState(state)
		return nil
	})
	return err
}

// RefreshState derives the state from the current board and stores it
func (s *Service) RefreshState(gameID string) (core.State, error) {
	var state core.State
	_, err := s.withGame(gameID, func(g *game.Game) error {
		state = g.RefreshState()
		return nil
	})
	return state, err
}

func (s *Service) SetLastMoveResult(gameID string, result *game.MoveResult) error {
	_, err := s.withGame(gameID, func(g *game.Game) error {
		g.SetLastResult(result)
		return nil
	})
	return err
}

func (s *Service) UndoMoves(gameID string, count int) error {
	remaining, err := s.withGame(gameID, func(g *game.Game) error {
		if err := g.UndoMoves(count); err != nil {
			return err
		}
		if s.store != nil {
			if err := s.store.DeleteUndoneMoves(gameID, g.MoveCount()); err != nil {
				log.Printf("Failed to record undo for game %s: %v", gameID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.waiter.NotifyGame(gameID, remaining)
	return nil
}

func (s *Service) DeleteGame(gameID string) error {
	s.mu.Lock()
	g, ok := s.games[gameID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	delete(s.games, gameID)
	if opp := g.GetPlayer(core.TeamOpponent); opp != nil && opp.Type == core.PlayerComputer {
		s.computerGames.Add(-1)
	}
	s.mu.Unlock()

	s.waiter.RemoveGame(gameID)
	return nil
}

// withGame runs fn under the write lock and reports the resulting move count
func (s *Service) withGame(gameID string, fn func(g *game.Game) error) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.games[gameID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
	}
	if err := fn(g); err != nil {
		return 0, err
	}
	return g.MoveCount(), nil
}
