package core

import (
	"github.com/google/uuid"
)

type PlayerType int

const (
	PlayerHuman PlayerType = iota + 1
	PlayerComputer
)

func (p PlayerType) String() string {
	switch p {
	case PlayerHuman:
		return "human"
	case PlayerComputer:
		return "computer"
	default:
		return "unknown"
	}
}

// Player is a seat at the board
type Player struct {
	ID        string     `json:"id"`
	Team      Team       `json:"team"`
	Type      PlayerType `json:"type"`
	Proposer  string     `json:"proposer,omitempty"`  // Only for computer
	ThinkTime int        `json:"thinkTime,omitempty"` // Milliseconds, only for computer

	// Authenticated seats belong to a registered user; only that user may act for them
	Authenticated bool `json:"authenticated,omitempty"`
}

// PlayerConfig for API requests
type PlayerConfig struct {
	Type      PlayerType `json:"type" validate:"required,oneof=1 2"`
	Proposer  string     `json:"proposer,omitempty" validate:"omitempty,oneof=random remote"`
	ThinkTime int        `json:"thinkTime,omitempty" validate:"omitempty,min=100,max=60000"`
}

type PlayersResponse struct {
	Our      *Player `json:"our"`
	Opponent *Player `json:"opponent"`
}

// NewPlayer creates a Player from PlayerConfig
func NewPlayer(config PlayerConfig, team Team) *Player {
	player := &Player{
		ID:   uuid.New().String(),
		Team: team,
		Type: config.Type,
	}

	if config.Type == PlayerComputer {
		player.Proposer = config.Proposer
		player.ThinkTime = config.ThinkTime
	}

	return player
}
