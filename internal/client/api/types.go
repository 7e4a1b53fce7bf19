package api

import (
	"time"

	"arcadechess/internal/server/core"
)

// Game types are shared with the server
type (
	CreateGameRequest = core.CreateGameRequest
	GameResponse      = core.GameResponse
	BoardResponse     = core.BoardResponse
	PiecesResponse    = core.PiecesResponse
	ErrorResponse     = core.ErrorResponse
	PositionDTO       = core.PositionDTO
)

type HealthResponse struct {
	Status        string `json:"status"`
	Time          int64  `json:"time"`
	Storage       string `json:"storage"`
	ComputerGames int32  `json:"computerGames"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type UserResponse struct {
	UserID      string     `json:"userId"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	AccountType string     `json:"accountType"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
}
