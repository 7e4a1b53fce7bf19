// Package session holds the REPL state shared between client commands.
package session

import (
	"arcadechess/internal/client/api"
)

type Session struct {
	APIBaseURL string
	Client     *api.Client
	Verbose    bool

	// Auth
	Username  string
	UserID    string
	AuthToken string

	// Game
	CurrentGame   string
	LastMoveCount int
	Game          *api.GameResponse
}

func New(baseURL string) *Session {
	return &Session{
		APIBaseURL: baseURL,
		Client:     api.New(baseURL),
	}
}

// SetAPIBaseURL points the session and its client at another server
func (s *Session) SetAPIBaseURL(url string) {
	s.Client.SetBaseURL(url)
	s.APIBaseURL = s.Client.BaseURL
}

// SetAuth stores credentials and forwards the token to the client
func (s *Session) SetAuth(userID, username, token string) {
	s.UserID = userID
	s.Username = username
	s.AuthToken = token
	s.Client.SetToken(token)
}

func (s *Session) ClearAuth() {
	s.SetAuth("", "", "")
}

// TrackGame records the latest known game snapshot
func (s *Session) TrackGame(g *api.GameResponse) {
	s.Game = g
	s.CurrentGame = g.GameID
	s.LastMoveCount = len(g.Moves)
}

func (s *Session) ForgetGame() {
	s.Game = nil
	s.CurrentGame = ""
	s.LastMoveCount = 0
}
