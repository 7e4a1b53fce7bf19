// Package api is a thin, chatty HTTP client for the chess server used by the debug REPL.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"arcadechess/internal/client/display"
	"arcadechess/internal/server/core"
)

// Long-poll requests may be held by the server for up to its wait timeout
const requestTimeout = 40 * time.Second

// StatusError is returned for any non-2xx response
type StatusError struct {
	Status int
	Code   string
	Msg    string
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("request failed with status %d (%s): %s", e.Status, e.Code, e.Msg)
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

type Client struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	Verbose    bool
	Out        io.Writer
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: requestTimeout},
		Out:        os.Stdout,
	}
}

func (c *Client) SetVerbose(v bool) {
	c.Verbose = v
}

// SetBaseURL updates the API base URL for the client
func (c *Client) SetBaseURL(url string) {
	c.BaseURL = strings.TrimRight(url, "/")
}

func (c *Client) SetToken(token string) {
	c.AuthToken = token
}

func (c *Client) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *Client) doRequest(method, path string, body any, result any) error {
	var bodyReader io.Reader
	var bodyJSON []byte
	if body != nil {
		var err error
		if bodyJSON, err = json.Marshal(body); err != nil {
			return err
		}
		bodyReader = bytes.NewReader(bodyJSON)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.AuthToken)
	}

	c.printf("\n%s[API] %s %s%s\n", display.Blue, method, path, display.Reset)
	if len(bodyJSON) > 0 {
		if c.Verbose {
			c.printf("%sRequest Body:%s\n%s\n", display.Cyan, display.Reset, display.Indent(bodyJSON))
		} else {
			c.printf("%s%s%s\n", display.Blue, bodyJSON, display.Reset)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.printf("%s[ERROR] %s%s\n", display.Red, err.Error(), display.Reset)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	statusColor := display.Green
	if resp.StatusCode >= 400 {
		statusColor = display.Red
	}
	c.printf("%s[%d %s]%s\n", statusColor, resp.StatusCode, http.StatusText(resp.StatusCode), display.Reset)
	if c.Verbose && len(respBody) > 0 {
		c.printf("%sResponse Body:%s\n%s\n", display.Cyan, display.Reset, display.Indent(respBody))
	}

	if resp.StatusCode >= 400 {
		statusErr := &StatusError{Status: resp.StatusCode}
		var errResp core.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			statusErr.Code = errResp.Code
			statusErr.Msg = errResp.Error
			if errResp.Details != "" {
				statusErr.Msg += ": " + errResp.Details
			}
		} else {
			statusErr.Msg = strings.TrimSpace(string(respBody))
		}
		return statusErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			c.printf("%sRaw response: %s%s\n", display.Green, respBody, display.Reset)
			return fmt.Errorf("response parse error: %w", err)
		}
	}
	return nil
}

func (c *Client) gamePath(gameID, suffix string) string {
	return "/api/v1/games/" + gameID + suffix
}

// API Methods

func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	err := c.doRequest(http.MethodGet, "/health", nil, &resp)
	return &resp, err
}

func (c *Client) CreateGame(req *CreateGameRequest) (*GameResponse, error) {
	var resp GameResponse
	err := c.doRequest(http.MethodPost, "/api/v1/games", req, &resp)
	return &resp, err
}

func (c *Client) GetGame(gameID string) (*GameResponse, error) {
	var resp GameResponse
	err := c.doRequest(http.MethodGet, c.gamePath(gameID, ""), nil, &resp)
	return &resp, err
}

// GetGameWithPoll blocks server-side until the move count differs from moveCount
func (c *Client) GetGameWithPoll(gameID string, moveCount int) (*GameResponse, error) {
	var resp GameResponse
	path := fmt.Sprintf("%s?wait=true&moveCount=%d", c.gamePath(gameID, ""), moveCount)
	err := c.doRequest(http.MethodGet, path, nil, &resp)
	return &resp, err
}

func (c *Client) DeleteGame(gameID string) error {
	return c.doRequest(http.MethodDelete, c.gamePath(gameID, ""), nil, nil)
}

func (c *Client) MakeMove(gameID string, from, to PositionDTO) (*GameResponse, error) {
	req := &core.MoveRequest{From: &from, To: &to}
	var resp GameResponse
	err := c.doRequest(http.MethodPost, c.gamePath(gameID, "/moves"), req, &resp)
	return &resp, err
}

// AIMove submits an opponent proposal; nil positions ask the server's proposer instead
func (c *Client) AIMove(gameID string, from, to *PositionDTO, reasoning string) (*GameResponse, error) {
	req := &core.AIMoveRequest{From: from, To: to, Reasoning: reasoning}
	var resp GameResponse
	err := c.doRequest(http.MethodPost, c.gamePath(gameID, "/ai-moves"), req, &resp)
	return &resp, err
}

func (c *Client) Promote(gameID, pieceType string) (*GameResponse, error) {
	req := &core.PromoteRequest{PieceType: pieceType}
	var resp GameResponse
	err := c.doRequest(http.MethodPost, c.gamePath(gameID, "/promotion"), req, &resp)
	return &resp, err
}

func (c *Client) UndoMoves(gameID string, count int) (*GameResponse, error) {
	req := &core.UndoRequest{Count: count}
	var resp GameResponse
	err := c.doRequest(http.MethodPost, c.gamePath(gameID, "/undo"), req, &resp)
	return &resp, err
}

func (c *Client) GetBoard(gameID string) (*BoardResponse, error) {
	var resp BoardResponse
	err := c.doRequest(http.MethodGet, c.gamePath(gameID, "/board"), nil, &resp)
	return &resp, err
}

func (c *Client) GetPieces(gameID string) (*PiecesResponse, error) {
	var resp PiecesResponse
	err := c.doRequest(http.MethodGet, c.gamePath(gameID, "/pieces"), nil, &resp)
	return &resp, err
}

func (c *Client) Register(username, password, email string) (*AuthResponse, error) {
	req := &RegisterRequest{Username: username, Password: password, Email: email}
	var resp AuthResponse
	err := c.doRequest(http.MethodPost, "/api/v1/auth/register", req, &resp)
	return &resp, err
}

func (c *Client) Login(identifier, password string) (*AuthResponse, error) {
	req := &LoginRequest{Identifier: identifier, Password: password}
	var resp AuthResponse
	err := c.doRequest(http.MethodPost, "/api/v1/auth/login", req, &resp)
	return &resp, err
}

func (c *Client) Logout() error {
	return c.doRequest(http.MethodPost, "/api/v1/auth/logout", nil, nil)
}

func (c *Client) GetCurrentUser() (*UserResponse, error) {
	var resp UserResponse
	err := c.doRequest(http.MethodGet, "/api/v1/auth/me", nil, &resp)
	return &resp, err
}

// RawRequest sends an arbitrary request; body is sent as JSON when it parses, else as a string
func (c *Client) RawRequest(method, path, body string) error {
	var bodyData any
	if body != "" {
		if err := json.Unmarshal([]byte(body), &bodyData); err != nil {
			bodyData = body
		}
	}
	return c.doRequest(strings.ToUpper(method), path, bodyData, nil)
}
