package proposer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"arcadechess/internal/server/board"
	"arcadechess/internal/server/core"
)

const (
	defaultRemoteTimeout = 10 * time.Second
	maxRemoteBody        = 1 << 20
)

// Remote asks a text-completion endpoint for a move. The endpoint receives
// {"model","prompt"} and answers either {"text": "..."} or the proposal JSON itself.
type Remote struct {
	endpoint string
	model    string
	apiKey   string
	client   *http.Client
}

type remoteRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
}

type remoteResponse struct {
	Text string `json:"text"`
}

type wireProposal struct {
	PiecePosition *board.Position `json:"piecePosition"`
	Destination   *board.Position `json:"destination"`
	Reasoning     string          `json:"reasoning"`
}

type promptPiece struct {
	Type     string `json:"type"`
	Position string `json:"position"`
}

func NewRemote(endpoint, model, apiKey string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &Remote{
		endpoint: endpoint,
		model:    model,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *Remote) Propose(ctx context.Context, b *board.Board) (Proposal, error) {
	prompt, err := BuildPrompt(b)
	if err != nil {
		return Proposal{}, err
	}

	payload, err := json.Marshal(remoteRequest{Model: r.model, Prompt: prompt})
	if err != nil {
		return Proposal{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return Proposal{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Proposal{}, fmt.Errorf("remote proposer request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return Proposal{}, fmt.Errorf("remote proposer read: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Proposal{}, fmt.Errorf("remote proposer returned status %d", resp.StatusCode)
	}

	text := string(body)
	var wrapped remoteResponse
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Text != "" {
		text = wrapped.Text
	}
	return ParseProposal(text)
}

// ParseProposal decodes a proposal, tolerating a markdown code fence around the JSON
func ParseProposal(text string) (Proposal, error) {
	clean := strings.ReplaceAll(text, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	var w wireProposal
	if err := json.Unmarshal([]byte(clean), &w); err != nil {
		return Proposal{}, fmt.Errorf("%w: %v", ErrInvalidProposal, err)
	}
	if w.PiecePosition == nil || w.Destination == nil {
		return Proposal{}, fmt.Errorf("%w: missing piecePosition or destination", ErrInvalidProposal)
	}
	return Proposal{From: *w.PiecePosition, To: *w.Destination, Reasoning: w.Reasoning}, nil
}

// BuildPrompt describes the board from the opponent's side
func BuildPrompt(b *board.Board) (string, error) {
	own, err := json.MarshalIndent(describe(b.TeamPieces(core.TeamOpponent)), "", "  ")
	if err != nil {
		return "", err
	}
	target, err := json.MarshalIndent(describe(b.TeamPieces(core.TeamOur)), "", "  ")
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("You are playing chess as the AI (OPPONENT team).\n\n")
	sb.WriteString("YOUR PIECES (you control these):\n")
	sb.Write(own)
	sb.WriteString("\n\nPLAYER'S PIECES (your target):\n")
	sb.Write(target)
	sb.WriteString("\n\nSPECIAL RULES:\n")
	sb.WriteString("- You can move ANY of your pieces to ANY position on the board (x and y must be 0-7)\n")
	sb.WriteString("- You can capture player pieces by moving to their position\n")
	sb.WriteString("- Do not capture the player's king, taunt it instead\n\n")
	sb.WriteString("YOUR TASK:\nChoose one of YOUR pieces and move it somewhere strategic.\n\n")
	sb.WriteString("Respond with ONLY valid JSON (no markdown, no backticks, no extra text):\n")
	sb.WriteString(`{"piecePosition": {"x": 0, "y": 0}, "destination": {"x": 0, "y": 0}, "reasoning": "brief explanation"}`)
	return sb.String(), nil
}

func describe(pieces []board.Piece) []promptPiece {
	out := make([]promptPiece, 0, len(pieces))
	for _, p := range pieces {
		out = append(out, promptPiece{
			Type:     p.Type.String(),
			Position: fmt.Sprintf("(%d, %d)", p.Position.X, p.Position.Y),
		})
	}
	return out
}
