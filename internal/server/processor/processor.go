package processor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"arcadechess/internal/server/board"
	"arcadechess/internal/server/core"
	"arcadechess/internal/server/game"
	"arcadechess/internal/server/proposer"
	"arcadechess/internal/server/service"
)

const minThinkTime = 100 * time.Millisecond

// Options configures proposer selection and the worker pool
type Options struct {
	Proposers       map[string]proposer.Proposer // Keyed by kind
	DefaultProposer string
	Workers         int
	ThinkTime       time.Duration
	Fallback        *proposer.Random
}

// Processor handles command execution and coordinates between the service and the proposers.
// Commands and proposal callbacks run one at a time so each game has a single writer.
type Processor struct {
	svc         *service.Service
	queue       *ProposerQueue
	proposers   map[string]proposer.Proposer
	defaultKind string
	fallback    *proposer.Random
	thinkTime   time.Duration
	mu          sync.Mutex
}

func New(svc *service.Service, opts Options) *Processor {
	fallback := opts.Fallback
	if fallback == nil {
		fallback = proposer.NewRandom(0)
	}
	proposers := opts.Proposers
	if proposers == nil {
		proposers = map[string]proposer.Proposer{proposer.KindRandom: fallback}
	}
	defaultKind := opts.DefaultProposer
	if defaultKind == "" {
		defaultKind = proposer.KindRandom
	}
	thinkTime := opts.ThinkTime
	if thinkTime <= 0 {
		thinkTime = defaultThinkTime
	}

	return &Processor{
		svc:         svc,
		queue:       NewProposerQueue(opts.Workers, fallback),
		proposers:   proposers,
		defaultKind: defaultKind,
		fallback:    fallback,
		thinkTime:   thinkTime,
	}
}

func (p *Processor) Execute(cmd Command) ProcessorResponse {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch cmd.Type {
	case CmdCreateGame:
		return p.handleCreateGame(cmd)
	case CmdGetGame:
		return p.handleGetGame(cmd)
	case CmdDeleteGame:
		return p.handleDeleteGame(cmd)
	case CmdMakeMove:
		return p.handleMakeMove(cmd)
	case CmdAIMove:
		return p.handleAIMove(cmd)
	case CmdPromote:
		return p.handlePromote(cmd)
	case CmdUndoMove:
		return p.handleUndoMove(cmd)
	case CmdGetBoard:
		return p.handleGetBoard(cmd)
	case CmdGetPieces:
		return p.handleGetPieces(cmd)
	default:
		return p.errorResponse("unknown command", core.ErrInvalidRequest)
	}
}

// Close stops the proposer workers
func (p *Processor) Close() error {
	return p.queue.Shutdown(5 * time.Second)
}

// handleCreateGame creates a new game and triggers the opponent if it moves first
func (p *Processor) handleCreateGame(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.CreateGameRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	initial := board.NewGame()
	if strings.TrimSpace(args.Layout) != "" {
		b, err := board.ParseLayout(args.Layout)
		if err != nil {
			return p.errorResponse(fmt.Sprintf("invalid layout: %v", err), core.ErrInvalidLayout)
		}
		if !b.HasKing(core.TeamOur) || !b.HasKing(core.TeamOpponent) {
			return p.errorResponse("layout needs a king on each team", core.ErrInvalidLayout)
		}
		initial = b
	}

	oppConfig := args.Opponent
	if oppConfig.Type == core.PlayerComputer {
		if oppConfig.Proposer == "" {
			oppConfig.Proposer = p.defaultKind
		}
		if _, ok := p.proposers[oppConfig.Proposer]; !ok {
			return p.errorResponse(fmt.Sprintf("proposer %q is not configured", oppConfig.Proposer), core.ErrInvalidRequest)
		}
		if !p.svc.CanCreateComputerGame() {
			return p.errorResponse("too many active computer games", core.ErrRateLimitExceeded)
		}
	}

	our := core.NewPlayer(core.PlayerConfig{Type: core.PlayerHuman}, core.TeamOur)
	if cmd.UserID != "" {
		our.ID = cmd.UserID
		our.Authenticated = true
	}
	opponent := core.NewPlayer(oppConfig, core.TeamOpponent)

	gameID := p.svc.GenerateGameID()
	if err := p.svc.CreateGame(gameID, our, opponent, initial); err != nil {
		return p.errorResponse(fmt.Sprintf("failed to create game: %v", err), core.ErrInternalError)
	}

	state, _ := p.svc.RefreshState(gameID)
	pending := false
	if state == core.StateOngoing && initial.CurrentTeam() == core.TeamOpponent && opponent.Type == core.PlayerComputer {
		pending = p.triggerProposal(gameID) == nil
	}

	g, err := p.svc.GetGame(gameID)
	if err != nil {
		return p.errorResponse("game creation failed", core.ErrInternalError)
	}

	return ProcessorResponse{
		Success: true,
		Pending: pending,
		Data:    p.buildGameResponse(gameID, g),
	}
}

func (p *Processor) handleGetGame(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	return ProcessorResponse{
		Success: true,
		Pending: g.State() == core.StatePending,
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

// handleDeleteGame removes a game; an in-flight proposal for it is discarded on arrival
func (p *Processor) handleDeleteGame(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}
	if !p.authorized(g, cmd.UserID) {
		return p.errorResponse("game belongs to another user", core.ErrUnauthorized)
	}
	if err = p.svc.DeleteGame(cmd.GameID); err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}
	return ProcessorResponse{Success: true}
}

// handleMakeMove plays one OUR move through the standard path
func (p *Processor) handleMakeMove(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.MoveRequest)
	if !ok || args.From == nil || args.To == nil {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}
	if !p.authorized(g, cmd.UserID) {
		return p.errorResponse("game belongs to another user", core.ErrUnauthorized)
	}
	if resp, blocked := p.checkPlayable(g); blocked {
		return resp
	}
	if g.NextTeam() != core.TeamOur {
		return p.errorResponse("not your turn", core.ErrNotYourTurn)
	}

	base := g.Board()
	from := board.NewPosition(args.From.X, args.From.Y)
	to := board.NewPosition(args.To.X, args.To.Y)

	piece, found := base.PieceAt(from)
	if !found {
		return p.errorResponse(fmt.Sprintf("no piece at %s", from), core.ErrInvalidMove)
	}
	if piece.Team != core.TeamOur {
		return p.errorResponse(fmt.Sprintf("piece at %s is not yours", from), core.ErrInvalidMove)
	}

	next, ok := base.PlayMove(piece, to)
	if !ok {
		return p.errorResponse(fmt.Sprintf("illegal move %s", game.FormatMove(from, to)), core.ErrInvalidMove)
	}

	move := game.FormatMove(from, to)
	if err = p.svc.ApplyMove(cmd.GameID, base, next, move, core.TeamOur); err != nil {
		return p.errorResponse(fmt.Sprintf("failed to apply move: %v", err), core.ErrInternalError)
	}
	state, _ := p.svc.RefreshState(cmd.GameID)
	p.svc.SetLastMoveResult(cmd.GameID, &game.MoveResult{
		Move:      move,
		Team:      core.TeamOur,
		GameState: state,
	})

	pending := false
	if state == core.StateOngoing && g.GetPlayer(core.TeamOpponent).Type == core.PlayerComputer {
		pending = p.triggerProposal(cmd.GameID) == nil
	}

	g, _ = p.svc.GetGame(cmd.GameID)
	return ProcessorResponse{
		Success: true,
		Pending: pending,
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

// handleAIMove plays an explicit opponent proposal, or asks the configured proposer when none is given
func (p *Processor) handleAIMove(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.AIMoveRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}
	if !p.authorized(g, cmd.UserID) {
		return p.errorResponse("game belongs to another user", core.ErrUnauthorized)
	}
	if resp, blocked := p.checkPlayable(g); blocked {
		return resp
	}
	if g.NextTeam() != core.TeamOpponent {
		return p.errorResponse("not the opponent's turn", core.ErrNotYourTurn)
	}

	if args.From == nil || args.To == nil {
		if err = p.triggerProposal(cmd.GameID); err != nil {
			return p.errorResponse(fmt.Sprintf("failed to queue proposal: %v", err), core.ErrInternalError)
		}
		g, _ = p.svc.GetGame(cmd.GameID)
		return ProcessorResponse{
			Success: true,
			Pending: true,
			Data:    p.buildGameResponse(cmd.GameID, g),
		}
	}

	base := g.Board()
	static := proposer.Static(proposer.FromDTO(*args.From, *args.To, args.Reasoning))
	decision, err := proposer.Choose(context.Background(), static, p.fallback, base)
	if err != nil {
		return p.errorResponse(fmt.Sprintf("no playable opponent move: %v", err), core.ErrInvalidMove)
	}
	if decision.Fallback {
		log.Printf("Rejected proposal for game %s, playing random move: %v", cmd.GameID, decision.Cause)
	}

	if err = p.applyDecision(cmd.GameID, base, decision); err != nil {
		return p.errorResponse(fmt.Sprintf("failed to apply move: %v", err), core.ErrInternalError)
	}

	g, _ = p.svc.GetGame(cmd.GameID)
	return ProcessorResponse{
		Success: true,
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

// handlePromote resolves a pending promotion and hands the turn to a computer opponent
func (p *Processor) handlePromote(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.PromoteRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}
	if !p.authorized(g, cmd.UserID) {
		return p.errorResponse("game belongs to another user", core.ErrUnauthorized)
	}
	if g.State() != core.StatePromotion {
		return p.errorResponse("no promotion pending", core.ErrNoPromotion)
	}

	pt, err := core.ParsePieceType(args.PieceType)
	if err != nil || !pt.IsPromotionTarget() {
		return p.errorResponse(fmt.Sprintf("cannot promote to %q", args.PieceType), core.ErrInvalidRequest)
	}

	base := g.Board()
	pos, pending := base.PendingPromotion()
	if !pending {
		return p.errorResponse("no promotion pending", core.ErrNoPromotion)
	}
	next, ok := base.Promote(pos, pt)
	if !ok {
		return p.errorResponse("promotion rejected", core.ErrInvalidRequest)
	}

	suffix := "=" + strings.ToUpper(string(pt.Letter()))
	if err = p.svc.ApplyPromotion(cmd.GameID, base, next, suffix); err != nil {
		return p.errorResponse(fmt.Sprintf("failed to promote: %v", err), core.ErrInternalError)
	}
	state, _ := p.svc.RefreshState(cmd.GameID)

	g, _ = p.svc.GetGame(cmd.GameID)
	if last := g.LastResult(); last != nil && last.Team == core.TeamOur {
		p.svc.SetLastMoveResult(cmd.GameID, &game.MoveResult{
			Move:      g.CurrentSnapshot().PreviousMove,
			Team:      core.TeamOur,
			GameState: state,
		})
	}

	isPending := false
	if state == core.StateOngoing && g.NextTeam() == core.TeamOpponent &&
		g.GetPlayer(core.TeamOpponent).Type == core.PlayerComputer {
		isPending = p.triggerProposal(cmd.GameID) == nil
	}

	g, _ = p.svc.GetGame(cmd.GameID)
	return ProcessorResponse{
		Success: true,
		Pending: isPending,
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

// handleUndoMove truncates history; the restored position is not handed to the proposer
func (p *Processor) handleUndoMove(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}
	if !p.authorized(g, cmd.UserID) {
		return p.errorResponse("game belongs to another user", core.ErrUnauthorized)
	}
	if g.State() == core.StatePending {
		return p.errorResponse("cannot undo while the opponent is thinking", core.ErrInvalidRequest)
	}

	args := core.UndoRequest{Count: 1}
	if req, ok := cmd.Args.(core.UndoRequest); ok && req.Count > 0 {
		args = req
	}

	if err = p.svc.UndoMoves(cmd.GameID, args.Count); err != nil {
		if errors.Is(err, service.ErrGameNotFound) {
			return p.errorResponse("game not found", core.ErrGameNotFound)
		}
		return p.errorResponse(err.Error(), core.ErrInvalidRequest)
	}

	g, _ = p.svc.GetGame(cmd.GameID)
	return ProcessorResponse{
		Success: true,
		Data:    p.buildGameResponse(cmd.GameID, g),
	}
}

func (p *Processor) handleGetBoard(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	b := g.Board()
	return ProcessorResponse{
		Success: true,
		Data: core.BoardResponse{
			Layout: b.Encode(),
			Board:  b.ToASCII(),
		},
	}
}

// handleGetPieces lists every piece with its cached possible moves
func (p *Processor) handleGetPieces(cmd Command) ProcessorResponse {
	g, err := p.svc.GetGame(cmd.GameID)
	if err != nil {
		return p.errorResponse("game not found", core.ErrGameNotFound)
	}

	b := g.Board()
	pieces := b.Pieces()
	resp := core.PiecesResponse{
		Turn:   b.CurrentTeam().String(),
		Pieces: make([]core.PieceResponse, 0, len(pieces)),
	}
	for _, pc := range pieces {
		moves := make([]core.PositionDTO, 0, len(pc.PossibleMoves))
		for _, m := range pc.PossibleMoves {
			moves = append(moves, toDTO(m))
		}
		resp.Pieces = append(resp.Pieces, core.PieceResponse{
			Type:          pc.Type.String(),
			Team:          pc.Team.String(),
			Position:      toDTO(pc.Position),
			HasMoved:      pc.HasMoved,
			EnPassant:     pc.EnPassant,
			PossibleMoves: moves,
		})
	}

	return ProcessorResponse{
		Success: true,
		Data:    resp,
	}
}

// checkPlayable rejects moves while the game waits on something else or has ended
func (p *Processor) checkPlayable(g *game.Game) (ProcessorResponse, bool) {
	state := g.State()
	switch {
	case state == core.StatePending:
		return p.errorResponse("opponent move in progress", core.ErrInvalidRequest), true
	case state == core.StatePromotion:
		return p.errorResponse("promotion pending", core.ErrPromotionPending), true
	case state.IsTerminal():
		return p.errorResponse(fmt.Sprintf("game is over: %s", state), core.ErrGameOver), true
	}
	return ProcessorResponse{}, false
}

// authorized lets anyone act on anonymous games and only the owner on authenticated ones
func (p *Processor) authorized(g *game.Game, userID string) bool {
	our := g.GetPlayer(core.TeamOur)
	return our == nil || !our.Authenticated || our.ID == userID
}

func (p *Processor) proposerFor(player *core.Player) proposer.Proposer {
	kind := p.defaultKind
	if player != nil && player.Proposer != "" {
		kind = player.Proposer
	}
	return p.proposers[kind]
}

func (p *Processor) thinkTimeFor(player *core.Player) time.Duration {
	if player == nil || player.ThinkTime <= 0 {
		return p.thinkTime
	}
	d := time.Duration(player.ThinkTime) * time.Millisecond
	if d < minThinkTime {
		d = minThinkTime
	}
	return d
}

// triggerProposal marks the game pending and queues a proposer call on the current board
func (p *Processor) triggerProposal(gameID string) error {
	g, err := p.svc.GetGame(gameID)
	if err != nil {
		return err
	}

	player := g.GetPlayer(core.TeamOpponent)
	base := g.Board()

	if err = p.svc.UpdateGameState(gameID, core.StatePending); err != nil {
		return err
	}

	err = p.queue.SubmitAsync(gameID, base, p.proposerFor(player), p.thinkTimeFor(player), func(result ProposalResult) {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.completeProposal(gameID, base, result)
	})
	if err != nil {
		log.Printf("Failed to queue proposal for game %s: %v", gameID, err)
		p.svc.RefreshState(gameID)
		return err
	}
	return nil
}

// completeProposal applies a queued result if the game is still waiting on that board
func (p *Processor) completeProposal(gameID string, base *board.Board, result ProposalResult) {
	g, err := p.svc.GetGame(gameID)
	if err != nil {
		return // Game was deleted
	}
	if g.State() != core.StatePending {
		return
	}
	if g.Board() != base {
		p.svc.RefreshState(gameID)
		return
	}

	decision := result.Decision
	if result.Error != nil {
		log.Printf("Proposer error for game %s: %v", gameID, result.Error)
		decision, err = proposer.Choose(context.Background(), nil, p.fallback, base)
		if err != nil {
			log.Printf("No opponent move for game %s: %v", gameID, err)
			p.svc.RefreshState(gameID)
			return
		}
		decision.Cause = result.Error
	}

	if err = p.applyDecision(gameID, base, decision); err != nil {
		log.Printf("Failed to apply opponent move for game %s: %v", gameID, err)
		p.svc.RefreshState(gameID)
	}
}

// applyDecision plays a resolved opponent move through the AI path and records the result
func (p *Processor) applyDecision(gameID string, base *board.Board, d proposer.Decision) error {
	next, err := base.PlayAIMove(d.Piece, d.To)
	if err != nil {
		return err
	}

	move := game.FormatMove(d.Piece.Position, d.To)
	if err = p.svc.ApplyMove(gameID, base, next, move, core.TeamOpponent); err != nil {
		return err
	}
	state, err := p.svc.RefreshState(gameID)
	if err != nil {
		return err
	}

	return p.svc.SetLastMoveResult(gameID, &game.MoveResult{
		Move:      move,
		Team:      core.TeamOpponent,
		GameState: state,
		Reasoning: d.Reasoning,
		Fallback:  d.Fallback,
	})
}

func (p *Processor) buildGameResponse(gameID string, g *game.Game) core.GameResponse {
	b := g.Board()
	resp := core.GameResponse{
		GameID:     gameID,
		Layout:     b.Encode(),
		Turn:       b.CurrentTeam().String(),
		TotalTurns: b.TotalTurns(),
		State:      g.State().String(),
		Moves:      g.Moves(),
		Players: core.PlayersResponse{
			Our:      g.GetPlayer(core.TeamOur),
			Opponent: g.GetPlayer(core.TeamOpponent),
		},
	}

	if b.IsOver() {
		resp.Winner = b.WinningTeam().String()
	} else if pos, ok := b.PendingPromotion(); ok {
		dto := toDTO(pos)
		resp.PendingPromotion = &dto
	}

	if last := g.LastResult(); last != nil {
		resp.LastMove = &core.MoveInfo{
			Move:      last.Move,
			Team:      last.Team.String(),
			Reasoning: last.Reasoning,
			Fallback:  last.Fallback,
		}
	}

	return resp
}

func toDTO(pos board.Position) core.PositionDTO {
	return core.PositionDTO{X: pos.X, Y: pos.Y}
}

func (p *Processor) errorResponse(message string, code string) ProcessorResponse {
	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Error: message,
			Code:  code,
		},
	}
}
