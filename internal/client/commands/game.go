package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"arcadechess/internal/client/api"
	"arcadechess/internal/client/display"
	"arcadechess/internal/client/session"
	"arcadechess/internal/server/core"
)

const pendingPollLimit = 3

func (r *Registry) registerGameCommands() {
	cmds := []*Command{
		{
			Name:        "new",
			ShortName:   "n",
			Description: "Create a new game",
			Usage:       "new [human|computer[:proposer[:thinkMs]]] [layout]",
			Handler:     r.newGameHandler,
		},
		{
			Name:        "join",
			ShortName:   "j",
			Description: "Join/set current game ID",
			Usage:       "join <gameId>",
			Handler:     r.joinGameHandler,
		},
		{
			Name:        "move",
			ShortName:   "m",
			Description: "Move one of our pieces",
			Usage:       "move <x,y> <x,y>",
			Handler:     r.moveHandler,
		},
		{
			Name:        "ai",
			ShortName:   "a",
			Description: "Play an opponent move, or ask the server's proposer when no squares are given",
			Usage:       "ai [<x,y> <x,y> [reasoning...]]",
			Handler:     r.aiMoveHandler,
		},
		{
			Name:        "promote",
			ShortName:   "q",
			Description: "Promote the pending pawn",
			Usage:       "promote <queen|rook|bishop|knight>",
			Handler:     r.promoteHandler,
		},
		{
			Name:        "undo",
			ShortName:   "u",
			Description: "Undo moves",
			Usage:       "undo [count]",
			Handler:     r.undoHandler,
		},
		{
			Name:        "show",
			ShortName:   "h",
			Description: "Show board and game state",
			Usage:       "show",
			Handler:     r.showBoardHandler,
		},
		{
			Name:        "pieces",
			ShortName:   "k",
			Description: "List pieces with their possible moves",
			Usage:       "pieces [our|opponent]",
			Handler:     r.piecesHandler,
		},
		{
			Name:        "state",
			ShortName:   "s",
			Description: "Show raw game JSON",
			Usage:       "state",
			Handler:     r.gameStateHandler,
		},
		{
			Name:        "delete",
			ShortName:   "d",
			Description: "Delete a game",
			Usage:       "delete [gameId]",
			Handler:     r.deleteGameHandler,
		},
		{
			Name:        "poll",
			ShortName:   "p",
			Description: "Long-poll for game updates",
			Usage:       "poll",
			Handler:     r.pollHandler,
		},
	}
	for _, cmd := range cmds {
		cmd.Group = groupGame
		r.Register(cmd)
	}
}

// parseOpponent reads "human", "computer", "computer:remote" or "computer:random:500"
func parseOpponent(arg string) (core.PlayerConfig, error) {
	parts := strings.Split(strings.ToLower(arg), ":")
	switch parts[0] {
	case "h", "human":
		if len(parts) > 1 {
			return core.PlayerConfig{}, fmt.Errorf("human opponent takes no options")
		}
		return core.PlayerConfig{Type: core.PlayerHuman}, nil
	case "c", "computer":
	default:
		return core.PlayerConfig{}, fmt.Errorf("unknown opponent type: %s", parts[0])
	}

	cfg := core.PlayerConfig{Type: core.PlayerComputer}
	if len(parts) > 1 {
		cfg.Proposer = parts[1]
	}
	if len(parts) > 2 {
		ms, err := strconv.Atoi(parts[2])
		if err != nil {
			return core.PlayerConfig{}, fmt.Errorf("invalid think time: %s", parts[2])
		}
		cfg.ThinkTime = ms
	}
	if len(parts) > 3 {
		return core.PlayerConfig{}, fmt.Errorf("too many opponent options: %s", arg)
	}
	return cfg, nil
}

// parsePosition accepts "x,y"
func parsePosition(arg string) (core.PositionDTO, error) {
	xs, ys, ok := strings.Cut(arg, ",")
	if !ok {
		return core.PositionDTO{}, fmt.Errorf("invalid square %q, expected x,y", arg)
	}
	x, errX := strconv.Atoi(strings.TrimSpace(xs))
	y, errY := strconv.Atoi(strings.TrimSpace(ys))
	if errX != nil || errY != nil {
		return core.PositionDTO{}, fmt.Errorf("invalid square %q, expected x,y", arg)
	}
	return core.PositionDTO{X: x, Y: y}, nil
}

func parseMoveArgs(args []string) (core.PositionDTO, core.PositionDTO, error) {
	if len(args) < 2 {
		return core.PositionDTO{}, core.PositionDTO{}, fmt.Errorf("two squares required")
	}
	from, err := parsePosition(args[0])
	if err != nil {
		return core.PositionDTO{}, core.PositionDTO{}, err
	}
	to, err := parsePosition(args[1])
	if err != nil {
		return core.PositionDTO{}, core.PositionDTO{}, err
	}
	return from, to, nil
}

func (r *Registry) newGameHandler(s *session.Session, args []string) error {
	opponent := core.PlayerConfig{Type: core.PlayerHuman}
	if len(args) > 0 {
		var err error
		if opponent, err = parseOpponent(args[0]); err != nil {
			return err
		}
		args = args[1:]
	}

	req := &api.CreateGameRequest{
		Opponent: opponent,
		Layout:   strings.Join(args, " "),
	}
	resp, err := s.Client.CreateGame(req)
	if err != nil {
		return err
	}

	s.TrackGame(resp)
	r.printf("%sGame created: %s%s\n", display.Green, resp.GameID, display.Reset)
	r.printGameSummary(resp)
	return nil
}

func (r *Registry) joinGameHandler(s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: join <gameId>")
	}

	resp, err := s.Client.GetGame(args[0])
	if err != nil {
		return err
	}

	s.TrackGame(resp)
	r.printf("%sJoined game: %s%s\n", display.Green, resp.GameID, display.Reset)
	r.printGameSummary(resp)
	return nil
}

func (r *Registry) moveHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}
	from, to, err := parseMoveArgs(args)
	if err != nil {
		return fmt.Errorf("usage: move <x,y> <x,y>: %w", err)
	}

	resp, err := s.Client.MakeMove(gameID, from, to)
	if err != nil {
		return err
	}
	return r.afterMove(s, resp)
}

func (r *Registry) aiMoveHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	var from, to *core.PositionDTO
	reasoning := ""
	if len(args) > 0 {
		f, t, err := parseMoveArgs(args)
		if err != nil {
			return fmt.Errorf("usage: ai [<x,y> <x,y> [reasoning...]]: %w", err)
		}
		from, to = &f, &t
		reasoning = strings.Join(args[2:], " ")
	}

	resp, err := s.Client.AIMove(gameID, from, to, reasoning)
	if err != nil {
		return err
	}
	return r.afterMove(s, resp)
}

// afterMove reports the result and follows a pending proposal until it lands
func (r *Registry) afterMove(s *session.Session, resp *api.GameResponse) error {
	s.TrackGame(resp)
	r.printLastMove(resp)

	for i := 0; i < pendingPollLimit && resp.State == core.StatePending.String(); i++ {
		r.printf("%sOpponent is thinking...%s\n", display.Magenta, display.Reset)
		next, err := s.Client.GetGameWithPoll(resp.GameID, len(resp.Moves))
		if err != nil {
			return err
		}
		resp = next
		s.TrackGame(resp)
		r.printLastMove(resp)
	}

	r.printGameSummary(resp)
	return nil
}

func (r *Registry) promoteHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: promote <queen|rook|bishop|knight>")
	}

	resp, err := s.Client.Promote(gameID, args[0])
	if err != nil {
		return err
	}
	return r.afterMove(s, resp)
}

func (r *Registry) undoHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	count := 1
	if len(args) > 0 {
		if count, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("invalid count: %s", args[0])
		}
	}

	resp, err := s.Client.UndoMoves(gameID, count)
	if err != nil {
		return err
	}

	s.TrackGame(resp)
	r.printf("%sUndid %d move(s)%s\n", display.Green, count, display.Reset)
	r.printGameSummary(resp)
	return nil
}

func (r *Registry) showBoardHandler(s *session.Session, _ []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	board, err := s.Client.GetBoard(gameID)
	if err != nil {
		return err
	}
	game, err := s.Client.GetGame(gameID)
	if err != nil {
		return err
	}
	s.TrackGame(game)

	r.printf("\n")
	display.RenderBoard(r.out, board.Board)
	r.printf("\n%sLayout:%s %s\n", display.Cyan, display.Reset, board.Layout)
	r.printGameSummary(game)
	return nil
}

func (r *Registry) piecesHandler(s *session.Session, args []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	var only core.Team
	if len(args) > 0 {
		if only, err = core.ParseTeam(args[0]); err != nil {
			return err
		}
	}

	resp, err := s.Client.GetPieces(gameID)
	if err != nil {
		return err
	}

	r.printf("%sTurn:%s %s\n", display.Cyan, display.Reset, display.ColorForTeam(resp.Turn))
	for _, p := range resp.Pieces {
		if only != core.TeamNone && p.Team != only.String() {
			continue
		}
		moves := make([]string, 0, len(p.PossibleMoves))
		for _, m := range p.PossibleMoves {
			moves = append(moves, fmt.Sprintf("%d,%d", m.X, m.Y))
		}
		marker := ""
		if p.EnPassant {
			marker = " (en passant)"
		}
		r.printf("  %-8s %-16s %d,%d%s -> %s\n",
			p.Type, display.ColorForTeam(p.Team), p.Position.X, p.Position.Y, marker, strings.Join(moves, " "))
	}
	return nil
}

func (r *Registry) gameStateHandler(s *session.Session, _ []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	resp, err := s.Client.GetGame(gameID)
	if err != nil {
		return err
	}
	s.TrackGame(resp)
	display.PrettyPrintJSON(r.out, resp)
	return nil
}

func (r *Registry) deleteGameHandler(s *session.Session, args []string) error {
	gameID := s.CurrentGame
	if len(args) > 0 {
		gameID = args[0]
	}
	if gameID == "" {
		return fmt.Errorf("no game specified")
	}

	if err := s.Client.DeleteGame(gameID); err != nil {
		return err
	}

	if gameID == s.CurrentGame {
		s.ForgetGame()
	}
	r.printf("%sGame deleted: %s%s\n", display.Green, gameID, display.Reset)
	return nil
}

func (r *Registry) pollHandler(s *session.Session, _ []string) error {
	gameID, err := requireGame(s)
	if err != nil {
		return err
	}

	r.printf("%sLong-polling for updates (move count: %d)...%s\n",
		display.Cyan, s.LastMoveCount, display.Reset)

	start := time.Now()
	resp, err := s.Client.GetGameWithPoll(gameID, s.LastMoveCount)
	if err != nil {
		return err
	}

	if len(resp.Moves) == s.LastMoveCount {
		r.printf("%sNo change after %s%s\n", display.Yellow, time.Since(start).Round(time.Second), display.Reset)
	} else {
		r.printLastMove(resp)
	}
	s.TrackGame(resp)
	r.printGameSummary(resp)
	return nil
}

func (r *Registry) printLastMove(resp *api.GameResponse) {
	if resp.LastMove == nil {
		return
	}
	r.printf("%s%s played: %s%s", display.Magenta, display.ColorForTeam(resp.LastMove.Team), resp.LastMove.Move, display.Reset)
	if resp.LastMove.Fallback {
		r.printf(" %s(fallback)%s", display.Yellow, display.Reset)
	}
	if resp.LastMove.Reasoning != "" {
		r.printf(" - %s", resp.LastMove.Reasoning)
	}
	r.printf("\n")
}

func (r *Registry) printGameSummary(g *api.GameResponse) {
	r.printf("%sTurn:%s %s (%d played)  %sState:%s %s\n",
		display.Cyan, display.Reset, display.ColorForTeam(g.Turn), g.TotalTurns,
		display.Cyan, display.Reset, display.ColorForState(g.State))
	if g.Winner != "" {
		r.printf("%sWinner:%s %s\n", display.Cyan, display.Reset, display.ColorForTeam(g.Winner))
	}
	if g.PendingPromotion != nil {
		r.printf("%sPromotion pending at %d,%d, use 'promote <piece>'%s\n",
			display.Magenta, g.PendingPromotion.X, g.PendingPromotion.Y, display.Reset)
	}
}
