package http

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"arcadechess/internal/server/core"
	"arcadechess/internal/server/processor"
	"arcadechess/internal/server/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const rateLimitRate = 10 // req/sec

// HTTPHandler handles HTTP requests and routes them to the processor
type HTTPHandler struct {
	proc *processor.Processor
	svc  *service.Service
}

func NewHTTPHandler(proc *processor.Processor, svc *service.Service) *HTTPHandler {
	return &HTTPHandler{proc: proc, svc: svc}
}

func NewFiberApp(proc *processor.Processor, svc *service.Service, devMode bool) *fiber.App {
	h := NewHTTPHandler(proc, svc)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: service.WaitTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", h.Health)

	api := app.Group("/api/v1")
	validateToken := TokenValidator(svc.ValidateToken)

	auth := api.Group("/auth")
	auth.Post("/register", perMinuteLimit(5, "registrations"), h.RegisterHandler)
	auth.Post("/login", perMinuteLimit(10, "login attempts"), h.LoginHandler)
	auth.Get("/me", AuthRequired(validateToken), h.GetCurrentUserHandler)
	auth.Post("/logout", AuthRequired(validateToken), h.LogoutHandler)

	maxReq := rateLimitRate
	if devMode {
		maxReq = rateLimitRate * 2
	}
	games := api.Group("/games")
	games.Use(limiter.New(limiter.Config{
		Max:          maxReq,
		Expiration:   1 * time.Second,
		KeyGenerator: clientKey,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))
	games.Use(contentTypeValidator)
	games.Use(validationMiddleware)
	games.Use(OptionalAuth(validateToken))

	games.Post("/", h.CreateGame)
	games.Get("/:gameId", h.GetGame)
	games.Delete("/:gameId", h.DeleteGame)
	games.Post("/:gameId/moves", h.MakeMove)
	games.Post("/:gameId/ai-moves", h.AIMove)
	games.Post("/:gameId/promotion", h.Promote)
	games.Post("/:gameId/undo", h.UndoMove)
	games.Get("/:gameId/board", h.GetBoard)
	games.Get("/:gameId/pieces", h.GetPieces)

	return app
}

func perMinuteLimit(max int, what string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d %s per minute allowed", max, what),
			})
		},
	})
}

// clientKey prefers the first X-Forwarded-For hop
func clientKey(c *fiber.Ctx) string {
	if xff := c.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	return c.IP()
}

// contentTypeValidator requires JSON on POST bodies
func contentTypeValidator(c *fiber.Ctx) error {
	if c.Method() == fiber.MethodPost {
		contentType := c.Get("Content-Type")
		if contentType != "" && !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Error:   "unsupported media type",
				Code:    core.ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrGameNotFound
		case fiber.StatusBadRequest:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// statusFor maps processor error codes to HTTP status
func statusFor(code string) int {
	switch code {
	case core.ErrGameNotFound:
		return fiber.StatusNotFound
	case core.ErrUnauthorized:
		return fiber.StatusForbidden
	case core.ErrRateLimitExceeded:
		return fiber.StatusTooManyRequests
	case core.ErrInternalError:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

// respond writes a processor response; Pending results are accepted but not finished
func respond(c *fiber.Ctx, resp processor.ProcessorResponse, okStatus int) error {
	if !resp.Success {
		return c.Status(statusFor(resp.Error.Code)).JSON(resp.Error)
	}
	if resp.Pending && okStatus == fiber.StatusOK {
		okStatus = fiber.StatusAccepted
	}
	if resp.Data == nil {
		return c.SendStatus(okStatus)
	}
	return c.Status(okStatus).JSON(resp.Data)
}

func badGameID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
		Error:   "invalid game ID format",
		Code:    core.ErrInvalidRequest,
		Details: "game ID must be a valid UUID",
	})
}

func validationBypass(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
		Error: "validation bypass detected",
		Code:  core.ErrInternalError,
	})
}

// gameCommand builds a command for a validated game id and attaches the caller
func gameCommand(c *fiber.Ctx, build func(gameID string) processor.Command) (processor.Command, bool) {
	gameID := c.Params("gameId")
	if !isValidUUID(gameID) {
		return processor.Command{}, false
	}
	cmd := build(gameID)
	cmd.UserID, _ = c.Locals("userID").(string)
	return cmd, true
}

// Health reports liveness and storage state
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "healthy",
		"time":          time.Now().Unix(),
		"storage":       h.svc.GetStorageHealth(),
		"computerGames": h.svc.GetComputerGameCount(),
	})
}

// CreateGame starts a game against a human or computer opponent
func (h *HTTPHandler) CreateGame(c *fiber.Ctx) error {
	req, ok := validatedBody[core.CreateGameRequest](c)
	if !ok {
		return validationBypass(c)
	}

	cmd := processor.NewCreateGameCommand(req)
	cmd.UserID, _ = c.Locals("userID").(string)

	return respond(c, h.proc.Execute(cmd), fiber.StatusCreated)
}

// GetGame returns the game state. With wait=true and the caller's moveCount it is held
// until the history length changes or the wait times out.
func (h *HTTPHandler) GetGame(c *fiber.Ctx) error {
	cmd, ok := gameCommand(c, processor.NewGetGameCommand)
	if !ok {
		return badGameID(c)
	}

	if c.Query("wait", "false") == "true" {
		moveCount, err := strconv.Atoi(c.Query("moveCount", "-1"))
		if err != nil {
			moveCount = -1
		}

		current, err := h.svc.MoveCount(cmd.GameID)
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(core.ErrorResponse{
				Error: "game not found",
				Code:  core.ErrGameNotFound,
			})
		}

		if moveCount == current {
			ctx := c.Context()
			select {
			case <-h.svc.RegisterWait(cmd.GameID, moveCount, ctx):
			case <-ctx.Done():
				return nil
			}
		}
	}

	return respond(c, h.proc.Execute(cmd), fiber.StatusOK)
}

func (h *HTTPHandler) DeleteGame(c *fiber.Ctx) error {
	cmd, ok := gameCommand(c, processor.NewDeleteGameCommand)
	if !ok {
		return badGameID(c)
	}
	return respond(c, h.proc.Execute(cmd), fiber.StatusNoContent)
}

// MakeMove plays a move for our side
func (h *HTTPHandler) MakeMove(c *fiber.Ctx) error {
	req, ok := validatedBody[core.MoveRequest](c)
	if !ok {
		return validationBypass(c)
	}
	cmd, ok := gameCommand(c, func(id string) processor.Command { return processor.NewMakeMoveCommand(id, req) })
	if !ok {
		return badGameID(c)
	}
	return respond(c, h.proc.Execute(cmd), fiber.StatusOK)
}

// AIMove plays a submitted opponent proposal, or queues the configured proposer for an empty body
func (h *HTTPHandler) AIMove(c *fiber.Ctx) error {
	req, ok := validatedBody[core.AIMoveRequest](c)
	if !ok {
		return validationBypass(c)
	}
	cmd, ok := gameCommand(c, func(id string) processor.Command { return processor.NewAIMoveCommand(id, req) })
	if !ok {
		return badGameID(c)
	}
	return respond(c, h.proc.Execute(cmd), fiber.StatusOK)
}

func (h *HTTPHandler) Promote(c *fiber.Ctx) error {
	req, ok := validatedBody[core.PromoteRequest](c)
	if !ok {
		return validationBypass(c)
	}
	cmd, ok := gameCommand(c, func(id string) processor.Command { return processor.NewPromoteCommand(id, req) })
	if !ok {
		return badGameID(c)
	}
	return respond(c, h.proc.Execute(cmd), fiber.StatusOK)
}

func (h *HTTPHandler) UndoMove(c *fiber.Ctx) error {
	req, ok := validatedBody[core.UndoRequest](c)
	if !ok {
		return validationBypass(c)
	}
	cmd, ok := gameCommand(c, func(id string) processor.Command { return processor.NewUndoMoveCommand(id, req) })
	if !ok {
		return badGameID(c)
	}
	return respond(c, h.proc.Execute(cmd), fiber.StatusOK)
}

// GetBoard returns the encoded layout and an ASCII rendering
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	cmd, ok := gameCommand(c, processor.NewGetBoardCommand)
	if !ok {
		return badGameID(c)
	}
	return respond(c, h.proc.Execute(cmd), fiber.StatusOK)
}

func (h *HTTPHandler) GetPieces(c *fiber.Ctx) error {
	cmd, ok := gameCommand(c, processor.NewGetPiecesCommand)
	if !ok {
		return badGameID(c)
	}
	return respond(c, h.proc.Execute(cmd), fiber.StatusOK)
}
