package http

import (
	"fmt"
	"reflect"
	"strings"

	"arcadechess/internal/server/core"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

// requestBodyFor maps a route to the request type its body must decode into
func requestBodyFor(method, path string) any {
	if method != fiber.MethodPost {
		return nil
	}
	path = strings.TrimSuffix(path, "/")
	switch {
	case strings.HasSuffix(path, "/games"):
		return &core.CreateGameRequest{}
	case strings.HasSuffix(path, "/moves"):
		return &core.MoveRequest{}
	case strings.HasSuffix(path, "/ai-moves"):
		return &core.AIMoveRequest{}
	case strings.HasSuffix(path, "/promotion"):
		return &core.PromoteRequest{}
	case strings.HasSuffix(path, "/undo"):
		return &core.UndoRequest{}
	}
	return nil
}

// validationMiddleware parses and validates request bodies before handlers run
func validationMiddleware(c *fiber.Ctx) error {
	requestType := requestBodyFor(c.Method(), c.Path())
	if requestType == nil {
		return c.Next()
	}

	// An empty AI move body asks the configured proposer
	if len(c.Body()) > 0 {
		if err := c.BodyParser(requestType); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
				Error:   "invalid request body",
				Code:    core.ErrInvalidRequest,
				Details: err.Error(),
			})
		}
	}

	if err := validate.Struct(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "validation failed",
			Code:    core.ErrInvalidRequest,
			Details: describeValidation(err),
		})
	}

	c.Locals("validatedBody", requestType)
	c.Locals("validated", true)
	return c.Next()
}

func describeValidation(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		unit := ""
		if fe.Type().Kind() == reflect.String {
			unit = " characters"
		}
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("%s is required", fe.Field()))
		case "required_with":
			parts = append(parts, fmt.Sprintf("%s is required with %s", fe.Field(), fe.Param()))
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		case "min":
			parts = append(parts, fmt.Sprintf("%s must be at least %s%s", fe.Field(), fe.Param(), unit))
		case "max":
			parts = append(parts, fmt.Sprintf("%s must be at most %s%s", fe.Field(), fe.Param(), unit))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

// validatedBody returns the body stored by validationMiddleware
func validatedBody[T any](c *fiber.Ctx) (T, bool) {
	var zero T
	if validated, ok := c.Locals("validated").(bool); !ok || !validated {
		return zero, false
	}
	body, ok := c.Locals("validatedBody").(*T)
	if !ok || body == nil {
		return zero, false
	}
	return *body, true
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
