package fiber

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/webpro/core"
)

type keyInput struct {
	Key string `json:"key"`
}

type roleChangedInput struct {
	AccountID string `json:"accountId"`
	Role      string `json:"role"`
}

type accountInput struct {
	AccountID string `json:"accountId"`
}

func badBody(c fiber.Ctx) error {
	return c.Status(http.StatusBadRequest).JSON(core.ErrorResponse{
		Error: "invalid request body",
		Code:  http.StatusBadRequest,
	})
}

// handleCheckKey previews the web pro behind a key
func handleCheckKey(h core.ConnectionHandler, status int) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input keyInput
		if err := c.Bind().Body(&input); err != nil {
			return badBody(c)
		}

		check, err := h.CheckKey(c.Context(), input.Key)
		if err != nil {
			return handleError(c, err)
		}

		return c.Status(status).JSON(check)
	}
}

func handleConnect(h core.ConnectionHandler, status int) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input keyInput
		if err := c.Bind().Body(&input); err != nil {
			return badBody(c)
		}

		result, err := h.Connect(c.Context(), input.Key)
		if err != nil {
			return handleError(c, err)
		}

		return c.Status(status).JSON(result)
	}
}

func handleGetConnection(h core.ConnectionHandler, status int) fiber.Handler {
	return func(c fiber.Ctx) error {
		view, err := h.Status(c.Context(), c.Params("id"))
		if err != nil {
			return handleError(c, err)
		}

		return c.Status(status).JSON(view)
	}
}

func handleDisconnect(h core.ConnectionHandler, status int) fiber.Handler {
	return func(c fiber.Ctx) error {
		if err := h.Disconnect(c.Context(), c.Params("id")); err != nil {
			return handleError(c, err)
		}

		return c.Status(status).JSON(map[string]string{
			"message": "disconnected",
		})
	}
}

func handleSetKey(h core.ConnectionHandler, status int) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input keyInput
		if err := c.Bind().Body(&input); err != nil {
			return badBody(c)
		}

		view, err := h.SetKey(c.Context(), c.Params("id"), input.Key)
		if err != nil {
			return handleError(c, err)
		}

		return c.Status(status).JSON(view)
	}
}

func handleRoleChanged(h core.ConnectionHandler, status int) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input roleChangedInput
		if err := c.Bind().Body(&input); err != nil {
			return badBody(c)
		}

		if err := h.RoleChanged(c.Context(), input.AccountID, input.Role); err != nil {
			return handleError(c, err)
		}

		return c.SendStatus(status)
	}
}

func handleAccountDeleted(h core.ConnectionHandler, status int) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input accountInput
		if err := c.Bind().Body(&input); err != nil {
			return badBody(c)
		}

		if err := h.AccountDeleted(c.Context(), input.AccountID); err != nil {
			return handleError(c, err)
		}

		return c.SendStatus(status)
	}
}

// handleError maps connection errors to HTTP responses. Unmapped errors
// are reported without detail.
func handleError(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	return c.Status(status).JSON(core.ErrorResponse{
		Error: message,
		Code:  status,
	})
}

// mapErrorToStatus maps core errors to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrInvalidArgument),
		errors.Is(err, core.ErrMissingKey):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrMissingAuthHeader),
		errors.Is(err, core.ErrInvalidAuthHeader),
		errors.Is(err, core.ErrUnknownActor):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrPermissionDenied):
		return http.StatusForbidden

	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrKeyMismatch),
		errors.Is(err, core.ErrIdentityConflict),
		errors.Is(err, core.ErrUserExists):
		return http.StatusConflict

	case errors.Is(err, core.ErrConnectFailed):
		return http.StatusBadGateway

	default:
		return http.StatusInternalServerError
	}
}
