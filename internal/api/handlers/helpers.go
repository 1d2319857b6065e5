package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialsync/internal/apperr"
)

func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("user_id").(string)
	return userID
}

// GetWorkspaceID reads the workspace a request acts on from the query or the
// X-Workspace-ID header.
func GetWorkspaceID(c *fiber.Ctx) (int64, error) {
	raw := c.Query("workspace_id")
	if raw == "" {
		raw = c.Get("X-Workspace-ID")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("workspace_id", "workspace_id is required")
	}
	return id, nil
}

func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(name, "invalid %s", name)
	}
	return id, nil
}

// StatusFor maps an error to the response status.
func StatusFor(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, apperr.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrAuth):
		return fiber.StatusUnauthorized
	case errors.Is(err, apperr.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperr.ErrNotSupported):
		return fiber.StatusNotImplemented
	case errors.Is(err, apperr.ErrPlatformAPI):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

func writeError(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "err", err)
	}

	msg := err.Error()
	if errors.Is(err, apperr.ErrEncryption) {
		msg = "stored credentials could not be read"
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
	})
}

// ErrorHandler is the fiber fallback for errors returned by handlers.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return writeError(c, err)
}
