package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/service"
)

type PlatformHandler struct {
	ps  service.PlatformService
	cs  service.ConnectorService
	pub service.PublishService
}

func NewPlatformHandler(ps service.PlatformService, cs service.ConnectorService, pub service.PublishService) *PlatformHandler {
	return &PlatformHandler{
		ps:  ps,
		cs:  cs,
		pub: pub,
	}
}

// page resolves the workspace and page id of a page-scoped route.
func page(c *fiber.Ctx) (int64, int64, error) {
	workspaceID, err := GetWorkspaceID(c)
	if err != nil {
		return 0, 0, err
	}
	pageID, err := paramID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	return workspaceID, pageID, nil
}

func (h *PlatformHandler) ListSocialAccounts(c *fiber.Ctx) error {
	workspaceID, err := GetWorkspaceID(c)
	if err != nil {
		return writeError(c, err)
	}

	accountList, err := h.ps.ListAccounts(c.Context(), workspaceID)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(accountList)
}

func (h *PlatformHandler) Disconnect(c *fiber.Ctx) error {
	workspaceID, pageID, err := page(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.cs.Disconnect(c.Context(), workspaceID, pageID); err != nil {
		return writeError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *PlatformHandler) Publish(c *fiber.Ctx) error {
	workspaceID, pageID, err := page(c)
	if err != nil {
		return writeError(c, err)
	}

	var req service.PublishRequest
	if err := c.BodyParser(&req); err != nil {
		return writeError(c, apperr.Validation("body", "invalid request body"))
	}

	res, err := h.pub.PublishToPage(c.Context(), workspaceID, pageID, &req)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(res)
}

func (h *PlatformHandler) History(c *fiber.Ctx) error {
	workspaceID, pageID, err := page(c)
	if err != nil {
		return writeError(c, err)
	}

	hist, err := h.ps.History(c.Context(), workspaceID, pageID, c.QueryInt("limit", 25), c.Query("cursor"))
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(hist)
}

func (h *PlatformHandler) Boards(c *fiber.Ctx) error {
	workspaceID, pageID, err := page(c)
	if err != nil {
		return writeError(c, err)
	}

	boards, err := h.ps.Boards(c.Context(), workspaceID, pageID)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(boards)
}

// DeletePost takes the provider post id from the rest of the path since some
// ids, such as google local post names, contain slashes.
func (h *PlatformHandler) DeletePost(c *fiber.Ctx) error {
	workspaceID, pageID, err := page(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.ps.DeletePost(c.Context(), workspaceID, pageID, c.Params("*")); err != nil {
		return writeError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
