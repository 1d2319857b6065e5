package handlers

import (
	"io"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/socialsync/internal/apperr"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/service"
)

type PostHandler struct {
	pub service.PublishService
	ss  service.ScheduleService
	cs  service.ContentService
}

func NewPostHandler(pub service.PublishService, ss service.ScheduleService, cs service.ContentService) *PostHandler {
	return &PostHandler{pub: pub, ss: ss, cs: cs}
}

type autoScheduleRequest struct {
	PostID int64  `json:"postId"`
	Status string `json:"status"`
}

// post resolves the workspace and post id of a post-scoped route.
func post(c *fiber.Ctx) (int64, int64, error) {
	workspaceID, err := GetWorkspaceID(c)
	if err != nil {
		return 0, 0, err
	}
	postID, err := paramID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	return workspaceID, postID, nil
}

func (h *PostHandler) Publish(c *fiber.Ctx) error {
	workspaceID, postID, err := post(c)
	if err != nil {
		return writeError(c, err)
	}

	outcomes, err := h.pub.PublishWorkspacePost(c.Context(), workspaceID, postID)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"results": outcomes,
	})
}

func (h *PostHandler) AutoSchedule(c *fiber.Ctx) error {
	workspaceID, err := GetWorkspaceID(c)
	if err != nil {
		return writeError(c, err)
	}

	var req autoScheduleRequest
	if err := c.BodyParser(&req); err != nil || req.PostID <= 0 {
		return writeError(c, apperr.Validation("postId", "postId is required"))
	}

	var status *models.PostStatus
	if req.Status != "" {
		s, err := models.ParsePostStatus(req.Status)
		if err != nil {
			return writeError(c, err)
		}
		status = &s
	}

	p, err := h.ss.AutoSchedule(c.Context(), workspaceID, req.PostID, status)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(p)
}

func (h *PostHandler) SuggestedSlots(c *fiber.Ctx) error {
	workspaceID, postID, err := post(c)
	if err != nil {
		return writeError(c, err)
	}

	slots, err := h.ss.SuggestSlots(c.Context(), workspaceID, postID, c.QueryInt("n", 5))
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"slots": slots,
	})
}

func (h *PostHandler) AddVersion(c *fiber.Ctx) error {
	workspaceID, postID, err := post(c)
	if err != nil {
		return writeError(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return writeError(c, apperr.Validation("file", "file is required"))
	}
	f, err := fh.Open()
	if err != nil {
		slog.Error(err.Error())
		return writeError(c, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error(err.Error())
		return writeError(c, err)
	}

	v, err := h.cs.AddVersion(c.Context(), workspaceID, postID, c.Params("blockId"), &service.VersionUpload{
		Data:    data,
		Caption: c.FormValue("caption"),
		By:      GetUserID(c),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(v)
}

func (h *PostHandler) SetCurrentVersion(c *fiber.Ctx) error {
	workspaceID, postID, err := post(c)
	if err != nil {
		return writeError(c, err)
	}

	var req struct {
		VersionID string `json:"versionId"`
	}
	if err := c.BodyParser(&req); err != nil || req.VersionID == "" {
		return writeError(c, apperr.Validation("versionId", "versionId is required"))
	}

	b, err := h.cs.SetCurrentVersion(c.Context(), workspaceID, postID, c.Params("blockId"), req.VersionID)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(b)
}

func (h *PostHandler) CommentOnBlock(c *fiber.Ctx) error {
	workspaceID, postID, err := post(c)
	if err != nil {
		return writeError(c, err)
	}

	var in service.CommentInput
	if err := c.BodyParser(&in); err != nil {
		return writeError(c, apperr.Validation("body", "invalid request body"))
	}
	in.Author = GetUserID(c)

	comment, err := h.cs.CommentOnBlock(c.Context(), workspaceID, postID, c.Params("blockId"), &in)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}

func (h *PostHandler) CommentOnVersion(c *fiber.Ctx) error {
	workspaceID, postID, err := post(c)
	if err != nil {
		return writeError(c, err)
	}

	var in service.CommentInput
	if err := c.BodyParser(&in); err != nil {
		return writeError(c, apperr.Validation("body", "invalid request body"))
	}
	in.Author = GetUserID(c)

	comment, err := h.cs.CommentOnVersion(c.Context(), workspaceID, postID, c.Params("blockId"), c.Params("versionId"), &in)
	if err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(comment)
}
