package handlers

import (
	"bytes"
	"html/template"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/socialsync/configs"
	"github.com/maheshrc27/socialsync/internal/models"
	"github.com/maheshrc27/socialsync/internal/service"
)

// callbackPage reports the connect outcome to the window that opened the
// provider popup and closes itself.
var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Connecting account</title></head>
<body>
<script>
(function () {
  var message = {{.Message}};
  if (window.opener) {
    window.opener.postMessage(message, {{.Origin}});
  }
  window.close();
})();
</script>
</body>
</html>
`))

type callbackMessage struct {
	Success     bool                 `json:"success,omitempty"`
	WorkspaceID int64                `json:"workspaceId,omitempty"`
	AccountID   int64                `json:"accountId,omitempty"`
	Pages       []*models.SocialPage `json:"pages,omitempty"`
	Error       string               `json:"error,omitempty"`
}

type ConnectHandler struct {
	s   service.ConnectorService
	cfg config.Config
}

func NewConnectHandler(s service.ConnectorService, cfg config.Config) *ConnectHandler {
	return &ConnectHandler{s: s, cfg: cfg}
}

// BeginConnect redirects to the provider. With mode=json it returns the URL
// and the handshake nonce instead so the caller can open a popup and poll.
func (h *ConnectHandler) BeginConnect(c *fiber.Ctx) error {
	workspaceID, err := GetWorkspaceID(c)
	if err != nil {
		return writeError(c, err)
	}

	authURL, nonce, err := h.s.BeginConnect(c.Context(), workspaceID, c.Params("platform"), c.Query("method"))
	if err != nil {
		return writeError(c, err)
	}

	if c.Query("mode") == "json" {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"url":   authURL,
			"nonce": nonce,
		})
	}
	return c.Redirect(authURL, fiber.StatusTemporaryRedirect)
}

func (h *ConnectHandler) Callback(c *fiber.Ctx) error {
	params := service.CallbackParams{
		Code:             c.Query("code"),
		State:            c.Query("state"),
		Error:            c.Query("error"),
		ErrorDescription: c.Query("error_description"),
	}

	var msg callbackMessage
	res, err := h.s.HandleCallback(c.Context(), c.Params("platform"), params)
	if err != nil {
		msg.Error = err.Error()
	} else {
		msg.Success = true
		msg.WorkspaceID = res.WorkspaceID
		msg.AccountID = res.AccountID
		msg.Pages = res.Pages
	}

	var buf bytes.Buffer
	err = callbackPage.Execute(&buf, map[string]any{
		"Message": msg,
		"Origin":  h.cfg.FrontendURL,
	})
	if err != nil {
		return writeError(c, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}

func (h *ConnectHandler) Status(c *fiber.Ctx) error {
	hs, err := h.s.Status(c.Context(), c.Params("nonce"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(hs)
}
