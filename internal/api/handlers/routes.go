package handlers

import "github.com/gofiber/fiber/v2"

// RegisterRoutes mounts the connect flow and the /api group. auth guards
// everything except the provider callback.
func RegisterRoutes(app *fiber.App, auth fiber.Handler, connect *ConnectHandler, platform *PlatformHandler, post *PostHandler) {
	app.Get("/auth/:platform/callback", connect.Callback)
	app.Get("/auth/:platform", auth, connect.BeginConnect)

	api := app.Group("/api")
	api.Use(auth)

	api.Get("/connect/status/:nonce", connect.Status)

	// social accounts and pages
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Post("/pages/:id/disconnect", platform.Disconnect)
	api.Post("/pages/:id/publish", platform.Publish)
	api.Get("/pages/:id/history", platform.History)
	api.Get("/pages/:id/boards", platform.Boards)
	api.Delete("/pages/:id/posts/*", platform.DeletePost)

	// posts
	api.Post("/posts/auto-schedule", post.AutoSchedule)
	api.Post("/posts/:id/publish", post.Publish)
	api.Get("/posts/:id/suggested-slots", post.SuggestedSlots)
	api.Post("/posts/:id/blocks/:blockId/versions", post.AddVersion)
	api.Put("/posts/:id/blocks/:blockId/current-version", post.SetCurrentVersion)
	api.Post("/posts/:id/blocks/:blockId/comments", post.CommentOnBlock)
	api.Post("/posts/:id/blocks/:blockId/versions/:versionId/comments", post.CommentOnVersion)
}
