package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/handler"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/middleware"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
)

// RegisterThreads registers the conversation endpoints under /v1.  All
// three roles may hold threads; which kinds a caller can open or post
// to is decided per request in the handler.  Fetching a thread marks
// the other side's messages as read, so GET here is not idempotent on
// purpose.
func RegisterThreads(e *echo.Echo, h *handler.ThreadHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleClient, model.RoleBusiness, model.RoleStaff),
	)
	g.GET("/threads", h.ListMine)
	g.POST("/threads", h.Create)
	g.GET("/threads/:id", h.Get)
	g.POST("/threads/:id/messages", h.SendMessage)
}
