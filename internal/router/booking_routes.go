package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/handler"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/middleware"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
)

// RegisterBookings registers the booking endpoints under /v1.  All routes
// require a valid JWT.  Creation is reserved for clients; listing, detail
// and status changes are shared by all three roles, with the handler
// enforcing ownership and which statuses each role may set.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleClient, model.RoleBusiness, model.RoleStaff),
	)
	g.GET("/bookings", h.List)
	g.GET("/bookings/:id", h.Get)
	g.PATCH("/bookings/:id/status", h.SetStatus)

	clients := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleClient),
	)
	clients.POST("/bookings", h.Create)
}
