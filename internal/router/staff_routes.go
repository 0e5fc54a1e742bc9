package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/handler"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/middleware"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
)

// RegisterStaff registers the staff-only surface under /v1/staff: the
// listing moderation queue, the approval decision endpoint, and the
// whole-platform views over bookings and threads that staff use for
// support.
func RegisterStaff(e *echo.Echo, l *handler.ListingHandler, t *handler.ThreadHandler, jwtSecret string) {
	g := e.Group(
		"/v1/staff",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStaff),
	)
	g.GET("/listings/pending", l.ListPending)
	g.PATCH("/listings/:id/approval", l.SetApproval)
	g.GET("/threads", t.ListAll)
}
