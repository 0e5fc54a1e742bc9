package router

import (
	"github.com/labstack/echo/v4"

	"github.com/ArmandoCharleston/Cuba-sub000/internal/handler"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/middleware"
	"github.com/ArmandoCharleston/Cuba-sub000/internal/model"
)

// RegisterBusiness registers the business-scoped catalogue endpoints
// under /v1.  All routes require a valid JWT and the BUSINESS role.
// Businesses manage their own listings and the services offered on
// them; ownership of the targeted listing or service is validated in
// the repository layer.
func RegisterBusiness(e *echo.Echo, l *handler.ListingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleBusiness),
	)
	g.POST("/listings", l.Create)
	g.PUT("/listings/:id", l.Update)
	// Registered before GET /v1/listings/:id resolves; echo prefers the
	// static segment over the parameter.
	g.GET("/listings/mine", l.ListMine)

	g.POST("/listings/:id/services", l.CreateService)
	g.DELETE("/services/:id", l.DeleteService)
}
