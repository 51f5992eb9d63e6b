package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nammaooru/offers-api/internal/handler"
	"github.com/nammaooru/offers-api/internal/middleware"
	"github.com/nammaooru/offers-api/internal/model"
)

// RegisterProduct registers the /product endpoints.
func RegisterProduct(e *echo.Echo, p *handler.ProductHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	// Public catalog, cached.
	e.GET("/product/public", p.ListPublic, cache)
	e.GET("/product/public/:id", p.GetPublic, cache)

	g := e.Group(
		"/product",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStore, model.RoleAdmin),
	)
	g.GET("/store", p.ListMine)
	g.POST("/", p.Create)
	g.PUT("/:id", p.Update)
	g.DELETE("/:id", p.Delete)
}
