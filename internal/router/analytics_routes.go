package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nammaooru/offers-api/internal/handler"
	"github.com/nammaooru/offers-api/internal/middleware"
	"github.com/nammaooru/offers-api/internal/model"
)

// RegisterAnalytics registers the dashboard endpoints. The admin
// dashboard is admin-only; store dashboards allow the owning store or
// an admin, checked per request in the handler.
func RegisterAnalytics(e *echo.Echo, a *handler.AnalyticsHandler, jwtSecret string) {
	admin := e.Group(
		"/analytics",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.GET("/admin", a.Admin)

	store := e.Group(
		"/analytics",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStore, model.RoleAdmin),
	)
	store.GET("/store/:storeId", a.Store)
	store.GET("/store/:storeId/trends", a.Trends)
}
