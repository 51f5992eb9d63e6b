package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nammaooru/offers-api/internal/handler"
	"github.com/nammaooru/offers-api/internal/middleware"
	"github.com/nammaooru/offers-api/internal/model"
)

// RegisterStore registers the /store endpoints: public directory
// browsing, store-role profile management and admin user management.
// The cache middleware fronts the public GETs only.
func RegisterStore(e *echo.Echo, s *handler.StoreHandler, a *handler.AuthHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	// Store-role accounts register here and verify by OTP like customers.
	e.POST("/store/create", a.RegisterStore)

	// Public directory. Registered before /store/:id so the literal
	// segment wins.
	e.GET("/store/all", s.ListStores, cache)
	e.GET("/store/:id", s.GetStore, cache)

	owner := e.Group(
		"/store",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStore),
	)
	owner.POST("/add", s.AddStore)
	owner.PUT("/update", s.UpdateStore)
	owner.GET("/my", s.MyStore)

	admin := e.Group(
		"/store",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.GET("/users/:role", s.UsersByRole)
	admin.PUT("/:userId/role", s.UpdateUserRole)
}
