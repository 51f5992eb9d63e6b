package router

import (
	"github.com/labstack/echo/v4"

	"github.com/nammaooru/offers-api/internal/handler"
	"github.com/nammaooru/offers-api/internal/middleware"
	"github.com/nammaooru/offers-api/internal/model"
)

// RegisterCoupon registers the /coupon endpoints: public browsing,
// store-scoped CRUD, and the redemption ledger operations.
func RegisterCoupon(e *echo.Echo, cp *handler.CouponHandler, rd *handler.RedemptionHandler, jwtSecret string, cache echo.MiddlewareFunc) {
	// Public browsing, cached.
	e.GET("/coupon/", cp.ListPublic, cache)
	e.GET("/coupon/view/:couponId", cp.View, cache)
	e.GET("/coupon/store/:storeId", cp.ByStore, cache)
	e.GET("/coupon/store/:storeId/view/:couponId", cp.StoreView, cache)

	// Coupon CRUD is store-role only; per-coupon ownership is enforced
	// in the handlers.
	store := e.Group(
		"/coupon",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStore),
	)
	store.POST("/create/:storeId", cp.Create)
	store.PUT("/edit/:couponId", cp.Edit)
	store.DELETE("/delete/:couponId", cp.Delete)

	// Redemption ledger.
	user := e.Group(
		"/coupon",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser),
	)
	user.POST("/redeem", rd.Redeem)
	user.GET("/redeemed/user/:userId", rd.ListByUser)

	storeOrAdmin := e.Group(
		"/coupon",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStore, model.RoleAdmin),
	)
	storeOrAdmin.GET("/redeemed/store/:storeId", rd.ListByStore)
	storeOrAdmin.PUT("/redeemed/update-status/:redeemedCouponId", rd.UpdateStatus)
}
