package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nammaooru/offers-api/internal/model"
	"github.com/nammaooru/offers-api/internal/repository"
)

// AnalyticsHandler serves the admin and store dashboards.
type AnalyticsHandler struct {
	Analytics *repository.AnalyticsRepo
	Stores    *repository.StoreRepo
}

func NewAnalyticsHandler(a *repository.AnalyticsRepo, st *repository.StoreRepo) *AnalyticsHandler {
	if a == nil || st == nil {
		panic("nil repository passed to NewAnalyticsHandler")
	}
	return &AnalyticsHandler{Analytics: a, Stores: st}
}

// Admin handles GET /analytics/admin.
func (h *AnalyticsHandler) Admin(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	totals, err := h.Analytics.Admin(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, totals)
}

// checkStoreAccess allows admins through and requires store-role
// callers to own the store in question.
func (h *AnalyticsHandler) checkStoreAccess(ctx context.Context, c echo.Context, storeID uint64) (int, string) {
	if getRole(c) == model.RoleAdmin {
		return 0, ""
	}
	authID, err := getUserID(c)
	if err != nil {
		return http.StatusUnauthorized, "unauthorized"
	}
	owner, err := h.Stores.OwnerID(ctx, storeID)
	if err != nil {
		if err == repository.ErrStoreNotFound {
			return http.StatusNotFound, "store not found"
		}
		return http.StatusInternalServerError, "query failed"
	}
	if owner != authID {
		return http.StatusForbidden, "forbidden"
	}
	return 0, ""
}

// Store handles GET /analytics/store/:storeId.
func (h *AnalyticsHandler) Store(c echo.Context) error {
	storeID, err := pathID(c, "storeId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if code, msg := h.checkStoreAccess(ctx, c, storeID); code != 0 {
		return c.JSON(code, echo.Map{"error": msg})
	}
	totals, err := h.Analytics.Store(ctx, storeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, totals)
}

// Trends handles GET /analytics/store/:storeId/trends. Defaults to a
// 7 day window; clients may pass ?days= up to 90.
func (h *AnalyticsHandler) Trends(c echo.Context) error {
	storeID, err := pathID(c, "storeId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store id"})
	}
	days, _ := strconv.Atoi(c.QueryParam("days"))
	if days < 1 || days > 90 {
		days = 7
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if code, msg := h.checkStoreAccess(ctx, c, storeID); code != 0 {
		return c.JSON(code, echo.Map{"error": msg})
	}
	points, err := h.Analytics.Trend(ctx, storeID, days)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"trends": points})
}
