package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nammaooru/offers-api/internal/model"
	"github.com/nammaooru/offers-api/internal/repository"
	"github.com/nammaooru/offers-api/internal/utils"
)

// CouponHandler serves coupon CRUD and public browsing. Ownership is
// enforced per request: a store-role caller may only touch coupons of
// the store they own.
type CouponHandler struct {
	Coupons *repository.CouponRepo
	Stores  *repository.StoreRepo
}

func NewCouponHandler(cp *repository.CouponRepo, st *repository.StoreRepo) *CouponHandler {
	if cp == nil || st == nil {
		panic("nil repository passed to NewCouponHandler")
	}
	return &CouponHandler{Coupons: cp, Stores: st}
}

type couponReq struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	MinPurchase     float64  `json:"minPurchase"`
	ExpiryDate      string   `json:"expiryDate"`
	IssuedDate      string   `json:"issuedDate"`
	UsageLimit      uint32   `json:"usageLimit"`
	RedemptionCode  string   `json:"redemptionCode"`
	Categories      []string `json:"categories"`
	Terms           []string `json:"terms"`
	BackgroundImage string   `json:"backgroundImage"`
}

// parseDate accepts the two formats clients send: full RFC 3339
// timestamps and bare dates.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// validate normalizes the request and returns an error message, the
// parsed expiry and the parsed issued date (zero when unset).
func (req *couponReq) validate() (string, time.Time, time.Time) {
	req.Title = strings.TrimSpace(req.Title)
	req.RedemptionCode = utils.NormalizeRedemptionCode(req.RedemptionCode)
	var zero time.Time
	switch {
	case req.Title == "":
		return "title is required", zero, zero
	case len(req.Title) > 100:
		return "title must be at most 100 characters", zero, zero
	case len(req.Description) > 500:
		return "description must be at most 500 characters", zero, zero
	case req.MinPurchase < 0:
		return "minPurchase must not be negative", zero, zero
	case req.UsageLimit < 1:
		return "usageLimit must be at least 1", zero, zero
	case !utils.ValidRedemptionCode(req.RedemptionCode):
		return "redemptionCode must be 4-20 characters (A-Z, 0-9, _ or -)", zero, zero
	}
	expiry, ok := parseDate(req.ExpiryDate)
	if !ok {
		return "expiryDate must be a valid date", zero, zero
	}
	issued := time.Now().UTC()
	if strings.TrimSpace(req.IssuedDate) != "" {
		if issued, ok = parseDate(req.IssuedDate); !ok {
			return "issuedDate must be a valid date", zero, zero
		}
	}
	return "", expiry, issued
}

// ownsStore reports whether userID owns storeID.
func (h *CouponHandler) ownsStore(ctx context.Context, userID, storeID uint64) (bool, error) {
	owner, err := h.Stores.OwnerID(ctx, storeID)
	if err != nil {
		if err == repository.ErrStoreNotFound {
			return false, nil
		}
		return false, err
	}
	return owner == userID, nil
}

// Create handles POST /coupon/create/:storeId.
func (h *CouponHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	storeID, err := pathID(c, "storeId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store id"})
	}
	var req couponReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	msg, expiry, issued := req.validate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	owns, err := h.ownsStore(ctx, userID, storeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !owns {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	cp := model.Coupon{
		StoreID:         storeID,
		CreatedBy:       &userID,
		Title:           req.Title,
		Description:     req.Description,
		MinPurchase:     req.MinPurchase,
		ExpiryDate:      expiry,
		IssuedDate:      issued,
		UsageLimit:      req.UsageLimit,
		RedemptionCode:  req.RedemptionCode,
		Categories:      req.Categories,
		Terms:           req.Terms,
		BackgroundImage: req.BackgroundImage,
	}
	if _, err := h.Coupons.Create(ctx, &cp); err != nil {
		if err == repository.ErrCodeTaken {
			return c.JSON(http.StatusConflict, echo.Map{"error": "redemption code already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create coupon failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": cp.ID, "redemptionCode": cp.RedemptionCode})
}

// Edit handles PUT /coupon/edit/:couponId. Only the owning store may
// edit; everyone else gets 403 regardless of body validity.
func (h *CouponHandler) Edit(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	couponID, err := pathID(c, "couponId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coupon id"})
	}
	var req couponReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	msg, expiry, issued := req.validate()
	if msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cp, err := h.Coupons.GetByID(ctx, couponID)
	if err != nil {
		if err == repository.ErrCouponNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	owns, err := h.ownsStore(ctx, userID, cp.StoreID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !owns {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	cp.Title = req.Title
	cp.Description = req.Description
	cp.MinPurchase = req.MinPurchase
	cp.ExpiryDate = expiry
	cp.IssuedDate = issued
	cp.UsageLimit = req.UsageLimit
	cp.RedemptionCode = req.RedemptionCode
	cp.Categories = req.Categories
	cp.Terms = req.Terms
	cp.BackgroundImage = req.BackgroundImage

	if err := h.Coupons.Update(ctx, &cp); err != nil {
		if err == repository.ErrCodeTaken {
			return c.JSON(http.StatusConflict, echo.Map{"error": "redemption code already in use"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update coupon failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": cp.ID, "message": "coupon updated"})
}

// Delete handles DELETE /coupon/delete/:couponId. Ledger entries for
// the coupon are intentionally left in place.
func (h *CouponHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	couponID, err := pathID(c, "couponId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coupon id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cp, err := h.Coupons.GetByID(ctx, couponID)
	if err != nil {
		if err == repository.ErrCouponNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	owns, err := h.ownsStore(ctx, userID, cp.StoreID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !owns {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	if err := h.Coupons.Delete(ctx, couponID); err != nil {
		if err == repository.ErrCouponNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete coupon failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "coupon deleted"})
}

// ListPublic handles GET /coupon/ with page/limit query parameters.
// Expired coupons never appear here.
func (h *CouponHandler) ListPublic(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cards, err := h.Coupons.ListPublic(ctx, page, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"coupons": cards})
}

// View handles GET /coupon/view/:couponId.
func (h *CouponHandler) View(c echo.Context) error {
	couponID, err := pathID(c, "couponId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coupon id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	card, err := h.Coupons.GetCard(ctx, couponID)
	if err != nil {
		if err == repository.ErrCouponNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, card)
}

// ByStore handles GET /coupon/store/:storeId. A store with no coupons
// yields 404, matching what the storefront expects.
func (h *CouponHandler) ByStore(c echo.Context) error {
	storeID, err := pathID(c, "storeId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cards, err := h.Coupons.ListByStore(ctx, storeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if len(cards) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no coupons found for this store"})
	}
	return c.JSON(http.StatusOK, echo.Map{"coupons": cards})
}

// StoreView handles GET /coupon/store/:storeId/view/:couponId, a
// detail lookup scoped to one store.
func (h *CouponHandler) StoreView(c echo.Context) error {
	storeID, err := pathID(c, "storeId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store id"})
	}
	couponID, err := pathID(c, "couponId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid coupon id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	card, err := h.Coupons.GetCard(ctx, couponID)
	if err != nil {
		if err == repository.ErrCouponNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if card.StoreID != storeID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
	}
	return c.JSON(http.StatusOK, card)
}
