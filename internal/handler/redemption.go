package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/nammaooru/offers-api/internal/model"
	"github.com/nammaooru/offers-api/internal/queue"
	"github.com/nammaooru/offers-api/internal/repository"
	queue_publisher "github.com/nammaooru/offers-api/internal/service"
	"github.com/nammaooru/offers-api/internal/utils"
)

// RedemptionHandler implements the redemption ledger: creating entries
// and transitioning them to "used". Both writes run inside a single
// database transaction; the redeem path additionally locks the coupon
// row so duplicate and usage-limit checks cannot race.
type RedemptionHandler struct {
	Redemptions *repository.RedemptionRepo
	Coupons     *repository.CouponRepo
	Users       *repository.UserRepo
	Stores      *repository.StoreRepo
}

func NewRedemptionHandler(rd *repository.RedemptionRepo, cp *repository.CouponRepo, u *repository.UserRepo, st *repository.StoreRepo) *RedemptionHandler {
	if rd == nil || cp == nil || u == nil || st == nil {
		panic("nil repository passed to NewRedemptionHandler")
	}
	return &RedemptionHandler{Redemptions: rd, Coupons: cp, Users: u, Stores: st}
}

type redeemReq struct {
	UserID         uint64 `json:"userId"`
	CouponID       uint64 `json:"couponId"`
	StoreID        uint64 `json:"storeId"`
	RedemptionCode string `json:"redemptionCode"`
	ExpiryDate     string `json:"expiryDate"`
}

type redemptionResp struct {
	ID             uint64     `json:"id"`
	UserID         uint64     `json:"userId"`
	CouponID       uint64     `json:"couponId"`
	StoreID        uint64     `json:"storeId"`
	RedemptionCode string     `json:"redemptionCode"`
	Status         string     `json:"status"`
	RedeemedAt     time.Time  `json:"redeemedAt"`
	ExpiryDate     time.Time  `json:"expiryDate"`
	UsedOnDate     *time.Time `json:"usedOnDate"`
}

func toRedemptionResp(rec model.RedeemedCoupon) redemptionResp {
	return redemptionResp{
		ID: rec.ID, UserID: rec.UserID, CouponID: rec.CouponID, StoreID: rec.StoreID,
		RedemptionCode: rec.RedemptionCode, Status: rec.Status,
		RedeemedAt: rec.RedeemedAt, ExpiryDate: rec.ExpiryDate, UsedOnDate: rec.UsedOnDate,
	}
}

// Redeem handles POST /coupon/redeem. Validation order is load-bearing
// for clients: missing fields, then the caller-supplied expiry, then
// coupon existence, then duplicate, then usage limit. The duplicate
// pre-check is advisory only; the unique (user_id, coupon_id) index
// decides the winner under concurrency, and a duplicate-key failure on
// insert is reported exactly like a failed pre-check.
func (h *RedemptionHandler) Redeem(c echo.Context) error {
	authID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req redeemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.RedemptionCode = utils.NormalizeRedemptionCode(req.RedemptionCode)
	if req.UserID == 0 || req.CouponID == 0 || req.StoreID == 0 ||
		req.RedemptionCode == "" || strings.TrimSpace(req.ExpiryDate) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing required fields"})
	}
	if req.UserID != authID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "cannot redeem for another user"})
	}

	// The expiry check runs on the caller-supplied date, before any
	// storage lookup. Clients send the expiry they rendered; a stale
	// card fails fast without costing a coupon lookup.
	expiry, ok := parseDate(req.ExpiryDate)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "expiryDate must be a valid date"})
	}
	if expiry.Before(time.Now().UTC()) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "coupon is expired"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tx, err := h.Redemptions.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Locks the coupon row for the rest of the transaction, so the
	// count below cannot change under us.
	usageLimit, storeID, err := h.Coupons.UsageInfoTx(ctx, tx, req.CouponID)
	if err != nil {
		if err == repository.ErrCouponNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "coupon not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if storeID != req.StoreID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "coupon does not belong to this store"})
	}

	exists, err := h.Redemptions.ExistsTx(ctx, tx, req.UserID, req.CouponID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if exists {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "coupon already redeemed"})
	}

	count, err := h.Redemptions.CountByCouponTx(ctx, tx, req.CouponID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if count >= usageLimit {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "coupon usage limit reached"})
	}

	rec := model.RedeemedCoupon{
		UserID:         req.UserID,
		CouponID:       req.CouponID,
		StoreID:        storeID,
		RedemptionCode: req.RedemptionCode,
		ExpiryDate:     expiry,
	}
	if err := h.Redemptions.CreateTx(ctx, tx, &rec); err != nil {
		if err == repository.ErrAlreadyRedeemed {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "coupon already redeemed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create redemption failed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publishRedeemed(rec)

	return c.JSON(http.StatusCreated, toRedemptionResp(rec))
}

// ListByUser handles GET /coupon/redeemed/user/:userId. Users may only
// read their own ledger.
func (h *RedemptionHandler) ListByUser(c echo.Context) error {
	authID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	userID, err := pathID(c, "userId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	if userID != authID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.Redemptions.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"redeemedCoupons": entries})
}

// ListByStore handles GET /coupon/redeemed/store/:storeId. Store-role
// callers must own the store; admins may read any store's ledger.
func (h *RedemptionHandler) ListByStore(c echo.Context) error {
	authID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	storeID, err := pathID(c, "storeId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid store id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if getRole(c) != model.RoleAdmin {
		owner, err := h.Stores.OwnerID(ctx, storeID)
		if err != nil {
			if err == repository.ErrStoreNotFound {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "store not found"})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
		}
		if owner != authID {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}

	entries, err := h.Redemptions.ListByStore(ctx, storeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if len(entries) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no redemptions found for this store"})
	}
	return c.JSON(http.StatusOK, echo.Map{"redemptions": entries})
}

type updateStatusReq struct {
	Status string `json:"status"`
	UserID uint64 `json:"userId"`
}

// UpdateStatus handles PUT /coupon/redeemed/update-status/:redeemedCouponId.
// The only supported transition is active to used. The conditional
// update and the point credit share one transaction: at most one caller
// observes the transition eagerly, and only that caller credits the 20
// point reward. A second call returns the entry unchanged.
func (h *RedemptionHandler) UpdateStatus(c echo.Context) error {
	entryID, err := pathID(c, "redeemedCouponId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid redeemed coupon id"})
	}
	var req updateStatusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.UserID == 0 || strings.TrimSpace(req.Status) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status and userId are required"})
	}
	if strings.ToLower(strings.TrimSpace(req.Status)) != model.RedemptionUsed {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Scoped lookup: the entry must belong to the named user.
	if _, err := h.Redemptions.GetForUser(ctx, entryID, req.UserID); err != nil {
		if err == repository.ErrRedemptionNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "redeemed coupon not found for this user"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	tx, err := h.Redemptions.DB.BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	marked, err := h.Redemptions.MarkUsedTx(ctx, tx, entryID, req.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if marked {
		if err := h.Users.AddPointsTx(ctx, tx, req.UserID, model.PointsPerUse); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "point credit failed"})
		}
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	rec, err := h.Redemptions.GetForUser(ctx, entryID, req.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"redeemedCoupon": toRedemptionResp(rec),
		"pointsAwarded":  marked,
	})
}

// publishRedeemed emits a coupon.redeemed event without blocking or
// failing the request; the redemption is already committed.
func (h *RedemptionHandler) publishRedeemed(rec model.RedeemedCoupon) {
	ev := queue.CouponRedeemedEvent{
		RedemptionID: rec.ID,
		UserID:       rec.UserID,
		CouponID:     rec.CouponID,
		StoreID:      rec.StoreID,
		Status:       rec.Status,
		RedeemedAt:   rec.RedeemedAt.UTC().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cp, err := h.Coupons.GetByID(ctx, rec.CouponID); err == nil {
			ev.CouponName = cp.Title
		}
		_ = queue_publisher.PublishCouponRedeemed(ctx, ev)
	}()
}
