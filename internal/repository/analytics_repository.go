package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/nammaooru/offers-api/internal/model"
)

// AnalyticsRepo answers the aggregate questions behind the admin and
// store dashboards. All counts run as single aggregate queries; none
// of them lock anything.
type AnalyticsRepo struct{ DB *sql.DB }

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo { return &AnalyticsRepo{db} }

// RoleCount pairs a role with how many users hold it.
type RoleCount struct {
	Role  string `json:"role"`
	Count uint64 `json:"count"`
}

// AdminTotals is the platform-wide dashboard payload.
type AdminTotals struct {
	TotalUsers          uint64      `json:"totalUsers"`
	UserCountsByRole    []RoleCount `json:"userCountsByRole"`
	TotalStores         uint64      `json:"totalStores"`
	TotalCoupons        uint64      `json:"totalCoupons"`
	TotalRedemptions    uint64      `json:"totalRedemptions"`
	UsedCouponsCount    uint64      `json:"usedCouponsCount"`
	ActiveCouponsCount  uint64      `json:"activeCouponsCount"`
	ExpiredCouponsCount uint64      `json:"expiredCouponsCount"`
}

// Admin computes platform-wide totals.
func (r *AnalyticsRepo) Admin(ctx context.Context) (AdminTotals, error) {
	var t AdminTotals
	counts := []struct {
		query string
		dst   *uint64
		args  []interface{}
	}{
		{`SELECT COUNT(*) FROM users`, &t.TotalUsers, nil},
		{`SELECT COUNT(*) FROM stores`, &t.TotalStores, nil},
		{`SELECT COUNT(*) FROM coupons`, &t.TotalCoupons, nil},
		{`SELECT COUNT(*) FROM redeemed_coupons`, &t.TotalRedemptions, nil},
		{`SELECT COUNT(*) FROM redeemed_coupons WHERE status=?`, &t.UsedCouponsCount, []interface{}{model.RedemptionUsed}},
		{`SELECT COUNT(*) FROM coupons WHERE expiry_date > UTC_TIMESTAMP()`, &t.ActiveCouponsCount, nil},
		{`SELECT COUNT(*) FROM coupons WHERE expiry_date < UTC_TIMESTAMP()`, &t.ExpiredCouponsCount, nil},
	}
	for _, c := range counts {
		if err := r.DB.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return t, err
		}
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT role, COUNT(*) FROM users GROUP BY role`)
	if err != nil {
		return t, err
	}
	defer rows.Close()
	t.UserCountsByRole = make([]RoleCount, 0, 3)
	for rows.Next() {
		var rc RoleCount
		if err := rows.Scan(&rc.Role, &rc.Count); err != nil {
			return t, err
		}
		t.UserCountsByRole = append(t.UserCountsByRole, rc)
	}
	return t, rows.Err()
}

// TopCoupon names a store's most redeemed coupon.
type TopCoupon struct {
	Title            string `json:"title"`
	TotalRedemptions uint64 `json:"totalRedemptions"`
}

// StoreTotals is the per-store dashboard payload.
type StoreTotals struct {
	TotalCoupons     uint64     `json:"totalCoupons"`
	TotalRedemptions uint64     `json:"totalRedemptions"`
	UsedCouponsCount uint64     `json:"usedCouponsCount"`
	ActiveCoupons    uint64     `json:"activeCoupons"`
	ExpiredCoupons   uint64     `json:"expiredCoupons"`
	TopRedeemed      *TopCoupon `json:"topRedeemedCoupon"`
}

// Store computes totals for one store, including its single most
// redeemed coupon (nil when the store has no redemptions yet).
func (r *AnalyticsRepo) Store(ctx context.Context, storeID uint64) (StoreTotals, error) {
	var t StoreTotals
	counts := []struct {
		query string
		dst   *uint64
		args  []interface{}
	}{
		{`SELECT COUNT(*) FROM coupons WHERE store_id=?`, &t.TotalCoupons, []interface{}{storeID}},
		{`SELECT COUNT(*) FROM redeemed_coupons WHERE store_id=?`, &t.TotalRedemptions, []interface{}{storeID}},
		{`SELECT COUNT(*) FROM redeemed_coupons WHERE store_id=? AND status=?`, &t.UsedCouponsCount, []interface{}{storeID, model.RedemptionUsed}},
		{`SELECT COUNT(*) FROM coupons WHERE store_id=? AND expiry_date > UTC_TIMESTAMP()`, &t.ActiveCoupons, []interface{}{storeID}},
		{`SELECT COUNT(*) FROM coupons WHERE store_id=? AND expiry_date < UTC_TIMESTAMP()`, &t.ExpiredCoupons, []interface{}{storeID}},
	}
	for _, c := range counts {
		if err := r.DB.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return t, err
		}
	}
	var top TopCoupon
	err := r.DB.QueryRowContext(ctx,
		`SELECT COALESCE(c.title, ''), COUNT(*) AS cnt
		 FROM redeemed_coupons rc
		 LEFT JOIN coupons c ON c.id = rc.coupon_id
		 WHERE rc.store_id = ?
		 GROUP BY rc.coupon_id, c.title
		 ORDER BY cnt DESC
		 LIMIT 1`, storeID).Scan(&top.Title, &top.TotalRedemptions)
	if err != nil && err != sql.ErrNoRows {
		return t, err
	}
	if err == nil {
		t.TopRedeemed = &top
	}
	return t, nil
}

// TrendPoint is one day's redemption count.
type TrendPoint struct {
	Date  string `json:"date"`
	Count uint64 `json:"count"`
}

// Trend returns redemptions per day for a store over the trailing
// window (days). Days with no redemptions are absent from the result,
// matching the dashboard's sparse rendering.
func (r *AnalyticsRepo) Trend(ctx context.Context, storeID uint64, days int) ([]TrendPoint, error) {
	if days < 1 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := r.DB.QueryContext(ctx,
		`SELECT DATE_FORMAT(redeemed_at, '%Y-%m-%d') AS day, COUNT(*)
		 FROM redeemed_coupons
		 WHERE store_id = ? AND redeemed_at >= ?
		 GROUP BY day
		 ORDER BY day ASC`, storeID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]TrendPoint, 0)
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.Count); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
