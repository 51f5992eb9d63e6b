package model

import "time"

// Redemption statuses stored in redeemed_coupons.status. A ledger
// entry starts as "active" and is flipped to "used" by the store once
// the customer physically uses the coupon. "expired" is a declared
// value that no code path currently writes; it exists for a future
// expiry sweep.
const (
	RedemptionActive  = "active"
	RedemptionUsed    = "used"
	RedemptionExpired = "expired"
)

// PointsPerUse is the loyalty reward credited to a user the first time
// one of their redemptions transitions to "used".
const PointsPerUse = 20

// RedeemedCoupon mirrors the `redeemed_coupons` table, the redemption
// ledger. One row records that a specific user redeemed a specific
// coupon; the UNIQUE (user_id, coupon_id) index is the authoritative
// guard against double redemption. Rows are created exactly once per
// successful redemption and are never deleted in normal operation.
//
// RedemptionCode and ExpiryDate are copied from the coupon at
// redemption time so the ledger stays meaningful if the coupon is
// later edited or deleted.
type RedeemedCoupon struct {
	ID             uint64     // redeemed_coupons.id
	UserID         uint64     // redeemed_coupons.user_id
	CouponID       uint64     // redeemed_coupons.coupon_id
	StoreID        uint64     // redeemed_coupons.store_id
	RedemptionCode string     // redeemed_coupons.redemption_code
	Status         string     // redeemed_coupons.status
	RedeemedAt     time.Time  // redeemed_coupons.redeemed_at (immutable)
	ExpiryDate     time.Time  // redeemed_coupons.expiry_date
	UsedOnDate     *time.Time // redeemed_coupons.used_on (null until used)
	CreatedAt      time.Time  // redeemed_coupons.created_at
	UpdatedAt      time.Time  // redeemed_coupons.updated_at
}
