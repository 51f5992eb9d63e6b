package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nammaooru/offers-api/internal/model"
)

// RedemptionRepo persists the redemption ledger (redeemed_coupons).
// The table carries a UNIQUE (user_id, coupon_id) index; that index,
// not application logic, is what ultimately guarantees a user can
// redeem a coupon at most once. Application-level pre-checks exist to
// produce friendly errors without burning an insert, but CreateTx
// treats a duplicate-key failure as the same condition.
//
// All multi-step operations take a *sql.Tx so the handler can commit
// the ledger write, the usage-limit check and any point credit as one
// unit.
type RedemptionRepo struct{ DB *sql.DB }

func NewRedemptionRepo(db *sql.DB) *RedemptionRepo { return &RedemptionRepo{DB: db} }

var (
	ErrAlreadyRedeemed    = errors.New("coupon already redeemed")
	ErrLimitReached       = errors.New("coupon usage limit reached")
	ErrRedemptionNotFound = errors.New("redeemed coupon not found for this user")
)

// ExistsTx reports whether a ledger entry for (user, coupon) already
// exists. This is the advisory duplicate check; the unique index
// remains authoritative.
func (r *RedemptionRepo) ExistsTx(ctx context.Context, tx *sql.Tx, userID, couponID uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM redeemed_coupons WHERE user_id=? AND coupon_id=? LIMIT 1`,
		userID, couponID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CountByCouponTx counts ledger entries for a coupon. Callers must
// hold the coupon row lock (CouponRepo.UsageInfoTx) in the same
// transaction, otherwise the count can go stale before the insert.
func (r *RedemptionRepo) CountByCouponTx(ctx context.Context, tx *sql.Tx, couponID uint64) (uint32, error) {
	var n uint32
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM redeemed_coupons WHERE coupon_id=?`, couponID).Scan(&n)
	return n, err
}

// CreateTx inserts a ledger entry within the given transaction and
// populates the generated ID and timestamps on the record. A
// duplicate-key failure on (user_id, coupon_id) is returned as
// ErrAlreadyRedeemed: under concurrent requests this insert, not the
// advisory ExistsTx check, decides who redeemed first.
func (r *RedemptionRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *model.RedeemedCoupon) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO redeemed_coupons
		 (user_id, coupon_id, store_id, redemption_code, status, redeemed_at, expiry_date)
		 VALUES (?,?,?,?,?,UTC_TIMESTAMP(),?)`,
		rec.UserID, rec.CouponID, rec.StoreID, rec.RedemptionCode,
		model.RedemptionActive, rec.ExpiryDate)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrAlreadyRedeemed
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = uint64(id)
	// Read the row back to pick up database-assigned values.
	const sel = `SELECT id, user_id, coupon_id, store_id, redemption_code, status,
		redeemed_at, expiry_date, used_on, created_at, updated_at
		FROM redeemed_coupons WHERE id=?`
	return tx.QueryRowContext(ctx, sel, rec.ID).Scan(
		&rec.ID, &rec.UserID, &rec.CouponID, &rec.StoreID, &rec.RedemptionCode,
		&rec.Status, &rec.RedeemedAt, &rec.ExpiryDate, &rec.UsedOnDate,
		&rec.CreatedAt, &rec.UpdatedAt)
}

// GetForUser loads a ledger entry scoped to its owning user, so a
// store cannot flip another user's entry by guessing IDs. Returns
// ErrRedemptionNotFound when the id does not exist or belongs to a
// different user.
func (r *RedemptionRepo) GetForUser(ctx context.Context, id, userID uint64) (model.RedeemedCoupon, error) {
	var rec model.RedeemedCoupon
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, user_id, coupon_id, store_id, redemption_code, status,
		  redeemed_at, expiry_date, used_on, created_at, updated_at
		 FROM redeemed_coupons WHERE id=? AND user_id=? LIMIT 1`, id, userID).Scan(
		&rec.ID, &rec.UserID, &rec.CouponID, &rec.StoreID, &rec.RedemptionCode,
		&rec.Status, &rec.RedeemedAt, &rec.ExpiryDate, &rec.UsedOnDate,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return rec, ErrRedemptionNotFound
	}
	return rec, err
}

// MarkUsedTx transitions a ledger entry from active to used. The
// update is conditional on the entry not already being used, so two
// concurrent transitions cannot both report success: exactly one
// caller sees marked==true, and only that caller credits points.
// used_on is written once and never overwritten.
func (r *RedemptionRepo) MarkUsedTx(ctx context.Context, tx *sql.Tx, id, userID uint64) (marked bool, err error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE redeemed_coupons SET status=?, used_on=UTC_TIMESTAMP()
		 WHERE id=? AND user_id=? AND status <> ?`,
		model.RedemptionUsed, id, userID, model.RedemptionUsed)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UserRedemptionView is a ledger entry joined with coupon title and
// store name, the shape shown on a customer's "my coupons" page.
type UserRedemptionView struct {
	ID             uint64     `json:"id"`
	Title          string     `json:"title"`
	RedemptionCode string     `json:"redemptionCode"`
	Status         string     `json:"status"`
	RedeemedAt     time.Time  `json:"redeemedAt"`
	ExpiryDate     time.Time  `json:"expiryDate"`
	UsedOnDate     *time.Time `json:"usedOnDate"`
	StoreName      string     `json:"storeName"`
}

// ListByUser returns a user's ledger entries, newest redemption first.
// Coupon titles come from the live coupons table; entries whose coupon
// was deleted keep their copied code and dates but fall back to an
// empty title via the LEFT JOIN.
func (r *RedemptionRepo) ListByUser(ctx context.Context, userID uint64) ([]UserRedemptionView, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT rc.id, COALESCE(c.title, ''), rc.redemption_code, rc.status,
		        rc.redeemed_at, rc.expiry_date, rc.used_on, s.name
		 FROM redeemed_coupons rc
		 LEFT JOIN coupons c ON c.id = rc.coupon_id
		 JOIN stores s ON s.id = rc.store_id
		 WHERE rc.user_id = ?
		 ORDER BY rc.redeemed_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]UserRedemptionView, 0)
	for rows.Next() {
		var v UserRedemptionView
		if err := rows.Scan(&v.ID, &v.Title, &v.RedemptionCode, &v.Status,
			&v.RedeemedAt, &v.ExpiryDate, &v.UsedOnDate, &v.StoreName); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// StoreRedemptionView is a ledger entry joined with the redeeming
// user's identity, the shape shown on a store's redemption dashboard.
type StoreRedemptionView struct {
	RedeemedCouponID uint64     `json:"redeemedCouponId"`
	UserID           uint64     `json:"userId"`
	Username         string     `json:"username"`
	Email            string     `json:"email"`
	CouponTitle      string     `json:"couponTitle"`
	RedemptionCode   string     `json:"redemptionCode"`
	Status           string     `json:"status"`
	RedeemedAt       time.Time  `json:"redeemedAt"`
	ExpiryDate       time.Time  `json:"expiryDate"`
	UsedOnDate       *time.Time `json:"usedOnDate"`
}

// ListByStore returns all ledger entries for a store with redeeming
// user info, newest first.
func (r *RedemptionRepo) ListByStore(ctx context.Context, storeID uint64) ([]StoreRedemptionView, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT rc.id, u.id, u.username, u.email, COALESCE(c.title, ''),
		        rc.redemption_code, rc.status, rc.redeemed_at, rc.expiry_date, rc.used_on
		 FROM redeemed_coupons rc
		 JOIN users u ON u.id = rc.user_id
		 LEFT JOIN coupons c ON c.id = rc.coupon_id
		 WHERE rc.store_id = ?
		 ORDER BY rc.redeemed_at DESC`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]StoreRedemptionView, 0)
	for rows.Next() {
		var v StoreRedemptionView
		if err := rows.Scan(&v.RedeemedCouponID, &v.UserID, &v.Username, &v.Email,
			&v.CouponTitle, &v.RedemptionCode, &v.Status, &v.RedeemedAt,
			&v.ExpiryDate, &v.UsedOnDate); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
