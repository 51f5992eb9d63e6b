package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/nammaooru/offers-api/internal/model"
)

// CouponRepo provides CRUD operations for coupons. Coupons belong to a
// store and carry a globally unique redemption code; the unique index
// on coupons.redemption_code turns a duplicate code into ErrCodeTaken.
type CouponRepo struct{ DB *sql.DB }

func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{DB: db} }

var (
	ErrCouponNotFound = errors.New("coupon not found")
	ErrCodeTaken      = errors.New("redemption code already in use")
)

// Create inserts a coupon and returns its ID. Categories and terms are
// packed as JSON arrays.
func (r *CouponRepo) Create(ctx context.Context, c *model.Coupon) (uint64, error) {
	cats, err := json.Marshal(c.Categories)
	if err != nil {
		return 0, err
	}
	terms, err := json.Marshal(c.Terms)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO coupons
		 (store_id, created_by, title, description, min_purchase, expiry_date,
		  issued_date, usage_limit, redemption_code, categories, terms, background_image)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.StoreID, c.CreatedBy, c.Title, c.Description, c.MinPurchase, c.ExpiryDate,
		c.IssuedDate, c.UsageLimit, c.RedemptionCode, cats, terms, c.BackgroundImage)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrCodeTaken
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	c.ID = uint64(id)
	return c.ID, nil
}

const couponColumns = `id, store_id, created_by, title, description, min_purchase,
	expiry_date, issued_date, usage_limit, redemption_code, categories, terms,
	background_image, created_at, updated_at`

// GetByID fetches a coupon by id. Returns ErrCouponNotFound when absent.
func (r *CouponRepo) GetByID(ctx context.Context, id uint64) (model.Coupon, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id=? LIMIT 1`, id)
	return scanCoupon(row)
}

// GetByStoreAndID fetches a coupon only when it belongs to the given store.
func (r *CouponRepo) GetByStoreAndID(ctx context.Context, storeID, couponID uint64) (model.Coupon, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE id=? AND store_id=? LIMIT 1`, couponID, storeID)
	return scanCoupon(row)
}

type rowScanner interface{ Scan(dest ...interface{}) error }

func scanCoupon(row rowScanner) (model.Coupon, error) {
	var c model.Coupon
	var cats, terms []byte
	err := row.Scan(&c.ID, &c.StoreID, &c.CreatedBy, &c.Title, &c.Description,
		&c.MinPurchase, &c.ExpiryDate, &c.IssuedDate, &c.UsageLimit, &c.RedemptionCode,
		&cats, &terms, &c.BackgroundImage, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return c, ErrCouponNotFound
		}
		return c, err
	}
	if len(cats) > 0 {
		if err := json.Unmarshal(cats, &c.Categories); err != nil {
			return c, err
		}
	}
	if len(terms) > 0 {
		if err := json.Unmarshal(terms, &c.Terms); err != nil {
			return c, err
		}
	}
	return c, nil
}

// Update rewrites the mutable fields of a coupon. The caller is
// responsible for the ownership check (handler compares store IDs
// before calling).
func (r *CouponRepo) Update(ctx context.Context, c *model.Coupon) error {
	cats, err := json.Marshal(c.Categories)
	if err != nil {
		return err
	}
	terms, err := json.Marshal(c.Terms)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`UPDATE coupons SET title=?, description=?, min_purchase=?, expiry_date=?,
		  usage_limit=?, redemption_code=?, categories=?, terms=?, background_image=?
		 WHERE id=?`,
		c.Title, c.Description, c.MinPurchase, c.ExpiryDate,
		c.UsageLimit, c.RedemptionCode, cats, terms, c.BackgroundImage, c.ID)
	if isDuplicateKey(err) {
		return ErrCodeTaken
	}
	return err
}

// Delete removes a coupon. Redemption ledger rows referencing it are
// kept; the ledger copies what it needs at redemption time.
func (r *CouponRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM coupons WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCouponNotFound
	}
	return nil
}

// CouponCard is a coupon joined with the public subset of its store's
// profile, the shape browsed by customers.
type CouponCard struct {
	ID              uint64    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description,omitempty"`
	MinPurchase     float64   `json:"minPurchase"`
	ExpiryDate      time.Time `json:"expiryDate"`
	IssuedDate      time.Time `json:"issuedDate"`
	UsageLimit      uint32    `json:"usageLimit"`
	RedemptionCode  string    `json:"redemptionCode"`
	Categories      []string  `json:"categories"`
	Terms           []string  `json:"terms"`
	BackgroundImage string    `json:"backgroundImage,omitempty"`
	StoreID         uint64    `json:"storeId"`
	StoreName       string    `json:"storeName"`
	StoreCity       string    `json:"storeCity"`
	StoreLogo       string    `json:"storeLogo,omitempty"`
	StoreWebsite    *string   `json:"storeWebsite,omitempty"`
}

const cardSelect = `SELECT c.id, c.title, c.description, c.min_purchase, c.expiry_date,
	c.issued_date, c.usage_limit, c.redemption_code, c.categories, c.terms,
	c.background_image, s.id, s.name, s.city, s.logo_url, s.website
	FROM coupons c
	JOIN stores s ON s.id = c.store_id`

func scanCards(rows *sql.Rows) ([]CouponCard, error) {
	defer rows.Close()
	out := make([]CouponCard, 0)
	for rows.Next() {
		var card CouponCard
		var cats, terms []byte
		if err := rows.Scan(&card.ID, &card.Title, &card.Description, &card.MinPurchase,
			&card.ExpiryDate, &card.IssuedDate, &card.UsageLimit, &card.RedemptionCode,
			&cats, &terms, &card.BackgroundImage,
			&card.StoreID, &card.StoreName, &card.StoreCity, &card.StoreLogo, &card.StoreWebsite); err != nil {
			return nil, err
		}
		card.Categories = []string{}
		card.Terms = []string{}
		if len(cats) > 0 {
			if err := json.Unmarshal(cats, &card.Categories); err != nil {
				return nil, err
			}
		}
		if len(terms) > 0 {
			if err := json.Unmarshal(terms, &card.Terms); err != nil {
				return nil, err
			}
		}
		out = append(out, card)
	}
	return out, rows.Err()
}

// ListPublic returns unexpired coupons with store info, paginated.
// Page numbers start at 1.
func (r *CouponRepo) ListPublic(ctx context.Context, page, limit int) ([]CouponCard, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}
	rows, err := r.DB.QueryContext(ctx,
		cardSelect+` WHERE c.expiry_date > UTC_TIMESTAMP()
		 ORDER BY c.created_at DESC LIMIT ? OFFSET ?`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	return scanCards(rows)
}

// ListByStore returns all coupons of one store, newest first.
func (r *CouponRepo) ListByStore(ctx context.Context, storeID uint64) ([]CouponCard, error) {
	rows, err := r.DB.QueryContext(ctx,
		cardSelect+` WHERE c.store_id = ? ORDER BY c.created_at DESC`, storeID)
	if err != nil {
		return nil, err
	}
	return scanCards(rows)
}

// GetCard fetches one coupon joined with store info for public detail
// pages.
func (r *CouponRepo) GetCard(ctx context.Context, couponID uint64) (CouponCard, error) {
	rows, err := r.DB.QueryContext(ctx, cardSelect+` WHERE c.id = ? LIMIT 1`, couponID)
	if err != nil {
		return CouponCard{}, err
	}
	cards, err := scanCards(rows)
	if err != nil {
		return CouponCard{}, err
	}
	if len(cards) == 0 {
		return CouponCard{}, ErrCouponNotFound
	}
	return cards[0], nil
}

// UsageInfoTx loads a coupon's usage limit and owning store inside a
// transaction, locking the coupon row. The redemption flow holds this
// lock across its duplicate and usage-limit checks so two concurrent
// redemptions of the same coupon serialize instead of both passing the
// count check.
func (r *CouponRepo) UsageInfoTx(ctx context.Context, tx *sql.Tx, couponID uint64) (usageLimit uint32, storeID uint64, err error) {
	err = tx.QueryRowContext(ctx,
		`SELECT usage_limit, store_id FROM coupons WHERE id=? FOR UPDATE`, couponID).
		Scan(&usageLimit, &storeID)
	if err == sql.ErrNoRows {
		return 0, 0, ErrCouponNotFound
	}
	return usageLimit, storeID, err
}
