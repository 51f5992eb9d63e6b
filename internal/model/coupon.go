package model

import "time"

// Coupon mirrors the `coupons` table. A coupon is a store-issued offer
// with a globally unique redemption code and a usage limit that caps
// the total number of redemptions across all users.
//
// Categories and Terms are stored as JSON arrays in their columns and
// unmarshalled by the repository layer.
//
// Fields:
//  ID              – primary key identifier.
//  StoreID         – owning store.
//  CreatedBy       – user (store owner) who created the coupon (nullable).
//  Title           – required, max 100 characters.
//  Description     – optional, max 500 characters.
//  MinPurchase     – minimum purchase amount to qualify, >= 0.
//  ExpiryDate      – when the coupon stops being redeemable.
//  IssuedDate      – when the coupon was issued (defaults to creation time).
//  UsageLimit      – maximum total redemptions, >= 1.
//  RedemptionCode  – globally unique, stored upper-cased.
//  Categories      – set of category labels.
//  Terms           – ordered list of terms and conditions.
//  BackgroundImage – URL of the card background image ("" when unset).
//  CreatedAt       – timestamp of creation.
//  UpdatedAt       – timestamp of last update.
type Coupon struct {
	ID              uint64    // coupons.id
	StoreID         uint64    // coupons.store_id
	CreatedBy       *uint64   // coupons.created_by (nullable)
	Title           string    // coupons.title
	Description     string    // coupons.description
	MinPurchase     float64   // coupons.min_purchase
	ExpiryDate      time.Time // coupons.expiry_date
	IssuedDate      time.Time // coupons.issued_date
	UsageLimit      uint32    // coupons.usage_limit
	RedemptionCode  string    // coupons.redemption_code
	Categories      []string  // coupons.categories (JSON)
	Terms           []string  // coupons.terms (JSON)
	BackgroundImage string    // coupons.background_image
	CreatedAt       time.Time // coupons.created_at
	UpdatedAt       time.Time // coupons.updated_at
}
