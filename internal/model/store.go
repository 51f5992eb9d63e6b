package model

import "time"

// Store mirrors the `stores` table. Every store belongs to exactly one
// store-role user; the owner link is what resolves "which user gets
// the ledger reference" when one of the store's coupons is redeemed.
//
// Fields:
//  ID          – primary key identifier.
//  OwnerID     – user who owns this store (unique, one store per owner).
//  Name        – display name of the store, max 50 characters.
//  LogoURL     – URL of the store logo image ("" when unset).
//  Website     – optional store website (unique when present).
//  Address     – street address.
//  City        – city, indexed for location based filters.
//  Description – free text, max 500 characters.
//  Instagram, YouTube, Twitter, Facebook – optional social links.
//  CreatedAt   – timestamp of creation.
//  UpdatedAt   – timestamp of last update.
type Store struct {
	ID          uint64    // stores.id
	OwnerID     uint64    // stores.owner_id
	Name        string    // stores.name
	LogoURL     string    // stores.logo_url
	Website     *string   // stores.website (nullable)
	Address     string    // stores.address
	City        string    // stores.city
	Description string    // stores.description
	Instagram   *string   // stores.instagram (nullable)
	YouTube     *string   // stores.youtube (nullable)
	Twitter     *string   // stores.twitter (nullable)
	Facebook    *string   // stores.facebook (nullable)
	CreatedAt   time.Time // stores.created_at
	UpdatedAt   time.Time // stores.updated_at
}
