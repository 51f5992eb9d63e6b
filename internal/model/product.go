package model

import "time"

// Product mirrors the `products` table. Products are listed by stores
// alongside their coupons; FinalPrice is derived from Price and
// Discount on every write rather than stored by the client.
type Product struct {
	ID          uint64    // products.id
	StoreID     uint64    // products.store_id
	CreatedBy   *uint64   // products.created_by (nullable)
	Name        string    // products.name
	Brand       string    // products.brand
	Category    string    // products.category
	Subcategory string    // products.subcategory
	Description string    // products.description
	Price       float64   // products.price
	Discount    float64   // products.discount (percent, 0..100)
	FinalPrice  float64   // products.final_price (derived)
	Stock       int64     // products.stock
	SKU         *string   // products.sku (unique, nullable)
	IsPublished bool      // products.is_published
	CreatedAt   time.Time // products.created_at
	UpdatedAt   time.Time // products.updated_at
}

// FinalPrice applies a percentage discount to a price, rounding the
// way the storefront displays prices (two decimals).
func FinalPrice(price, discount float64) float64 {
	if price < 0 {
		price = 0
	}
	if discount < 0 {
		discount = 0
	}
	if discount > 100 {
		discount = 100
	}
	v := price - price*discount/100
	return float64(int64(v*100+0.5)) / 100
}
