package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/nammaooru/offers-api/internal/model"
)

// ProductRepo provides CRUD operations for store products.
type ProductRepo struct{ DB *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{DB: db} }

var (
	ErrProductNotFound = errors.New("product not found")
	ErrSKUTaken        = errors.New("sku already in use")
)

const productColumns = `id, store_id, created_by, name, brand, category, subcategory,
	description, price, discount, final_price, stock, sku, is_published,
	created_at, updated_at`

// Create inserts a product and returns its ID. FinalPrice is derived
// here so clients cannot write an inconsistent value.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) (uint64, error) {
	p.FinalPrice = model.FinalPrice(p.Price, p.Discount)
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO products
		 (store_id, created_by, name, brand, category, subcategory, description,
		  price, discount, final_price, stock, sku, is_published)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.StoreID, p.CreatedBy, p.Name, p.Brand, p.Category, p.Subcategory,
		p.Description, p.Price, p.Discount, p.FinalPrice, p.Stock, p.SKU, p.IsPublished)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrSKUTaken
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = uint64(id)
	return p.ID, nil
}

// GetByID fetches a product by id.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (model.Product, error) {
	var p model.Product
	err := r.DB.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id=? LIMIT 1`, id).Scan(
		&p.ID, &p.StoreID, &p.CreatedBy, &p.Name, &p.Brand, &p.Category, &p.Subcategory,
		&p.Description, &p.Price, &p.Discount, &p.FinalPrice, &p.Stock, &p.SKU,
		&p.IsPublished, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrProductNotFound
	}
	return p, err
}

// Update rewrites the mutable fields of a product, re-deriving
// final_price. Ownership is checked in the handler.
func (r *ProductRepo) Update(ctx context.Context, p *model.Product) error {
	p.FinalPrice = model.FinalPrice(p.Price, p.Discount)
	_, err := r.DB.ExecContext(ctx,
		`UPDATE products SET name=?, brand=?, category=?, subcategory=?, description=?,
		  price=?, discount=?, final_price=?, stock=?, sku=?, is_published=?
		 WHERE id=?`,
		p.Name, p.Brand, p.Category, p.Subcategory, p.Description,
		p.Price, p.Discount, p.FinalPrice, p.Stock, p.SKU, p.IsPublished, p.ID)
	if isDuplicateKey(err) {
		return ErrSKUTaken
	}
	return err
}

// Delete removes a product.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM products WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

// PublicFilter narrows the public product list. Zero values mean "no
// constraint"; Search matches name and brand with a LIKE pattern.
type PublicFilter struct {
	Search   string
	Category string
	Brand    string
	MinPrice float64
	MaxPrice float64
	Page     int
	Limit    int
}

// ListPublic returns published products matching the filter, newest
// first, paginated.
func (r *ProductRepo) ListPublic(ctx context.Context, f PublicFilter) ([]model.Product, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}
	var sb strings.Builder
	sb.WriteString(`SELECT ` + productColumns + ` FROM products WHERE is_published=1`)
	args := make([]interface{}, 0, 8)
	if f.Search != "" {
		sb.WriteString(` AND (name LIKE ? OR brand LIKE ?)`)
		pat := "%" + f.Search + "%"
		args = append(args, pat, pat)
	}
	if f.Category != "" {
		sb.WriteString(` AND category=?`)
		args = append(args, f.Category)
	}
	if f.Brand != "" {
		sb.WriteString(` AND brand=?`)
		args = append(args, f.Brand)
	}
	if f.MinPrice > 0 {
		sb.WriteString(` AND final_price >= ?`)
		args = append(args, f.MinPrice)
	}
	if f.MaxPrice > 0 {
		sb.WriteString(` AND final_price <= ?`)
		args = append(args, f.MaxPrice)
	}
	sb.WriteString(` ORDER BY created_at DESC LIMIT ? OFFSET ?`)
	args = append(args, f.Limit, (f.Page-1)*f.Limit)

	rows, err := r.DB.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

// ListByStore returns all products of one store, drafts included.
func (r *ProductRepo) ListByStore(ctx context.Context, storeID uint64) ([]model.Product, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE store_id=? ORDER BY created_at DESC`, storeID)
	if err != nil {
		return nil, err
	}
	return scanProducts(rows)
}

func scanProducts(rows *sql.Rows) ([]model.Product, error) {
	defer rows.Close()
	out := make([]model.Product, 0)
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.StoreID, &p.CreatedBy, &p.Name, &p.Brand,
			&p.Category, &p.Subcategory, &p.Description, &p.Price, &p.Discount,
			&p.FinalPrice, &p.Stock, &p.SKU, &p.IsPublished, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
