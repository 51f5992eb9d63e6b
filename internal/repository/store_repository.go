package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nammaooru/offers-api/internal/model"
)

// StoreRepo provides CRUD operations for stores. A store-role user may
// own at most one store; the unique index on stores.owner_id enforces
// that regardless of request interleaving.
type StoreRepo struct{ DB *sql.DB }

func NewStoreRepo(db *sql.DB) *StoreRepo { return &StoreRepo{DB: db} }

var (
	ErrStoreNotFound = errors.New("store not found")
	ErrStoreExists   = errors.New("store already exists for this user")
)

const storeColumns = `id, owner_id, name, logo_url, website, address, city, description,
	instagram, youtube, twitter, facebook, created_at, updated_at`

// Create inserts a store for the given owner and returns its ID.
func (r *StoreRepo) Create(ctx context.Context, s *model.Store) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO stores
		 (owner_id, name, logo_url, website, address, city, description,
		  instagram, youtube, twitter, facebook)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		s.OwnerID, s.Name, s.LogoURL, s.Website, s.Address, s.City, s.Description,
		s.Instagram, s.YouTube, s.Twitter, s.Facebook)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, ErrStoreExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.ID = uint64(id)
	return s.ID, nil
}

// UpdateByOwner applies new values to the caller's store. Returns
// ErrStoreNotFound when the owner has no store yet.
func (r *StoreRepo) UpdateByOwner(ctx context.Context, s *model.Store) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE stores SET name=?, logo_url=?, website=?, address=?, city=?, description=?,
		  instagram=?, youtube=?, twitter=?, facebook=?
		 WHERE owner_id=?`,
		s.Name, s.LogoURL, s.Website, s.Address, s.City, s.Description,
		s.Instagram, s.YouTube, s.Twitter, s.Facebook, s.OwnerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Distinguish "no store" from "no change".
		var id uint64
		if err := r.DB.QueryRowContext(ctx,
			`SELECT id FROM stores WHERE owner_id=?`, s.OwnerID).Scan(&id); err != nil {
			if err == sql.ErrNoRows {
				return ErrStoreNotFound
			}
			return err
		}
	}
	return nil
}

// GetByOwner fetches the store owned by a user.
func (r *StoreRepo) GetByOwner(ctx context.Context, ownerID uint64) (model.Store, error) {
	return r.scanOne(ctx, `SELECT `+storeColumns+` FROM stores WHERE owner_id=? LIMIT 1`, ownerID)
}

// GetByID fetches a store by id.
func (r *StoreRepo) GetByID(ctx context.Context, id uint64) (model.Store, error) {
	return r.scanOne(ctx, `SELECT `+storeColumns+` FROM stores WHERE id=? LIMIT 1`, id)
}

func (r *StoreRepo) scanOne(ctx context.Context, q string, arg interface{}) (model.Store, error) {
	var s model.Store
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(
		&s.ID, &s.OwnerID, &s.Name, &s.LogoURL, &s.Website, &s.Address, &s.City,
		&s.Description, &s.Instagram, &s.YouTube, &s.Twitter, &s.Facebook,
		&s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return s, ErrStoreNotFound
	}
	return s, err
}

// OwnerID resolves the owning user of a store. Used by the redemption
// flow to attribute ledger entries to the store owner.
func (r *StoreRepo) OwnerID(ctx context.Context, storeID uint64) (uint64, error) {
	var owner uint64
	err := r.DB.QueryRowContext(ctx, `SELECT owner_id FROM stores WHERE id=?`, storeID).Scan(&owner)
	if err == sql.ErrNoRows {
		return 0, ErrStoreNotFound
	}
	return owner, err
}

// StoreListing is a store joined with its owner's public identity, as
// returned by the public store list.
type StoreListing struct {
	ID            uint64  `json:"id"`
	Name          string  `json:"storeName"`
	LogoURL       string  `json:"storeLogo"`
	Website       *string `json:"storeWebsite,omitempty"`
	Address       string  `json:"storeAddress"`
	City          string  `json:"storeCity"`
	Description   string  `json:"storeDescription,omitempty"`
	OwnerUsername string  `json:"ownerUsername"`
	OwnerEmail    string  `json:"ownerEmail"`
}

// ListAll returns every store with its owner's username and email,
// newest first.
func (r *StoreRepo) ListAll(ctx context.Context) ([]StoreListing, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT s.id, s.name, s.logo_url, s.website, s.address, s.city, s.description,
		        u.username, u.email
		 FROM stores s
		 JOIN users u ON u.id = s.owner_id
		 ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]StoreListing, 0)
	for rows.Next() {
		var l StoreListing
		if err := rows.Scan(&l.ID, &l.Name, &l.LogoURL, &l.Website, &l.Address,
			&l.City, &l.Description, &l.OwnerUsername, &l.OwnerEmail); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
