// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"

	"github.com/zeitlabs/payfort/internal/payments"
)

// Catalogue management. Carts are normally created by the storefront; these
// helpers back the admin CLI and tests.

// CreateUser inserts a user and returns it with its id.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, email string) (*payments.User, error) {
	res, err := s.DB.ExecContext(ctx, `INSERT INTO users (username, email) VALUES (?, ?)`, username, email)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &payments.User{ID: id, Username: username, Email: email}, nil
}

// CreateSite inserts a site.
func (s *SQLiteStore) CreateSite(ctx context.Context, domain, name string) (*payments.Site, error) {
	res, err := s.DB.ExecContext(ctx, `INSERT INTO sites (domain, name) VALUES (?, ?)`, domain, name)
	if err != nil {
		return nil, fmt.Errorf("create site: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &payments.Site{ID: id, Domain: domain, Name: name}, nil
}

// CreateCatalogueItem inserts item and sets its id.
func (s *SQLiteStore) CreateCatalogueItem(ctx context.Context, item *payments.CatalogueItem) error {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO catalogue_items (sku, type, title, price, currency, course_id) VALUES (?, ?, ?, ?, ?, ?)`,
		item.SKU, item.Type, item.Title, item.Price, item.Currency, item.CourseID)
	if err != nil {
		return fmt.Errorf("create catalogue item: %w", err)
	}
	item.ID, err = res.LastInsertId()
	return err
}

// CreateCart inserts an empty cart for a user.
func (s *SQLiteStore) CreateCart(ctx context.Context, userID int64, status payments.CartStatus) (int64, error) {
	now := unix(s.now())
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO carts (user_id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		userID, status, now, now)
	if err != nil {
		return 0, fmt.Errorf("create cart: %w", err)
	}
	return res.LastInsertId()
}

// AddCartItem adds a priced line to a cart.
func (s *SQLiteStore) AddCartItem(ctx context.Context, cartID int64, item payments.CartItem) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO cart_items (cart_id, catalogue_item_id, original_price, discount_amount, tax_amount, final_price)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cartID, item.Item.ID, item.OriginalPrice, item.DiscountAmount, item.TaxAmount, item.FinalPrice)
	if err != nil {
		return fmt.Errorf("add cart item: %w", err)
	}
	return nil
}

// DeleteCatalogueCourse clears the course of an item, leaving it unfulfillable.
func (s *SQLiteStore) DeleteCatalogueCourse(ctx context.Context, itemID int64) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE catalogue_items SET course_id = '' WHERE id = ?`, itemID)
	return err
}

// CartSeed describes a single-item cart to create with SeedCart. Existing
// users, sites and catalogue items are reused by their natural keys.
type CartSeed struct {
	Username   string
	Email      string
	SiteDomain string
	SKU        string
	CourseID   string
	Price      int64
	Currency   string
	Status     payments.CartStatus
}

// Seeded is what SeedCart created or reused.
type Seeded struct {
	User   payments.User
	Site   payments.Site
	Item   payments.CatalogueItem
	CartID int64
}

// DefaultCartSeed returns a processing cart with one paid course.
func DefaultCartSeed() CartSeed {
	return CartSeed{
		Username:   "buyer",
		Email:      "buyer@example.com",
		SiteDomain: "test.com",
		SKU:        "custom-sku-1",
		CourseID:   "course-v1:zeitlabs+PF101+2025",
		Price:      150,
		Currency:   "SAR",
		Status:     payments.CartProcessing,
	}
}

// SeedCart creates a cart from seed.
func (s *SQLiteStore) SeedCart(ctx context.Context, seed CartSeed) (*Seeded, error) {
	out := &Seeded{}

	if _, err := s.DB.ExecContext(ctx,
		`INSERT INTO users (username, email) VALUES (?, ?) ON CONFLICT (username) DO NOTHING`,
		seed.Username, seed.Email); err != nil {
		return nil, fmt.Errorf("seed user: %w", err)
	}
	if err := s.DB.QueryRowContext(ctx, `SELECT id, username, email FROM users WHERE username = ?`, seed.Username).
		Scan(&out.User.ID, &out.User.Username, &out.User.Email); err != nil {
		return nil, err
	}

	if _, err := s.DB.ExecContext(ctx,
		`INSERT INTO sites (domain, name) VALUES (?, ?) ON CONFLICT (domain) DO NOTHING`,
		seed.SiteDomain, seed.SiteDomain); err != nil {
		return nil, fmt.Errorf("seed site: %w", err)
	}
	site, err := s.GetSiteByDomain(ctx, seed.SiteDomain)
	if err != nil {
		return nil, err
	}
	out.Site = *site

	if _, err := s.DB.ExecContext(ctx, `
		INSERT INTO catalogue_items (sku, type, title, price, currency, course_id) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (sku) DO NOTHING`,
		seed.SKU, payments.ItemPaidCourse, seed.SKU, seed.Price, seed.Currency, seed.CourseID); err != nil {
		return nil, fmt.Errorf("seed catalogue item: %w", err)
	}
	if err := s.DB.QueryRowContext(ctx,
		`SELECT id, sku, type, title, price, currency, course_id FROM catalogue_items WHERE sku = ?`, seed.SKU).
		Scan(&out.Item.ID, &out.Item.SKU, &out.Item.Type, &out.Item.Title, &out.Item.Price, &out.Item.Currency, &out.Item.CourseID); err != nil {
		return nil, err
	}

	status := seed.Status
	if status == "" {
		status = payments.CartPending
	}
	if out.CartID, err = s.CreateCart(ctx, out.User.ID, status); err != nil {
		return nil, err
	}
	if err := s.AddCartItem(ctx, out.CartID, payments.CartItem{
		Item:          out.Item,
		OriginalPrice: out.Item.Price,
		FinalPrice:    out.Item.Price,
	}); err != nil {
		return nil, err
	}
	return out, nil
}
