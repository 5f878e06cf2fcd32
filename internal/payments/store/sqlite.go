// SPDX-License-Identifier: MIT

// Package store is the SQLite implementation of payments.Store.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeitlabs/payfort/internal/payments"
	"github.com/zeitlabs/payfort/internal/persistence/sqlite"
)

// SQLiteStore implements payments.Store.
type SQLiteStore struct {
	DB  *sql.DB
	now func() time.Time
}

var _ payments.Store = (*SQLiteStore)(nil)

// Open opens the database at path and applies migrations.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("payments store: migration failed: %w", err)
	}
	return &SQLiteStore{DB: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error { return s.DB.Close() }

// Ping checks connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func unix(t time.Time) int64 { return t.UnixMilli() }

func fromUnix(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetCart loads a cart with its user and items.
func (s *SQLiteStore) GetCart(ctx context.Context, id int64) (*payments.Cart, error) {
	var (
		c         payments.Cart
		fulfilled sql.NullInt64
		created   int64
		updated   int64
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT c.id, c.status, c.fulfilled_at, c.fulfillment_attempts, c.created_at, c.updated_at,
		       u.id, u.username, u.email
		FROM carts c JOIN users u ON u.id = c.user_id
		WHERE c.id = ?`, id).
		Scan(&c.ID, &c.Status, &fulfilled, &c.FulfillmentAttempts, &created, &updated,
			&c.User.ID, &c.User.Username, &c.User.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: cart %d does not exist", payments.ErrInvalidCart, id)
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = fromUnix(created)
	c.UpdatedAt = fromUnix(updated)
	if fulfilled.Valid {
		t := fromUnix(fulfilled.Int64)
		c.FulfilledAt = &t
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT ci.id, ci.original_price, ci.discount_amount, ci.tax_amount, ci.final_price,
		       i.id, i.sku, i.type, i.title, i.price, i.currency, i.course_id
		FROM cart_items ci JOIN catalogue_items i ON i.id = ci.catalogue_item_id
		WHERE ci.cart_id = ? ORDER BY ci.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		it := payments.CartItem{CartID: id}
		if err := rows.Scan(&it.ID, &it.OriginalPrice, &it.DiscountAmount, &it.TaxAmount, &it.FinalPrice,
			&it.Item.ID, &it.Item.SKU, &it.Item.Type, &it.Item.Title, &it.Item.Price, &it.Item.Currency, &it.Item.CourseID); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	return &c, rows.Err()
}

// GetSite loads a site by id.
func (s *SQLiteStore) GetSite(ctx context.Context, id int64) (*payments.Site, error) {
	var site payments.Site
	err := s.DB.QueryRowContext(ctx, `SELECT id, domain, name FROM sites WHERE id = ?`, id).
		Scan(&site.ID, &site.Domain, &site.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: site %d", payments.ErrNotFound, id)
	}
	return &site, err
}

// GetSiteByDomain loads a site by domain.
func (s *SQLiteStore) GetSiteByDomain(ctx context.Context, domain string) (*payments.Site, error) {
	var site payments.Site
	err := s.DB.QueryRowContext(ctx, `SELECT id, domain, name FROM sites WHERE domain = ?`, domain).
		Scan(&site.ID, &site.Domain, &site.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: site %q", payments.ErrNotFound, domain)
	}
	return &site, err
}

// TransitionCart performs a compare-and-set on the cart status.
func (s *SQLiteStore) TransitionCart(ctx context.Context, id int64, from, to payments.CartStatus) error {
	res, err := s.DB.ExecContext(ctx,
		`UPDATE carts SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, unix(s.now()), id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: cart %d is not %s", payments.ErrInvalidCart, id, from)
	}
	return nil
}

// RecordPayment inserts the transaction and webhook event and marks the cart
// paid in one database transaction.
func (s *SQLiteStore) RecordPayment(ctx context.Context, rec payments.PaymentRecord) (*payments.Transaction, error) {
	response, err := json.Marshal(rec.Response)
	if err != nil {
		return nil, fmt.Errorf("encode gateway response: %w", err)
	}
	now := s.now()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM transactions WHERE gateway = ? AND gateway_transaction_id = ?`,
		rec.Gateway, rec.TransactionID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists > 0 {
		return nil, fmt.Errorf("%w: %s/%s", payments.ErrDuplicateTransaction, rec.Gateway, rec.TransactionID)
	}

	cartID := rec.CartID
	txn := &payments.Transaction{
		CartID:               &cartID,
		UserID:               rec.UserID,
		Type:                 payments.TransactionPayment,
		Status:               rec.TransactionStatus,
		Gateway:              rec.Gateway,
		GatewayTransactionID: rec.TransactionID,
		Amount:               rec.Amount,
		Currency:             rec.Currency,
		Method:               rec.Method,
		Reason:               rec.Reason,
		Response:             rec.Response,
		CreatedAt:            now,
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (cart_id, user_id, type, status, gateway, gateway_transaction_id,
		                          amount, currency, method, reason, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cartID, rec.UserID, txn.Type, txn.Status, txn.Gateway, txn.GatewayTransactionID,
		txn.Amount, txn.Currency, txn.Method, txn.Reason, string(response), unix(now))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: %s/%s", payments.ErrDuplicateTransaction, rec.Gateway, rec.TransactionID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	if txn.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}

	if rec.RecordWebhookEvent {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO webhook_events (gateway, event_type, payload, created_at) VALUES (?, ?, ?, ?)`,
			rec.Gateway, payments.EventDirectFeedback, string(response), unix(now)); err != nil {
			return nil, fmt.Errorf("insert webhook event: %w", err)
		}
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE carts SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		payments.CartPaid, unix(now), cartID, payments.CartProcessing)
	if err != nil {
		return nil, fmt.Errorf("mark cart paid: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("%w: cart %d", payments.ErrCartNotProcessing, cartID)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return txn, nil
}

const invoiceColumns = `id, COALESCE(invoice_number, ''), cart_id, status, gross_total, discount_total,
	tax_total, total, currency, transaction_id, created_at`

func scanInvoice(row interface{ Scan(...any) error }) (*payments.Invoice, error) {
	var (
		inv     payments.Invoice
		txnID   sql.NullInt64
		created int64
	)
	if err := row.Scan(&inv.ID, &inv.Number, &inv.CartID, &inv.Status, &inv.GrossTotal, &inv.DiscountTotal,
		&inv.TaxTotal, &inv.Total, &inv.Currency, &txnID, &created); err != nil {
		return nil, err
	}
	if txnID.Valid {
		id := txnID.Int64
		inv.TransactionID = &id
	}
	inv.CreatedAt = fromUnix(created)
	return &inv, nil
}

// InvoiceForCart returns the invoice of a cart or payments.ErrNotFound.
func (s *SQLiteStore) InvoiceForCart(ctx context.Context, cartID int64) (*payments.Invoice, error) {
	inv, err := scanInvoice(s.DB.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE cart_id = ?`, cartID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: invoice for cart %d", payments.ErrNotFound, cartID)
	}
	return inv, err
}

// CreateInvoice inserts inv and numbers it "<prefix>-<id>". inv is updated in
// place with its id, number and creation time.
func (s *SQLiteStore) CreateInvoice(ctx context.Context, inv *payments.Invoice, prefix string) error {
	now := s.now()
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO invoices (cart_id, status, gross_total, discount_total, tax_total, total, currency, transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.CartID, inv.Status, inv.GrossTotal, inv.DiscountTotal, inv.TaxTotal, inv.Total, inv.Currency,
		inv.TransactionID, unix(now))
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	number := fmt.Sprintf("%s-%d", prefix, id)
	if _, err := tx.ExecContext(ctx, `UPDATE invoices SET invoice_number = ? WHERE id = ?`, number, id); err != nil {
		return fmt.Errorf("number invoice: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	inv.ID, inv.Number, inv.CreatedAt = id, number, now
	return nil
}

// FindPaidInvoice returns the paid invoice of a cart whose transaction has
// the given gateway id.
func (s *SQLiteStore) FindPaidInvoice(ctx context.Context, cartID int64, gatewayTransactionID string) (*payments.Invoice, error) {
	inv, err := scanInvoice(s.DB.QueryRowContext(ctx, `
		SELECT i.id, COALESCE(i.invoice_number, ''), i.cart_id, i.status, i.gross_total, i.discount_total,
		       i.tax_total, i.total, i.currency, i.transaction_id, i.created_at
		FROM invoices i JOIN transactions t ON t.id = i.transaction_id
		WHERE i.cart_id = ? AND i.status = ? AND t.gateway_transaction_id = ?
		ORDER BY i.id LIMIT 1`, cartID, payments.InvoicePaid, gatewayTransactionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: paid invoice for cart %d", payments.ErrNotFound, cartID)
	}
	return inv, err
}

// TransactionForCart returns the latest payment a gateway recorded for a cart.
func (s *SQLiteStore) TransactionForCart(ctx context.Context, cartID int64, gateway string) (*payments.Transaction, error) {
	var (
		t        payments.Transaction
		cid      sql.NullInt64
		uid      sql.NullInt64
		response string
		created  int64
	)
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, cart_id, user_id, type, status, gateway, gateway_transaction_id, amount, currency,
		       method, reason, response, created_at
		FROM transactions WHERE cart_id = ? AND gateway = ? AND type = ?
		ORDER BY id DESC LIMIT 1`, cartID, gateway, payments.TransactionPayment).
		Scan(&t.ID, &cid, &uid, &t.Type, &t.Status, &t.Gateway, &t.GatewayTransactionID, &t.Amount,
			&t.Currency, &t.Method, &t.Reason, &response, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: transaction for cart %d", payments.ErrNotFound, cartID)
	}
	if err != nil {
		return nil, err
	}
	if cid.Valid {
		v := cid.Int64
		t.CartID = &v
	}
	if uid.Valid {
		v := uid.Int64
		t.UserID = &v
	}
	if err := json.Unmarshal([]byte(response), &t.Response); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	t.CreatedAt = fromUnix(created)
	return &t, nil
}

// MarkFulfilled stamps fulfilled_at on a cart.
func (s *SQLiteStore) MarkFulfilled(ctx context.Context, cartID int64, at time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE carts SET fulfilled_at = ?, updated_at = ? WHERE id = ?`, unix(at), unix(s.now()), cartID)
	return err
}

// ListUnfulfilledPaidCarts returns ids of paid carts that were never
// fulfilled and are not deferred. Carts with fewer failed attempts come
// first so a permanently failing cart cannot starve the rest.
func (s *SQLiteStore) ListUnfulfilledPaidCarts(ctx context.Context, limit int) ([]int64, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id FROM carts
		WHERE status = ? AND fulfilled_at IS NULL
		  AND (next_fulfillment_at IS NULL OR next_fulfillment_at <= ?)
		ORDER BY fulfillment_attempts, updated_at, id
		LIMIT ?`,
		payments.CartPaid, unix(s.now()), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeferFulfillment bumps fulfillment_attempts and parks the cart until next.
func (s *SQLiteStore) DeferFulfillment(ctx context.Context, cartID int64, next time.Time) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE carts SET fulfillment_attempts = fulfillment_attempts + 1, next_fulfillment_at = ?
		WHERE id = ? AND fulfilled_at IS NULL`, unix(next), cartID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: cart %d is not awaiting fulfillment", payments.ErrInvalidCart, cartID)
	}
	return nil
}

// CreateEnrollment upserts an enrollment.
func (s *SQLiteStore) CreateEnrollment(ctx context.Context, e payments.Enrollment) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO enrollments (user_id, course_id, mode, cart_id, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, course_id) DO UPDATE SET mode = excluded.mode, cart_id = excluded.cart_id`,
		e.UserID, e.CourseID, e.Mode, e.CartID, unix(e.CreatedAt))
	return err
}

// Enrollments lists the enrollments of a user.
func (s *SQLiteStore) Enrollments(ctx context.Context, userID int64) ([]payments.Enrollment, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT user_id, course_id, mode, cart_id, created_at FROM enrollments WHERE user_id = ? ORDER BY course_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []payments.Enrollment
	for rows.Next() {
		var (
			e  payments.Enrollment
			ts int64
		)
		if err := rows.Scan(&e.UserID, &e.CourseID, &e.Mode, &e.CartID, &ts); err != nil {
			return nil, err
		}
		e.CreatedAt = fromUnix(ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountWebhookEvents returns the number of recorded events of a type.
func (s *SQLiteStore) CountWebhookEvents(ctx context.Context, gateway, eventType string) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM webhook_events WHERE gateway = ? AND event_type = ?`, gateway, eventType).Scan(&n)
	return n, err
}
