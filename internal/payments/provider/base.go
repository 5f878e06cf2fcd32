// SPDX-License-Identifier: MIT

// Package provider holds the gateway-independent half of a payment
// processor. Gateway packages embed Base and add signing and parameters.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zeitlabs/payfort/internal/audit"
	"github.com/zeitlabs/payfort/internal/fulfillment"
	"github.com/zeitlabs/payfort/internal/log"
	"github.com/zeitlabs/payfort/internal/payments"
)

// maxDescription is the longest order_description gateways accept.
const maxDescription = 150

// Base implements cart lookup, payment recording, invoicing and
// fulfillment on top of a payments.Store.
type Base struct {
	Slug            string
	Store           payments.Store
	Audit           *audit.Logger
	Fulfillers      *fulfillment.Registry
	InvoicePrefix   string
	Language        string
	DefaultCurrency string
	Now             func() time.Time
}

func (b *Base) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now().UTC()
}

// OrderReference is the merchant reference of a cart on a site.
func OrderReference(siteID, cartID int64) string {
	return fmt.Sprintf("%d-%d", siteID, cartID)
}

// BaseParameters returns the gateway-neutral checkout parameters.
func (b *Base) BaseParameters(cart *payments.Cart, site *payments.Site) map[string]string {
	lang := b.Language
	if lang == "" {
		lang = "en"
	}
	return map[string]string{
		"language":          lang,
		"order_reference":   OrderReference(site.ID, cart.ID),
		"amount":            strconv.FormatInt(cart.Total(), 10),
		"currency":          cart.Currency(b.DefaultCurrency),
		"user_email":        cart.User.Email,
		"order_description": describe(cart),
	}
}

func describe(cart *payments.Cart) string {
	titles := make([]string, 0, len(cart.Items))
	for _, it := range cart.Items {
		if it.Item.Title != "" {
			titles = append(titles, it.Item.Title)
		}
	}
	desc := strings.Join(titles, ", ")
	if desc == "" {
		desc = "Cart " + strconv.FormatInt(cart.ID, 10)
	}
	if r := []rune(desc); len(r) > maxDescription {
		desc = string(r[:maxDescription])
	}
	return desc
}

// GetCart resolves a cart from its textual id.
func (b *Base) GetCart(ctx context.Context, id string) (*payments.Cart, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a cart id", payments.ErrInvalidCart, id)
	}
	return b.Store.GetCart(ctx, n)
}

// GetSite resolves a site from its textual id.
func (b *Base) GetSite(ctx context.Context, id string) (*payments.Site, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a site id", payments.ErrGateway, id)
	}
	site, err := b.Store.GetSite(ctx, n)
	if errors.Is(err, payments.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown site %d", payments.ErrGateway, n)
	}
	return site, err
}

// BeginCheckout moves a pending cart to processing. A cart that is already
// processing is accepted so the buyer can reload the payment page.
func (b *Base) BeginCheckout(ctx context.Context, cart *payments.Cart) error {
	switch cart.Status {
	case payments.CartProcessing:
		return nil
	case payments.CartPending:
	default:
		return fmt.Errorf("%w: cart %d is %s", payments.ErrInvalidCart, cart.ID, cart.Status)
	}

	if err := b.Store.TransitionCart(ctx, cart.ID, payments.CartPending, payments.CartProcessing); err != nil {
		return err
	}
	old := cart.Status
	cart.Status = payments.CartProcessing

	b.Audit.Payment(ctx, audit.ActionRedirectToPayment, cart.ID, b.Slug, map[string]string{
		log.FieldOldState: string(old),
		log.FieldNewState: string(cart.Status),
	})
	return nil
}

// HandlePayment records a successful payment and marks the cart paid.
func (b *Base) HandlePayment(ctx context.Context, rec payments.PaymentRecord) (*payments.Transaction, error) {
	rec.Gateway = b.Slug
	txn, err := b.Store.RecordPayment(ctx, rec)
	if err != nil {
		return nil, err
	}
	b.Audit.Payment(ctx, audit.ActionCartStatusUpdated, rec.CartID, b.Slug, map[string]string{
		log.FieldOldState:      string(payments.CartProcessing),
		log.FieldNewState:      string(payments.CartPaid),
		log.FieldTransactionID: rec.TransactionID,
	})
	return txn, nil
}

// CreateInvoice issues the paid invoice of cart. Calling it again returns
// the existing invoice.
func (b *Base) CreateInvoice(ctx context.Context, cart *payments.Cart, txn *payments.Transaction) (*payments.Invoice, error) {
	existing, err := b.Store.InvoiceForCart(ctx, cart.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, payments.ErrNotFound) {
		return nil, err
	}

	inv := &payments.Invoice{
		CartID:        cart.ID,
		Status:        payments.InvoicePaid,
		GrossTotal:    cart.GrossTotal(),
		DiscountTotal: cart.DiscountTotal(),
		TaxTotal:      cart.TaxTotal(),
		Total:         cart.Total(),
		Currency:      cart.Currency(b.DefaultCurrency),
	}
	if txn != nil {
		id := txn.ID
		inv.TransactionID = &id
		if txn.Currency != "" {
			inv.Currency = txn.Currency
		}
	}
	if err := b.Store.CreateInvoice(ctx, inv, b.InvoicePrefix); err != nil {
		return nil, err
	}
	return inv, nil
}

// FulfillCart runs the fulfillers for every item and stamps fulfilled_at.
// Already fulfilled carts are left alone.
func (b *Base) FulfillCart(ctx context.Context, cart *payments.Cart) error {
	if cart.FulfilledAt != nil {
		return nil
	}
	if cart.Status != payments.CartPaid {
		return fmt.Errorf("%w: cart %d is %s, not paid", payments.ErrInvalidCart, cart.ID, cart.Status)
	}
	if err := b.Fulfillers.Fulfill(ctx, cart); err != nil {
		return err
	}
	at := b.now()
	if err := b.Store.MarkFulfilled(ctx, cart.ID, at); err != nil {
		return err
	}
	cart.FulfilledAt = &at
	return nil
}

// Settle invoices and fulfills a paid cart, writing cart_fulfilled or
// cart_fulfillment_error to the audit trail.
func (b *Base) Settle(ctx context.Context, cart *payments.Cart, txn *payments.Transaction) (*payments.Invoice, error) {
	inv, err := b.CreateInvoice(ctx, cart, txn)
	if err == nil {
		err = b.FulfillCart(ctx, cart)
	}
	if err != nil {
		b.Audit.Payment(ctx, audit.ActionCartFulfillmentError, cart.ID, b.Slug, map[string]string{
			"error": err.Error(),
		})
		return inv, err
	}
	b.Audit.Payment(ctx, audit.ActionCartFulfilled, cart.ID, b.Slug, map[string]string{
		log.FieldInvoice: inv.Number,
	})
	return inv, nil
}
