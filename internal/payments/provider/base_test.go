// SPDX-License-Identifier: MIT

package provider

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeitlabs/payfort/internal/audit"
	"github.com/zeitlabs/payfort/internal/fulfillment"
	"github.com/zeitlabs/payfort/internal/payments"
	"github.com/zeitlabs/payfort/internal/payments/store"
)

type fixture struct {
	base    *Base
	store   *store.SQLiteStore
	journal *audit.Journal
	seeded  *store.Seeded
}

func newFixture(t *testing.T, status payments.CartStatus) *fixture {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "payments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	j, err := audit.OpenInMemoryJournal()
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	seed := store.DefaultCartSeed()
	seed.Status = status
	seeded, err := s.SeedCart(ctx, seed)
	require.NoError(t, err)

	al := audit.NewLogger(j)
	reg := fulfillment.NewRegistry()
	reg.Register(payments.ItemPaidCourse, &fulfillment.CourseEnroller{Store: s, Audit: al, Gateway: "payfort"})

	return &fixture{
		base: &Base{
			Slug:            "payfort",
			Store:           s,
			Audit:           al,
			Fulfillers:      reg,
			InvoicePrefix:   "INV",
			DefaultCurrency: "USD",
			Now:             func() time.Time { return time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC) },
		},
		store:   s,
		journal: j,
		seeded:  seeded,
	}
}

func (f *fixture) count(t *testing.T, action audit.Action) int {
	t.Helper()
	n, err := f.journal.Count(context.Background(), audit.Filter{CartID: f.seeded.CartID, Action: action})
	require.NoError(t, err)
	return n
}

func TestBaseParameters(t *testing.T) {
	f := newFixture(t, payments.CartProcessing)
	cart, err := f.base.GetCart(context.Background(), "1")
	require.NoError(t, err)

	params := f.base.BaseParameters(cart, &f.seeded.Site)
	assert.Equal(t, map[string]string{
		"language":          "en",
		"order_reference":   OrderReference(f.seeded.Site.ID, cart.ID),
		"amount":            "150",
		"currency":          "SAR",
		"user_email":        "buyer@example.com",
		"order_description": "custom-sku-1",
	}, params)
}

func TestDescribeTruncates(t *testing.T) {
	cart := &payments.Cart{ID: 3, Items: []payments.CartItem{{Item: payments.CatalogueItem{Title: strings.Repeat("é", 200)}}}}
	assert.Len(t, []rune(describe(cart)), maxDescription)
	assert.Equal(t, "Cart 3", describe(&payments.Cart{ID: 3}))
}

func TestGetCartAndSite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, payments.CartProcessing)

	_, err := f.base.GetCart(ctx, "abc")
	assert.ErrorIs(t, err, payments.ErrInvalidCart)
	_, err = f.base.GetCart(ctx, "404")
	assert.ErrorIs(t, err, payments.ErrInvalidCart)

	site, err := f.base.GetSite(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "test.com", site.Domain)

	_, err = f.base.GetSite(ctx, "x")
	assert.ErrorIs(t, err, payments.ErrGateway)
	_, err = f.base.GetSite(ctx, "77")
	assert.ErrorIs(t, err, payments.ErrGateway)
}

func TestBeginCheckout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, payments.CartPending)
	cart, err := f.store.GetCart(ctx, f.seeded.CartID)
	require.NoError(t, err)

	require.NoError(t, f.base.BeginCheckout(ctx, cart))
	assert.Equal(t, payments.CartProcessing, cart.Status)
	assert.Equal(t, 1, f.count(t, audit.ActionRedirectToPayment))

	require.NoError(t, f.base.BeginCheckout(ctx, cart), "reload of the payment page")
	assert.Equal(t, 1, f.count(t, audit.ActionRedirectToPayment))

	cart.Status = payments.CartPaid
	assert.ErrorIs(t, f.base.BeginCheckout(ctx, cart), payments.ErrInvalidCart)
}

func TestHandlePaymentInvoiceAndFulfill(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, payments.CartProcessing)

	txn, err := f.base.HandlePayment(ctx, payments.PaymentRecord{
		CartID:             f.seeded.CartID,
		TransactionStatus:  "Success",
		TransactionID:      "fort-1",
		Amount:             150,
		Currency:           "SAR",
		RecordWebhookEvent: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "payfort", txn.Gateway)
	assert.Equal(t, 1, f.count(t, audit.ActionCartStatusUpdated))

	cart, err := f.store.GetCart(ctx, f.seeded.CartID)
	require.NoError(t, err)

	inv, err := f.base.Settle(ctx, cart, txn)
	require.NoError(t, err)
	assert.Equal(t, payments.InvoicePaid, inv.Status)
	assert.True(t, strings.HasPrefix(inv.Number, "INV-"))
	assert.Equal(t, int64(150), inv.Total)
	require.NotNil(t, cart.FulfilledAt)
	assert.Equal(t, 1, f.count(t, audit.ActionCartFulfilled))
	assert.Equal(t, 1, f.count(t, audit.ActionUserEnrolled))

	again, err := f.base.CreateInvoice(ctx, cart, txn)
	require.NoError(t, err)
	assert.Equal(t, inv.Number, again.Number, "invoice creation is idempotent")

	enrollments, err := f.store.Enrollments(ctx, f.seeded.User.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, f.seeded.Item.CourseID, enrollments[0].CourseID)
}

func TestSettle_FulfillmentErrorIsAudited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, payments.CartProcessing)
	require.NoError(t, f.store.DeleteCatalogueCourse(ctx, f.seeded.Item.ID))

	txn, err := f.base.HandlePayment(ctx, payments.PaymentRecord{CartID: f.seeded.CartID, TransactionID: "fort-2", Currency: "SAR"})
	require.NoError(t, err)
	cart, err := f.store.GetCart(ctx, f.seeded.CartID)
	require.NoError(t, err)

	_, err = f.base.Settle(ctx, cart, txn)
	require.ErrorIs(t, err, fulfillment.ErrCourseNotFound)
	assert.Nil(t, cart.FulfilledAt)
	assert.Equal(t, 1, f.count(t, audit.ActionCartFulfillmentError))

	ids, err := f.store.ListUnfulfilledPaidCarts(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []int64{f.seeded.CartID}, ids)
}

func TestFulfillCart_RequiresPaid(t *testing.T) {
	f := newFixture(t, payments.CartProcessing)
	cart, err := f.store.GetCart(context.Background(), f.seeded.CartID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.base.FulfillCart(context.Background(), cart), payments.ErrInvalidCart)
}
