// SPDX-License-Identifier: MIT

package payments

import (
	"context"
	"time"
)

// Store is the persistence boundary of the checkout domain.
type Store interface {
	GetCart(ctx context.Context, id int64) (*Cart, error)
	GetSite(ctx context.Context, id int64) (*Site, error)
	GetSiteByDomain(ctx context.Context, domain string) (*Site, error)

	// TransitionCart moves a cart from one status to another. It returns
	// ErrInvalidCart when the cart is not in the from state.
	TransitionCart(ctx context.Context, id int64, from, to CartStatus) error

	// RecordPayment stores the transaction, the optional webhook event and
	// marks the cart paid, atomically.
	RecordPayment(ctx context.Context, rec PaymentRecord) (*Transaction, error)

	InvoiceForCart(ctx context.Context, cartID int64) (*Invoice, error)
	CreateInvoice(ctx context.Context, inv *Invoice, prefix string) error
	FindPaidInvoice(ctx context.Context, cartID int64, gatewayTransactionID string) (*Invoice, error)
	TransactionForCart(ctx context.Context, cartID int64, gateway string) (*Transaction, error)

	MarkFulfilled(ctx context.Context, cartID int64, at time.Time) error
	// ListUnfulfilledPaidCarts returns paid, unfulfilled carts that are due,
	// least retried first.
	ListUnfulfilledPaidCarts(ctx context.Context, limit int) ([]int64, error)
	// DeferFulfillment counts a failed fulfillment and hides the cart from
	// ListUnfulfilledPaidCarts until next.
	DeferFulfillment(ctx context.Context, cartID int64, next time.Time) error

	CreateEnrollment(ctx context.Context, e Enrollment) error

	Ping(ctx context.Context) error
	Close() error
}
