// SPDX-License-Identifier: MIT

package payments

import "time"

// CartStatus is the lifecycle state of a cart.
type CartStatus string

const (
	CartPending    CartStatus = "pending"
	CartProcessing CartStatus = "processing"
	CartPaid       CartStatus = "paid"
)

// ItemType classifies catalogue items; each type needs a registered fulfiller.
type ItemType string

const (
	ItemPaidCourse ItemType = "paid_course"
)

// TransactionType distinguishes payments from refunds.
type TransactionType string

const (
	TransactionPayment TransactionType = "payment"
	TransactionRefund  TransactionType = "refund"
)

// InvoiceStatus is the state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoicePaid  InvoiceStatus = "paid"
)

// EventDirectFeedback is the webhook event type recorded for gateway
// server-to-server notifications.
const EventDirectFeedback = "direct-feedback"

// User is the buyer owning a cart.
type User struct {
	ID       int64
	Username string
	Email    string
}

// Site is the tenant a checkout was started from.
type Site struct {
	ID     int64
	Domain string
	Name   string
}

// CatalogueItem is something that can be put in a cart.
type CatalogueItem struct {
	ID       int64
	SKU      string
	Type     ItemType
	Title    string
	Price    int64
	Currency string
	// CourseID is the course a paid_course item enrolls into.
	CourseID string
}

// CartItem is a priced line of a cart.
type CartItem struct {
	ID             int64
	CartID         int64
	Item           CatalogueItem
	OriginalPrice  int64
	DiscountAmount int64
	TaxAmount      int64
	FinalPrice     int64
}

// Cart groups the items a user is paying for.
type Cart struct {
	ID                  int64
	User                User
	Status              CartStatus
	Items               []CartItem
	FulfilledAt         *time.Time
	// FulfillmentAttempts counts failed fulfillment retries.
	FulfillmentAttempts int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Total is the amount due after discounts and taxes.
func (c *Cart) Total() int64 {
	var sum int64
	for _, it := range c.Items {
		sum += it.FinalPrice
	}
	return sum
}

// DiscountTotal sums the item discounts.
func (c *Cart) DiscountTotal() int64 {
	var sum int64
	for _, it := range c.Items {
		sum += it.DiscountAmount
	}
	return sum
}

// TaxTotal sums the item taxes.
func (c *Cart) TaxTotal() int64 {
	var sum int64
	for _, it := range c.Items {
		sum += it.TaxAmount
	}
	return sum
}

// GrossTotal is the raw total before any discount and tax.
func (c *Cart) GrossTotal() int64 {
	var sum int64
	for _, it := range c.Items {
		sum += it.OriginalPrice
	}
	return sum
}

// Currency returns the currency of the first priced item, or fallback when
// the cart carries none.
func (c *Cart) Currency(fallback string) string {
	for _, it := range c.Items {
		if it.Item.Currency != "" {
			return it.Item.Currency
		}
	}
	return fallback
}

// Transaction is a payment or refund reported by a gateway.
type Transaction struct {
	ID                   int64
	CartID               *int64
	UserID               *int64
	Type                 TransactionType
	Status               string
	Gateway              string
	GatewayTransactionID string
	Amount               int64
	Currency             string
	Method               string
	Reason               string
	Response             map[string]string
	CreatedAt            time.Time
}

// Invoice is issued once per paid cart.
type Invoice struct {
	ID            int64
	Number        string
	CartID        int64
	Status        InvoiceStatus
	GrossTotal    int64
	DiscountTotal int64
	TaxTotal      int64
	Total         int64
	Currency      string
	TransactionID *int64
	CreatedAt     time.Time
}

// WebhookEvent is the raw gateway notification kept for reconciliation.
type WebhookEvent struct {
	ID        int64
	Gateway   string
	EventType string
	Payload   map[string]string
	CreatedAt time.Time
}

// Enrollment grants a user access to a course.
type Enrollment struct {
	UserID    int64
	CourseID  string
	Mode      string
	CartID    int64
	CreatedAt time.Time
}

// PaymentRecord carries everything needed to record a successful gateway
// payment against a cart.
type PaymentRecord struct {
	CartID             int64
	UserID             *int64
	Gateway            string
	TransactionStatus  string
	TransactionID      string
	Method             string
	Amount             int64
	Currency           string
	Reason             string
	Response           map[string]string
	RecordWebhookEvent bool
}
