// SPDX-License-Identifier: MIT

// Package payments holds the gateway-agnostic checkout domain: carts and
// their items, gateway transactions, invoices, webhook events and the
// enrollments produced by fulfilling a paid cart.
//
// Money is always carried in minor units (e.g. halalas, cents) as int64.
package payments
