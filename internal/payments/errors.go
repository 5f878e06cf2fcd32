// SPDX-License-Identifier: MIT

package payments

import "errors"

var (
	// ErrInvalidCart is returned when a cart does not exist or cannot be
	// resolved from a reference.
	ErrInvalidCart = errors.New("invalid cart")

	// ErrGateway is returned when gateway supplied data cannot be mapped to
	// a known site.
	ErrGateway = errors.New("gateway error")

	// ErrDuplicateTransaction is returned when a gateway transaction id was
	// already recorded for the gateway.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrCartNotProcessing is returned when a payment is recorded against a
	// cart that left the processing state.
	ErrCartNotProcessing = errors.New("cart is not in processing state")

	// ErrUnsupportedItem is returned when no fulfiller handles an item type.
	ErrUnsupportedItem = errors.New("unsupported catalogue item type")

	// ErrNotFound is returned by stores for missing rows.
	ErrNotFound = errors.New("not found")
)
