// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCorrelationID = "correlation_id"
	FieldRequestID     = "request_id"
	FieldPrincipal     = "principal"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Payment fields
	FieldGateway           = "gateway"
	FieldCartID            = "cart_id"
	FieldSiteID            = "site_id"
	FieldMerchantReference = "merchant_reference"
	FieldTransactionID     = "transaction_id"
	FieldInvoice           = "invoice"
	FieldStatus            = "status"
	FieldResponseCode      = "response_code"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// HTTP fields
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldRemoteAddr = "remote_addr"
)
