// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Span attribute keys used across the gateway.
const (
	GatewayKey           = "payment.gateway"
	CartIDKey            = "payment.cart_id"
	SiteIDKey            = "payment.site_id"
	TransactionIDKey     = "payment.transaction_id"
	PaymentStatusKey     = "payment.status"
	ResponseCodeKey      = "payment.response_code"
	OutcomeKey           = "payment.outcome"
	WorkerBatchKey       = "worker.batch_size"
	ErrorKey             = "error"
	ErrorTypeKey         = "error.type"
	merchantReferenceKey = "payment.merchant_reference"
)

// PaymentAttributes describes a gateway response. Empty values are skipped.
func PaymentAttributes(gateway, merchantReference, transactionID, status, responseCode string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(GatewayKey, gateway)}
	add := func(k, v string) {
		if v != "" {
			attrs = append(attrs, attribute.String(k, v))
		}
	}
	add(merchantReferenceKey, merchantReference)
	add(TransactionIDKey, transactionID)
	add(PaymentStatusKey, status)
	add(ResponseCodeKey, responseCode)
	return attrs
}

// CartAttributes identifies a cart on a site.
func CartAttributes(siteID, cartID int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(SiteIDKey, siteID),
		attribute.Int64(CartIDKey, cartID),
	}
}

// ErrorAttributes marks a span as failed with a coarse error type.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
