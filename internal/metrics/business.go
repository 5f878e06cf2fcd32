// SPDX-License-Identifier: MIT

// Package metrics exposes the Prometheus collectors of the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Gateway callbacks
	feedbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payfort_feedback_total",
		Help: "Server-to-server notifications by outcome",
	}, []string{"outcome"})

	returnTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payfort_return_total",
		Help: "Browser returns from the payment page by outcome",
	}, []string{"outcome"}) // outcome=wait|failed|bad_signature|invalid_format

	signatureFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payfort_signature_failures_total",
		Help: "Responses rejected because of a bad signature",
	}, []string{"endpoint"})

	statusChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payfort_status_checks_total",
		Help: "Payment status polls by HTTP status code",
	}, []string{"code"})

	checkoutsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payfort_checkouts_started_total",
		Help: "Carts redirected to the payment page",
	})

	// Money movement
	paymentsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payfort_payments_recorded_total",
		Help: "Payments recorded against carts",
	}, []string{"currency"})

	paymentAmount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payfort_payment_amount_minor_total",
		Help: "Sum of recorded payment amounts in minor units",
	}, []string{"currency"})

	fulfillmentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payfort_fulfillment_total",
		Help: "Cart fulfillment attempts by source and result",
	}, []string{"source", "result"}) // source=feedback|worker, result=success|failure

	lockWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payfort_cart_lock_wait_seconds",
		Help:    "Time spent waiting for the per-cart lock",
		Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
	})

	configReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payfort_config_reloads_total",
		Help: "Configuration reloads by result",
	}, []string{"result"})
)

// RecordFeedback counts a notification outcome.
func RecordFeedback(outcome string) { feedbackTotal.WithLabelValues(outcome).Inc() }

// RecordReturn counts a browser return outcome.
func RecordReturn(outcome string) { returnTotal.WithLabelValues(outcome).Inc() }

// RecordSignatureFailure counts a rejected signature.
func RecordSignatureFailure(endpoint string) { signatureFailures.WithLabelValues(endpoint).Inc() }

// RecordStatusCheck counts a status poll.
func RecordStatusCheck(code string) { statusChecks.WithLabelValues(code).Inc() }

// RecordCheckoutStarted counts a redirect to the payment page.
func RecordCheckoutStarted() { checkoutsStarted.Inc() }

// RecordPayment counts a recorded payment and its amount.
func RecordPayment(currency string, amountMinor int64) {
	paymentsRecorded.WithLabelValues(currency).Inc()
	paymentAmount.WithLabelValues(currency).Add(float64(amountMinor))
}

// RecordFulfillment counts a fulfillment attempt.
func RecordFulfillment(source string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	fulfillmentTotal.WithLabelValues(source, result).Inc()
}

// ObserveLockWait records how long a cart lock took.
func ObserveLockWait(seconds float64) { lockWait.Observe(seconds) }

// RecordConfigReload counts a configuration reload.
func RecordConfigReload(result string) { configReloads.WithLabelValues(result).Inc() }
