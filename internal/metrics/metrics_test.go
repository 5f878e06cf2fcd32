// SPDX-License-Identifier: MIT

package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func histogramSamples(t *testing.T, name string) uint64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var m *dto.Metric = mf.GetMetric()[0]
		return m.GetHistogram().GetSampleCount()
	}
	return 0
}

func TestRecordPayment(t *testing.T) {
	before := testutil.ToFloat64(paymentAmount.WithLabelValues("SAR"))
	RecordPayment("SAR", 150)
	assert.Equal(t, before+150, testutil.ToFloat64(paymentAmount.WithLabelValues("SAR")))
}

func TestRecordFulfillment(t *testing.T) {
	ok := testutil.ToFloat64(fulfillmentTotal.WithLabelValues("worker", "success"))
	bad := testutil.ToFloat64(fulfillmentTotal.WithLabelValues("worker", "failure"))

	RecordFulfillment("worker", nil)
	RecordFulfillment("worker", errors.New("x"))

	assert.Equal(t, ok+1, testutil.ToFloat64(fulfillmentTotal.WithLabelValues("worker", "success")))
	assert.Equal(t, bad+1, testutil.ToFloat64(fulfillmentTotal.WithLabelValues("worker", "failure")))
}

func TestRecordFeedback(t *testing.T) {
	before := testutil.ToFloat64(feedbackTotal.WithLabelValues("paid"))
	RecordFeedback("paid")
	assert.Equal(t, before+1, testutil.ToFloat64(feedbackTotal.WithLabelValues("paid")))
}

func TestObserveLockWait(t *testing.T) {
	before := histogramSamples(t, "payfort_cart_lock_wait_seconds")
	ObserveLockWait(0.02)
	ObserveLockWait(1.5)
	assert.Equal(t, before+2, histogramSamples(t, "payfort_cart_lock_wait_seconds"))
}

func TestRecordConfigReload(t *testing.T) {
	before := testutil.ToFloat64(configReloads.WithLabelValues("failed"))
	RecordConfigReload("failed")
	assert.Equal(t, before+1, testutil.ToFloat64(configReloads.WithLabelValues("failed")))
}
