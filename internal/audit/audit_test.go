// SPDX-License-Identifier: MIT

package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeitlabs/payfort/internal/log"
)

type failingSink struct{ calls int }

func (f *failingSink) Append(context.Context, Event) error {
	f.calls++
	return errors.New("disk full")
}

func TestLogger_PaymentWritesLogAndSink(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.Config{Output: &buf})
	t.Cleanup(func() { log.Configure(log.Config{}) })

	j, err := OpenInMemoryJournal()
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	ctx := log.ContextWithRequestID(context.Background(), "req-1")
	NewLogger(j).Payment(ctx, ActionCartFulfilled, 42, "payfort", map[string]string{"invoice": "INV-1"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "audit", entry["component"])
	assert.Equal(t, "cart_fulfilled", entry["action"])
	assert.Equal(t, "payfort", entry["gateway"])
	assert.Equal(t, float64(42), entry["cart_id"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "INV-1", entry["invoice"])

	evs, err := j.Query(ctx, Filter{CartID: 42})
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, ActionCartFulfilled, evs[0].Action)
	assert.Equal(t, "system", evs[0].Actor)
	assert.Equal(t, "req-1", evs[0].RequestID)
}

func TestLogger_SinkFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.Config{Output: &buf})
	t.Cleanup(func() { log.Configure(log.Config{}) })

	sink := &failingSink{}
	NewLogger(sink).Payment(context.Background(), ActionReceivedResponse, 0, "payfort", nil)

	assert.Equal(t, 1, sink.calls)
	assert.Contains(t, buf.String(), "failed to persist audit event")
}

func TestLogger_NilIsNoop(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Payment(context.Background(), ActionCartFulfilled, 1, "payfort", nil)
	})
}

func TestFlattenFormDropsSignature(t *testing.T) {
	out := FlattenForm(map[string]string{"status": "14", "signature": "abc", "Signature": "x"})
	assert.Equal(t, map[string]string{"data.status": "14"}, out)
}
