// SPDX-License-Identifier: MIT

package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeitlabs/payfort/internal/log"
)

func TestStack_RecoversPanics(t *testing.T) {
	var buf bytes.Buffer
	log.Configure(log.Config{Output: &buf})
	t.Cleanup(func() { log.Configure(log.Config{}) })

	r := NewRouter(StackConfig{EnableSecurityHeaders: true, EnableMetrics: true, EnableLogging: true})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, rec.Header().Get(HeaderRequestID), body["request_id"])
	assert.Contains(t, buf.String(), "panic.recovered")
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = log.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get(HeaderRequestID))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, strings.Repeat("x", 200))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Len(t, seen, 36)
}

func TestCheckoutCSP(t *testing.T) {
	csp := CheckoutCSP("https://sbcheckout.payfort.com/FortAPI/paymentPage")
	assert.Contains(t, csp, "form-action 'self' https://sbcheckout.payfort.com;")
	assert.Equal(t, DefaultCSP, CheckoutCSP("::bad"))
}

func TestSecurityHeaders(t *testing.T) {
	h := SecurityHeaders("")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, DefaultCSP, rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestPerMinute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PerMinute(2, nil))
	r.Post("/payfort/feedback/", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/payfort/feedback/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestPerMinute_Disabled(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	h := PerMinute(0, nil)(next)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestShouldTrace(t *testing.T) {
	assert.False(t, shouldTrace(httptest.NewRequest(http.MethodGet, "/metrics", nil)))
	assert.True(t, shouldTrace(httptest.NewRequest(http.MethodPost, "/payfort/feedback/", nil)))
	assert.Equal(t, "GET /payfort/status/", spanNameFormatter("", httptest.NewRequest(http.MethodGet, "/payfort/status/?transaction_id=1", nil)))
}
