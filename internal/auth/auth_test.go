// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeitlabs/payfort/internal/audit"
)

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, ExtractToken(r))

	r.Header.Set("X-API-Token", "legacy")
	assert.Equal(t, "legacy", ExtractToken(r))

	r.Header.Set("Authorization", "bearer  abc ")
	assert.Equal(t, "abc", ExtractToken(r))
}

func TestMatch(t *testing.T) {
	_, ok := Match("x", nil)
	assert.False(t, ok)

	tok, ok := Match("b", []string{"a", "b", ""})
	assert.True(t, ok)
	assert.Equal(t, "b", tok)

	_, ok = Match("", []string{""})
	assert.False(t, ok)
}

func TestPrincipalIsStable(t *testing.T) {
	a, b := NewPrincipal("secret"), NewPrincipal("secret")
	assert.Equal(t, a.ID, b.ID)
	assert.NotContains(t, a.ID, "secret")
	assert.Nil(t, PrincipalFromContext(context.Background()))
}

func serve(t *testing.T, required bool, header string) (*httptest.ResponseRecorder, *Principal) {
	t.Helper()
	var seen *Principal
	h := Middleware(func() (bool, []string) { return required, []string{"tok-1"} }, audit.NewLogger(nil))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

	r := httptest.NewRequest(http.MethodGet, "/payfort/status/", nil)
	if header != "" {
		r.Header.Set("Authorization", "Bearer "+header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec, seen
}

func TestMiddleware(t *testing.T) {
	rec, p := serve(t, true, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, p)

	rec, _ = serve(t, true, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, p = serve(t, true, "tok-1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, p)

	rec, p = serve(t, false, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, p)

	rec, p = serve(t, false, "wrong")
	assert.Equal(t, http.StatusNoContent, rec.Code, "optional auth ignores bad tokens")
	assert.Nil(t, p)
}

func TestTransactionToken(t *testing.T) {
	tok := TransactionToken("k", "fort-1", "1-2")
	assert.Len(t, tok, 64)
	assert.True(t, VerifyTransactionToken("k", tok, "fort-1", "1-2"))
	assert.False(t, VerifyTransactionToken("k", tok, "fort-2", "1-2"))
	assert.False(t, VerifyTransactionToken("k", tok, "fort-1", "1-3"))
	assert.False(t, VerifyTransactionToken("other", tok, "fort-1", "1-2"))

	// The separator keeps shifted boundaries apart.
	assert.NotEqual(t, TransactionToken("k", "ab", "c"), TransactionToken("k", "a", "bc"))

	assert.Empty(t, TransactionToken("", "fort-1", "1-2"))
	assert.False(t, VerifyTransactionToken("", "", "fort-1", "1-2"))
}

func TestMiddleware_Grant(t *testing.T) {
	grant := func(r *http.Request) (*Principal, bool) {
		if r.URL.Query().Get("ticket") != "ok" {
			return nil, false
		}
		return &Principal{ID: "ticket"}, true
	}
	var seen *Principal
	h := Middleware(func() (bool, []string) { return true, []string{"tok-1"} }, audit.NewLogger(nil), grant)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payfort/status/?ticket=ok", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "ticket", seen.ID)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payfort/status/?ticket=no", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A wrong API token is refused even when a grant would admit the request.
	r := httptest.NewRequest(http.MethodGet, "/payfort/status/?ticket=ok", nil)
	r.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
