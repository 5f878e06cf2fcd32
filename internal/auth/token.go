// SPDX-License-Identifier: MIT

// Package auth authenticates API callers with static bearer tokens.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// ExtractToken retrieves the API token from the request:
// Authorization: Bearer <token>, then the X-API-Token header.
func ExtractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(r.Header.Get("X-API-Token"))
}

// AuthorizeToken reports whether got matches expected in constant time.
// Empty tokens never authorize.
func AuthorizeToken(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// Match returns the configured token equal to got. Every candidate is
// compared so timing does not reveal the position of a match.
func Match(got string, tokens []string) (string, bool) {
	var (
		found string
		ok    bool
	)
	for _, t := range tokens {
		if AuthorizeToken(got, t) {
			found, ok = t, true
		}
	}
	return found, ok
}
