// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// DefaultCSP keeps scripts same-origin. Payment pages post their form to the
// gateway, so form-action is widened by CheckoutCSP.
const DefaultCSP = "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'"

// CheckoutCSP returns DefaultCSP with the origin of paymentPageURL allowed
// as a form target.
func CheckoutCSP(paymentPageURL string) string {
	u, err := url.Parse(paymentPageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return DefaultCSP
	}
	return strings.Replace(DefaultCSP, "form-action 'self'", "form-action 'self' "+u.Scheme+"://"+u.Host, 1)
}

// SecurityHeaders returns a middleware that adds common security headers.
func SecurityHeaders(csp string) func(http.Handler) http.Handler {
	if csp == "" {
		csp = DefaultCSP
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
				w.Header().Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
			}
			w.Header().Set("Content-Security-Policy", csp)
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Cache-Control", "no-store")

			next.ServeHTTP(w, r)
		})
	}
}
