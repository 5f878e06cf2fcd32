// SPDX-License-Identifier: MIT

package auth

import (
	"encoding/json"
	"net/http"

	"github.com/zeitlabs/payfort/internal/audit"
	"github.com/zeitlabs/payfort/internal/log"
)

// Policy is read on every request so token rotation takes effect without
// a restart.
type Policy func() (required bool, tokens []string)

// Grant admits a request that carries no API token and returns the
// Principal to attach.
type Grant func(r *http.Request) (*Principal, bool)

// Middleware enforces policy. When authentication is not required, a valid
// token still attaches a Principal. Grants are only consulted for requests
// without a token.
func Middleware(policy Policy, al *audit.Logger, grants ...Grant) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			required, tokens := policy()
			got := ExtractToken(r)

			if got != "" {
				if tok, ok := Match(got, tokens); ok {
					p := NewPrincipal(tok)
					ctx := WithPrincipal(r.Context(), p)
					logger := log.WithContext(ctx, log.Base())
					logger.Debug().Str(log.FieldPrincipal, p.ID).Msg("authenticated")
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				if required {
					al.AuthFailure(r.Context(), r.RemoteAddr, r.URL.Path, "invalid token")
					deny(w)
					return
				}
			} else if required {
				for _, grant := range grants {
					if p, ok := grant(r); ok {
						next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
						return
					}
				}
				al.AuthMissing(r.Context(), r.RemoteAddr, r.URL.Path)
				deny(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func deny(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="payfort"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Authentication credentials were not provided."})
}
