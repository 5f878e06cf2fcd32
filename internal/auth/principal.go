// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Principal represents the authenticated identity of a caller.
type Principal struct {
	// ID is a stable identifier derived from the token; the token itself
	// is never kept.
	ID string
}

// NewPrincipal derives a Principal from a token.
func NewPrincipal(token string) *Principal {
	hash := sha256.Sum256([]byte(token))
	return &Principal{ID: "t_" + hex.EncodeToString(hash[:])[:16]}
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller, or nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
