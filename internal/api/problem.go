// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/zeitlabs/payfort/internal/api/middleware"
	"github.com/zeitlabs/payfort/internal/log"
)

// writeProblem writes an RFC 7807 problem details response.
//
// Semantics:
//   - type: machine identifier (e.g. "payfort/invalid_cart").
//   - title: short human label (e.g. "Not Found").
//   - detail: explanation of the specific failure.
func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	reqID := log.RequestIDFromContext(r.Context())
	if reqID == "" {
		reqID = w.Header().Get(middleware.HeaderRequestID)
	}

	res := map[string]any{
		"type":       problemType,
		"title":      title,
		"status":     status,
		"instance":   r.URL.EscapedPath(),
		"request_id": reqID,
	}
	if detail != "" {
		res["detail"] = detail
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.L().Error().Err(err).Str("type", problemType).Int("status", status).Msg("failed to encode problem response")
	}
}

// writeJSON writes v as a JSON body with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.L().Error().Err(err).Int("status", status).Msg("failed to encode json response")
	}
}
