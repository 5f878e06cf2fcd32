// SPDX-License-Identifier: MIT

package api

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/zeitlabs/payfort/internal/log"
)

//go:embed openapi.yaml
var openAPISpec []byte

var (
	openAPIOnce sync.Once
	openAPIDoc  *openapi3.T
	openAPIJSON []byte
	openAPIErr  error
)

// OpenAPI loads and validates the embedded API description.
func OpenAPI() (*openapi3.T, error) {
	openAPIOnce.Do(func() {
		loader := openapi3.NewLoader()
		doc, err := loader.LoadFromData(openAPISpec)
		if err != nil {
			openAPIErr = fmt.Errorf("load openapi: %w", err)
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			openAPIErr = fmt.Errorf("validate openapi: %w", err)
			return
		}
		if openAPIJSON, err = doc.MarshalJSON(); err != nil {
			openAPIErr = fmt.Errorf("encode openapi: %w", err)
			return
		}
		openAPIDoc = doc
	})
	return openAPIDoc, openAPIErr
}

func serveOpenAPI(w http.ResponseWriter, r *http.Request) {
	if _, err := OpenAPI(); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("openapi document unavailable")
		writeProblem(w, r, http.StatusInternalServerError, "system/openapi", "Internal Server Error", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(openAPIJSON)
}
