// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/zeitlabs/payfort/internal/log"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	tplPayment      = "payfort.html"
	tplWaitFeedback = "wait_feedback.html"
	tplPaymentError = "payment_error.html"
)

// staticBase is where the embedded scripts are mounted.
const staticBase = "/payfort/static/"

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// paymentPage is the auto-submitting form posted to the payment page.
type paymentPage struct {
	StaticBase     string
	Language       string
	PaymentPageURL string
	Fields         map[string]string
}

// waitPage drives the status polling script.
type waitPage struct {
	StaticBase        string
	StatusURL         string
	TransactionID     string
	MerchantReference string
	StatusToken       string
	SuccessURL        string
	ErrorURL          string
	MaxAttempts       int
	WaitTime          int64
}

// render executes a template into a buffer first so a failing template
// never leaves a half-written page behind.
func render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Str("template", name).Msg("template render failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func renderError(w http.ResponseWriter, r *http.Request) {
	render(w, r, tplPaymentError, nil)
}

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix(staticBase, http.FileServer(http.FS(sub)))
}
