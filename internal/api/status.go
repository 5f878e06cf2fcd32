// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/zeitlabs/payfort/internal/audit"
	"github.com/zeitlabs/payfort/internal/log"
	"github.com/zeitlabs/payfort/internal/metrics"
	"github.com/zeitlabs/payfort/internal/payfort"
	"github.com/zeitlabs/payfort/internal/payments"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// missingFieldsMessage renders "transaction_id, merchant_reference" as
// "Transaction Id, Merchant Reference is required to verify payment status.".
func missingFieldsMessage(missing []string) string {
	names := strings.ReplaceAll(strings.Join(missing, ", "), "_", " ")
	return cases.Title(language.English).String(names) + " is required to verify payment status."
}

type statusResponse struct {
	Invoice    string `json:"invoice"`
	InvoiceURL string `json:"invoice_url"`
}

// handleStatus reports whether the payment behind a transaction has been
// settled. The wait page polls it until it answers 200.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "payfort")
	p, cfg := s.processor()

	q := r.URL.Query()
	transactionID := q.Get("transaction_id")
	reference := q.Get("merchant_reference")

	var missing []string
	if transactionID == "" {
		missing = append(missing, "transaction_id")
	}
	if reference == "" {
		missing = append(missing, "merchant_reference")
	}
	if len(missing) > 0 {
		msg := missingFieldsMessage(missing)
		logger.Error().Msg("Payfort Error! " + msg)
		s.statusReply(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	_, cartPart, ok := strings.Cut(reference, "-")
	var (
		cart *payments.Cart
		err  = payfort.ErrInvalidReference
	)
	if ok {
		cart, err = p.GetCart(ctx, cartPart)
	}
	if err != nil {
		if !errors.Is(err, payments.ErrInvalidCart) && !errors.Is(err, payfort.ErrInvalidReference) {
			logger.Error().Err(err).Msg("cart lookup failed")
			s.statusReply(w, http.StatusInternalServerError, map[string]string{"error": "unable to retrieve cart."})
			return
		}
		s.deps.Audit.Payment(ctx, audit.ActionResponseInvalidCart, 0, payfort.Slug,
			audit.CartDetails("None", string(payments.CartProcessing)))
		s.statusReply(w, http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("merchant_reference: %s is invalid. Unable to retrieve cart.", reference),
		})
		return
	}

	switch cart.Status {
	case payments.CartPaid:
		inv, err := s.deps.Store.FindPaidInvoice(ctx, cart.ID, transactionID)
		if err == nil {
			s.statusReply(w, http.StatusOK, statusResponse{
				Invoice:    inv.Number,
				InvoiceURL: expandID(cfg.Payments.InvoiceURL, inv.Number),
			})
			return
		}
		if !errors.Is(err, payments.ErrNotFound) {
			logger.Error().Err(err).Int64(log.FieldCartID, cart.ID).Msg("invoice lookup failed")
		}
		logger.Error().Int64(log.FieldCartID, cart.ID).
			Msgf("Cart is in %s status, unable to retrieve invoice with given transaction id.", payments.CartPaid)
		s.statusReply(w, http.StatusNoContent, nil)
	case payments.CartProcessing:
		s.statusReply(w, http.StatusNoContent, nil)
	default:
		s.statusReply(w, http.StatusNotFound, map[string]string{
			"error": fmt.Sprintf("cart is in status: %s.", cart.Status),
		})
	}
}

// statusReply writes body as JSON. 204 responses carry no body.
func (s *Server) statusReply(w http.ResponseWriter, status int, body any) {
	metrics.RecordStatusCheck(strconv.Itoa(status))
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, body)
}
