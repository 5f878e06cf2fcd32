// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/zeitlabs/payfort/internal/api/middleware"
	"github.com/zeitlabs/payfort/internal/config"
	"github.com/zeitlabs/payfort/internal/log"
	"github.com/zeitlabs/payfort/internal/metrics"
	"github.com/zeitlabs/payfort/internal/payments"
	"github.com/zeitlabs/payfort/internal/telemetry"
)

// handlePay starts the hosted checkout of a cart and renders the form that
// carries the buyer to the PayFort payment page.
func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "checkout")
	p, cfg := s.processor()

	cart, err := p.GetCart(ctx, chi.URLParam(r, "cartID"))
	if err != nil {
		s.cartLookupFailed(w, r, err)
		return
	}
	site, err := s.requestSite(r, cfg)
	if err != nil {
		logger.Error().Err(err).Str("host", r.Host).Msg("unable to resolve site for checkout")
		writeProblem(w, r, http.StatusBadRequest, "payfort/unknown_site", "Unknown Site", "unable to resolve the site of this request")
		return
	}
	middleware.AddSpanAttributes(r, telemetry.CartAttributes(site.ID, cart.ID)...)

	if err := p.BeginCheckout(ctx, cart); err != nil {
		if errors.Is(err, payments.ErrInvalidCart) {
			writeProblem(w, r, http.StatusConflict, "payfort/invalid_cart_status", "Conflict", err.Error())
			return
		}
		logger.Error().Err(err).Int64(log.FieldCartID, cart.ID).Msg("failed to start checkout")
		writeProblem(w, r, http.StatusInternalServerError, "payfort/internal", "Internal Server Error", "")
		return
	}

	params, err := p.TransactionParameters(cart, site)
	if err != nil {
		logger.Error().Err(err).Int64(log.FieldCartID, cart.ID).Msg("failed to sign transaction parameters")
		writeProblem(w, r, http.StatusInternalServerError, "payfort/signature", "Internal Server Error", "")
		return
	}
	pageURL := params["payment_page_url"]
	delete(params, "payment_page_url")

	metrics.RecordCheckoutStarted()
	logger.Info().
		Int64(log.FieldCartID, cart.ID).
		Int64(log.FieldSiteID, site.ID).
		Str(log.FieldMerchantReference, params["merchant_reference"]).
		Msg("redirecting to payment gateway")

	w.Header().Set("Content-Security-Policy", middleware.CheckoutCSP(pageURL))
	render(w, r, tplPayment, paymentPage{
		StaticBase:     staticBase,
		Language:       params["language"],
		PaymentPageURL: pageURL,
		Fields:         params,
	})
}

// handleMetadata describes the payment method for a cart.
func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	p, _ := s.processor()
	cart, err := p.GetCart(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		s.cartLookupFailed(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p.PaymentMethodMetadata(cart))
}

func (s *Server) cartLookupFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, payments.ErrInvalidCart) {
		writeProblem(w, r, http.StatusNotFound, "payfort/invalid_cart", "Not Found", err.Error())
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "checkout")
	logger.Error().Err(err).Msg("cart lookup failed")
	writeProblem(w, r, http.StatusInternalServerError, "payfort/internal", "Internal Server Error", "")
}

// requestSite resolves the site by request host, falling back to the
// configured default site.
func (s *Server) requestSite(r *http.Request, cfg config.AppConfig) (*payments.Site, error) {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host != "" {
		site, err := s.deps.Store.GetSiteByDomain(r.Context(), host)
		if err == nil {
			return site, nil
		}
		if !errors.Is(err, payments.ErrNotFound) {
			return nil, err
		}
	}
	site, err := s.deps.Store.GetSite(r.Context(), cfg.Payments.DefaultSiteID)
	if errors.Is(err, payments.ErrNotFound) {
		return nil, payments.ErrGateway
	}
	return site, err
}
