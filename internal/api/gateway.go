// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/zeitlabs/payfort/internal/api/middleware"
	"github.com/zeitlabs/payfort/internal/audit"
	"github.com/zeitlabs/payfort/internal/auth"
	"github.com/zeitlabs/payfort/internal/lock"
	"github.com/zeitlabs/payfort/internal/log"
	"github.com/zeitlabs/payfort/internal/metrics"
	"github.com/zeitlabs/payfort/internal/payfort"
	"github.com/zeitlabs/payfort/internal/payments"
	"github.com/zeitlabs/payfort/internal/telemetry"
)

// resolveCart returns the cart named by the posted merchant reference. An
// unusable reference is audited as response_for_invalid_cart.
func (s *Server) resolveCart(ctx context.Context, p *payfort.Processor, data map[string]string) *payments.Cart {
	ref := data["merchant_reference"]
	if ref == "" {
		return nil
	}
	_, cartPart, ok := strings.Cut(ref, "-")
	var cart *payments.Cart
	err := fmt.Errorf("%w: %q", payfort.ErrInvalidReference, ref)
	if ok {
		cart, err = p.GetCart(ctx, cartPart)
	}
	if err != nil {
		s.deps.Audit.Payment(ctx, audit.ActionResponseInvalidCart, 0, payfort.Slug,
			audit.CartDetails("None", string(payments.CartProcessing)))
		logger := log.WithComponentFromContext(ctx, "payfort")
		logger.Error().Err(err).
			Str(log.FieldMerchantReference, ref).
			Msgf("Payfort Error! merchant_reference: %s is invalid. Unable to get cart.", ref)
		return nil
	}
	return cart
}

// resolveSite returns the site named by the posted merchant reference.
func (s *Server) resolveSite(ctx context.Context, p *payfort.Processor, data map[string]string) *payments.Site {
	ref := data["merchant_reference"]
	if ref == "" {
		return nil
	}
	sitePart, _, ok := strings.Cut(ref, "-")
	if ok {
		site, err := p.GetSite(ctx, sitePart)
		if err == nil {
			return site
		}
	}
	logger := log.WithComponentFromContext(ctx, "payfort")
	logger.Error().
		Str(log.FieldMerchantReference, ref).
		Msgf("Payfort Error! merchant_reference: %s is invalid. Unable to extract site.", ref)
	return nil
}

func cartIDOf(cart *payments.Cart) int64 {
	if cart == nil {
		return 0
	}
	return cart.ID
}

// handleReturn receives the buyer back from the payment page. Every outcome
// is rendered with 200; the buyer only ever sees the wait or error page.
func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "payfort")
	p, cfg := s.processor()

	data, err := formData(r)
	if err != nil {
		logger.Error().Err(err).Msg("unable to parse payment return")
		metrics.RecordReturn("failed")
		renderError(w, r)
		return
	}
	middleware.AddSpanAttributes(r, telemetry.PaymentAttributes(payfort.Slug,
		data["merchant_reference"], data["fort_id"], data["status"], data["response_code"])...)

	if err := p.VerifyResponse(data); err != nil {
		cart := s.resolveCart(ctx, p, data)
		s.deps.Audit.Payment(ctx, audit.ActionBadResponseSignature, cartIDOf(cart), payfort.Slug, audit.FlattenForm(data))
		logger.Error().Err(err).Msg("Invalid signature received in response from payfort.")
		metrics.RecordSignatureFailure("return")
		metrics.RecordReturn("bad_signature")
		renderError(w, r)
		return
	}

	if data["status"] != payfort.SuccessStatus {
		logger.Error().Msgf("Payfort payment failed! with merchant_reference: %s, status: %s and response_code: %s",
			data["merchant_reference"], data["status"], data["response_code"])
		metrics.RecordReturn("failed")
		renderError(w, r)
		return
	}

	resp, err := payfort.VerifyResponseFormat(data)
	if err != nil {
		logger.Error().Msgf("Payfort response validation failed: %v", err)
		metrics.RecordReturn("invalid_format")
		renderError(w, r)
		return
	}

	metrics.RecordReturn("wait")
	render(w, r, tplWaitFeedback, waitPage{
		StaticBase:        staticBase,
		StatusURL:         payfort.PathStatus,
		TransactionID:     resp.FortID,
		MerchantReference: resp.MerchantReference,
		StatusToken:       auth.TransactionToken(statusTokenSecret(cfg), resp.FortID, resp.MerchantReference),
		SuccessURL:        expandID(cfg.Payments.SuccessURL, resp.FortID),
		ErrorURL:          expandID(cfg.Payments.ErrorURL, resp.FortID),
		MaxAttempts:       cfg.Payments.StatusMaxAttempts,
		WaitTime:          cfg.Payments.StatusWaitTime.Milliseconds(),
	})
}

// expandID fills the "{id}" placeholder of a configured URL template.
func expandID(tpl, id string) string {
	return strings.ReplaceAll(tpl, "{id}", url.PathEscape(id))
}

// handleFeedback processes the PayFort server-to-server notification.
// Responses other than 400 and 503 tell PayFort to stop retrying.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.WithComponentFromContext(ctx, "payfort")
	p, cfg := s.processor()

	data, err := formData(r)
	if err != nil {
		logger.Error().Err(err).Msg("unable to parse payment notification")
		metrics.RecordFeedback("bad_request")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	middleware.AddSpanAttributes(r, telemetry.PaymentAttributes(payfort.Slug,
		data["merchant_reference"], data["fort_id"], data["status"], data["response_code"])...)

	cart := s.resolveCart(ctx, p, data)
	s.deps.Audit.Payment(ctx, audit.ActionReceivedResponse, cartIDOf(cart), payfort.Slug, audit.FlattenForm(data))

	site := s.resolveSite(ctx, p, data)
	if cart == nil || site == nil {
		logger.Warn().Msg("PayFort response can not be processed further, unable to retrieve cart or site from given reference.")
		metrics.RecordFeedback("unresolved")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	logger = logger.With().Int64(log.FieldCartID, cart.ID).Int64(log.FieldSiteID, site.ID).Logger()

	if err := p.VerifyResponse(data); err != nil {
		logger.Error().Err(err).Msg("Invalid signature received in response from PayFort.")
		s.deps.Audit.Payment(ctx, audit.ActionBadResponseSignature, cart.ID, payfort.Slug, audit.FlattenForm(data))
		metrics.RecordSignatureFailure("feedback")
		metrics.RecordFeedback("bad_signature")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if data["status"] != payfort.SuccessStatus {
		logger.Warn().
			Str(log.FieldStatus, data["status"]).
			Str(log.FieldResponseCode, data["response_code"]).
			Msgf("PayFort payment unsuccessful. Status: %s", data["status"])
		metrics.RecordFeedback("unsuccessful")
		w.WriteHeader(http.StatusOK)
		return
	}

	resp, err := payfort.VerifyResponseFormat(data)
	if err != nil {
		logger.Error().Err(err).Msg("PayFort notification failed format validation")
		metrics.RecordFeedback("invalid_format")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	release, err := s.lockCart(ctx, cart.ID, cfg.Redis.LockTTL)
	if err != nil {
		logger.Error().Err(err).Msg("unable to lock cart for payment notification")
		metrics.RecordFeedback("lock_timeout")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn().Err(err).Msg("failed to release cart lock")
		}
	}()

	// Another notification may have settled the cart while we waited.
	cart, err = p.Store.GetCart(ctx, cart.ID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to reload cart")
		metrics.RecordFeedback("error")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	if cart.Status != payments.CartProcessing {
		s.deps.Audit.Payment(ctx, audit.ActionResponseInvalidCart, cart.ID, payfort.Slug,
			audit.CartDetails(string(cart.Status), string(payments.CartProcessing)))
		logger.Warn().Msgf("Cart %d in invalid status: %s (expected: PROCESSING).", cart.ID, cart.Status)
		metrics.RecordFeedback("invalid_cart")
		w.WriteHeader(http.StatusOK)
		return
	}

	txn, err := s.recordPayment(ctx, logger, p, cart, resp, data)
	if err != nil {
		if errors.Is(err, payments.ErrDuplicateTransaction) {
			s.deps.Audit.Payment(ctx, audit.ActionDuplicateTransaction, cart.ID, payfort.Slug, map[string]string{
				log.FieldTransactionID: resp.FortID,
				"cart_status":          string(cart.Status),
			})
			metrics.RecordFeedback("duplicate")
		} else {
			s.deps.Audit.Payment(ctx, audit.ActionTransactionRolledBack, cart.ID, payfort.Slug, map[string]string{
				log.FieldTransactionID: resp.FortID,
				log.FieldCartID:        strconv.FormatInt(cart.ID, 10),
				log.FieldSiteID:        strconv.FormatInt(site.ID, 10),
			})
			logger.Error().Msgf("Payment transaction failed and rolled back for cart %d: %v", cart.ID, err)
			metrics.RecordFeedback("rolled_back")
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	cart.Status = payments.CartPaid
	inv, err := p.Settle(ctx, cart, txn)
	metrics.RecordFulfillment("feedback", err)
	if err != nil {
		logger.Error().Msgf("Failed to fulfill cart %d or to create invoice: %v", cart.ID, err)
	} else {
		logger.Info().Str(log.FieldInvoice, inv.Number).
			Msgf("Successfully fulfilled cart %d and created invoice %d.", cart.ID, inv.ID)
	}
	metrics.RecordFeedback("paid")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) recordPayment(ctx context.Context, logger zerolog.Logger, p *payfort.Processor, cart *payments.Cart,
	resp *payfort.Response, data map[string]string) (*payments.Transaction, error) {
	amount, err := resp.AmountMinor()
	if err != nil {
		return nil, err
	}
	logger.Info().Msgf("Recording payment transaction for cart %d.", cart.ID)
	txn, err := p.HandlePayment(ctx, payments.PaymentRecord{
		CartID:             cart.ID,
		TransactionStatus:  resp.ResponseMessage,
		TransactionID:      resp.FortID,
		Method:             resp.PaymentOption,
		Amount:             amount,
		Currency:           resp.Currency,
		Reason:             resp.AcquirerResponseMessage,
		Response:           data,
		RecordWebhookEvent: true,
	})
	if err != nil {
		return nil, err
	}
	metrics.RecordPayment(resp.Currency, amount)
	return txn, nil
}

// lockCart serialises notifications for one cart. Waiting is bounded by
// the lock TTL.
func (s *Server) lockCart(ctx context.Context, cartID int64, ttl time.Duration) (lock.Release, error) {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	waitCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()

	start := time.Now()
	release, err := s.deps.Locker.Acquire(waitCtx, "cart:"+strconv.FormatInt(cartID, 10), ttl)
	metrics.ObserveLockWait(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return release, nil
}
