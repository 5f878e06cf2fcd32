// SPDX-License-Identifier: MIT

package payfort

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/zeitlabs/payfort/internal/config"
	"github.com/zeitlabs/payfort/internal/payments"
	"github.com/zeitlabs/payfort/internal/payments/provider"
)

// Processor identity and PayFort command names.
const (
	Slug            = "payfort"
	Name            = "Payfort"
	CheckoutText    = "Checkout with Payfort credit card"
	CommandPurchase = "PURCHASE"
)

// Route paths served by the gateway, relative to the public base URL.
const (
	PathPay      = "/payfort/pay/"
	PathMetadata = "/payfort/metadata/"
	PathReturn   = "/payfort/return/"
	PathFeedback = "/payfort/feedback/"
	PathStatus   = "/payfort/status/"
)

// Settings are the merchant credentials and endpoints of a processor.
type Settings struct {
	AccessCode         string
	MerchantIdentifier string
	RequestSHAPhrase   string
	ResponseSHAPhrase  string
	SHAMethod          string
	RedirectURL        string
	PublicBaseURL      string
}

// SettingsFromConfig maps the loaded configuration onto Settings.
func SettingsFromConfig(cfg config.AppConfig) Settings {
	return Settings{
		AccessCode:         cfg.PayFort.AccessCode,
		MerchantIdentifier: cfg.PayFort.MerchantIdentifier,
		RequestSHAPhrase:   cfg.PayFort.RequestSHAPhrase,
		ResponseSHAPhrase:  cfg.PayFort.ResponseSHAPhrase,
		SHAMethod:          cfg.PayFort.SHAMethod,
		RedirectURL:        cfg.PayFort.RedirectURL,
		PublicBaseURL:      cfg.PublicBaseURL,
	}
}

// Processor is the PayFort hosted-checkout processor.
//
// See https://paymentservices-reference.payfort.com/docs/api/build/index.html
type Processor struct {
	*provider.Base
	Settings
}

// New returns a processor for the given settings. base.Slug is forced to
// Slug.
func New(base *provider.Base, s Settings) *Processor {
	base.Slug = Slug
	return &Processor{Base: base, Settings: s}
}

// ReturnURL is where PayFort sends the buyer after the payment page.
func (p *Processor) ReturnURL() string {
	return joinURL(p.PublicBaseURL, PathReturn)
}

func joinURL(base, path string) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return path
	}
	return u.ResolveReference(&url.URL{Path: path}).String()
}

// TransactionParametersBase returns the signed fields of a PURCHASE request.
func (p *Processor) TransactionParametersBase(cart *payments.Cart, site *payments.Site) map[string]string {
	params := p.BaseParameters(cart, site)

	params["merchant_reference"] = params["order_reference"]
	params["customer_email"] = params["user_email"]
	delete(params, "order_reference")
	delete(params, "user_email")

	params["command"] = CommandPurchase
	params["access_code"] = p.AccessCode
	params["merchant_identifier"] = p.MerchantIdentifier
	params["return_url"] = p.ReturnURL()
	return params
}

// GenerateSignature signs params with phrase, or with the request phrase
// when phrase is empty.
func (p *Processor) GenerateSignature(params map[string]string, phrase string) (string, error) {
	if phrase == "" {
		phrase = p.RequestSHAPhrase
	}
	return Signature(phrase, p.SHAMethod, params)
}

// TransactionParameters returns the fields posted to the payment page plus
// payment_page_url, the form action. payment_page_url is not signed.
func (p *Processor) TransactionParameters(cart *payments.Cart, site *payments.Site) (map[string]string, error) {
	params := p.TransactionParametersBase(cart, site)
	sig, err := p.GenerateSignature(params, "")
	if err != nil {
		return nil, err
	}
	params[SignatureField] = sig
	params["payment_page_url"] = p.RedirectURL
	return params, nil
}

// VerifyResponse checks a response signature with the response phrase.
func (p *Processor) VerifyResponse(data map[string]string) error {
	return VerifySignature(p.ResponseSHAPhrase, p.SHAMethod, data)
}

// Metadata describes the payment method to the storefront.
type Metadata struct {
	Slug         string `json:"slug"`
	Title        string `json:"title"`
	CheckoutText string `json:"checkout_text"`
	URL          string `json:"url"`
}

// PaymentMethodMetadata returns the storefront metadata of a cart.
func (p *Processor) PaymentMethodMetadata(cart *payments.Cart) Metadata {
	return Metadata{
		Slug:         Slug,
		Title:        Name,
		CheckoutText: CheckoutText,
		URL:          joinURL(p.PublicBaseURL, PathPay+strconv.FormatInt(cart.ID, 10)+"/"),
	}
}

// ParseMerchantReference splits "<site>-<cart>".
func ParseMerchantReference(ref string) (siteID, cartID int64, err error) {
	site, cart, ok := strings.Cut(ref, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	if siteID, err = strconv.ParseInt(site, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("%w: site in %q", ErrInvalidReference, ref)
	}
	if cartID, err = strconv.ParseInt(cart, 10, 64); err != nil {
		return 0, 0, fmt.Errorf("%w: cart in %q", ErrInvalidReference, ref)
	}
	return siteID, cartID, nil
}
