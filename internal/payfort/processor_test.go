// SPDX-License-Identifier: MIT

package payfort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeitlabs/payfort/internal/config"
	"github.com/zeitlabs/payfort/internal/payments"
	"github.com/zeitlabs/payfort/internal/payments/provider"
)

func testProcessor() *Processor {
	return New(&provider.Base{Language: "en", DefaultCurrency: "USD"}, Settings{
		AccessCode:         "access",
		MerchantIdentifier: "merchant",
		RequestSHAPhrase:   "test-request-phrase",
		ResponseSHAPhrase:  "test-response-phrase",
		SHAMethod:          SHA256,
		RedirectURL:        "https://sbcheckout.payfort.com/FortAPI/paymentPage",
		PublicBaseURL:      "https://lms.example.com/",
	})
}

func testCart() (*payments.Cart, *payments.Site) {
	return &payments.Cart{
			ID:   7,
			User: payments.User{ID: 1, Email: "buyer@example.com"},
			Items: []payments.CartItem{{
				Item:          payments.CatalogueItem{Title: "Course", Currency: "SAR"},
				OriginalPrice: 15000,
				FinalPrice:    15000,
			}},
		},
		&payments.Site{ID: 2, Domain: "lms.example.com"}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.PayFort.AccessCode = "a"
	cfg.PublicBaseURL = "https://x.test"
	s := SettingsFromConfig(cfg)
	assert.Equal(t, "a", s.AccessCode)
	assert.Equal(t, SHA256, s.SHAMethod)
	assert.Equal(t, "https://x.test", s.PublicBaseURL)
}

func TestTransactionParametersBase(t *testing.T) {
	p := testProcessor()
	cart, site := testCart()

	params := p.TransactionParametersBase(cart, site)
	assert.Equal(t, map[string]string{
		"language":            "en",
		"merchant_reference":  "2-7",
		"amount":              "15000",
		"currency":            "SAR",
		"customer_email":      "buyer@example.com",
		"order_description":   "Course",
		"command":             CommandPurchase,
		"access_code":         "access",
		"merchant_identifier": "merchant",
		"return_url":          "https://lms.example.com/payfort/return/",
	}, params)
	assert.NotContains(t, params, "order_reference")
	assert.NotContains(t, params, "user_email")
}

func TestGenerateSignature_Phrases(t *testing.T) {
	p := testProcessor()
	params := map[string]string{"foo": "bar"}

	def, err := p.GenerateSignature(params, "")
	require.NoError(t, err)
	assert.Equal(t, sha256Hex("test-request-phrasefoo=bartest-request-phrase"), def)

	custom, err := p.GenerateSignature(params, "xyz1234")
	require.NoError(t, err)
	assert.Equal(t, sha256Hex("xyz1234foo=barxyz1234"), custom)
}

func TestTransactionParameters(t *testing.T) {
	p := testProcessor()
	cart, site := testCart()

	params, err := p.TransactionParameters(cart, site)
	require.NoError(t, err)
	assert.Equal(t, p.RedirectURL, params["payment_page_url"])

	signed := copyMap(params)
	delete(signed, "payment_page_url")
	assert.NoError(t, VerifySignature(p.RequestSHAPhrase, SHA256, signed))
}

func TestTransactionParameters_BadMethod(t *testing.T) {
	p := testProcessor()
	p.SHAMethod = "SHA-1"
	cart, site := testCart()
	_, err := p.TransactionParameters(cart, site)
	assert.ErrorIs(t, err, ErrUnsupportedSHAMethod)
}

func TestPaymentMethodMetadata(t *testing.T) {
	p := testProcessor()
	cart, _ := testCart()
	assert.Equal(t, Metadata{
		Slug:         "payfort",
		Title:        "Payfort",
		CheckoutText: "Checkout with Payfort credit card",
		URL:          "https://lms.example.com/payfort/pay/7/",
	}, p.PaymentMethodMetadata(cart))
}

func TestParseMerchantReference(t *testing.T) {
	tests := []struct {
		ref        string
		site, cart int64
		wantErr    bool
	}{
		{ref: "1-2", site: 1, cart: 2},
		{ref: "10-200", site: 10, cart: 200},
		{ref: "12", wantErr: true},
		{ref: "x-2", wantErr: true},
		{ref: "1-y", wantErr: true},
		{ref: "1-2-3", wantErr: true},
		{ref: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			site, cart, err := ParseMerchantReference(tt.ref)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.site, site)
			assert.Equal(t, tt.cart, cart)
		})
	}
}
