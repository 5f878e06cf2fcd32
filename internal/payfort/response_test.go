// SPDX-License-Identifier: MIT

package payfort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validResponse() map[string]string {
	return map[string]string{
		"amount":                    "150",
		"response_code":             "14000",
		"acquirer_response_message": "Success",
		"card_number":               "411111******1111",
		"signature":                 "141ae3d36be4f7f50cefbb966b26c8ee073a84dd32d99eec3084d19efb247895",
		"merchant_identifier":       "abcdi",
		"access_code":               "m6ScifP9737ykbx31Z7i",
		"payment_option":            "VISA",
		"language":                  "en",
		"eci":                       "ECOMMERCE",
		"fort_id":                   "169996200024611493",
		"command":                   "PURCHASE",
		"response_message":          "Success",
		"merchant_reference":        "1-1",
		"currency":                  "SAR",
		"status":                    "14",
	}
}

func TestVerifyResponseFormat_Valid(t *testing.T) {
	resp, err := VerifyResponseFormat(validResponse())
	require.NoError(t, err)
	assert.Equal(t, "169996200024611493", resp.FortID)
	assert.Equal(t, "VISA", resp.PaymentOption)

	amount, err := resp.AmountMinor()
	require.NoError(t, err)
	assert.Equal(t, int64(150), amount)
}

func TestVerifyResponseFormat_MissingFields(t *testing.T) {
	data := validResponse()
	delete(data, "fort_id")
	delete(data, "eci")

	_, err := VerifyResponseFormat(data)
	require.ErrorIs(t, err, ErrInvalidResponse)
	assert.Contains(t, err.Error(), "fort_id")
	assert.Contains(t, err.Error(), "eci")
}

func TestVerifyResponseFormat_Amount(t *testing.T) {
	for _, amount := range []string{"-1", "1.50", "abc", "99999999999999999999"} {
		data := validResponse()
		data["amount"] = amount
		_, err := VerifyResponseFormat(data)
		assert.ErrorIs(t, err, ErrInvalidResponse, amount)
	}

	data := validResponse()
	data["amount"] = "0"
	_, err := VerifyResponseFormat(data)
	assert.NoError(t, err)
}
