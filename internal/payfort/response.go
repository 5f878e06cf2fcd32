// SPDX-License-Identifier: MIT

package payfort

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// SuccessStatus is the PayFort status for a captured purchase.
const SuccessStatus = "14"

// Response is the typed view of a PayFort redirect or notification.
type Response struct {
	Amount                  string `form:"amount" validate:"required,number"`
	ResponseCode            string `form:"response_code" validate:"required"`
	MerchantIdentifier      string `form:"merchant_identifier" validate:"required"`
	FortID                  string `form:"fort_id" validate:"required"`
	Command                 string `form:"command" validate:"required"`
	ResponseMessage         string `form:"response_message" validate:"required"`
	MerchantReference       string `form:"merchant_reference" validate:"required"`
	Currency                string `form:"currency" validate:"required"`
	Status                  string `form:"status" validate:"required"`
	ECI                     string `form:"eci" validate:"required"`
	Signature               string `form:"signature" validate:"required"`
	PaymentOption           string `form:"payment_option"`
	AcquirerResponseMessage string `form:"acquirer_response_message"`
	CustomerEmail           string `form:"customer_email"`
}

// AmountMinor returns the amount in minor units.
func (r *Response) AmountMinor() (int64, error) {
	v, err := strconv.ParseInt(r.Amount, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: amount %q is not a non-negative integer", ErrInvalidResponse, r.Amount)
	}
	return v, nil
}

// NewResponse maps raw form data onto a Response.
func NewResponse(data map[string]string) *Response {
	return &Response{
		Amount:                  data["amount"],
		ResponseCode:            data["response_code"],
		MerchantIdentifier:      data["merchant_identifier"],
		FortID:                  data["fort_id"],
		Command:                 data["command"],
		ResponseMessage:         data["response_message"],
		MerchantReference:       data["merchant_reference"],
		Currency:                data["currency"],
		Status:                  data["status"],
		ECI:                     data["eci"],
		Signature:               data["signature"],
		PaymentOption:           data["payment_option"],
		AcquirerResponseMessage: data["acquirer_response_message"],
		CustomerEmail:           data["customer_email"],
	}
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func responseValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			return f.Tag.Get("form")
		})
	})
	return validate
}

// VerifyResponseFormat checks that every mandatory field is present and the
// amount is a non-negative integer.
func VerifyResponseFormat(data map[string]string) (*Response, error) {
	resp := NewResponse(data)
	if err := responseValidator().Struct(resp); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return nil, fmt.Errorf("%w: invalid or missing fields: %s", ErrInvalidResponse, strings.Join(fields, ", "))
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if _, err := resp.AmountMinor(); err != nil {
		return nil, err
	}
	return resp, nil
}
