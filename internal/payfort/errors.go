// SPDX-License-Identifier: MIT

package payfort

import "errors"

var (
	// ErrBadSignature is returned when a response carries no signature or
	// one that does not match the response phrase.
	ErrBadSignature = errors.New("payfort: bad response signature")

	// ErrUnsupportedSHAMethod is returned for any digest other than SHA-256
	// and SHA-512.
	ErrUnsupportedSHAMethod = errors.New("payfort: unsupported sha method")

	// ErrInvalidResponse wraps response format violations.
	ErrInvalidResponse = errors.New("payfort: invalid response format")

	// ErrInvalidReference is returned for merchant references that are not
	// "<site>-<cart>".
	ErrInvalidReference = errors.New("payfort: invalid merchant reference")
)
