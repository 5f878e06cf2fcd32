// SPDX-License-Identifier: MIT

// Package payfort implements the PayFort (Amazon Payment Services) hosted
// checkout: request signing, response verification and the processor that
// builds the parameters posted to the payment page.
package payfort
