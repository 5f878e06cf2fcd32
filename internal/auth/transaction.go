// SPDX-License-Identifier: MIT

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// TransactionToken signs a transaction and merchant reference pair. A page
// rendered for one payment carries it to poll that payment's status without
// an API token. An empty secret yields no token.
func TransactionToken(secret, transactionID, reference string) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(transactionID))
	mac.Write([]byte{0})
	mac.Write([]byte(reference))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyTransactionToken reports whether token was issued for the pair.
func VerifyTransactionToken(secret, token, transactionID, reference string) bool {
	if secret == "" || token == "" {
		return false
	}
	return hmac.Equal([]byte(token), []byte(TransactionToken(secret, transactionID, reference)))
}
