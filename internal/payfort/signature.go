// SPDX-License-Identifier: MIT

package payfort

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"
)

// Supported digest names, as configured in the merchant account.
const (
	SHA256 = "SHA-256"
	SHA512 = "SHA-512"
)

// SignatureField is the parameter carrying the signature.
const SignatureField = "signature"

func newHash(method string) (hash.Hash, error) {
	switch method {
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSHAMethod, method)
	}
}

// Signature computes the PayFort signature of params.
//
// Keys are sorted case-insensitively and the string
// phrase + key1=value1 + key2=value2 ... + phrase is digested with method.
func Signature(phrase, method string, params map[string]string) (string, error) {
	h, err := newHash(method)
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		li, lj := strings.ToLower(keys[i]), strings.ToLower(keys[j])
		if li != lj {
			return li < lj
		}
		return keys[i] < keys[j]
	})

	var b strings.Builder
	b.WriteString(phrase)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	b.WriteString(phrase)

	h.Write([]byte(b.String()))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifySignature checks the signature carried in data against the one
// computed over the remaining fields. data is not modified.
func VerifySignature(phrase, method string, data map[string]string) error {
	got, ok := data[SignatureField]
	if !ok || got == "" {
		return ErrBadSignature
	}

	rest := make(map[string]string, len(data))
	for k, v := range data {
		if k != SignatureField {
			rest[k] = v
		}
	}

	want, err := Signature(phrase, method, rest)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(got)), []byte(want)) != 1 {
		return ErrBadSignature
	}
	return nil
}
