// SPDX-License-Identifier: MIT

package validate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failures returns what v recorded so far.
func failures(t *testing.T, v *Validator) []Error {
	t.Helper()
	err := v.Err()
	if err == nil {
		return nil
	}
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Errors()
}

func TestValidator_URL(t *testing.T) {
	tests := []struct {
		name           string
		value          string
		allowedSchemes []string
		wantErr        bool
	}{
		{"valid http", "http://example.com", []string{"http", "https"}, false},
		{"valid https", "https://checkout.payfort.com/FortAPI/paymentPage", []string{"https"}, false},
		{"empty url", "", []string{"http"}, true},
		{"no host", "http://", []string{"http"}, true},
		{"invalid scheme", "ftp://example.com", []string{"http", "https"}, true},
		{"no scheme", "example.com", []string{"http"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.URL("testURL", tt.value, tt.allowedSchemes)
			assert.Equal(t, tt.wantErr, v.Err() != nil, "errors: %v", v.Err())
		})
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	for addr, wantErr := range map[string]bool{
		":8080":          false,
		"127.0.0.1:9000": false,
		"":               true,
		"localhost":      true,
		"localhost:":     true,
		":99999":         true,
	} {
		v := New()
		v.ListenAddr("ListenAddr", addr)
		assert.Equal(t, wantErr, v.Err() != nil, "addr %q", addr)
	}
}

func TestValidator_RangeAndDuration(t *testing.T) {
	v := New()
	v.Range("MaxAttempts", 24, 1, 100)
	v.PositiveDuration("Interval", time.Second)
	assert.NoError(t, v.Err())

	v.Range("MaxAttempts", 0, 1, 100)
	v.PositiveDuration("Interval", 0)
	assert.Len(t, failures(t, v), 2)
}

func TestValidator_OneOf(t *testing.T) {
	v := New()
	v.OneOf("SHAMethod", "SHA-256", []string{"SHA-256", "SHA-512"})
	assert.NoError(t, v.Err())

	v.OneOf("SHAMethod", "MD5", []string{"SHA-256", "SHA-512"})
	require.Error(t, v.Err())
	assert.Contains(t, v.Err().Error(), `got "MD5"`)
}

func TestValidator_Directory(t *testing.T) {
	root := t.TempDir()

	v := New()
	v.Directory("DataDir", filepath.Join(root, "new"), false)
	assert.NoError(t, v.Err())
	info, err := os.Stat(filepath.Join(root, "new"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	v = New()
	v.Directory("DataDir", filepath.Join(root, "missing"), true)
	assert.Error(t, v.Err())

	v = New()
	v.Directory("DataDir", "../escape", false)
	assert.Error(t, v.Err())
}

func TestValidationError_Aggregates(t *testing.T) {
	v := New()
	assert.NoError(t, v.Err())

	v.NotEmpty("AccessCode", " ")
	v.Range("Workers", -1, 0, 64)
	err := v.Err()
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors(), 2)
	assert.Contains(t, err.Error(), "AccessCode")
	assert.Contains(t, err.Error(), "; ")
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, LogLevelDebug, lvl)

	lvl, err = ParseLogLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, LogLevelWarn, lvl)

	_, err = ParseLogLevel("verbose")
	assert.ErrorIs(t, err, ErrInvalidLogLevel)
}

func TestValidator_Currency(t *testing.T) {
	v := New()
	v.Currency("c", "SAR")
	assert.NoError(t, v.Err())

	for _, bad := range []string{"", "sar", "SA", "SAR1", "QQQ"} {
		v := New()
		v.Currency("c", bad)
		assert.Error(t, v.Err(), bad)
	}
}

func TestValidator_IDTemplate(t *testing.T) {
	for _, ok := range []string{"/payments/success/{id}/", "https://lms.example.com/receipt/{id}"} {
		v := New()
		v.IDTemplate("u", ok)
		assert.NoError(t, v.Err(), ok)
	}

	v := New()
	v.IDTemplate("u", "/payments/success/")
	errs := failures(t, v)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "{id}")

	v = New()
	v.IDTemplate("u", "ftp://host/{id}")
	errs = failures(t, v)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "must be an absolute path or URL")
	assert.Equal(t, "ftp://host/{id}", errs[0].Value)
}
