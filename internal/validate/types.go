// SPDX-License-Identifier: MIT

package validate

import "strings"

// LogLevel is a level accepted by the service logger.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ErrInvalidLogLevel is returned by ParseLogLevel.
var ErrInvalidLogLevel = &Error{
	Field:   "logLevel",
	Message: "invalid log level (must be: debug, info, warn, error)",
}

// ParseLogLevel parses a case-insensitive level name.
func ParseLogLevel(s string) (LogLevel, error) {
	switch l := LogLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return l, nil
	}
	return "", ErrInvalidLogLevel
}

// Currency checks an ISO 4217 alphabetic code such as "SAR".
func (v *Validator) Currency(field, code string) {
	v.check(field, code, "required,iso4217", "must be an upper case ISO 4217 code")
}

// IDTemplate checks a redirect target in which "{id}" is replaced by a
// transaction or invoice id. Relative paths and absolute http(s) URLs are
// accepted.
func (v *Validator) IDTemplate(field, tpl string) {
	if !strings.Contains(tpl, "{id}") {
		v.AddError(field, `must contain the "{id}" placeholder`, tpl)
		return
	}
	if strings.HasPrefix(tpl, "/") {
		return
	}
	target := New()
	target.URL(field, strings.ReplaceAll(tpl, "{id}", "0"), []string{"http", "https"})
	for _, e := range target.failed {
		v.AddError(field, "must be an absolute path or URL: "+e.Message, tpl)
	}
}
