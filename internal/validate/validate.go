// SPDX-License-Identifier: MIT

// Package validate checks configuration values. A Validator keeps going
// after the first failure so an operator sees every problem at once.
package validate

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var engine = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

// Error is one failed check.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// ValidationError is every failure of one validation pass.
type ValidationError []Error

// Errors returns the individual failures.
func (e ValidationError) Errors() []Error { return e }

func (e ValidationError) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validator collects failures.
type Validator struct {
	failed ValidationError
}

// New returns an empty Validator.
func New() *Validator { return &Validator{} }

// AddError records a failure that no built-in check covers.
func (v *Validator) AddError(field, message string, value any) {
	v.failed = append(v.failed, Error{Field: field, Value: value, Message: message})
}

// Err returns nil, or a ValidationError with the failures so far.
func (v *Validator) Err() error {
	if len(v.failed) == 0 {
		return nil
	}
	return slices.Clone(v.failed)
}

// check runs validator tags against value and records message on failure.
func (v *Validator) check(field string, value any, tags, message string) bool {
	if err := engine().Var(value, tags); err != nil {
		v.AddError(field, message, value)
		return false
	}
	return true
}

// URL checks an absolute URL whose scheme is one of schemes.
func (v *Validator) URL(field, value string, schemes []string) {
	if !v.check(field, value, "required,url", "must be an absolute URL") {
		return
	}
	u, err := url.Parse(value)
	if err != nil || u.Host == "" {
		v.AddError(field, "URL must have a host", value)
		return
	}
	if len(schemes) > 0 && !slices.Contains(schemes, u.Scheme) {
		v.AddError(field, fmt.Sprintf("unsupported URL scheme %q (allowed: %v)", u.Scheme, schemes), value)
	}
}

// ListenAddr checks a host:port listen address. The host may be empty.
func (v *Validator) ListenAddr(field, addr string) {
	_, port, err := net.SplitHostPort(strings.TrimSpace(addr))
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid listen address: %v", err), addr)
		return
	}
	v.check(field, port, "required,port", "listen address must include a valid port")
}

// Range checks lo <= value <= hi.
func (v *Validator) Range(field string, value, lo, hi int) {
	v.check(field, value, fmt.Sprintf("gte=%d,lte=%d", lo, hi),
		fmt.Sprintf("value must be between %d and %d, got %d", lo, hi, value))
}

// PositiveDuration checks d > 0.
func (v *Validator) PositiveDuration(field string, d time.Duration) {
	if d <= 0 {
		v.AddError(field, fmt.Sprintf("duration must be positive, got %s", d), d)
	}
}

// NotEmpty rejects empty and whitespace-only values.
func (v *Validator) NotEmpty(field, value string) {
	v.check(field, strings.TrimSpace(value), "required", "value cannot be empty")
}

// OneOf checks that value is one of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("value must be one of %v, got %q", allowed, value), value)
	}
}

// Directory checks a directory path. A missing directory is created unless
// mustExist is set.
func (v *Validator) Directory(field, path string, mustExist bool) {
	if strings.TrimSpace(path) == "" {
		v.AddError(field, "directory path cannot be empty", path)
		return
	}
	if slices.Contains(strings.Split(filepath.ToSlash(path), "/"), "..") {
		v.AddError(field, "path contains traversal sequences (..)", path)
		return
	}

	info, err := os.Stat(path)
	switch {
	case err == nil && !info.IsDir():
		v.AddError(field, "path is not a directory", path)
	case err == nil:
	case !errors.Is(err, fs.ErrNotExist):
		v.AddError(field, fmt.Sprintf("cannot access directory: %v", err), path)
	case mustExist:
		v.AddError(field, "directory does not exist", path)
	default:
		if err := os.MkdirAll(path, 0o750); err != nil {
			v.AddError(field, fmt.Sprintf("cannot create directory: %v", err), path)
		}
	}
}
