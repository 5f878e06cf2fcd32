// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeitlabs/payfort/internal/payfort"
	"github.com/zeitlabs/payfort/internal/testutil"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, logs bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&logs)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestChangelogLint_Repository(t *testing.T) {
	out, err := run(t, "changelog", "lint", "-f", testutil.RepoFile(t, "CHANGELOG.md"))
	require.NoError(t, err, out)
	assert.NotContains(t, out, ": error: ")
}

func TestChangelogLint_ReportsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")
	require.NoError(t, os.WriteFile(path, []byte("# Changelog\n\n## [0.1.0] - 2025-01-01\n\n### Added\n\n- a\n\n## [0.2.0] - 2024-01-01\n\n### Added\n\n- b\n"), 0o600))

	out, err := run(t, "changelog", "lint", "-f", path)
	assert.ErrorIs(t, err, errChangelogInvalid)
	assert.Contains(t, out, ": error: ")
}

func TestChangelogRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CHANGELOG.md")
	require.NoError(t, os.WriteFile(path, []byte(`# Changelog

## [Unreleased]

### Added

- Status polling endpoint.

## [0.1.0] - 2025-07-28

### Added

- Initial release.

[Unreleased]: https://github.com/zeitlabs/payfort/compare/v0.1.0...HEAD
[0.1.0]: https://github.com/zeitlabs/payfort/releases/tag/v0.1.0
`), 0o600))

	out, err := run(t, "changelog", "release", "0.2.0", "--date", "2025-09-01", "-f", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "released 0.2.0 on 2025-09-01")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Less(t, strings.Index(text, "## [Unreleased]"), strings.Index(text, "## [0.2.0] - 2025-09-01"))
	assert.Less(t, strings.Index(text, "## [0.2.0] - 2025-09-01"), strings.Index(text, "- Status polling endpoint."))
	assert.Contains(t, text, "[Unreleased]: https://github.com/zeitlabs/payfort/compare/v0.2.0...HEAD\n"+
		"[0.2.0]: https://github.com/zeitlabs/payfort/compare/v0.1.0...v0.2.0\n")

	out, err = run(t, "changelog", "latest", "-f", path)
	require.NoError(t, err)
	assert.Equal(t, "0.2.0\n", out)

	_, err = run(t, "changelog", "release", "0.1.5", "-f", path)
	assert.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	params := []string{
		"amount=150", "response_code=14000", "merchant_identifier=merchant",
		"fort_id=1234", "command=PURCHASE", "response_message=Success",
		"merchant_reference=1-1", "currency=SAR", "status=14", "eci=ECOMMERCE",
	}
	args := append([]string{"sign", "--phrase", "secret", "--method", payfort.SHA256}, params...)
	out, err := run(t, args...)
	require.NoError(t, err)
	sig := strings.TrimSpace(out)

	want, err := payfort.Signature("secret", payfort.SHA256, map[string]string{
		"amount": "150", "response_code": "14000", "merchant_identifier": "merchant",
		"fort_id": "1234", "command": "PURCHASE", "response_message": "Success",
		"merchant_reference": "1-1", "currency": "SAR", "status": "14", "eci": "ECOMMERCE",
	})
	require.NoError(t, err)
	assert.Equal(t, want, sig)

	args = append([]string{"verify", "--phrase", "secret", "--method", payfort.SHA256, "signature=" + sig}, params...)
	out, err = run(t, args...)
	require.NoError(t, err)
	assert.Equal(t, "signature valid\n", out)

	args = append([]string{"verify", "--phrase", "other", "--method", payfort.SHA256, "signature=" + sig}, params...)
	_, err = run(t, args...)
	assert.ErrorIs(t, err, payfort.ErrBadSignature)
}

func TestSign_RejectsMalformedArgument(t *testing.T) {
	_, err := run(t, "sign", "--phrase", "p", "--method", payfort.SHA256, "novalue")
	assert.ErrorContains(t, err, "not key=value")
}

func TestDBSeedVerifyAndAuditQuery(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PAYFORT_DATA", dir)
	t.Setenv("PAYFORT_DB_PATH", filepath.Join(dir, "payments.db"))

	out, err := run(t, "db", "seed", "--status", "pending")
	require.NoError(t, err, out)
	assert.Contains(t, out, "/payfort/pay/")

	_, err = run(t, "db", "seed", "--status", "refunded")
	assert.ErrorContains(t, err, "unknown cart status")

	out, err = run(t, "db", "verify", "--mode", "full")
	require.NoError(t, err, out)
	assert.Contains(t, out, ": ok")

	out, err = run(t, "audit", "query", "--cart", "1")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = run(t, "audit", "query", "--action", "nope")
	assert.ErrorContains(t, err, "unknown audit action")
}
