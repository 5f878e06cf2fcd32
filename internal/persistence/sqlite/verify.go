// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// CheckMode selects the integrity pragma.
type CheckMode string

const (
	// QuickCheck skips index consistency and runs in O(N).
	QuickCheck CheckMode = "quick"
	// FullCheck runs PRAGMA integrity_check.
	FullCheck CheckMode = "full"
)

// ParseCheckMode accepts "quick" or "full".
func ParseCheckMode(s string) (CheckMode, error) {
	switch m := CheckMode(strings.ToLower(s)); m {
	case QuickCheck, FullCheck:
		return m, nil
	}
	return "", fmt.Errorf("unknown integrity check mode %q", s)
}

// VerifyIntegrity opens the payments database read-only and returns the
// diagnostic rows of the check, or nil when the file is healthy.
func VerifyIntegrity(ctx context.Context, path string, mode CheckMode) ([]string, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(2000)", path))
	if err != nil {
		return nil, fmt.Errorf("open database for verification: %w", err)
	}
	defer db.Close()

	pragma := "PRAGMA quick_check;"
	if mode == FullCheck {
		pragma = "PRAGMA integrity_check;"
	}

	rows, err := db.QueryContext(ctx, pragma)
	if err != nil {
		return nil, fmt.Errorf("integrity pragma: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return nil, fmt.Errorf("scan integrity row: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(results) == 1 && strings.EqualFold(results[0], "ok"):
		return nil, nil
	case len(results) == 0:
		return []string{"integrity check returned no rows"}, nil
	}
	return results, nil
}
