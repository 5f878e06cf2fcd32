// SPDX-License-Identifier: MIT

package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/zeitlabs/payfort/internal/audit"
	"github.com/zeitlabs/payfort/internal/payments/store"
)

// OpenStore opens a migrated SQLite store in a temporary directory. It is
// closed when the test ends.
func OpenStore(t testing.TB) *store.SQLiteStore {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "payments.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// OpenJournal opens an in-memory audit journal closed when the test ends.
func OpenJournal(t testing.TB) *audit.Journal {
	t.Helper()
	j, err := audit.OpenInMemoryJournal()
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}
