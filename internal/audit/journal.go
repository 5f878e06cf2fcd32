// SPDX-License-Identifier: MIT

package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Journal is a badger-backed Sink. Keys are laid out as
// "evt/<cart>/<unix nanos>/<seq>" so the history of a cart is a prefix scan.
type Journal struct {
	db        *badger.DB
	retention time.Duration
	seq       atomic.Uint64
}

// Filter narrows Query results. Zero values match everything.
type Filter struct {
	CartID int64
	Action Action
	Limit  int
}

// OpenJournal opens (or creates) a journal at path. Events expire after
// retention; zero keeps them forever.
func OpenJournal(path string, retention time.Duration) (*Journal, error) {
	return openJournal(badger.DefaultOptions(path).WithLogger(nil), retention)
}

// OpenInMemoryJournal opens a journal that lives only as long as the process.
func OpenInMemoryJournal() (*Journal, error) {
	return openJournal(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil), 0)
}

func openJournal(opts badger.Options, retention time.Duration) (*Journal, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit journal: %w", err)
	}
	return &Journal{db: db, retention: retention}, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error { return j.db.Close() }

func cartPrefix(cartID int64) string {
	return fmt.Sprintf("evt/%020d/", cartID)
}

// Append stores ev.
func (j *Journal) Append(_ context.Context, ev Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	buf, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("%s%020d/%010d", cartPrefix(ev.CartID), ev.Timestamp.UnixNano(), j.seq.Add(1))

	return j.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), buf)
		if j.retention > 0 {
			e = e.WithTTL(j.retention)
		}
		return txn.SetEntry(e)
	})
}

// Query returns matching events in chronological order within a cart.
// Without a cart filter, events are grouped by cart id.
func (j *Journal) Query(_ context.Context, f Filter) ([]Event, error) {
	prefix := "evt/"
	if f.CartID != 0 {
		prefix = cartPrefix(f.CartID)
	}

	var out []Event
	err := j.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			var ev Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return err
			}
			if f.Action != "" && ev.Action != f.Action {
				continue
			}
			out = append(out, ev)
			if f.Limit > 0 && len(out) >= f.Limit {
				return nil
			}
		}
		return nil
	})
	return out, err
}

// Count returns the number of events matching f.
func (j *Journal) Count(ctx context.Context, f Filter) (int, error) {
	f.Limit = 0
	evs, err := j.Query(ctx, f)
	return len(evs), err
}

// RunGC reclaims value log space. It is a no-op for in-memory journals.
func (j *Journal) RunGC() error {
	if j.db.Opts().InMemory {
		return nil
	}
	err := j.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Ping reports whether the journal is usable.
func (j *Journal) Ping(_ context.Context) error {
	if j.db.IsClosed() {
		return errors.New("audit journal closed")
	}
	return nil
}

// ParseAction returns a known action or an error.
func ParseAction(s string) (Action, error) {
	for _, a := range PaymentActions {
		if string(a) == strings.TrimSpace(s) {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown audit action %q", s)
}

// PaymentActions lists every gateway action.
var PaymentActions = []Action{
	ActionCartFulfillmentError,
	ActionUserEnrolled,
	ActionUserEnrolledError,
	ActionRedirectToPayment,
	ActionDuplicateTransaction,
	ActionBadResponseSignature,
	ActionReceivedResponse,
	ActionResponseInvalidCart,
	ActionTransactionRolledBack,
	ActionCartStatusUpdated,
	ActionCartFulfilled,
}
