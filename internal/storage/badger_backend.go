package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes for different data types
const (
	prefixReport = "rep:" // report data, keyed by ID
	prefixIndex  = "idx:" // creation-time index: idx:<unix nanos>:<id> -> id
)

// BadgerBackend is a BadgerDB-backed report store.
type BadgerBackend struct {
	db          *badger.DB
	initialized bool
	mu          sync.RWMutex
}

// NewBadgerBackend creates a new BadgerDB backend.
func NewBadgerBackend() *BadgerBackend {
	return &BadgerBackend{}
}

// Initialize opens or creates the BadgerDB database at the given path.
func (b *BadgerBackend) Initialize(path string, readOnly bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	opts := badger.DefaultOptions(path).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs

	if readOnly {
		opts = opts.WithReadOnly(true)
	}

	var err error
	b.db, err = badger.Open(opts)
	if err != nil {
		return fmt.Errorf("opening badger DB: %w", err)
	}

	b.initialized = true
	return nil
}

// Close releases all resources held by the backend.
func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}

	err := b.db.Close()
	b.db = nil
	b.initialized = false
	return err
}

// SaveReport stores a report together with its index entry.
func (b *BadgerBackend) SaveReport(ctx context.Context, r *Report) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	if err := wb.Set(reportKey(r.ID), data); err != nil {
		return fmt.Errorf("setting report: %w", err)
	}
	if err := wb.Set(indexKey(r), []byte(r.ID)); err != nil {
		return fmt.Errorf("setting report index: %w", err)
	}

	return wb.Flush()
}

// GetReport returns the report with the given ID.
func (b *BadgerBackend) GetReport(ctx context.Context, id string) (*Report, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var r *Report
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		r, err = getReport(txn, id)
		return err
	})
	return r, err
}

// LatestReport returns the most recently created report.
func (b *BadgerBackend) LatestReport(ctx context.Context) (*Report, error) {
	reports, err := b.ListReports(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	return reports[0], nil
}

// ListReports returns up to limit reports, newest first.
func (b *BadgerBackend) ListReports(ctx context.Context, limit int) ([]*Report, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var reports []*Report
	err := b.db.View(func(txn *badger.Txn) error {
		ids := newestIDs(txn, limit)
		for _, id := range ids {
			r, err := getReport(txn, id)
			if err != nil {
				return err
			}
			reports = append(reports, r)
		}
		return nil
	})
	return reports, err
}

// DeleteReport removes a report and its index entry.
func (b *BadgerBackend) DeleteReport(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.db.Update(func(txn *badger.Txn) error {
		return deleteReport(txn, id)
	})
}

// Prune keeps the newest keep reports.
func (b *BadgerBackend) Prune(ctx context.Context, keep int) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if keep < 0 {
		keep = 0
	}

	deleted := 0
	err := b.db.Update(func(txn *badger.Txn) error {
		ids := newestIDs(txn, 0)
		if len(ids) <= keep {
			return nil
		}
		for _, id := range ids[keep:] {
			if err := deleteReport(txn, id); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	return deleted, err
}

// newestIDs walks the creation-time index backwards.
func newestIDs(txn *badger.Txn, limit int) []string {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixIndex)
	opts.Reverse = true
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Seek(append([]byte(prefixIndex), 0xFF)); it.Valid(); it.Next() {
		_ = it.Item().Value(func(val []byte) error {
			ids = append(ids, string(val))
			return nil
		})
		if limit > 0 && len(ids) >= limit {
			break
		}
	}
	return ids
}

func getReport(txn *badger.Txn, id string) (*Report, error) {
	item, err := txn.Get(reportKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting report: %w", err)
	}

	var r Report
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &r)
	}); err != nil {
		return nil, fmt.Errorf("unmarshaling report: %w", err)
	}
	return &r, nil
}

func deleteReport(txn *badger.Txn, id string) error {
	r, err := getReport(txn, id)
	if err != nil {
		return err
	}
	if err := txn.Delete(reportKey(id)); err != nil {
		return fmt.Errorf("deleting report: %w", err)
	}
	if err := txn.Delete(indexKey(r)); err != nil {
		return fmt.Errorf("deleting report index: %w", err)
	}
	return nil
}

func reportKey(id string) []byte {
	return []byte(prefixReport + id)
}

// indexKey sorts by creation time; nanoseconds are zero-padded so byte order
// equals time order.
func indexKey(r *Report) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefixIndex, r.CreatedAt.UnixNano(), r.ID))
}
