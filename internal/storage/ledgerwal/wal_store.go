// Package ledgerwal persists ledger entries in an append-only WAL. The WAL
// is the durable source of truth: entries are never edited or deleted, and
// balances are reconstructible from the log alone.
package ledgerwal

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
)

const (
	DefaultDir = "./wal/ledger"

	segmentThreshold = 1000
	maxSegments      = 100

	entryKeyPrefix = "ledger_"
)

// Store is a gowal-backed append-only ledger journal, keyed per user.
type Store struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewStore initializes the WAL-backed journal in the given directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "entry_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init ledger WAL")
	}

	return &Store{wal: wal}, nil
}

// Append writes entries for the user in invocation order.
func (s *Store) Append(userID string, entries ...domain.LedgerEntry) error {
	if s == nil || s.wal == nil {
		return errors.New("ledger store is not initialized")
	}
	if userID == "" {
		return errors.New("user id is required")
	}

	key := fmt.Sprintf("%s%s", entryKeyPrefix, userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		payload, err := json.Marshal(entry)
		if err != nil {
			return errors.Wrap(err, "marshal ledger entry")
		}

		nextIndex := s.wal.CurrentIndex() + 1
		if err := s.wal.Write(nextIndex, key, payload); err != nil {
			return errors.Wrapf(err, "append ledger entry %s", entry.ID)
		}
	}

	return nil
}

// List returns the user's entries ordered newest first.
func (s *Store) List(userID string) ([]domain.LedgerEntry, error) {
	if s == nil || s.wal == nil {
		return nil, errors.New("ledger store is not initialized")
	}

	key := fmt.Sprintf("%s%s", entryKeyPrefix, userID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []domain.LedgerEntry
	for msg := range s.wal.Iterator() {
		if msg.Key != key {
			continue
		}
		var entry domain.LedgerEntry
		if err := json.Unmarshal(msg.Value, &entry); err != nil {
			return nil, errors.Wrap(err, "decode ledger entry")
		}
		entries = append(entries, entry)
	}

	// WAL iterates oldest first; display order is newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	if s == nil || s.wal == nil {
		return errors.New("ledger store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
