package ledgerwal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndListNewestFirst(t *testing.T) {
	store := newTestStore(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	first := domain.NewLedgerEntry(domain.EntryEarn, 120, "USD", now)
	second := domain.NewLedgerEntry(domain.EntryEarn, 80, "USD", now.Add(time.Minute))
	require.NoError(t, store.Append("alice", first))
	require.NoError(t, store.Append("alice", second))

	entries, err := store.List("alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, second.ID, entries[0].ID, "newest entry first")
	require.Equal(t, first.ID, entries[1].ID)
}

func TestListIsolatesUsers(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	require.NoError(t, store.Append("alice", domain.NewLedgerEntry(domain.EntryEarn, 100, "USD", now)))
	require.NoError(t, store.Append("bob", domain.NewLedgerEntry(domain.EntryPayout, 50, "USD", now)))

	aliceEntries, err := store.List("alice")
	require.NoError(t, err)
	require.Len(t, aliceEntries, 1)
	require.Equal(t, domain.EntryEarn, aliceEntries[0].Kind)

	bobEntries, err := store.List("bob")
	require.NoError(t, err)
	require.Len(t, bobEntries, 1)
	require.Equal(t, domain.EntryPayout, bobEntries[0].Kind)
}

func TestListEmptyUser(t *testing.T) {
	store := newTestStore(t)

	entries, err := store.List("nobody")
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestAppendMultipleKeepsOrder(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	request := domain.NewLedgerEntry(domain.EntryWithdrawalRequest, -1000, "USD", now)
	fee := domain.NewLedgerEntry(domain.EntryWithdrawalFee, -10, "USD", now)
	require.NoError(t, store.Append("alice", request, fee))

	entries, err := store.List("alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, fee.ID, entries[0].ID)
	require.Equal(t, request.ID, entries[1].ID)
}

func TestAppendRequiresUser(t *testing.T) {
	store := newTestStore(t)
	err := store.Append("", domain.NewLedgerEntry(domain.EntryEarn, 1, "USD", time.Now()))
	require.Error(t, err)
}
