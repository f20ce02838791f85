package walletstate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), "USD")
	require.NoError(t, err)
	return store
}

func TestWalletDefaultsWhenMissing(t *testing.T) {
	store := newTestStore(t)

	w, err := store.Wallet("alice")
	require.NoError(t, err)
	require.Zero(t, w.AvailableMinor)
	require.Zero(t, w.PendingMinor)
	require.Equal(t, "USD", w.Currency)
}

func TestWalletRoundTrip(t *testing.T) {
	store := newTestStore(t)
	updated := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	in := domain.Wallet{AvailableMinor: 123456, PendingMinor: 500, Currency: "USD", UpdatedAt: updated}
	require.NoError(t, store.SaveWallet("alice", in))

	out, err := store.Wallet("alice")
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestAssetsRoundTripKeepsWallet(t *testing.T) {
	store := newTestStore(t)

	wallet := domain.Wallet{AvailableMinor: 10000, Currency: "USD", UpdatedAt: time.Now().UTC()}
	require.NoError(t, store.SaveWallet("alice", wallet))

	assets := domain.NewAssetBalances()
	assets.USDTMinor = 250000
	assets.Holdings["BTC"] = decimal.NewFromFloat(0.015)
	assets.Holdings["ETH"] = decimal.NewFromFloat(1.2)
	require.NoError(t, store.SaveAssets("alice", assets))

	gotAssets, err := store.Assets("alice")
	require.NoError(t, err)
	require.Equal(t, int64(250000), gotAssets.USDTMinor)
	require.True(t, gotAssets.Holding("BTC").Equal(decimal.NewFromFloat(0.015)))
	require.True(t, gotAssets.Holding("ETH").Equal(decimal.NewFromFloat(1.2)))

	gotWallet, err := store.Wallet("alice")
	require.NoError(t, err)
	require.Equal(t, wallet.AvailableMinor, gotWallet.AvailableMinor, "asset save must not clobber wallet")
}

func TestAssetsDefaultEmpty(t *testing.T) {
	store := newTestStore(t)

	a, err := store.Assets("alice")
	require.NoError(t, err)
	require.Zero(t, a.USDTMinor)
	require.True(t, a.Holding("BTC").IsZero())
}

func TestSanitizeUserID(t *testing.T) {
	require.Equal(t, "alice", sanitizeUserID("Alice"))
	require.Equal(t, "user_42", sanitizeUserID("user 42"))
	require.Equal(t, "default", sanitizeUserID("  "))
	require.Equal(t, "a_b", sanitizeUserID("a//b"))
}
