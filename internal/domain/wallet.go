package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the per-user fiat aggregate. All amounts are integer minor
// currency units. AvailableMinor and PendingMinor never go negative; every
// mutation updates UpdatedAt and is paired with ledger entries whose signed
// amounts sum to the wallet's net change.
type Wallet struct {
	AvailableMinor int64     `json:"available_minor"`
	PendingMinor   int64     `json:"pending_minor"`
	Currency       string    `json:"currency"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AssetBalances holds per-user crypto balances. USDT is tracked in integer
// minor units and kept in sync with Wallet.AvailableMinor on exchange;
// native coins are tracked in fractional units.
type AssetBalances struct {
	USDTMinor int64                      `json:"usdt_minor"`
	Holdings  map[string]decimal.Decimal `json:"holdings"`
}

// NewAssetBalances returns empty balances with an initialized holdings map.
func NewAssetBalances() AssetBalances {
	return AssetBalances{Holdings: make(map[string]decimal.Decimal)}
}

// Holding returns the balance for the given asset symbol, zero when absent.
func (a AssetBalances) Holding(asset string) decimal.Decimal {
	if a.Holdings == nil {
		return decimal.Zero
	}
	return a.Holdings[asset]
}

// Clone returns a deep copy so callers can mutate without aliasing the
// stored map.
func (a AssetBalances) Clone() AssetBalances {
	out := AssetBalances{USDTMinor: a.USDTMinor, Holdings: make(map[string]decimal.Decimal, len(a.Holdings))}
	for asset, amount := range a.Holdings {
		out.Holdings[asset] = amount
	}
	return out
}
