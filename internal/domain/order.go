package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a single simulated profit event. It is consumed immediately into
// an EARN ledger entry and retained only in a capped in-memory display list.
type Order struct {
	Platform    string          `json:"platform"`
	Symbol      string          `json:"symbol"`
	Profit      decimal.Decimal `json:"profit"`
	ProfitMinor int64           `json:"profit_minor"`
	Timestamp   time.Time       `json:"timestamp"`
}
