// Package emitter turns a daily plan into individual profit orders. Order
// amounts carry bounded noise from an ordinary (non-seeded) random source:
// unlike the plan itself they are intentionally non-reproducible, but every
// draw is capped so the cumulative sum can never overshoot the daily target.
package emitter

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
	"github.com/dvvsdvc5-arch/chuangzuo/internal/services/plan"
)

const (
	noiseLow  = 0.7
	noiseHigh = 1.3

	// recentCap bounds the in-memory display list; orders live on as EARN
	// ledger entries, not here.
	recentCap = 50
)

// DefaultPlatforms is used when the configured platform catalog is empty.
var DefaultPlatforms = []string{"Binance", "OKX", "Bybit"}

// DefaultSymbols labels emitted orders when no symbol catalog is configured.
var DefaultSymbols = []string{"BTC/USDT", "ETH/USDT", "SOL/USDT"}

// Emitter owns the current daily plan and produces orders from it.
type Emitter struct {
	mu        sync.Mutex
	invested  decimal.Decimal
	plan      domain.DailyPlan
	platforms []string
	symbols   []string
	noise     *rand.Rand
	clock     domain.Clock
	logger    *zap.Logger
	recent    []domain.Order
}

// New builds an emitter with a fresh plan for today.
func New(invested decimal.Decimal, platforms, symbols []string, clock domain.Clock, logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = domain.SystemClock()
	}
	if len(platforms) == 0 {
		platforms = DefaultPlatforms
	}
	if len(symbols) == 0 {
		symbols = DefaultSymbols
	}

	e := &Emitter{
		invested:  invested,
		platforms: platforms,
		symbols:   symbols,
		noise:     rand.New(rand.NewSource(time.Now().UnixNano())),
		clock:     clock,
		logger:    logger,
	}
	e.plan = plan.Build(invested, clock.TodayKey())
	logger.Info("daily plan built",
		zap.String("day", e.plan.Day),
		zap.Int("orders_planned", e.plan.OrdersPlanned),
		zap.Int64("target_sum_minor", e.plan.TargetSumMinor))
	return e
}

// SetNoise replaces the noise source. Tests pin it to a fixed seed.
func (e *Emitter) SetNoise(r *rand.Rand) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.noise = r
}

// Plan returns a copy of the current plan state.
func (e *Emitter) Plan() domain.DailyPlan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.plan
}

// Recent returns the capped display list of emitted orders, newest first.
func (e *Emitter) Recent() []domain.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Order, len(e.recent))
	copy(out, e.recent)
	return out
}

// Rollover rebuilds the plan when the calendar day has advanced. Safe to call
// redundantly: rebuilding from identical (day, amount) inputs is a no-op in
// effect, and the old plan's unfinished capacity is discarded without
// carry-over.
func (e *Emitter) Rollover() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rolloverLocked()
}

func (e *Emitter) rolloverLocked() {
	today := e.clock.TodayKey()
	if today == e.plan.Day {
		return
	}
	e.plan = plan.Build(e.invested, today)
	e.logger.Info("day rollover, plan rebuilt",
		zap.String("day", today),
		zap.Int("orders_planned", e.plan.OrdersPlanned),
		zap.Int64("target_sum_minor", e.plan.TargetSumMinor))
}

// Next emits the next profit order, or reports false when the plan has no
// capacity. A day change observed here triggers a rebuild before emitting.
func (e *Emitter) Next() (domain.Order, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rolloverLocked()

	if e.plan.Exhausted() || e.plan.RemainingTargetMinor() == 0 {
		return domain.Order{}, false
	}

	sampled := e.sampleAmount()
	e.plan.OrdersDone++
	e.plan.ProducedMinor += sampled

	order := domain.Order{
		Platform:    e.platforms[e.noise.Intn(len(e.platforms))],
		Symbol:      e.symbols[e.noise.Intn(len(e.symbols))],
		Profit:      decimal.NewFromInt(sampled).Div(decimal.NewFromInt(100)),
		ProfitMinor: sampled,
		Timestamp:   e.clock.Now(),
	}

	e.recent = append([]domain.Order{order}, e.recent...)
	if len(e.recent) > recentCap {
		e.recent = e.recent[:recentCap]
	}

	e.logger.Debug("order emitted",
		zap.String("platform", order.Platform),
		zap.String("symbol", order.Symbol),
		zap.Int64("profit_minor", sampled),
		zap.Int("orders_done", e.plan.OrdersDone),
		zap.Int64("produced_minor", e.plan.ProducedMinor))

	return order, true
}

// sampleAmount draws the per-order amount: the even split of the remaining
// target scaled by noise, floored at 1 minor unit and capped so every
// remaining order can still receive at least 1 minor unit.
func (e *Emitter) sampleAmount() int64 {
	remainingOrders := int64(e.plan.RemainingOrders())
	remainingTarget := e.plan.RemainingTargetMinor()

	expected := float64(remainingTarget) / float64(remainingOrders)
	noise := noiseLow + e.noise.Float64()*(noiseHigh-noiseLow)
	sampled := int64(math.Round(expected * noise))

	if sampled < 1 {
		sampled = 1
	}
	ceiling := remainingTarget - (remainingOrders - 1)
	if ceiling < 1 {
		ceiling = remainingTarget
	}
	if sampled > ceiling {
		sampled = ceiling
	}
	return sampled
}
