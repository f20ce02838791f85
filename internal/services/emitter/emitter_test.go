package emitter

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) TodayKey() string { return domain.DayKeyOf(c.now) }

func newTestEmitter(t *testing.T, invested int64, clock domain.Clock) *Emitter {
	t.Helper()
	e := New(decimal.NewFromInt(invested), nil, nil, clock, zap.NewNop())
	e.SetNoise(rand.New(rand.NewSource(42)))
	return e
}

func TestNextZeroCapitalNoOp(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)}
	e := New(decimal.Zero, nil, nil, clock, zap.NewNop())

	_, ok := e.Next()
	require.False(t, ok, "zero plan must not emit")
	require.True(t, e.Plan().Exhausted())
}

func TestNextRespectsTargetBoundUntilExhaustion(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)}
	e := newTestEmitter(t, 5000, clock)

	p := e.Plan()
	require.Positive(t, p.OrdersPlanned)
	require.Positive(t, p.TargetSumMinor)

	var sum int64
	emitted := 0
	for {
		order, ok := e.Next()
		if !ok {
			break
		}
		emitted++
		sum += order.ProfitMinor
		require.GreaterOrEqual(t, order.ProfitMinor, int64(1), "per-order floor is 1 minor unit")

		state := e.Plan()
		require.LessOrEqual(t, state.ProducedMinor, state.TargetSumMinor, "produced must never exceed target")
		require.LessOrEqual(t, state.OrdersDone, state.OrdersPlanned)
	}

	final := e.Plan()
	require.Equal(t, final.OrdersPlanned, final.OrdersDone, "plan should be driven to exhaustion")
	require.Equal(t, sum, final.ProducedMinor)
	require.LessOrEqual(t, sum, final.TargetSumMinor)
	require.Equal(t, final.OrdersPlanned, emitted)

	_, ok := e.Next()
	require.False(t, ok, "exhausted plan must be a no-op")
}

func TestNextCeilingLeavesRoomForRemainingOrders(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)}
	e := newTestEmitter(t, 5000, clock)

	for {
		_, ok := e.Next()
		if !ok {
			break
		}
		p := e.Plan()
		if p.Exhausted() {
			break
		}
		// every remaining order must still be able to receive >= 1 minor unit
		require.GreaterOrEqual(t, p.RemainingTargetMinor(), int64(p.RemainingOrders()),
			"remaining target cannot starve remaining orders")
	}
}

func TestNextOrderShape(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)}
	e := newTestEmitter(t, 5000, clock)

	order, ok := e.Next()
	require.True(t, ok)
	require.Contains(t, DefaultPlatforms, order.Platform)
	require.Contains(t, DefaultSymbols, order.Symbol)
	require.Equal(t, clock.now, order.Timestamp)
	require.True(t, order.Profit.Equal(decimal.NewFromInt(order.ProfitMinor).Div(decimal.NewFromInt(100))),
		"profit major units must match minor amount")
}

func TestRolloverRebuildsPlanOnDayChange(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 9, 1, 23, 59, 0, 0, time.UTC)}
	e := newTestEmitter(t, 5000, clock)

	_, ok := e.Next()
	require.True(t, ok)
	before := e.Plan()
	require.Equal(t, 1, before.OrdersDone)

	// same day: redundant rollover is a no-op
	e.Rollover()
	require.Equal(t, before, e.Plan())

	// day advances: fresh plan, unfinished capacity discarded
	clock.now = clock.now.Add(2 * time.Minute)
	e.Rollover()
	after := e.Plan()
	require.Equal(t, "2026-09-02", after.Day)
	require.Zero(t, after.OrdersDone)
	require.Zero(t, after.ProducedMinor)
}

func TestNextDetectsDayChangeWithoutRollover(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 9, 1, 23, 59, 0, 0, time.UTC)}
	e := newTestEmitter(t, 5000, clock)

	clock.now = clock.now.Add(2 * time.Minute)
	order, ok := e.Next()
	require.True(t, ok)
	require.Equal(t, "2026-09-02", e.Plan().Day, "Next must rebuild before emitting on a new day")
	require.Equal(t, 1, e.Plan().OrdersDone)
	require.Equal(t, order.ProfitMinor, e.Plan().ProducedMinor)
}

func TestRecentListIsCapped(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)}
	e := newTestEmitter(t, 50000, clock)

	var last domain.Order
	for {
		order, ok := e.Next()
		if !ok {
			break
		}
		last = order
	}

	recent := e.Recent()
	require.LessOrEqual(t, len(recent), recentCap)
	require.Equal(t, last, recent[0], "display list is newest first")
}
