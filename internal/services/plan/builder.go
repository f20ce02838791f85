// Package plan derives the daily profit schedule from invested capital and
// the calendar day. The derivation is fully deterministic: the same
// (invested, day) pair always reproduces the same plan, so a plan lost on
// restart is reconstructible without persisted state.
package plan

import (
	"hash/fnv"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
)

const (
	minOrders = 50
	maxOrders = 100

	daysPerMonth = 30

	jitterLow  = 0.9
	jitterHigh = 1.1

	// countSeedOffset decouples the order-count draw from the rate jitter
	// draw so the two vary independently but both reproducibly.
	countSeedOffset uint64 = 0x9e3779b97f4a7c15
)

// tier is a monthly-rate band selected by capital size.
type tier struct {
	base decimal.Decimal
	cap  decimal.Decimal
}

var (
	tierThreshold = decimal.NewFromInt(10000)

	lowTier  = tier{base: decimal.NewFromFloat(0.30), cap: decimal.NewFromFloat(0.40)}
	highTier = tier{base: decimal.NewFromFloat(0.60), cap: decimal.NewFromFloat(0.80)}
)

// Build derives the daily plan for the given invested amount (major units)
// and calendar day key. Non-positive capital yields an empty plan.
func Build(invested decimal.Decimal, day string) domain.DailyPlan {
	if invested.LessThanOrEqual(decimal.Zero) {
		return domain.DailyPlan{Day: day}
	}

	seed := seedFor(invested, day)

	rate := effectiveMonthlyRate(invested, seed)
	target := invested.
		Mul(rate).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(daysPerMonth)).
		Round(0).
		IntPart()

	countRng := rand.New(rand.NewSource(int64(seed ^ countSeedOffset)))
	orders := minOrders + countRng.Intn(maxOrders-minOrders+1)

	return domain.DailyPlan{
		Day:            day,
		OrdersPlanned:  orders,
		TargetSumMinor: target,
	}
}

// effectiveMonthlyRate applies the day-specific jitter to the tier base rate
// and clamps the result at the tier cap.
func effectiveMonthlyRate(invested decimal.Decimal, seed uint64) decimal.Decimal {
	band := lowTier
	if invested.GreaterThanOrEqual(tierThreshold) {
		band = highTier
	}

	rng := rand.New(rand.NewSource(int64(seed)))
	jitter := jitterLow + rng.Float64()*(jitterHigh-jitterLow)

	rate := band.base.Mul(decimal.NewFromFloat(jitter))
	if rate.GreaterThan(band.cap) {
		rate = band.cap
	}
	return rate
}

// seedFor hashes the day key and XORs it with the invested amount scaled to
// minor units.
func seedFor(invested decimal.Decimal, day string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(day))
	scaled := invested.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return h.Sum64() ^ uint64(scaled)
}
