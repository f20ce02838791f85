package metrics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) TodayKey() string { return domain.DayKeyOf(c.now) }

func entryOn(kind domain.EntryKind, amount int64, day time.Time) domain.LedgerEntry {
	return domain.NewLedgerEntry(kind, amount, "USD", day)
}

var (
	today     = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	yesterday = today.AddDate(0, 0, -1)
)

func TestDayTotalMinor(t *testing.T) {
	entries := []domain.LedgerEntry{
		entryOn(domain.EntryEarn, 300, today),
		entryOn(domain.EntryCommission, 200, today),
		entryOn(domain.EntryEarn, 999, yesterday),
		entryOn(domain.EntryPayout, 400, today),
		entryOn(domain.EntryAdjustment, -100, today),
	}

	require.Equal(t, int64(500), DayTotalMinor(entries, domain.DayKeyOf(today)))
	require.Equal(t, int64(999), DayTotalMinor(entries, domain.DayKeyOf(yesterday)))
	require.Zero(t, DayTotalMinor(entries, "2026-08-01"))
}

func TestServiceFee(t *testing.T) {
	fee, net := ServiceFee(10000)
	require.Equal(t, int64(2000), fee)
	require.Equal(t, int64(8000), net)

	fee, net = ServiceFee(0)
	require.Zero(t, fee)
	require.Zero(t, net)
}

func TestInferPayoutStatus(t *testing.T) {
	base := []domain.LedgerEntry{entryOn(domain.EntryEarn, 10000, yesterday)}
	todayKey := domain.DayKeyOf(today)
	yesterdayKey := domain.DayKeyOf(yesterday)

	// paid in full: 8000 net, 8000 paid
	entries := append([]domain.LedgerEntry{entryOn(domain.EntryPayout, 8000, today)}, base...)
	require.Equal(t, PayoutSent, InferPayoutStatus(entries, todayKey, yesterdayKey))

	// partially paid
	entries = append([]domain.LedgerEntry{entryOn(domain.EntryPayout, 4000, today)}, base...)
	require.Equal(t, PayoutPartial, InferPayoutStatus(entries, todayKey, yesterdayKey))

	// nothing paid
	require.Equal(t, PayoutPending, InferPayoutStatus(base, todayKey, yesterdayKey))

	// no earnings yesterday: pending regardless of payouts
	entries = []domain.LedgerEntry{entryOn(domain.EntryPayout, 100, today)}
	require.Equal(t, PayoutPending, InferPayoutStatus(entries, todayKey, yesterdayKey))
}

func TestAccruedMinor(t *testing.T) {
	entries := []domain.LedgerEntry{
		entryOn(domain.EntryEarn, 500, yesterday),
		entryOn(domain.EntryCommission, 100, yesterday),
		entryOn(domain.EntryPayout, 200, today),
	}
	require.Equal(t, int64(400), AccruedMinor(entries))

	require.Zero(t, AccruedMinor(nil))
	require.Zero(t, AccruedMinor([]domain.LedgerEntry{entryOn(domain.EntryPayout, 300, today)}))
}

func TestYieldPercent(t *testing.T) {
	yield, ok := YieldPercent(8000, 500000)
	require.True(t, ok)
	require.True(t, yield.Equal(decimal.NewFromFloat(1.6)), "got %s", yield)

	_, ok = YieldPercent(8000, 0)
	require.False(t, ok, "yield undefined at zero running capital")
}

func TestReferralShareMinor(t *testing.T) {
	day := domain.DayKeyOf(today)

	refs := []ReferralLedger{
		{Level: 1, Entries: []domain.LedgerEntry{entryOn(domain.EntryEarn, 1000, today)}},
		{Level: 2, Entries: []domain.LedgerEntry{entryOn(domain.EntryEarn, 1000, today)}},
	}
	// 10% of 1000 + 5% of 1000
	require.Equal(t, int64(150), ReferralShareMinor(refs, day))

	// one-time first-deposit bonus on a direct referral
	refs[0].FirstDepositMinor = 50000
	refs[0].FirstDepositDay = day
	require.Equal(t, int64(150+15000), ReferralShareMinor(refs, day))

	// bonus not granted on other days
	require.Equal(t, int64(0), ReferralShareMinor(refs, "2026-08-15"))

	// second-level deposits never earn a bonus
	refs[1].FirstDepositMinor = 50000
	refs[1].FirstDepositDay = day
	require.Equal(t, int64(150+15000), ReferralShareMinor(refs, day))
}

func TestSummarize(t *testing.T) {
	clock := &fakeClock{now: today}
	entries := []domain.LedgerEntry{
		entryOn(domain.EntryEarn, 10000, yesterday),
		entryOn(domain.EntryEarn, 250, today),
		entryOn(domain.EntryPayout, 8000, today),
	}

	s := Summarize(entries, clock, 500000)
	require.Equal(t, int64(250), s.TodayMinor)
	require.Equal(t, int64(10000), s.YesterdayMinor)
	require.Equal(t, int64(2000), s.FeeMinor)
	require.Equal(t, int64(8000), s.NetMinor)
	require.Equal(t, int64(2250), s.AccruedMinor)
	require.Equal(t, PayoutSent, s.PayoutStatus)
	require.True(t, s.YieldDefined)
	require.True(t, s.YieldPercent.Equal(decimal.NewFromFloat(1.6)))
}
