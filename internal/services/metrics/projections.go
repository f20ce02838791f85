// Package metrics computes read-side projections over the ledger. Nothing
// here mutates state: every figure is recomputed on demand from entries.
package metrics

import (
	"github.com/shopspring/decimal"

	"github.com/dvvsdvc5-arch/chuangzuo/internal/domain"
)

// PayoutStatus is a display-only settlement heuristic inferred from the
// ledger, not an authoritative settlement record.
type PayoutStatus string

const (
	PayoutSent    PayoutStatus = "SENT"
	PayoutPartial PayoutStatus = "PARTIAL"
	PayoutPending PayoutStatus = "PENDING"
)

var (
	serviceFeeRate = decimal.NewFromFloat(0.20)

	directShareRate   = decimal.NewFromFloat(0.10)
	secondShareRate   = decimal.NewFromFloat(0.05)
	firstDepositBonus = decimal.NewFromFloat(0.30)
	percentMultiplier = decimal.NewFromInt(100)
)

// DayTotalMinor sums EARN and COMMISSION entries falling on the given
// local-calendar day.
func DayTotalMinor(entries []domain.LedgerEntry, day string) int64 {
	var total int64
	for _, e := range entries {
		if e.Kind != domain.EntryEarn && e.Kind != domain.EntryCommission {
			continue
		}
		if domain.DayKeyOf(e.CreatedAt) != day {
			continue
		}
		total += e.AmountMinor
	}
	return total
}

// PayoutTotalMinor sums PAYOUT entries on the given day.
func PayoutTotalMinor(entries []domain.LedgerEntry, day string) int64 {
	var total int64
	for _, e := range entries {
		if e.Kind != domain.EntryPayout {
			continue
		}
		if domain.DayKeyOf(e.CreatedAt) != day {
			continue
		}
		total += e.AmountMinor
	}
	return total
}

// AccruedMinor is the earned amount not yet moved into the available balance:
// lifetime EARN plus COMMISSION minus lifetime PAYOUT.
func AccruedMinor(entries []domain.LedgerEntry) int64 {
	var earned, paid int64
	for _, e := range entries {
		switch e.Kind {
		case domain.EntryEarn, domain.EntryCommission:
			earned += e.AmountMinor
		case domain.EntryPayout:
			paid += e.AmountMinor
		}
	}
	accrued := earned - paid
	if accrued < 0 {
		return 0
	}
	return accrued
}

// ServiceFee deducts the platform's cut from gross earnings.
// fee = round(gross * 20%), net = gross - fee.
func ServiceFee(grossMinor int64) (feeMinor, netMinor int64) {
	feeMinor = decimal.NewFromInt(grossMinor).Mul(serviceFeeRate).Round(0).IntPart()
	return feeMinor, grossMinor - feeMinor
}

// InferPayoutStatus compares today's cumulative payouts against yesterday's
// net earnings.
func InferPayoutStatus(entries []domain.LedgerEntry, today, yesterday string) PayoutStatus {
	gross := DayTotalMinor(entries, yesterday)
	_, net := ServiceFee(gross)
	paidToday := PayoutTotalMinor(entries, today)

	switch {
	case net > 0 && paidToday >= net:
		return PayoutSent
	case paidToday > 0 && paidToday < net:
		return PayoutPartial
	default:
		return PayoutPending
	}
}

// YieldPercent returns net earnings as a percentage of running capital.
// The second return is false when running capital is zero and the figure is
// undefined (the UI shows a neutral placeholder).
func YieldPercent(netMinor, runningCapitalMinor int64) (decimal.Decimal, bool) {
	if runningCapitalMinor == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(netMinor).
		Div(decimal.NewFromInt(runningCapitalMinor)).
		Mul(percentMultiplier), true
}

// ReferralLedger is a referred user's ledger as seen by the referrer.
// Level 1 is a direct referral, level 2 a referral's referral. FirstDeposit
// describes the referred user's first deposit for the one-time bonus.
type ReferralLedger struct {
	Level             int
	Entries           []domain.LedgerEntry
	FirstDepositMinor int64
	FirstDepositDay   string
}

// ReferralShareMinor computes the referrer's cut for the given day:
// 10% of a direct referral's same-day profit, 5% of a second-level one's,
// plus a one-time 30% bonus on a direct referral's first deposit. Referred
// ledgers are only read, never mutated.
func ReferralShareMinor(refs []ReferralLedger, day string) int64 {
	var total int64
	for _, ref := range refs {
		var rate decimal.Decimal
		switch ref.Level {
		case 1:
			rate = directShareRate
		case 2:
			rate = secondShareRate
		default:
			continue
		}

		profit := DayTotalMinor(ref.Entries, day)
		total += decimal.NewFromInt(profit).Mul(rate).Round(0).IntPart()

		if ref.Level == 1 && ref.FirstDepositDay == day && ref.FirstDepositMinor > 0 {
			total += decimal.NewFromInt(ref.FirstDepositMinor).Mul(firstDepositBonus).Round(0).IntPart()
		}
	}
	return total
}

// Summary aggregates the dashboard figures for one user.
type Summary struct {
	TodayMinor     int64           `json:"today_minor"`
	YesterdayMinor int64           `json:"yesterday_minor"`
	FeeMinor       int64           `json:"fee_minor"`
	NetMinor       int64           `json:"net_minor"`
	AccruedMinor   int64           `json:"accrued_minor"`
	PayoutStatus   PayoutStatus    `json:"payout_status"`
	YieldPercent   decimal.Decimal `json:"yield_percent"`
	YieldDefined   bool            `json:"yield_defined"`
}

// Summarize computes the full dashboard projection for the given ledger and
// running capital.
func Summarize(entries []domain.LedgerEntry, clock domain.Clock, runningCapitalMinor int64) Summary {
	today := clock.TodayKey()
	yesterday := domain.DayKeyOf(clock.Now().AddDate(0, 0, -1))

	gross := DayTotalMinor(entries, yesterday)
	fee, net := ServiceFee(gross)
	yield, defined := YieldPercent(net, runningCapitalMinor)

	return Summary{
		TodayMinor:     DayTotalMinor(entries, today),
		YesterdayMinor: gross,
		FeeMinor:       fee,
		NetMinor:       net,
		AccruedMinor:   AccruedMinor(entries),
		PayoutStatus:   InferPayoutStatus(entries, today, yesterday),
		YieldPercent:   yield,
		YieldDefined:   defined,
	}
}
