package domain

// DailyPlan is the deterministic schedule governing simulated profit emission
// for one calendar day. It is ephemeral: never persisted, rebuilt from
// (day, invested amount) whenever the day or the capital changes.
//
// Invariants: ProducedMinor <= TargetSumMinor and OrdersDone <= OrdersPlanned
// at all times.
type DailyPlan struct {
	Day            string
	OrdersPlanned  int
	OrdersDone     int
	TargetSumMinor int64
	ProducedMinor  int64
}

// RemainingOrders returns how many orders the plan may still emit.
func (p DailyPlan) RemainingOrders() int {
	if p.OrdersDone >= p.OrdersPlanned {
		return 0
	}
	return p.OrdersPlanned - p.OrdersDone
}

// RemainingTargetMinor returns the unconsumed part of the daily target.
func (p DailyPlan) RemainingTargetMinor() int64 {
	if p.ProducedMinor >= p.TargetSumMinor {
		return 0
	}
	return p.TargetSumMinor - p.ProducedMinor
}

// Exhausted reports whether the plan cannot emit any further order.
func (p DailyPlan) Exhausted() bool {
	return p.OrdersPlanned == 0 || p.OrdersDone >= p.OrdersPlanned
}
