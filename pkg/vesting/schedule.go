package vesting

import (
	"math/big"
	"time"
)

// A vesting month is a fixed 30 days. Month arithmetic is strict floor
// division: an instant landing exactly on a 30-day boundary counts as that
// month having elapsed (now == igo + k*30d means k months).
const monthDuration = 30 * 24 * time.Hour

// elapsedMonths returns the number of whole vesting months between igo and
// now, or -1 when now precedes igo.
func elapsedMonths(igo, now time.Time) int64 {
	if now.Before(igo) {
		return -1
	}
	return int64(now.Sub(igo) / monthDuration)
}

// Schedule converts a purchase into cumulative releasable amounts per month.
//
// Month 0 releases the unlock-at-launch percentage. The remainder vests
// linearly in equal tranches, one landing at each elapsed month cliff+1
// through cliff+vesting, with the final tranche absorbing the
// integer-division residue so the full purchase is claimable exactly and no
// dust is left behind.
type Schedule struct {
	UnlockAtIGOPercent uint64 // 0..100
	CliffMonths        uint64
	VestingMonths      uint64 // >= 1
}

// lastMonth is the elapsed-month index at which the final tranche lands:
// the k-th vesting month completes k months after the cliff, so the residual
// tranche arrives at cliff+vesting.
func (s Schedule) lastMonth() int64 {
	return int64(s.CliffMonths) + int64(s.VestingMonths)
}

// vestedThrough returns the cumulative amount releasable once m whole months
// have elapsed since launch, for a purchase of the given size.
func (s Schedule) vestedThrough(purchased *big.Int, m int64) *big.Int {
	if m < 0 {
		return new(big.Int)
	}

	unlock := new(big.Int).Mul(purchased, new(big.Int).SetUint64(s.UnlockAtIGOPercent))
	unlock.Div(unlock, big.NewInt(100))

	vested := m - int64(s.CliffMonths) // vesting months completed
	if vested <= 0 {
		return unlock
	}
	if vested >= int64(s.VestingMonths) {
		return new(big.Int).Set(purchased)
	}

	remainder := new(big.Int).Sub(purchased, unlock)
	tranche := new(big.Int).Div(remainder, new(big.Int).SetUint64(s.VestingMonths))
	return unlock.Add(unlock, tranche.Mul(tranche, big.NewInt(vested)))
}

// releaseAt returns the amount newly released by month m alone.
func (s Schedule) releaseAt(purchased *big.Int, m int64) *big.Int {
	return new(big.Int).Sub(s.vestedThrough(purchased, m), s.vestedThrough(purchased, m-1))
}
