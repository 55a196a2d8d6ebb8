package streams

import "math/big"

// Period is the fixed duration, in seconds, over which a stream's cap fully
// unlocks at a constant rate.
const Period int64 = 30 * 24 * 60 * 60

var periodBig = big.NewInt(Period)

// unlockedAt computes the entitlement unlocked by now for a stream with the
// given cap and checkpoint. Elapsed time is clamped to one full period so the
// result never exceeds the cap. Arithmetic stays in big.Int throughout: caps
// at or beyond 2^128 must not wrap.
func unlockedAt(cap *big.Int, last, now int64) *big.Int {
	if cap == nil || cap.Sign() <= 0 {
		return big.NewInt(0)
	}
	elapsed := now - last
	if elapsed <= 0 {
		return big.NewInt(0)
	}
	if elapsed > Period {
		elapsed = Period
	}
	unlocked := new(big.Int).Mul(cap, big.NewInt(elapsed))
	return unlocked.Div(unlocked, periodBig)
}

// advanceCheckpoint moves the accrual checkpoint forward in proportion to the
// fraction of the unlocked entitlement actually withdrawn. Recomputing the
// entitlement immediately afterwards yields totalUnlocked - amount (within
// floor-division rounding), so the unwithdrawn remainder stays earned while
// accrual continues linearly. A full withdrawal lands the checkpoint on now.
//
// The window is clamped to one period before the proportional step, mirroring
// the clamp in unlockedAt: entitlement only ever accrues over the trailing
// period, so a checkpoint older than that is first pulled up to now - Period.
// Without the clamp a stale checkpoint would advance too little and the
// recomputed entitlement would exceed totalUnlocked - amount.
//
// Callers must guarantee totalUnlocked >= amount > 0; the zero-amount case is
// rejected upstream so the division is always by a positive denominator.
func advanceCheckpoint(last, now int64, amount, totalUnlocked *big.Int) int64 {
	if amount == nil || amount.Sign() == 0 || totalUnlocked == nil || totalUnlocked.Sign() == 0 {
		return last
	}
	window := now - last
	if window > Period {
		window = Period
		last = now - Period
	}
	step := new(big.Int).Mul(big.NewInt(window), amount)
	step.Div(step, totalUnlocked)
	return last + step.Int64()
}
