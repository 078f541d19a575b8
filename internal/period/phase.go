// Package period resolves the deposit and lock windows of trade-finance
// vaults and derives their lifecycle phase.
package period

import "vault-position-lab/internal/domain"

// Classify returns the phase at now (unix seconds).
func Classify(depositEnds, lockEnds, now int64) domain.Phase {
	phase, _ := domain.Periods{DepositPeriodEnds: &depositEnds, LockPeriodEnds: &lockEnds}.Phase(now)
	return phase
}

// PhaseOf classifies p at now; see domain.Periods.Phase.
func PhaseOf(p domain.Periods, now int64) (phase domain.Phase, ok bool) {
	return p.Phase(now)
}
