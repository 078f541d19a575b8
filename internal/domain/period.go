package domain

// Phase is the lifecycle stage of a trade-finance vault.
type Phase string

const (
	PhaseOpen    Phase = "OPEN"
	PhaseLocked  Phase = "LOCKED"
	PhaseMatured Phase = "MATURED"
)

// String returns the string representation of Phase.
func (p Phase) String() string {
	return string(p)
}

// Index mirrors the numbering used by the deposit form (0 open, 1 locked, 2 matured).
func (p Phase) Index() int {
	switch p {
	case PhaseOpen:
		return 0
	case PhaseLocked:
		return 1
	case PhaseMatured:
		return 2
	}
	return -1
}

// Periods holds the on-chain window boundaries of a trade-finance strategy
// in unix seconds. A nil field means the value was not resolved.
type Periods struct {
	DepositPeriodEnds *int64 `json:"depositPeriodEnds"`
	LockPeriodEnds    *int64 `json:"lockPeriodEnds"`
}

// Resolved reports whether both boundaries are known.
func (p Periods) Resolved() bool {
	return p.DepositPeriodEnds != nil && p.LockPeriodEnds != nil
}

// Phase classifies the periods at now (unix seconds); boundaries belong to
// the later phase. ok is false when either boundary is unresolved, which
// callers must not confuse with OPEN.
func (p Periods) Phase(now int64) (phase Phase, ok bool) {
	if !p.Resolved() {
		return "", false
	}
	switch {
	case now < *p.DepositPeriodEnds:
		return PhaseOpen, true
	case now < *p.LockPeriodEnds:
		return PhaseLocked, true
	default:
		return PhaseMatured, true
	}
}
