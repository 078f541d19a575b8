package period

import (
	"github.com/shopspring/decimal"

	"vault-position-lab/internal/domain"
)

const (
	secondsPerHour = 3600
	hoursPerYear   = 365 * 24
	divPrecision   = 20
)

var (
	hundred  = decimal.NewFromInt(100)
	perYear  = decimal.NewFromInt(hoursPerYear)
	wadScale = decimal.New(1, 18)
)

// Synthesize builds hourly gain samples for a locked trade-finance vault,
// from depositEnds up to min(now, lockEnds), every stepHours hours.
// apr is in percent and balance in raw token units.
func Synthesize(depositEnds, lockEnds, now int64, apr, balance decimal.Decimal, stepHours int) []domain.StrategyReport {
	if stepHours <= 0 {
		stepHours = 1
	}
	if !apr.IsPositive() || !balance.IsPositive() {
		return nil
	}

	until := min(now, lockEnds)
	hours := (until - depositEnds) / secondsPerHour
	if until < depositEnds || hours <= 0 {
		return nil
	}

	gain := apr.DivRound(hundred, divPrecision).
		Mul(balance).
		DivRound(perYear, divPrecision).
		Mul(decimal.NewFromInt(int64(stepHours))).
		DivRound(wadScale, divPrecision).
		Mul(wadScale)

	reports := make([]domain.StrategyReport, 0, hours/int64(stepHours)+1)
	for i := int64(0); i <= hours; i++ {
		if i%int64(stepHours) != 0 {
			continue
		}
		reports = append(reports, domain.StrategyReport{
			Timestamp: (depositEnds + i*secondsPerHour) * 1000,
			Gain:      gain,
			Loss:      decimal.Zero,
			Synthetic: true,
		})
	}
	return reports
}
