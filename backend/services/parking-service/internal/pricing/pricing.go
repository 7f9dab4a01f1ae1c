// Package pricing turns a zone and a requested duration into a cost breakdown.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"

	"parkflow/backend/services/parking-service/internal/durationfmt"
	"parkflow/backend/services/parking-service/internal/tariff"
)

// CurrencyPlaces is the minor-unit precision of every amount.
const CurrencyPlaces = 2

// ErrNegativeDuration is returned for durations below zero.
var ErrNegativeDuration = errors.New("pricing: duration must not be negative")

// Breakdown is the priced split of one duration. SecondPeriod* fields are only
// meaningful when HasSecondPeriod is set.
type Breakdown struct {
	Zone                tariff.Zone     `json:"zone"`
	RequestedMinutes    int             `json:"requested_minutes"`
	FirstPeriodMinutes  int             `json:"first_period_minutes"`
	FirstPeriodCost     decimal.Decimal `json:"first_period_cost"`
	HasSecondPeriod     bool            `json:"has_second_period"`
	SecondPeriodMinutes int             `json:"second_period_minutes,omitempty"`
	SecondPeriodCost    decimal.Decimal `json:"second_period_cost"`
	TotalCost           decimal.Decimal `json:"total_cost"`
}

// Compute prices minutes in zone. It does not enforce the zone maximum; that
// belongs to session start.
func Compute(zone tariff.Zone, minutes int) (Breakdown, error) {
	schedule, err := tariff.Lookup(zone)
	if err != nil {
		return Breakdown{}, err
	}
	return ComputeWith(schedule, minutes)
}

// ComputeWith prices minutes against an explicit schedule.
func ComputeWith(s tariff.Schedule, minutes int) (Breakdown, error) {
	if minutes < 0 {
		return Breakdown{}, ErrNegativeDuration
	}

	b := Breakdown{
		Zone:               s.Zone,
		RequestedMinutes:   minutes,
		FirstPeriodMinutes: minutes,
		FirstPeriodCost:    decimal.Zero,
		SecondPeriodCost:   decimal.Zero,
	}

	switch s.Rule {
	case tariff.RuleFree:
	case tariff.RuleFlat:
		// billed continuously, no block rounding
		b.FirstPeriodCost = s.Tier1Rate.
			Mul(decimal.NewFromInt(int64(minutes))).
			Div(decimal.NewFromInt(60)).
			Round(CurrencyPlaces)
	case tariff.RuleTiered:
		if minutes <= s.ThresholdMinutes {
			b.FirstPeriodCost = blocksCost(minutes, s.Tier1Rate)
			break
		}
		second := minutes - s.ThresholdMinutes
		b.FirstPeriodMinutes = s.ThresholdMinutes
		b.FirstPeriodCost = blocksCost(s.ThresholdMinutes, s.Tier1Rate)
		b.HasSecondPeriod = true
		b.SecondPeriodMinutes = second
		b.SecondPeriodCost = blocksCost(second, s.Tier2Rate)
	default:
		return Breakdown{}, &tariff.UnknownZoneError{Zone: string(s.Zone)}
	}

	b.TotalCost = b.FirstPeriodCost.Add(b.SecondPeriodCost).Round(CurrencyPlaces)
	return b, nil
}

// Blocks is the number of started 30-minute blocks in minutes.
func Blocks(minutes int) int {
	if minutes <= 0 {
		return 0
	}
	return (minutes + tariff.BlockMinutes - 1) / tariff.BlockMinutes
}

func blocksCost(minutes int, rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(int64(Blocks(minutes)))).Round(CurrencyPlaces)
}

// Labels are the checkout captions of a breakdown.
type Labels struct {
	Total  string `json:"total"`
	First  string `json:"first"`
	Second string `json:"second,omitempty"`
}

// LabelsFor renders the duration captions shown next to each period.
func LabelsFor(b Breakdown) Labels {
	l := Labels{
		Total: durationfmt.FormatMinutes(b.RequestedMinutes),
		First: durationfmt.FormatMinutes(b.FirstPeriodMinutes),
	}
	if b.HasSecondPeriod {
		l.Second = durationfmt.FormatMinutes(b.SecondPeriodMinutes)
	}
	return l
}

// FormatAmount renders an amount with exactly two decimals, as the remote
// store expects cost strings.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(CurrencyPlaces)
}
