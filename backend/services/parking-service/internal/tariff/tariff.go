// Package tariff holds the rate schedule of every parking zone.
package tariff

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Zone is the pricing category of a parking spot.
type Zone string

const (
	ZoneGreen   Zone = "green"
	ZoneYellow  Zone = "yellow"
	ZoneRed     Zone = "red"
	ZoneDisable Zone = "disable"
)

// Rule tells how a schedule turns minutes into money.
type Rule string

const (
	RuleFlat   Rule = "flat"
	RuleTiered Rule = "tiered"
	RuleFree   Rule = "free"
)

// BlockMinutes is the billing unit of tiered zones.
const BlockMinutes = 30

// Schedule holds the pricing parameters of one zone. Flat schedules charge
// Tier1Rate per hour; tiered schedules charge Tier1Rate per block up to
// ThresholdMinutes and Tier2Rate per block after it.
type Schedule struct {
	Zone               Zone            `json:"zone"`
	Rule               Rule            `json:"rule"`
	UnitMinutes        int             `json:"unit_minutes"`
	Tier1Rate          decimal.Decimal `json:"tier1_rate"`
	ThresholdMinutes   int             `json:"threshold_minutes,omitempty"`
	Tier2Rate          decimal.Decimal `json:"tier2_rate"`
	MaxDurationMinutes int             `json:"max_duration_minutes"`
}

// UnknownZoneError means a zone outside the closed enumeration reached the
// table. Zones come from spot records, so this is a data error.
type UnknownZoneError struct {
	Zone string
}

func (e *UnknownZoneError) Error() string {
	return fmt.Sprintf("tariff: unknown zone %q", e.Zone)
}

var order = []Zone{ZoneGreen, ZoneYellow, ZoneRed, ZoneDisable}

var schedules = map[Zone]Schedule{
	ZoneGreen: {
		Zone:               ZoneGreen,
		Rule:               RuleFlat,
		UnitMinutes:        60,
		Tier1Rate:          decimal.RequireFromString("0.53"),
		MaxDurationMinutes: 12 * 60,
	},
	ZoneYellow: {
		Zone:               ZoneYellow,
		Rule:               RuleTiered,
		UnitMinutes:        BlockMinutes,
		Tier1Rate:          decimal.RequireFromString("0.53"),
		ThresholdMinutes:   240,
		Tier2Rate:          decimal.RequireFromString("1.06"),
		MaxDurationMinutes: 8 * 60,
	},
	ZoneRed: {
		Zone:               ZoneRed,
		Rule:               RuleTiered,
		UnitMinutes:        BlockMinutes,
		Tier1Rate:          decimal.RequireFromString("1.06"),
		ThresholdMinutes:   60,
		Tier2Rate:          decimal.RequireFromString("2.12"),
		MaxDurationMinutes: 2 * 60,
	},
	ZoneDisable: {
		Zone:               ZoneDisable,
		Rule:               RuleFree,
		UnitMinutes:        60,
		MaxDurationMinutes: 12 * 60,
	},
}

// Lookup returns the schedule of zone.
func Lookup(zone Zone) (Schedule, error) {
	s, ok := schedules[zone]
	if !ok {
		return Schedule{}, &UnknownZoneError{Zone: string(zone)}
	}
	return s, nil
}

// ParseZone normalises case and surrounding whitespace before validating.
func ParseZone(raw string) (Zone, error) {
	zone := Zone(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := schedules[zone]; !ok {
		return "", &UnknownZoneError{Zone: raw}
	}
	return zone, nil
}

// All lists every schedule in display order.
func All() []Schedule {
	out := make([]Schedule, 0, len(order))
	for _, z := range order {
		out = append(out, schedules[z])
	}
	return out
}

// ExceedsMax reports whether minutes is longer than the zone allows.
func (s Schedule) ExceedsMax(minutes int) bool {
	return minutes > s.MaxDurationMinutes
}
