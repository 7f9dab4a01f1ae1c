package handlers

import (
	"net/http"

	"parkflow/backend/services/parking-service/internal/durationfmt"
	"parkflow/backend/services/parking-service/internal/pricing"
	"parkflow/backend/services/parking-service/internal/tariff"
)

type zoneResponse struct {
	Zone             tariff.Zone `json:"zone"`
	Rule             tariff.Rule `json:"rule"`
	UnitMinutes      int         `json:"unit_minutes,omitempty"`
	Rate             string      `json:"rate,omitempty"`
	ThresholdMinutes int         `json:"threshold_minutes,omitempty"`
	SecondRate       string      `json:"second_rate,omitempty"`
	MaxDuration      string      `json:"max_duration"`
}

// NewZonesHandler returns GET /api/zones handler.
func NewZonesHandler() http.HandlerFunc {
	schedules := tariff.All()
	zones := make([]zoneResponse, 0, len(schedules))
	for _, s := range schedules {
		z := zoneResponse{
			Zone:        s.Zone,
			Rule:        s.Rule,
			MaxDuration: durationfmt.FormatMinutes(s.MaxDurationMinutes),
		}
		if s.Rule != tariff.RuleFree {
			z.UnitMinutes = s.UnitMinutes
			z.Rate = pricing.FormatAmount(s.Tier1Rate)
		}
		if s.Rule == tariff.RuleTiered {
			z.ThresholdMinutes = s.ThresholdMinutes
			z.SecondRate = pricing.FormatAmount(s.Tier2Rate)
		}
		zones = append(zones, z)
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"zones": zones})
	}
}
