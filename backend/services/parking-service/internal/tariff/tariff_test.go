package tariff

import (
	"errors"
	"testing"
)

func TestLookupKnownZones(t *testing.T) {
	cases := []struct {
		zone      Zone
		rule      Rule
		tier1     string
		threshold int
		tier2     string
		max       int
	}{
		{ZoneGreen, RuleFlat, "0.53", 0, "0", 720},
		{ZoneYellow, RuleTiered, "0.53", 240, "1.06", 480},
		{ZoneRed, RuleTiered, "1.06", 60, "2.12", 120},
		{ZoneDisable, RuleFree, "0", 0, "0", 720},
	}
	for _, tc := range cases {
		s, err := Lookup(tc.zone)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", tc.zone, err)
		}
		if s.Rule != tc.rule {
			t.Fatalf("%s: rule %s, want %s", tc.zone, s.Rule, tc.rule)
		}
		if s.Tier1Rate.String() != tc.tier1 || s.Tier2Rate.String() != tc.tier2 {
			t.Fatalf("%s: rates %s/%s, want %s/%s", tc.zone, s.Tier1Rate, s.Tier2Rate, tc.tier1, tc.tier2)
		}
		if s.ThresholdMinutes != tc.threshold {
			t.Fatalf("%s: threshold %d, want %d", tc.zone, s.ThresholdMinutes, tc.threshold)
		}
		if s.MaxDurationMinutes != tc.max {
			t.Fatalf("%s: max %d, want %d", tc.zone, s.MaxDurationMinutes, tc.max)
		}
	}
}

func TestLookupUnknownZone(t *testing.T) {
	_, err := Lookup(Zone("purple"))
	var uz *UnknownZoneError
	if !errors.As(err, &uz) {
		t.Fatalf("expected UnknownZoneError, got %v", err)
	}
	if uz.Zone != "purple" {
		t.Fatalf("unexpected zone in error: %q", uz.Zone)
	}
}

func TestParseZone(t *testing.T) {
	z, err := ParseZone("  Yellow ")
	if err != nil || z != ZoneYellow {
		t.Fatalf("ParseZone: got %q, %v", z, err)
	}
	if _, err := ParseZone(""); err == nil {
		t.Fatalf("expected error for empty zone")
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	s, _ := Lookup(ZoneRed)
	s.ThresholdMinutes = 1
	again, _ := Lookup(ZoneRed)
	if again.ThresholdMinutes != 60 {
		t.Fatalf("table mutated through returned schedule")
	}
}

func TestAllOrderAndMax(t *testing.T) {
	all := All()
	if len(all) != 4 || all[0].Zone != ZoneGreen || all[3].Zone != ZoneDisable {
		t.Fatalf("unexpected order: %+v", all)
	}
	red, _ := Lookup(ZoneRed)
	if red.ExceedsMax(120) || !red.ExceedsMax(121) {
		t.Fatalf("ExceedsMax boundary wrong")
	}
}
