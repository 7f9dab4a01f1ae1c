package durationfmt

import (
	"errors"
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"0:00", 0},
		{"2:30", 150},
		{"02:30:00", 150},
		{"1:00:59", 60},
		{" 12:00 ", 720},
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		if err != nil {
			t.Fatalf("ParseClock(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseClock(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestParseClockRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "90", "a:30", "1:xx", "1:60", "1:00:61", "1:2:3:4", "-1:30"} {
		_, err := ParseClock(in)
		var fe *FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("ParseClock(%q): expected FormatError, got %v", in, err)
		}
	}
}

func TestClockRoundTrip(t *testing.T) {
	for m := 0; m <= 24*60; m++ {
		got, err := ParseClock(FormatClock(m))
		if err != nil {
			t.Fatalf("round trip %d: %v", m, err)
		}
		if got != m {
			t.Fatalf("round trip %d: got %d", m, got)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := map[int]string{
		0:   "0min",
		-5:  "0min",
		45:  "45min",
		60:  "1h",
		150: "2h 30min",
		720: "12h",
	}
	for in, want := range cases {
		if got := FormatMinutes(in); got != want {
			t.Fatalf("FormatMinutes(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestISOPeriodRoundTrip(t *testing.T) {
	for m := 0; m <= 24*60; m++ {
		s := FormatISOPeriod(m)
		got, err := ParseISOPeriod(s)
		if err != nil {
			t.Fatalf("ParseISOPeriod(%q): %v", s, err)
		}
		if got != m {
			t.Fatalf("ParseISOPeriod(%q) = %d, want %d", s, got, m)
		}
	}
	if got := FormatISOPeriod(90); got != "PT1H30M" {
		t.Fatalf("FormatISOPeriod(90) = %q", got)
	}
}

func TestParseISOPeriodShortForms(t *testing.T) {
	cases := map[string]int{"PT2H": 120, "PT45M": 45, "pt1h5m": 65}
	for in, want := range cases {
		got, err := ParseISOPeriod(in)
		if err != nil {
			t.Fatalf("ParseISOPeriod(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseISOPeriod(%q) = %d, want %d", in, got, want)
		}
	}
	for _, in := range []string{"", "PT", "P1D", "PT1S", "PT30M1H", "PTH", "PT1H1H", "1H30M"} {
		if _, err := ParseISOPeriod(in); err == nil {
			t.Fatalf("ParseISOPeriod(%q): expected error", in)
		}
	}
}

func TestParseTimestampIsUTC(t *testing.T) {
	want := time.Date(2024, 5, 1, 13, 45, 0, 0, time.UTC)
	for _, in := range []string{"2024-05-01T13:45:00Z", "2024-05-01T13:45:00", "2024-05-01 13:45:00", "2024-05-01T15:45:00+02:00"} {
		got, err := ParseTimestamp(in, "")
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", in, err)
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Fatalf("ParseTimestamp(%q) = %v", in, got)
		}
	}

	if _, err := ParseTimestamp("yesterday", ""); err == nil {
		t.Fatalf("expected error for malformed timestamp")
	}
	if _, err := ParseTimestamp("2024-05-01", LayoutISO); err == nil {
		t.Fatalf("expected error for layout mismatch")
	}
}

func TestFormatTimestampRendersInLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	ts := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)

	if got := FormatTimestamp(ts, StyleTime, loc); got != "01:30" {
		t.Fatalf("time style = %q", got)
	}
	if got := FormatTimestamp(ts, StyleDate, loc); got != "May 2, 2024" {
		t.Fatalf("date style = %q", got)
	}
}
