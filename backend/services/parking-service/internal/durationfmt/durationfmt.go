// Package durationfmt converts parking durations and timestamps between whole
// minutes, the clock form ("H:MM", "H:MM:SS"), the ISO-like period form
// ("PT{H}H{M}M") and the labels shown to users ("2h 30min").
package durationfmt

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatError reports input that could not be parsed. Callers drop the affected
// field instead of failing the whole operation.
type FormatError struct {
	Kind  string
	Input string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("durationfmt: invalid %s %q: %v", e.Kind, e.Input, e.Err)
	}
	return fmt.Sprintf("durationfmt: invalid %s %q", e.Kind, e.Input)
}

func (e *FormatError) Unwrap() error { return e.Err }

func formatErr(kind, input, reason string) error {
	return &FormatError{Kind: kind, Input: input, Err: fmt.Errorf("%s", reason)}
}

// ParseClock parses "H:MM" or "H:MM:SS" into whole minutes. Seconds are truncated.
func ParseClock(s string) (int, error) {
	raw := strings.TrimSpace(s)
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, formatErr("clock duration", s, "expected H:MM or H:MM:SS")
	}

	values := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, &FormatError{Kind: "clock duration", Input: s, Err: err}
		}
		if n < 0 {
			return 0, formatErr("clock duration", s, "negative component")
		}
		if i > 0 && n > 59 {
			return 0, formatErr("clock duration", s, "minutes and seconds must be below 60")
		}
		values[i] = n
	}

	return values[0]*60 + values[1], nil
}

// FormatClock renders minutes as "H:MM". Negative input renders as "0:00".
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}

// FormatMinutes renders the user-facing label: "2h 30min", "2h", "45min" or "0min".
func FormatMinutes(minutes int) string {
	if minutes <= 0 {
		return "0min"
	}
	h, m := minutes/60, minutes%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dmin", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dmin", h, m)
	}
}

// FormatISOPeriod renders minutes as "PT{H}H{M}M", always with both parts.
func FormatISOPeriod(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("PT%dH%dM", minutes/60, minutes%60)
}

// ParseISOPeriod is the inverse of FormatISOPeriod. "PT2H" and "PT45M" are
// accepted as well; any other designator is rejected.
func ParseISOPeriod(s string) (int, error) {
	raw := strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(raw, "PT") || len(raw) == 2 {
		return 0, formatErr("iso period", s, "expected PT{H}H{M}M")
	}

	rest := raw[2:]
	total := 0
	seenHours, seenMinutes := false, false
	for rest != "" {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 || i == len(rest) {
			return 0, formatErr("iso period", s, "expected number followed by H or M")
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return 0, &FormatError{Kind: "iso period", Input: s, Err: err}
		}
		switch rest[i] {
		case 'H':
			if seenHours || seenMinutes {
				return 0, formatErr("iso period", s, "hours must come first and once")
			}
			seenHours = true
			total += n * 60
		case 'M':
			if seenMinutes {
				return 0, formatErr("iso period", s, "minutes given twice")
			}
			seenMinutes = true
			total += n
		default:
			return 0, formatErr("iso period", s, fmt.Sprintf("unsupported designator %q", rest[i]))
		}
		rest = rest[i+1:]
	}
	return total, nil
}

// Timestamp layouts the remote store is known to emit.
const (
	LayoutISO      = "2006-01-02T15:04:05"
	LayoutISOSpace = "2006-01-02 15:04:05"
)

var defaultLayouts = []string{time.RFC3339Nano, LayoutISO, LayoutISOSpace}

// ParseTimestamp parses s as UTC. With an empty layout RFC3339 and the two
// zone-less ISO variants are tried in turn.
func ParseTimestamp(s, layout string) (time.Time, error) {
	raw := strings.TrimSpace(s)
	layouts := defaultLayouts
	if layout != "" {
		layouts = []string{layout}
	}

	var lastErr error
	for _, l := range layouts {
		t, err := time.ParseInLocation(l, raw, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, &FormatError{Kind: "timestamp", Input: s, Err: lastErr}
}

// Style picks the rendering of FormatTimestamp.
type Style int

const (
	StyleTime Style = iota
	StyleDate
)

// FormatTimestamp renders t in loc; a nil loc means the process local zone.
func FormatTimestamp(t time.Time, style Style, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	if style == StyleDate {
		return local.Format("Jan 2, 2006")
	}
	return local.Format("15:04")
}
