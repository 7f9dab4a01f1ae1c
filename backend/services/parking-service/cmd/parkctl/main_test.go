package main

import (
	"bytes"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestQuoteCommand(t *testing.T) {
	out, err := run(t, "quote", "--zone", "yellow", "--duration", "5:00")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	for _, want := range []string{"duration=5h", "first  4h\t4.24", "second 1h\t2.12", "total  6.36"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
}

func TestQuoteCommandWarnsOverLimit(t *testing.T) {
	out, err := run(t, "quote", "--zone", "red", "--duration", "3:00")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if !strings.Contains(out, "total  10.60") || !strings.Contains(out, "at most 2h") {
		t.Fatalf("unexpected output\n%s", out)
	}
}

func TestQuoteCommandErrors(t *testing.T) {
	if _, err := run(t, "quote", "--zone", "blue", "--duration", "1:00"); err == nil {
		t.Fatalf("expected unknown zone error")
	}
	if _, err := run(t, "quote", "--zone", "green"); err == nil {
		t.Fatalf("expected missing duration error")
	}
}

func TestPeriodCommand(t *testing.T) {
	out, err := run(t, "period", "--minutes", "90")
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	if strings.TrimSpace(out) != "clock=1:30 iso=PT1H30M label=1h 30min" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestZonesCommand(t *testing.T) {
	out, err := run(t, "zones")
	if err != nil {
		t.Fatalf("zones: %v", err)
	}
	for _, zone := range []string{"green", "yellow", "red", "disable"} {
		if !strings.Contains(out, zone) {
			t.Fatalf("missing zone %s in\n%s", zone, out)
		}
	}
}
