package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"parkflow/backend/services/parking-service/internal/durationfmt"
	"parkflow/backend/services/parking-service/internal/pricing"
	"parkflow/backend/services/parking-service/internal/tariff"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "parkctl",
		Short:         "Offline parking tariff tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newZonesCmd())
	root.AddCommand(newQuoteCmd())
	root.AddCommand(newPeriodCmd())
	return root
}

func newZonesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "zones",
		Short: "Print the rate table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ZONE\tRULE\tRATE\tAFTER\tMAX")
			for _, s := range tariff.All() {
				rate, after := "-", "-"
				switch s.Rule {
				case tariff.RuleFlat:
					rate = fmt.Sprintf("%s/%dmin", pricing.FormatAmount(s.Tier1Rate), s.UnitMinutes)
				case tariff.RuleTiered:
					rate = fmt.Sprintf("%s/%dmin", pricing.FormatAmount(s.Tier1Rate), s.UnitMinutes)
					after = fmt.Sprintf("%s/%dmin after %s", pricing.FormatAmount(s.Tier2Rate), s.UnitMinutes, durationfmt.FormatMinutes(s.ThresholdMinutes))
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Zone, s.Rule, rate, after, durationfmt.FormatMinutes(s.MaxDurationMinutes))
			}
			return w.Flush()
		},
	}
}

func newQuoteCmd() *cobra.Command {
	var zoneName, duration string
	quote := &cobra.Command{
		Use:   "quote --zone <zone> --duration <H:MM>",
		Short: "Price a duration locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(zoneName) == "" || strings.TrimSpace(duration) == "" {
				return fmt.Errorf("--zone and --duration are required")
			}
			zone, err := tariff.ParseZone(zoneName)
			if err != nil {
				return err
			}
			minutes, err := durationfmt.ParseClock(duration)
			if err != nil {
				return err
			}
			b, err := pricing.Compute(zone, minutes)
			if err != nil {
				return err
			}
			labels := pricing.LabelsFor(b)

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "zone=%s duration=%s\n", b.Zone, labels.Total)
			_, _ = fmt.Fprintf(out, "first  %s\t%s\n", labels.First, pricing.FormatAmount(b.FirstPeriodCost))
			if b.HasSecondPeriod {
				_, _ = fmt.Fprintf(out, "second %s\t%s\n", labels.Second, pricing.FormatAmount(b.SecondPeriodCost))
			}
			_, _ = fmt.Fprintf(out, "total  %s\n", pricing.FormatAmount(b.TotalCost))
			end := time.Now().Add(time.Duration(minutes) * time.Minute)
			_, _ = fmt.Fprintf(out, "ends   %s\n", durationfmt.FormatTimestamp(end, durationfmt.StyleTime, nil))
			if s, err := tariff.Lookup(zone); err == nil && s.ExceedsMax(minutes) {
				_, _ = fmt.Fprintf(out, "warning: zone %s allows at most %s\n", zone, durationfmt.FormatMinutes(s.MaxDurationMinutes))
			}
			return nil
		},
	}
	quote.Flags().StringVar(&zoneName, "zone", "", "zone: green|yellow|red|disable")
	quote.Flags().StringVar(&duration, "duration", "", "duration as H:MM")
	return quote
}

func newPeriodCmd() *cobra.Command {
	var minutes int
	period := &cobra.Command{
		Use:   "period --minutes <n>",
		Short: "Show the wire and display forms of a duration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if minutes < 0 {
				return fmt.Errorf("--minutes must not be negative")
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "clock=%s iso=%s label=%s\n",
				durationfmt.FormatClock(minutes),
				durationfmt.FormatISOPeriod(minutes),
				durationfmt.FormatMinutes(minutes),
			)
			return nil
		},
	}
	period.Flags().IntVar(&minutes, "minutes", 0, "duration in minutes")
	return period
}
