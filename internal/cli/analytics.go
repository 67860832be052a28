package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vytor/ctiprep/internal/app"
)

func newAnalyticsCommand(e *env) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Summarize every finished session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, false, func(ctx context.Context, a *app.App) error {
				report := a.History.Report(ctx)
				out := cmd.OutOrStdout()
				if asJSON {
					enc := json.NewEncoder(out)
					enc.SetIndent("", "  ")
					return enc.Encode(report)
				}

				fmt.Fprintf(out, "Sessions: %d\n", report.TotalSessions)
				fmt.Fprintf(out, "Answered: %d (%d correct, %d%% average)\n", report.TotalAnswered, report.TotalCorrect, report.AvgPct)
				fmt.Fprintf(out, "Time:     %s\n", formatSeconds(report.TotalTime))
				if report.TotalSessions == 0 {
					return nil
				}

				disciplines := make([]string, 0, len(report.ByDiscipline))
				for d := range report.ByDiscipline {
					disciplines = append(disciplines, d)
				}
				sort.Strings(disciplines)

				fmt.Fprintln(out)
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "Disciplina\tAcertos\tTotal\t%")
				for _, d := range disciplines {
					t := report.ByDiscipline[d]
					fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", d, t.Correct, t.Total, t.Pct)
				}
				if err := w.Flush(); err != nil {
					return err
				}

				weak := a.History.WeakSpots(ctx)
				if len(weak) > 0 {
					fmt.Fprintln(out, "\nWeak spots:")
					for _, t := range weak {
						fmt.Fprintf(out, "  %s: %d%% of %d\n", t.Tema, t.Pct, t.Total)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return cmd
}

func formatSeconds(total int64) string {
	h, m := total/3600, (total%3600)/60
	return fmt.Sprintf("%dh%02dm", h, m)
}
