package cli

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vytor/ctiprep/internal/app"
	"github.com/vytor/ctiprep/internal/leitner"
	"github.com/vytor/ctiprep/internal/models"
)

func newStatsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the adaptive deck by box",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, false, func(ctx context.Context, a *app.App) error {
				deck := a.Deck.Deck(ctx)
				stats := leitner.Stats(deck, e.now())
				out := cmd.OutOrStdout()

				fmt.Fprintln(out, "Deck")
				fmt.Fprintln(out, "----")
				fmt.Fprintf(out, "Items:      %d\n", stats.Total)
				fmt.Fprintf(out, "Due now:    %d\n", stats.DueNow)
				fmt.Fprintf(out, "Daily goal: %d\n", deck.Settings.DailyGoal)
				fmt.Fprintf(out, "New/day:    %d\n", deck.Settings.NewPerDay)

				boxes := make([]int, 0, len(stats.ByBox))
				for b := range stats.ByBox {
					boxes = append(boxes, b)
				}
				sort.Ints(boxes)
				for _, b := range boxes {
					fmt.Fprintf(out, "Box %d (%dd): %d\n", b, leitner.IntervalDays(b), stats.ByBox[b])
				}
				return nil
			})
		},
	}
}

func newDueCommand(e *env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "due",
		Short: "List items due for review, most urgent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, false, func(ctx context.Context, a *app.App) error {
				due := leitner.SelectDue(a.Deck.Deck(ctx), e.now(), limit)
				out := cmd.OutOrStdout()
				if len(due) == 0 {
					fmt.Fprintln(out, "Nothing due. Come back later.")
					return nil
				}

				fmt.Fprintf(out, "%d items due:\n\n", len(due))
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tBox\tDue\tDisciplina\tTema")
				for _, it := range due {
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
						it.ID, it.Box, time.Unix(it.Due, 0).UTC().Format("2006-01-02 15:04"), it.Disciplina, it.Tema)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", -1, "maximum number of items (negative lists all)")
	return cmd
}

func newAddCommand(e *env) *cobra.Command {
	var (
		filter models.QuestionFilter
		qty    int
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add new questions from the bank to the deck",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.run(cmd, true, func(ctx context.Context, a *app.App) error {
				added, err := a.Deck.AddFromBank(ctx, filter, qty)
				if err != nil {
					return err
				}
				stats := a.Deck.Stats(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d items, the deck now has %d (%d due).\n", added, stats.Total, stats.DueNow)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filter.Disciplina, "disciplina", "", "only this discipline")
	cmd.Flags().StringVar(&filter.Area, "area", "", "only this area")
	cmd.Flags().StringVar(&filter.Tema, "tema", "", "only this topic")
	cmd.Flags().StringVar(&filter.Nivel, "nivel", "", "only this level")
	cmd.Flags().IntVarP(&qty, "qty", "q", 10, "how many questions to add")
	return cmd
}
