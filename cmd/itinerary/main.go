package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"itinerary-planner/internal/config"
	"itinerary-planner/internal/itinerary"
	"itinerary-planner/internal/metrics"
	"itinerary-planner/internal/models"
	"itinerary-planner/internal/routing"
	"itinerary-planner/internal/server"
	"itinerary-planner/internal/travel"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type dayFlags struct {
	day   int
	write bool
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "itinerary",
		Short:         "Inspect and re-plan trip files offline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var flags dayFlags
	root.PersistentFlags().IntVar(&flags.day, "day", -1, "Day index to work on (default all days)")
	root.PersistentFlags().BoolVarP(&flags.write, "write", "w", false, "Write the result back to the trip file")

	root.AddCommand(newShowCmd(&flags))
	root.AddCommand(newDayCmd(&flags, "recalc", "Re-flow start and end times", itinerary.Recalculate))
	root.AddCommand(newDayCmd(&flags, "sort", "Order activities by start time", itinerary.SortByTime))
	root.AddCommand(newOptimizeCmd(&flags))
	return root
}

func newShowCmd(flags *dayFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Print a trip's schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			trip, err := readTrip(args[0])
			if err != nil {
				return err
			}
			days, err := selectDays(trip, flags.day)
			if err != nil {
				return err
			}
			printTrip(cmd.OutOrStdout(), trip, days)
			return nil
		},
	}
}

// newDayCmd builds a command that applies a pure day transformation
func newDayCmd(flags *dayFlags, use, short string, fn func(models.DayPlan) models.DayPlan) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <file>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return applyDays(cmd, flags, args[0], func(_ context.Context, day models.DayPlan) (models.DayPlan, error) {
				return fn(day), nil
			})
		},
	}
}

func newOptimizeCmd(flags *dayFlags) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "optimize <file>",
		Short: "Reorder activities and fetch fresh travel segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			var assembler routing.LegAssembler
			if offline {
				fallback := travel.NewHaversineEstimator(cfg.FallbackSpeedKmh, travel.DefaultFallbackWait)
				assembler = routing.NewAssembler(nil, nil, fallback, cfg.LegTimeout, metrics.Noop())
			} else {
				assembler = server.NewAssembler(cfg, nil, metrics.Noop())
			}
			optimizer := itinerary.NewOptimizer(assembler, cfg.Location())

			return applyDays(cmd, flags, args[0], func(ctx context.Context, day models.DayPlan) (models.DayPlan, error) {
				if len(day.Activities) < 2 {
					return day, nil
				}
				result, err := optimizer.Optimize(ctx, day)
				if err != nil {
					return day, err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "day %s: order=%v travel=%s placeholders=%d\n",
					day.Date, result.Order, time.Duration(result.Assembly.TotalTravelSecs)*time.Second, result.Assembly.Placeholders)
				return result.Day, nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Estimate legs by straight-line distance only")
	return cmd
}

// applyDays runs fn over the selected days, then prints or saves the trip
func applyDays(cmd *cobra.Command, flags *dayFlags, path string, fn func(context.Context, models.DayPlan) (models.DayPlan, error)) error {
	trip, err := readTrip(path)
	if err != nil {
		return err
	}
	days, err := selectDays(trip, flags.day)
	if err != nil {
		return err
	}

	for _, i := range days {
		day, err := fn(cmd.Context(), trip.Days[i])
		if err != nil {
			return fmt.Errorf("day %d: %w", i, err)
		}
		trip.Days[i] = day
	}

	if flags.write {
		if err := writeTrip(path, trip); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	}
	printTrip(cmd.OutOrStdout(), trip, days)
	return nil
}

func printTrip(w io.Writer, trip *models.Trip, days []int) {
	fmt.Fprintf(w, "%s\n", trip.Title)
	for _, i := range days {
		day := trip.Days[i]
		fmt.Fprintf(w, "\nDay %d  %s  start %s\n", i, day.Date, day.DayStart())

		segments := make(map[string]models.TravelSegment, len(day.TravelSegments))
		for _, s := range day.TravelSegments {
			segments[s.FromID+">"+s.ToID] = s
		}

		for k, a := range day.Activities {
			fmt.Fprintf(w, "  %s-%s  %s\n", a.StartTime, a.EndTime, a.Name)
			if k+1 == len(day.Activities) {
				continue
			}
			if s, ok := segments[a.ID+">"+day.Activities[k+1].ID]; ok {
				fmt.Fprintf(w, "      -> %s %s\n", s.Mode.Label(), s.Duration)
			}
		}
	}
}
