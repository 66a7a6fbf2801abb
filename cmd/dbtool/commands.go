package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tradie-schedule-service/internal/adapters/repositories"
	"tradie-schedule-service/internal/app"
	"tradie-schedule-service/internal/config"
	"tradie-schedule-service/internal/domain"
	"tradie-schedule-service/internal/platform/obs"
	"tradie-schedule-service/internal/services"
)

type rootOptions struct {
	databaseURL string
	verbose     bool

	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "dbtool",
		Short:         "Schema, seed and one-off maintenance for the schedule database",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if opts.databaseURL != "" {
				cfg.DatabaseURL = opts.databaseURL
			}
			level := cfg.LogLevel
			if opts.verbose {
				level = "debug"
			}
			slog.SetDefault(obs.NewLogger(obs.LogConfig{
				Level:       level,
				Format:      cfg.LogFormat,
				Output:      cmd.ErrOrStderr(),
				ServiceName: "dbtool",
			}))
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "override DATABASE_URL")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newRecalcCommand(opts))
	cmd.AddCommand(newOptimizeCommand(opts))
	cmd.AddCommand(newSweepCommand(opts))

	return cmd
}

func (o *rootOptions) container(cmd *cobra.Command) (*app.Container, error) {
	// dbtool runs one step and exits; queued notifications would have no consumer.
	return app.New(cmd.Context(), o.cfg, app.Options{Migrate: true, InlineNotifier: true})
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Schema ready (%s).\n", c.Dialect)
			return nil
		},
	}
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load owners, jobs, quotes and events from a JSON seed file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			if path == "" {
				path = opts.cfg.SeedPath
			}
			if err := repositories.SeedFromJSON(cmd.Context(), c.DB, c.Dialect, path, c.Loc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded from %s.\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "seed file (default SEED_PATH)")
	return cmd
}

func newRecalcCommand(opts *rootOptions) *cobra.Command {
	var owner, date string

	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate travel between one owner's events for a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			day, err := parseDay(date, c.Loc)
			if err != nil {
				return err
			}
			events, err := c.Chain.RecalculateDay(cmd.Context(), owner, day)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range events {
				travel := "-"
				if e.TravelMinutes != nil && e.TravelKm != nil {
					travel = fmt.Sprintf("%d min / %.1f km", *e.TravelMinutes, *e.TravelKm)
				}
				fmt.Fprintf(out, "%s  %-28s %s\n", e.Start.In(c.Loc).Format("15:04"), e.Title, travel)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id")
	cmd.Flags().StringVar(&date, "date", "", "day to recalculate (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newOptimizeCommand(opts *rootOptions) *cobra.Command {
	var (
		owner, date, start string
		breakMinutes       int
	)

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Reorder one owner's jobs for a day by nearest neighbor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			day, err := parseDay(date, c.Loc)
			if err != nil {
				return err
			}

			var origin *domain.Coordinates
			if start != "" {
				if origin, err = parseLatLng(start); err != nil {
					return err
				}
			} else if origin, err = c.Catalog.BaseLocation(cmd.Context(), owner); err != nil {
				return err
			}
			if origin == nil {
				return fmt.Errorf("owner %s has no base location; pass --start lat,lng", owner)
			}

			req := services.OptimizeDayRequest{
				OwnerID:       owner,
				Date:          day,
				StartLocation: *origin,
				WorkDayStart:  c.WorkdayStart,
			}
			if cmd.Flags().Changed("break") {
				req.BreakMinutes = &breakMinutes
			}

			result, err := c.Optimizer.OptimizeDay(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Summary)
			for _, e := range result.Events {
				fmt.Fprintf(out, "%s-%s  %s\n",
					e.Start.In(c.Loc).Format("15:04"), e.End.In(c.Loc).Format("15:04"), e.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "owner id")
	cmd.Flags().StringVar(&date, "date", "", "day to optimize (YYYY-MM-DD)")
	cmd.Flags().StringVar(&start, "start", "", "start location as lat,lng (default owner base)")
	cmd.Flags().IntVar(&breakMinutes, "break", 0, "break minutes after the middle stop")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func newSweepCommand(opts *rootOptions) *cobra.Command {
	var daysAhead int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Recalculate travel for every owner with events on an upcoming day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.container(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			c.Sweep.DaysAhead = daysAhead
			res, err := c.Sweep.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d owners, %d failed\n",
				res.Date.Format(time.DateOnly), res.Owners, res.Failed)
			return nil
		},
	}
	cmd.Flags().IntVar(&daysAhead, "days-ahead", 1, "0 for today, 1 for tomorrow")
	return cmd
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q must be YYYY-MM-DD: %w", s, domain.ErrInvalidInput)
	}
	return d, nil
}

func parseLatLng(s string) (*domain.Coordinates, error) {
	var c domain.Coordinates
	if _, err := fmt.Sscanf(strings.ReplaceAll(s, " ", ""), "%f,%f", &c.Lat, &c.Lng); err != nil || !c.Valid() {
		return nil, fmt.Errorf("start %q must be lat,lng: %w", s, domain.ErrInvalidInput)
	}
	return &c, nil
}
