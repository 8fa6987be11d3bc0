package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"airquality-backend/internal/db"
	"airquality-backend/internal/seed"
	"airquality-backend/internal/store"
)

var (
	seedDays     int
	seedInterval time.Duration
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill an empty database with sample sensors and readings",
	Long: `Registers six sensors around Hanoi and generates synthetic readings for
each of them. Nothing is written when sensors already exist.

Examples:
  airqd seed
  airqd seed --days 30 --interval 15m`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedDays, "days", 0, "days of history to generate (default from seed.days)")
	seedCmd.Flags().DurationVar(&seedInterval, "interval", 0, "time between generated readings (default from seed.interval_minutes)")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, gormDB, err := bootstrap()
	if err != nil {
		return err
	}
	defer db.Close(gormDB)

	if err := db.Migrate(gormDB, &cfg.Database); err != nil {
		return err
	}

	opts := seed.Options{
		Days:     cfg.Seed.Days,
		Interval: time.Duration(cfg.Seed.IntervalMinutes) * time.Minute,
	}
	if cmd.Flags().Changed("days") {
		opts.Days = seedDays
	}
	if cmd.Flags().Changed("interval") {
		opts.Interval = seedInterval
	}

	seeded, err := seed.Run(cmd.Context(), store.NewGormStore(gormDB), opts)
	if err != nil {
		return err
	}
	if !seeded {
		fmt.Fprintln(cmd.OutOrStdout(), "Database already initialized!")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Database initialized with sample data!")
	return nil
}
