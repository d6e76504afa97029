package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/pauta/internal/db"
	"github.com/friendsincode/pauta/internal/holiday"
	"github.com/friendsincode/pauta/internal/store"
)

var seedHolidaysYears []int

var seedHolidaysCmd = &cobra.Command{
	Use:   "seed-holidays",
	Short: "Seed the Brazilian holiday calendar",
	Long: `Compute the Brazilian national holiday calendar for the given years
(fixed dates plus the Easter-derived movable dates) and upsert it into the
holidays table. Re-running for a year already seeded is a no-op.

State and municipal holidays are site-specific and are not generated; load
them with additional upserts against the same table.`,
	RunE: runSeedHolidays,
}

func init() {
	currentYear := time.Now().Year()
	seedHolidaysCmd.Flags().IntSliceVar(&seedHolidaysYears, "year", []int{currentYear, currentYear + 1}, "years to seed (repeatable)")
}

func runSeedHolidays(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	holidayStore := store.NewHolidayStore(database, nil, logger)
	ctx := context.Background()

	total := 0
	for _, year := range seedHolidaysYears {
		if year < 1900 || year > 2200 {
			return fmt.Errorf("year %d out of range", year)
		}
		for _, h := range holiday.ForYear(year) {
			if err := holidayStore.Upsert(ctx, h); err != nil {
				return fmt.Errorf("seed %d/%s: %w", year, h.Name, err)
			}
			total++
		}
		logger.Info().Int("year", year).Msg("holiday calendar seeded")
	}

	logger.Info().Int("holidays", total).Msg("seeding complete")
	return nil
}
