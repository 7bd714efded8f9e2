package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/tmarkovic/slotcal/internal/config"
	"github.com/tmarkovic/slotcal/internal/event"
	"github.com/tmarkovic/slotcal/internal/slot"
	"github.com/tmarkovic/slotcal/internal/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo users, events, and a month of slots",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var demoUsers = []user.CreateUserInput{
	{Email: "ana@example.com", Username: "ana", Password: "changeme", Firstname: "Ana", Lastname: "Horvat"},
	{Email: "marko@example.com", Username: "marko", Password: "changeme", Firstname: "Marko", Lastname: "Novak"},
	{Email: "iva@example.com", Username: "iva", Password: "changeme", Firstname: "Iva", Lastname: "Kovac"},
}

func demoEvents(base time.Time) []event.CreateEventInput {
	return []event.CreateEventInput{
		{
			Type:        "tournament",
			Urgency:     2,
			Game:        "cs2",
			Description: "Weekend qualifier, bring your own config.",
			DateStart:   base.AddDate(0, 0, 5),
			DateEnd:     base.AddDate(0, 0, 6),
		},
		{
			Type:        "scrim",
			Urgency:     1,
			Game:        "valorant",
			Description: "Practice against the B team.",
			DateStart:   base.AddDate(0, 0, 12),
			DateEnd:     base.AddDate(0, 0, 12).Add(3 * time.Hour),
			Partner:     true,
		},
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := user.NewStore(pool)
	events := event.NewStore(pool)
	slots := slot.NewStore(pool)

	for _, in := range demoUsers {
		u, err := users.Create(ctx, in)
		if errors.Is(err, user.ErrDuplicate) {
			slog.Info("user already seeded", "username", in.Username)
			continue
		}
		if err != nil {
			return fmt.Errorf("seeding user %s: %w", in.Username, err)
		}
		slog.Info("seeded user", "id", u.ID, "username", u.Username)
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	for _, in := range demoEvents(monthStart) {
		e, err := events.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("seeding event %s: %w", in.Type, err)
		}
		slog.Info("seeded event", "id", e.ID, "type", e.Type)
	}

	// One bookable slot per day for the current month.
	daysInMonth := monthStart.AddDate(0, 1, -1).Day()
	for day := 0; day < daysInMonth; day++ {
		s, err := slots.Create(ctx, slot.CreateSlotInput{
			SlotDate:    monthStart.AddDate(0, 0, day),
			MaxCapacity: 5,
		})
		if err != nil {
			return fmt.Errorf("seeding slot for day %d: %w", day+1, err)
		}
		slog.Info("seeded slot", "id", s.ID, "date", s.SlotDate.Format("2006-01-02"))
	}

	slog.Info("seed complete")
	return nil
}
